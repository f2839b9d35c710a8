package state

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
)

// statusAliases maps the words accepted on the command line to statuses.
var statusAliases = map[string]outline.Status{
	"pending": outline.StatusPending,
	"todo":    outline.StatusPending,
	"reset":   outline.StatusPending,

	"in-progress": outline.StatusInProgress,
	"inprogress":  outline.StatusInProgress,
	"progress":    outline.StatusInProgress,
	"start":       outline.StatusInProgress,
	"started":     outline.StatusInProgress,
	"doing":       outline.StatusInProgress,

	"completed": outline.StatusCompleted,
	"complete":  outline.StatusCompleted,
	"done":      outline.StatusCompleted,
	"finish":    outline.StatusCompleted,
	"finished":  outline.StatusCompleted,
}

// ParseStatus resolves a status word or alias, case-insensitively.
func ParseStatus(word string) (outline.Status, error) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(word))]
	if !ok {
		return "", fmt.Errorf("unknown status %q (use pending, in-progress or completed)", word)
	}
	return s, nil
}

// assignment matches the compact "1.2.3- start" form.
var assignment = regexp.MustCompile(`^(\d+(?:\.\d+)*)\s*[-–—:]?\s*([A-Za-z-]+)$`)

// ParseAssignment accepts either ["1.2.3", "start"] or the single argument
// "1.2.3- start" and returns the code and status it names.
func ParseAssignment(args []string) (string, outline.Status, error) {
	raw := strings.TrimSpace(strings.Join(args, " "))

	var code, word string
	if m := assignment.FindStringSubmatch(raw); m != nil {
		code, word = m[1], m[2]
	} else if len(args) == 2 {
		code, word = strings.TrimSpace(args[0]), args[1]
	} else {
		return "", "", fmt.Errorf("expected <code> <status>, got %q", raw)
	}

	if !outline.IsWellFormed(code) {
		return "", "", fmt.Errorf("malformed code %q", code)
	}
	s, err := ParseStatus(word)
	if err != nil {
		return "", "", err
	}
	return code, s, nil
}
