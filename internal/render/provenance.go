// Package render turns a status-annotated outline tree into the generated
// artifacts: the plan document, the flattened todo list and the JSON
// manifest. Every function here is pure; equal inputs give equal bytes.
package render

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
)

// Provenance identifies the inputs a generated document came from.
type Provenance struct {
	SourceRel string // source path relative to the project root, slash separated
	StateRel  string // state path relative to the project root, slash separated
}

// RelPath returns target relative to root with forward slashes. It falls
// back to the cleaned target when no relative path exists.
func RelPath(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(target))
	}
	return filepath.ToSlash(rel)
}

// Checksum returns the hex SHA-1 of the normalized source text.
func Checksum(text string) string {
	sum := sha1.Sum([]byte(outline.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

const provenancePrefix = "plansync:"

// provenanceLine matches a header comment written by Header, plus the
// prefix used by the older generator so its outputs can be bootstrapped.
var provenanceLine = regexp.MustCompile(`^<!--\s*(?:plansync:|GENERATED_BY_SYNC_TODOS)`)

// Header returns the four provenance comment lines followed by a blank line.
func Header(checksum string, prov Provenance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- %sgenerated true -->\n", provenancePrefix)
	fmt.Fprintf(&b, "<!-- %schecksum %s -->\n", provenancePrefix, checksum)
	fmt.Fprintf(&b, "<!-- %ssource %s -->\n", provenancePrefix, prov.SourceRel)
	fmt.Fprintf(&b, "<!-- %sstate %s -->\n", provenancePrefix, prov.StateRel)
	b.WriteString("\n")
	return b.String()
}

// StripProvenance removes the leading provenance comments and the blank
// lines after them.
func StripProvenance(md string) string {
	lines := outline.SplitLines(md)
	i := 0
	for i < len(lines) && provenanceLine.MatchString(strings.TrimSpace(lines[i])) {
		i++
	}
	if i == 0 {
		return strings.Join(lines, "\n")
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return strings.Join(lines[i:], "\n")
}

// HeaderChecksum extracts the source checksum recorded in a generated
// document, or "" when there is none.
func HeaderChecksum(md string) string {
	for _, line := range outline.SplitLines(md) {
		line = strings.TrimSpace(line)
		if !provenanceLine.MatchString(line) {
			break
		}
		if rest, ok := strings.CutPrefix(line, "<!-- "+provenancePrefix+"checksum "); ok {
			return strings.TrimSpace(strings.TrimSuffix(rest, "-->"))
		}
	}
	return ""
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// finish collapses runs of blank lines and ends the text with exactly one
// newline.
func finish(s string) string {
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, "\n") + "\n"
}
