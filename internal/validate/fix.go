package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/HendryAvila/plansync/internal/outline"
)

// PlaceholderTitle is the title given to every gap-filling line.
const PlaceholderTitle = "TODO (auto-inserted)"

// MaxFillRun is the longest run of missing siblings FixMissing fills in.
// Longer runs are almost always a typo in the next code.
const MaxFillRun = 50

// Fix is a preview of the document with every missing sibling filled in.
// Nothing is written; callers show Diff and leave the source alone.
type Fix struct {
	Inserted []string // codes that would be inserted, in document order
	Skipped  []Issue  // runs longer than MaxFillRun, left for a human
	Text     string   // the would-be document
	Diff     string   // unified diff from the original to Text
}

// FixMissing computes placeholder lines for each missing-sibling issue in
// rep. Each placeholder goes immediately before the next present sibling
// and copies that sibling's prefix (heading hashes, indent, list marker).
func FixMissing(text, name string, rep *Report) (*Fix, error) {
	lines := outline.SplitLines(text)

	fix := &Fix{}

	// anchor line index -> missing issues to insert before it
	before := make(map[int][]Issue)
	for _, is := range rep.Issues {
		if is.Kind != IssueMissingSibling || len(is.Lines) == 0 {
			continue
		}
		if is.Span() > MaxFillRun {
			fix.Skipped = append(fix.Skipped, is)
			continue
		}
		idx := is.Lines[0] - 1
		before[idx] = append(before[idx], is)
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		missing := before[i]
		slices.SortFunc(missing, func(a, b Issue) int { return outline.CompareCodes(a.Code, b.Code) })
		for _, is := range missing {
			for _, code := range is.Codes() {
				out = append(out, placeholder(line, code))
				fix.Inserted = append(fix.Inserted, code)
			}
		}
		out = append(out, line)
	}
	fix.Text = strings.Join(out, "\n")

	if len(fix.Inserted) == 0 {
		return fix, nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(lines, "\n")),
		B:        difflib.SplitLines(fix.Text),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  2,
	})
	if err != nil {
		return nil, fmt.Errorf("building fix preview diff: %w", err)
	}
	fix.Diff = diff
	return fix, nil
}

// placeholder builds a line for code shaped like the anchor line.
func placeholder(anchor, code string) string {
	if outline.IsStepHeader(anchor) {
		return "# Step " + code + " — " + PlaceholderTitle
	}
	token, _, _ := outline.ClassifyLine(anchor)
	prefix := ""
	if i := strings.Index(anchor, token); token != "" && i >= 0 {
		prefix = anchor[:i]
	}
	return prefix + code + " " + PlaceholderTitle
}
