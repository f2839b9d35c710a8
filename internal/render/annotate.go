package render

import (
	"regexp"
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
)

var (
	annotateHeading = regexp.MustCompile(`^(\s*#+\s*)(\d+(?:\.\d+)*)(\s.*)?$`)
	annotateStep    = regexp.MustCompile(`(?i)^(#\s+(?:\S+\s+)?)(Step\s+(\d+).*)$`)

	// A marker directly before a code or "Step", as written by this package.
	markerToken = regexp.MustCompile(`(?:✅|⏳)\s+(Step\s|\d)`)
)

// Annotate returns the source text verbatim with each node's marker
// inserted before its code, under the provenance header. It is the
// alternative to Plan for authors who want their own formatting kept.
func Annotate(source string, tree *outline.Tree, checksum string, prov Provenance) string {
	markers := make(map[string]string)
	tree.Walk(func(n *outline.Node) {
		if _, seen := markers[n.Code]; !seen {
			markers[n.Code] = n.Marker
		}
	})

	lines := outline.SplitLines(source)
	for i, line := range lines {
		lines[i] = annotateLine(line, markers)
	}
	return finish(Header(checksum, prov) + strings.Join(lines, "\n"))
}

func annotateLine(line string, markers map[string]string) string {
	if strings.TrimSpace(line) == "" {
		return line
	}

	if m := annotateStep.FindStringSubmatch(line); m != nil && outline.IsStepHeader(line) {
		return m[1] + withMarker(markers[m[3]]) + m[2]
	}
	if m := annotateHeading.FindStringSubmatch(line); m != nil {
		return m[1] + withMarker(markers[m[2]]) + m[2] + m[3]
	}

	code, _ := outline.CutToken(outline.StripListPrefix(line))
	if mk := markers[code]; mk != "" && outline.IsWellFormed(code) {
		return strings.Replace(line, code, mk+" "+code, 1)
	}
	return line
}

// Bootstrap recovers a source document from a generated plan by removing
// the provenance header and every status marker.
func Bootstrap(planMD string) string {
	body := StripProvenance(planMD)
	body = markerToken.ReplaceAllString(body, "$1")
	return strings.TrimRight(body, "\n") + "\n"
}
