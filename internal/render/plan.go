package render

import (
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
)

// Plan renders the generated plan document: provenance header, the
// verbatim preamble, then every Step, Topic and Item with its marker.
func Plan(tree *outline.Tree, checksum string, prov Provenance) string {
	var lines []string
	if len(tree.HeaderLines) > 0 {
		lines = append(lines, tree.HeaderLines...)
		lines = append(lines, "")
	}

	for _, step := range tree.Steps {
		lines = append(lines, trimEnd("# "+withMarker(step.Marker)+"Step "+step.Code+" — "+step.Title), "")
		lines = appendItems(lines, step.Items(), 1)

		for _, topic := range step.Topics() {
			lines = append(lines, trimEnd("## "+withMarker(topic.Marker)+topic.Code+" "+topic.Title))
			lines = appendItems(lines, topic.Children, 1)
			lines = append(lines, "")
		}
	}

	return finish(Header(checksum, prov) + strings.Join(lines, "\n"))
}

// appendItems emits items depth-first. Items that were headings in the
// source keep their hash run; the rest are indented three spaces per level.
func appendItems(lines []string, items []*outline.Node, depth int) []string {
	for _, it := range items {
		body := withMarker(it.Marker) + it.Code + " " + it.Title
		if hashes := it.HeadingHashes(); hashes != "" {
			lines = append(lines, trimEnd(hashes+" "+body))
		} else {
			lines = append(lines, trimEnd(strings.Repeat("   ", depth)+body))
		}
		lines = appendItems(lines, it.Children, depth+1)
	}
	return lines
}

func withMarker(m string) string {
	if m == "" {
		return ""
	}
	return m + " "
}

func trimEnd(s string) string {
	return strings.TrimRight(s, " \t")
}
