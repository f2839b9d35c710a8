package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
)

const (
	todoTitle  = "# Synced Todo List (Flattened)"
	todoLegend = "Legend: ✅ completed · ⏳ in-progress"
)

// Todo renders the flattened todo list as nested bullets, two spaces of
// indent per level below the Step.
func Todo(tree *outline.Tree) string {
	lines := []string{todoTitle, "", todoLegend, ""}
	tree.Walk(func(n *outline.Node) {
		pad := strings.Repeat("  ", max(0, n.Level()-1))
		lines = append(lines, trimEnd(pad+"- "+withMarker(n.Marker)+n.DisplayTitle()))
	})
	return finish(strings.Join(lines, "\n"))
}

// ManifestEntry is one flattened node in the JSON manifest.
type ManifestEntry struct {
	Code          string         `json:"code"`
	Kind          outline.Kind   `json:"kind"`
	Title         string         `json:"title"`
	Status        outline.Status `json:"status"`
	DerivedStatus outline.Status `json:"derivedStatus"`
	Marker        string         `json:"marker"`
}

// ManifestDoc is the JSON manifest document.
type ManifestDoc struct {
	GeneratedBy string          `json:"generatedBy"`
	Todos       []ManifestEntry `json:"todos"`
}

// BuildManifest flattens the tree in walk order.
func BuildManifest(tree *outline.Tree, generatedBy string) ManifestDoc {
	doc := ManifestDoc{GeneratedBy: generatedBy, Todos: []ManifestEntry{}}
	tree.Walk(func(n *outline.Node) {
		doc.Todos = append(doc.Todos, ManifestEntry{
			Code:          n.Code,
			Kind:          n.Kind,
			Title:         n.Title,
			Status:        n.Status,
			DerivedStatus: n.DerivedStatus,
			Marker:        n.Marker,
		})
	})
	return doc
}

// Manifest renders the manifest as 2-space indented JSON with a trailing
// newline.
func Manifest(tree *outline.Tree, generatedBy string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildManifest(tree, generatedBy)); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return buf.Bytes(), nil
}
