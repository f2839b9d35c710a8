package state

import "github.com/HendryAvila/plansync/internal/outline"

// markers maps each status to the glyph shown before its code.
var markers = map[outline.Status]string{
	outline.StatusCompleted:  "✅",
	outline.StatusInProgress: "⏳",
	outline.StatusPending:    "",
}

// DeriveMarker returns the display glyph for a status.
func DeriveMarker(s outline.Status) string {
	return markers[s]
}

// DeriveMarkers sets DerivedStatus and Marker on every node from its
// (already propagated) status.
func DeriveMarkers(tree *outline.Tree) {
	tree.Walk(func(n *outline.Node) {
		n.DerivedStatus = n.Status
		n.Marker = DeriveMarker(n.Status)
	})
}
