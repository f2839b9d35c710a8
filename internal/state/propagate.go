package state

import (
	"slices"

	"github.com/HendryAvila/plansync/internal/outline"
)

// Change records one status moved by propagation.
type Change struct {
	Code string
	From outline.Status
	To   outline.Status
}

// Propagate rolls completion up the tree, deepest nodes first, so each
// parent sees its children's final statuses. A parent whose direct
// children are all completed becomes completed; a parent with any
// in-progress child becomes in-progress. Nothing is ever demoted and
// leaves are untouched.
func Propagate(tree *outline.Tree) []Change {
	nodes := tree.Nodes()
	slices.SortStableFunc(nodes, func(a, b *outline.Node) int {
		return b.Level() - a.Level()
	})

	var changes []Change
	for _, n := range nodes {
		if n.IsLeaf() {
			continue
		}
		next := rollUp(n)
		if next != n.Status {
			changes = append(changes, Change{Code: n.Code, From: n.Status, To: next})
			n.Status = next
		}
	}
	return changes
}

func rollUp(n *outline.Node) outline.Status {
	allDone := true
	for _, c := range n.Children {
		if c.Status == outline.StatusInProgress {
			return outline.StatusInProgress
		}
		if c.Status != outline.StatusCompleted {
			allDone = false
		}
	}
	if allDone {
		return outline.StatusCompleted
	}
	return n.Status
}
