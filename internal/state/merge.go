package state

import (
	"slices"

	"github.com/HendryAvila/plansync/internal/outline"
)

// MergeOptions tunes Merge.
type MergeOptions struct {
	// ReopenOnNewChild moves a completed ancestor back to in-progress when
	// a new code appears beneath it. Only applies once a previous run has
	// recorded its code set.
	ReopenOnNewChild bool
}

// MergeResult lists what Merge changed, for logging and the journal.
type MergeResult struct {
	Pruned   []string // codes dropped because they left the outline
	Coerced  []string // codes whose stored status was invalid
	Added    []string // codes back-filled with pending
	Reopened []string // completed ancestors moved to in-progress
}

// Empty reports whether the merge changed nothing.
func (r MergeResult) Empty() bool {
	return len(r.Pruned) == 0 && len(r.Coerced) == 0 && len(r.Added) == 0 && len(r.Reopened) == 0
}

// Merge reconciles prior with the codes present in tree. It assigns every
// node its stored status and returns the updated store; prior is not
// modified. Merge does no I/O.
func Merge(tree *outline.Tree, prior *Store, opts MergeOptions) (*Store, MergeResult) {
	next := prior.Clone()
	var res MergeResult

	current := tree.Codes()
	present := make(map[string]bool, len(current))
	for _, c := range current {
		present[c] = true
	}

	for code := range next.StatusByCode {
		if !present[code] {
			delete(next.StatusByCode, code)
			res.Pruned = append(res.Pruned, code)
		}
	}
	slices.SortFunc(res.Pruned, outline.CompareCodes)

	for _, code := range current {
		s, ok := next.StatusByCode[code]
		switch {
		case !ok:
			next.StatusByCode[code] = outline.StatusPending
			res.Added = append(res.Added, code)
		case !s.Valid():
			next.StatusByCode[code] = outline.StatusPending
			res.Coerced = append(res.Coerced, code)
		}
	}

	if opts.ReopenOnNewChild && len(prior.KnownCodes) > 0 {
		res.Reopened = reopenAncestors(next, prior.KnownCodes, current)
	}

	tree.Walk(func(n *outline.Node) {
		n.Status = next.StatusByCode[n.Code]
	})

	next.KnownCodes = current
	return next, res
}

func reopenAncestors(next *Store, known, current []string) []string {
	wasKnown := make(map[string]bool, len(known))
	for _, c := range known {
		wasKnown[c] = true
	}

	var reopened []string
	for _, code := range current {
		if wasKnown[code] {
			continue
		}
		for _, a := range outline.Ancestors(code) {
			if next.StatusByCode[a] == outline.StatusCompleted {
				next.StatusByCode[a] = outline.StatusInProgress
				reopened = append(reopened, a)
			}
		}
	}
	return reopened
}
