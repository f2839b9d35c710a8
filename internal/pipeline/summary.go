package pipeline

import "github.com/HendryAvila/plansync/internal/outline"

// StepProgress is the leaf completion count under one Step.
type StepProgress struct {
	Code       string         `json:"code"`
	Title      string         `json:"title"`
	Status     outline.Status `json:"status"`
	Marker     string         `json:"marker"`
	Done       int            `json:"done"`
	InProgress int            `json:"in_progress"`
	Total      int            `json:"total"`
}

// NextItem is an open leaf worth working on.
type NextItem struct {
	Code   string         `json:"code"`
	Title  string         `json:"title"`
	Status outline.Status `json:"status"`
}

// Progress summarizes a propagated tree. Counts are over leaves only so
// that a Step with ten items weighs more than a Step with one.
type Progress struct {
	Steps      []StepProgress `json:"steps"`
	Done       int            `json:"done"`
	InProgress int            `json:"in_progress"`
	Total      int            `json:"total"`
	Next       []NextItem     `json:"next,omitempty"`
}

// Percent returns overall completion, 0 when there are no leaves.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Done * 100 / p.Total
}

// Summarize counts leaf statuses per Step. The next limit leaves to work
// on are listed: in-progress ones first, then pending, in walk order.
func Summarize(tree *outline.Tree, limit int) Progress {
	var p Progress
	var started, pending []NextItem

	for _, step := range tree.Steps {
		sp := StepProgress{Code: step.Code, Title: step.Title, Status: step.Status, Marker: step.Marker}
		countLeaves(step, func(n *outline.Node) {
			sp.Total++
			switch n.Status {
			case outline.StatusCompleted:
				sp.Done++
			case outline.StatusInProgress:
				sp.InProgress++
				started = append(started, NextItem{Code: n.Code, Title: n.Title, Status: n.Status})
			default:
				pending = append(pending, NextItem{Code: n.Code, Title: n.Title, Status: n.Status})
			}
		})
		p.Steps = append(p.Steps, sp)
		p.Done += sp.Done
		p.InProgress += sp.InProgress
		p.Total += sp.Total
	}

	for _, n := range append(started, pending...) {
		if len(p.Next) >= limit {
			break
		}
		p.Next = append(p.Next, n)
	}
	return p
}

// countLeaves visits the leaves under n in walk order: direct items
// before topics. A childless Step counts as its own leaf.
func countLeaves(n *outline.Node, visit func(*outline.Node)) {
	if n.IsLeaf() {
		visit(n)
		return
	}
	for _, c := range n.Items() {
		countLeaves(c, visit)
	}
	for _, c := range n.Topics() {
		countLeaves(c, visit)
	}
}
