package outline

import "strings"

// --- Node kind enum ---

// Kind identifies where a node sits in the Step → Topic → Item hierarchy.
type Kind string

const (
	KindStep  Kind = "step"
	KindTopic Kind = "topic"
	KindItem  Kind = "item"
)

// --- Status enum ---

// Status is the completion state of a node.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// validStatuses is the set of allowed statuses.
var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
}

// Valid reports whether s is one of the three recognised statuses.
func (s Status) Valid() bool {
	return validStatuses[s]
}

// --- Core data structures ---

// Node is one Step, Topic or Item of the outline.
type Node struct {
	Code    string
	Kind    Kind
	Title   string
	RawLine string // trimmed source line, kept to preserve heading style

	Children []*Node

	Status        Status
	DerivedStatus Status
	Marker        string
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Level returns the depth encoded by the node's code.
func (n *Node) Level() int {
	return Level(n.Code)
}

// HeadingHashes returns the leading '#' run of the original line, or ""
// when the node came from a plain or list line.
func (n *Node) HeadingHashes() string {
	i := 0
	for i < len(n.RawLine) && n.RawLine[i] == '#' {
		i++
	}
	if i == 0 || i >= len(n.RawLine) || (n.RawLine[i] != ' ' && n.RawLine[i] != '\t') {
		return ""
	}
	return n.RawLine[:i]
}

// Items returns the item children, preserving order.
func (n *Node) Items() []*Node {
	return n.childrenOfKind(KindItem)
}

// Topics returns the topic children, preserving order.
func (n *Node) Topics() []*Node {
	return n.childrenOfKind(KindTopic)
}

func (n *Node) childrenOfKind(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Diagnostic records a place where the parser had to guess: an item whose
// direct parent is absent, or a Topic that appeared under another Step.
type Diagnostic struct {
	Line       int    // 1-based line number in the source
	Code       string // code of the node being attached
	WantParent string // direct parent code that was not found
	AttachedTo string // code of the node it was attached to, "" if dropped
}

// Message renders the diagnostic for logs.
func (d Diagnostic) Message() string {
	switch d.AttachedTo {
	case "":
		return "no parent found for " + d.Code + " (missing " + d.WantParent + "); node is not attached"
	case d.WantParent:
		return d.Code + " moved under " + d.WantParent + " from a later Step section"
	}
	return d.Code + " attached to " + d.AttachedTo + " because " + d.WantParent + " is missing"
}

// Tree is the parsed outline: the verbatim preamble plus the ordered Steps.
type Tree struct {
	HeaderLines []string
	Steps       []*Node
	Diagnostics []Diagnostic
}

// Walk visits every node depth-first: each Step, then the items attached
// directly to it, then each Topic followed by its items recursively.
func (t *Tree) Walk(visit func(*Node)) {
	for _, step := range t.Steps {
		visit(step)
		walkItems(step.Items(), visit)
		for _, topic := range step.Topics() {
			visit(topic)
			walkItems(topic.Children, visit)
		}
	}
}

func walkItems(items []*Node, visit func(*Node)) {
	for _, it := range items {
		visit(it)
		walkItems(it.Children, visit)
	}
}

// Nodes returns every node in Walk order.
func (t *Tree) Nodes() []*Node {
	var out []*Node
	t.Walk(func(n *Node) { out = append(out, n) })
	return out
}

// Codes returns every code in Walk order. Duplicated codes appear once.
func (t *Tree) Codes() []string {
	seen := make(map[string]bool)
	var out []string
	t.Walk(func(n *Node) {
		if !seen[n.Code] {
			seen[n.Code] = true
			out = append(out, n.Code)
		}
	})
	return out
}

// Find returns the first node with the given code.
func (t *Tree) Find(code string) *Node {
	var found *Node
	t.Walk(func(n *Node) {
		if found == nil && n.Code == code {
			found = n
		}
	})
	return found
}

// DisplayTitle returns the code and title as a reader sees them.
// Steps render as "Step N — Title".
func (n *Node) DisplayTitle() string {
	if n.Kind == KindStep {
		return strings.TrimSpace("Step " + n.Code + " — " + n.Title)
	}
	return strings.TrimSpace(n.Code + " " + n.Title)
}
