package outline

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// An optional badge token (emoji, tag) may precede "Step".
	stepDetect   = regexp.MustCompile(`(?i)^#\s+(?:\S+\s+)?Step\s+\d+`)
	stepFull     = regexp.MustCompile(`(?i)^#\s+(?:\S+\s+)?Step\s+(\d+)\s+[—–-]\s+(.*)$`)
	stepFallback = regexp.MustCompile(`(?i)^#\s+(?:\S+\s+)?Step\s+(\d+)\s*(.*)$`)

	// "## 1.2 Title" opens a Topic only at column 0; item headings may be
	// indented but then need at least three hashes.
	headingLine         = regexp.MustCompile(`^#{2,}\s+(.*)$`)
	indentedHeadingLine = regexp.MustCompile(`^\s+#{3,}\s+(.*)$`)

	// Blockquote and list markers stripped before looking for a code.
	listPrefix = regexp.MustCompile(`^\s*(?:>\s*)?(?:[-*+]\s+)+`)
)

// Normalize converts CRLF line endings to LF and applies Unicode NFC so
// that visually identical sources hash and parse identically.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return norm.NFC.String(text)
}

// IsStepHeader reports whether line opens a Step.
func IsStepHeader(line string) bool {
	return stepDetect.MatchString(line)
}

// SplitLines normalizes text and splits it into lines.
func SplitLines(text string) []string {
	return strings.Split(Normalize(text), "\n")
}

// StripListPrefix removes leading whitespace, blockquote and list markers.
func StripListPrefix(line string) string {
	return strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
}

// CutToken splits s at its first whitespace run.
func CutToken(s string) (token, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// LineShape is the way a body line can carry a code.
type LineShape int

const (
	// ShapePlain is a bare, list or blockquote line.
	ShapePlain LineShape = iota
	// ShapeHeading is a "##"-or-deeper heading at column 0.
	ShapeHeading
	// ShapeIndentedHeading is an indented "###"-or-deeper heading.
	ShapeIndentedHeading
)

// ClassifyLine returns the first token of a body line that could be a
// code, the text after it, and the line's shape. Step headers are not
// classified; callers check IsStepHeader first. The token is not
// validated.
func ClassifyLine(line string) (token, rest string, shape LineShape) {
	if m := headingLine.FindStringSubmatch(line); m != nil {
		token, rest = CutToken(strings.TrimSpace(m[1]))
		return token, rest, ShapeHeading
	}
	if m := indentedHeadingLine.FindStringSubmatch(line); m != nil {
		token, rest = CutToken(strings.TrimSpace(m[1]))
		return token, rest, ShapeIndentedHeading
	}
	token, rest = CutToken(StripListPrefix(line))
	return token, rest, ShapePlain
}

// CodeLevel reports the level at which a classified line contributes a
// node: 2 for a Topic, 3 or more for an Item, 0 when the line is not a
// node. Malformed tokens yield 0.
func CodeLevel(token string, shape LineShape) int {
	if !IsWellFormed(token) {
		return 0
	}
	switch lvl := Level(token); {
	case lvl >= 3:
		return lvl
	case lvl == 2 && shape == ShapeHeading:
		return 2
	}
	return 0
}

// parser holds the per-run scan state. Nothing survives a Parse call.
type parser struct {
	tree     *Tree
	registry map[string]*Node
	step     *Node
	topic    *Node
}

// Parse builds a Tree from outline text. It never fails; lines it cannot
// interpret are skipped.
func Parse(text string) *Tree {
	lines := SplitLines(text)

	headerEnd := len(lines)
	for i, line := range lines {
		if IsStepHeader(line) {
			headerEnd = i
			break
		}
	}

	p := &parser{
		tree:     &Tree{HeaderLines: trimTrailingBlank(lines[:headerEnd])},
		registry: make(map[string]*Node),
	}

	for i := headerEnd; i < len(lines); i++ {
		p.scanLine(i+1, lines[i])
	}

	for _, step := range p.tree.Steps {
		sortChildren(step)
	}
	return p.tree
}

func (p *parser) scanLine(lineNo int, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if IsStepHeader(line) {
		p.addStep(line, trimmed)
		return
	}

	code, title, shape := ClassifyLine(line)
	switch CodeLevel(code, shape) {
	case 0:
		// prose, ordered lists, malformed codes
	case 2:
		p.addTopic(lineNo, code, title, trimmed)
	default:
		p.addItem(lineNo, code, title, trimmed)
	}
}

func (p *parser) addStep(line, trimmed string) {
	var code, title string
	if m := stepFull.FindStringSubmatch(line); m != nil {
		code, title = m[1], strings.TrimSpace(m[2])
	} else if m := stepFallback.FindStringSubmatch(line); m != nil {
		code, title = m[1], strings.TrimSpace(m[2])
	} else {
		return
	}

	step := &Node{Code: code, Kind: KindStep, Title: title, RawLine: trimmed, Status: StatusPending}
	p.tree.Steps = append(p.tree.Steps, step)
	p.registry[code] = step
	p.step = step
	p.topic = nil
}

func (p *parser) addTopic(lineNo int, code, title, trimmed string) {
	topic := &Node{Code: code, Kind: KindTopic, Title: title, RawLine: trimmed, Status: StatusPending}

	stepCode := ParentCode(code)
	if p.step == nil || p.step.Code != stepCode {
		for _, s := range p.tree.Steps {
			if s.Code == stepCode {
				p.step = s
				break
			}
		}
		// Either moved under its own Step or left under the current one.
		d := Diagnostic{Line: lineNo, Code: code, WantParent: stepCode}
		if p.step != nil {
			d.AttachedTo = p.step.Code
		}
		p.tree.Diagnostics = append(p.tree.Diagnostics, d)
	}

	if p.step != nil {
		p.step.Children = append(p.step.Children, topic)
	}

	p.registry[code] = topic
	p.topic = topic
}

func (p *parser) addItem(lineNo int, code, title, trimmed string) {
	node := &Node{Code: code, Kind: KindItem, Title: title, RawLine: trimmed, Status: StatusPending}

	want := ParentCode(code)
	parent := p.registry[want]
	if parent == nil {
		parent = p.nearestAncestor(code)
		if parent == nil {
			if p.topic != nil {
				parent = p.topic
			} else {
				parent = p.step
			}
		}
		d := Diagnostic{Line: lineNo, Code: code, WantParent: want}
		if parent != nil {
			d.AttachedTo = parent.Code
		}
		p.tree.Diagnostics = append(p.tree.Diagnostics, d)
	}

	if parent != nil {
		parent.Children = append(parent.Children, node)
	}
	p.registry[code] = node
}

// nearestAncestor walks the code's own prefixes, skipping the direct
// parent (already checked), down to the topic level.
func (p *parser) nearestAncestor(code string) *Node {
	parts := Segments(code)
	for lvl := len(parts) - 2; lvl >= 2; lvl-- {
		if n, ok := p.registry[strings.Join(parts[:lvl], ".")]; ok {
			return n
		}
	}
	return nil
}

// sortChildren orders siblings by the numeric value of their final
// segment at every level. The sort is stable so equal codes keep
// source order.
func sortChildren(n *Node) {
	slices.SortStableFunc(n.Children, func(a, b *Node) int {
		return LastSegment(a.Code) - LastSegment(b.Code)
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return slices.Clone(lines[:end])
}
