// Package validate checks the structural integrity of a plan outline:
// duplicate, malformed and orphaned codes, and gaps in sibling numbering.
// It works on the raw text so it can point at source lines.
package validate

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/HendryAvila/plansync/internal/outline"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueKind names the rule an issue violates.
type IssueKind string

const (
	IssueDuplicate      IssueKind = "duplicate"
	IssueMalformed      IssueKind = "malformed"
	IssueOrphan         IssueKind = "orphan"
	IssueMissingSibling IssueKind = "missing-sibling"
)

// Issue is a single finding. Lines are 1-based source line numbers; for a
// missing sibling the line is that of the next present sibling.
type Issue struct {
	Kind     IssueKind
	Severity Severity
	Code     string
	// Through is the last code of a run of consecutive missing siblings
	// starting at Code; empty when a single code is missing.
	Through string
	Lines   []int
	Message string
}

// Codes expands a missing-sibling run into its codes. Other issues yield
// their single code.
func (is Issue) Codes() []string {
	if is.Through == "" {
		return []string{is.Code}
	}
	parent := outline.ParentCode(is.Code)
	var out []string
	for k := outline.LastSegment(is.Code); k <= outline.LastSegment(is.Through); k++ {
		out = append(out, siblingCode(parent, k))
	}
	return out
}

// Span is the number of codes the issue covers.
func (is Issue) Span() int {
	if is.Through == "" {
		return 1
	}
	return outline.LastSegment(is.Through) - outline.LastSegment(is.Code) + 1
}

func siblingCode(parent string, k int) string {
	if parent == "" {
		return strconv.Itoa(k)
	}
	return parent + "." + strconv.Itoa(k)
}

// Options tunes validation.
type Options struct {
	// Strict promotes missing-sibling warnings to errors.
	Strict bool
}

// Report is the result of one validation pass.
type Report struct {
	Issues []Issue
	Strict bool
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	return r.bySeverity(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	return r.bySeverity(SeverityWarning)
}

func (r *Report) bySeverity(s Severity) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == s {
			out = append(out, is)
		}
	}
	return out
}

// HasErrors reports whether generation must abort.
func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Clean reports whether there are no issues at all.
func (r *Report) Clean() bool {
	return len(r.Issues) == 0
}

// ExitCode maps the report to a process exit code: 2 for errors (or any
// warning in strict mode), 1 for warnings only, 0 when clean.
func (r *Report) ExitCode() int {
	switch {
	case r.HasErrors():
		return 2
	case len(r.Warnings()) > 0 && r.Strict:
		return 2
	case len(r.Warnings()) > 0:
		return 1
	}
	return 0
}

// Summary returns a one-line count of errors and warnings.
func (r *Report) Summary() string {
	if r.Clean() {
		return "validation passed: no issues found"
	}
	return fmt.Sprintf("validation found %d error(s) and %d warning(s)", len(r.Errors()), len(r.Warnings()))
}

// entry is one coded line found in the source.
type entry struct {
	code string
	line int
}

var (
	stepNumber  = regexp.MustCompile(`(?i)Step\s+(\d+)`)
	orderedList = regexp.MustCompile(`^\d+\.$`)
)

// Validate checks text and accumulates every problem in one pass. The
// preamble before the first Step header is not validated.
func Validate(text string, opts Options) *Report {
	lines := outline.SplitLines(text)
	rep := &Report{Strict: opts.Strict}

	var entries []entry
	inBody := false
	for i, line := range lines {
		lineNo := i + 1
		if outline.IsStepHeader(line) {
			inBody = true
			if m := stepNumber.FindStringSubmatch(line); m != nil {
				entries = append(entries, entry{code: m[1], line: lineNo})
			}
			continue
		}
		if !inBody || strings.TrimSpace(line) == "" {
			continue
		}

		token, _, shape := outline.ClassifyLine(line)
		if token == "" || !startsWithDigit(token) || orderedList.MatchString(token) {
			continue
		}
		if !outline.IsWellFormed(token) {
			if strings.ContainsFunc(token, func(r rune) bool { return r == '.' || unicode.IsLetter(r) }) {
				rep.Issues = append(rep.Issues, Issue{
					Kind: IssueMalformed, Severity: SeverityError, Code: token, Lines: []int{lineNo},
					Message: fmt.Sprintf("line %d: malformed code %q", lineNo, token),
				})
			}
			continue
		}
		if outline.CodeLevel(token, shape) == 0 {
			continue
		}
		entries = append(entries, entry{code: token, line: lineNo})
	}

	rep.Issues = append(rep.Issues, duplicates(entries)...)
	rep.Issues = append(rep.Issues, orphans(entries)...)
	rep.Issues = append(rep.Issues, missingSiblings(entries, opts.Strict)...)
	return rep
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func duplicates(entries []entry) []Issue {
	seen := make(map[string][]int)
	var order []string
	for _, e := range entries {
		if _, ok := seen[e.code]; !ok {
			order = append(order, e.code)
		}
		seen[e.code] = append(seen[e.code], e.line)
	}

	var out []Issue
	for _, code := range order {
		lines := seen[code]
		if len(lines) < 2 {
			continue
		}
		out = append(out, Issue{
			Kind: IssueDuplicate, Severity: SeverityError, Code: code, Lines: lines,
			Message: fmt.Sprintf("duplicate code %s on lines %s", code, joinInts(lines)),
		})
	}
	return out
}

func orphans(entries []entry) []Issue {
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.code] = true
	}

	var out []Issue
	for _, e := range entries {
		parent := outline.ParentCode(e.code)
		if parent == "" || present[parent] {
			continue
		}
		out = append(out, Issue{
			Kind: IssueOrphan, Severity: SeverityError, Code: e.code, Lines: []int{e.line},
			Message: fmt.Sprintf("line %d: orphan code %s (parent %s does not exist)", e.line, e.code, parent),
		})
	}
	return out
}

func missingSiblings(entries []entry, strict bool) []Issue {
	sev := SeverityWarning
	if strict {
		sev = SeverityError
	}

	// parent code -> final segment -> first line it appears on
	groups := make(map[string]map[int]int)
	for _, e := range entries {
		parent := outline.ParentCode(e.code)
		if groups[parent] == nil {
			groups[parent] = make(map[int]int)
		}
		n := outline.LastSegment(e.code)
		if _, ok := groups[parent][n]; !ok {
			groups[parent][n] = e.line
		}
	}

	parents := slices.SortedFunc(maps.Keys(groups), outline.CompareCodes)

	var out []Issue
	for _, parent := range parents {
		members := groups[parent]
		prev := 0
		for _, n := range slices.Sorted(maps.Keys(members)) {
			if n > prev+1 {
				out = append(out, gapIssue(parent, prev+1, n-1, members[n], sev))
			}
			prev = n
		}
	}
	return out
}

// gapIssue reports the missing siblings first..last, anchored on the line
// of the next present sibling.
func gapIssue(parent string, first, last, line int, sev Severity) Issue {
	is := Issue{
		Kind: IssueMissingSibling, Severity: sev, Code: siblingCode(parent, first), Lines: []int{line},
	}
	if first == last {
		is.Message = fmt.Sprintf("missing sibling %s (before line %d)", is.Code, line)
		return is
	}
	is.Through = siblingCode(parent, last)
	is.Message = fmt.Sprintf("missing siblings %s through %s (%d codes, before line %d)",
		is.Code, is.Through, last-first+1, line)
	return is
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
