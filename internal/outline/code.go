// Package outline parses a hand-authored plan outline into a tree of
// Steps, Topics and Items addressed by dotted numeric codes.
//
// The parser is deliberately lenient: duplicate, malformed and orphaned
// codes are never rejected here. Structural problems are the validate
// package's job; this package always returns a best-effort tree.
package outline

import (
	"regexp"
	"strconv"
	"strings"
)

// codePattern matches a well-formed dotted numeric code such as 1.2.3.
var codePattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// IsWellFormed reports whether code is a dotted numeric code.
func IsWellFormed(code string) bool {
	return codePattern.MatchString(code)
}

// Segments splits a code into its dotted parts.
func Segments(code string) []string {
	if code == "" {
		return nil
	}
	return strings.Split(code, ".")
}

// Level returns the hierarchy depth encoded by a code (Step=1, Topic=2, Item>=3).
func Level(code string) int {
	return len(Segments(code))
}

// ParentCode returns the code with its final segment removed, or "" for a Step.
func ParentCode(code string) string {
	i := strings.LastIndex(code, ".")
	if i < 0 {
		return ""
	}
	return code[:i]
}

// LastSegment returns the numeric value of the final segment, or -1 when
// the segment is not a number.
func LastSegment(code string) int {
	seg := code
	if i := strings.LastIndex(code, "."); i >= 0 {
		seg = code[i+1:]
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return -1
	}
	return n
}

// Ancestors returns every proper prefix of code, nearest first.
// Example: "1.2.3.4" → ["1.2.3", "1.2", "1"].
func Ancestors(code string) []string {
	var out []string
	for p := ParentCode(code); p != ""; p = ParentCode(p) {
		out = append(out, p)
	}
	return out
}

// CompareCodes orders codes segment by segment numerically, so 1.10 sorts
// after 1.9. Non-numeric segments fall back to string comparison.
func CompareCodes(a, b string) int {
	as, bs := Segments(a), Segments(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// KindForCode derives the node kind implied by a code's depth.
func KindForCode(code string) Kind {
	switch Level(code) {
	case 1:
		return KindStep
	case 2:
		return KindTopic
	default:
		return KindItem
	}
}
