package drift

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/HendryAvila/plansync/internal/outline"
	"github.com/HendryAvila/plansync/internal/render"
)

// Format selects how a rule's files are canonicalized before comparison.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Rule declares one artifact to compare and what differences it tolerates.
type Rule struct {
	Name   string // short label for reports
	Path   string // committed file in the working tree
	Format Format

	// StripProvenance ignores the generated-file header (markdown only).
	StripProvenance bool
	// VolatileFields are JSON object keys ignored at any depth.
	VolatileFields []string
}

// Comparator decides semantic equality of two versions of an artifact
// under a Rule.
type Comparator struct{}

// Compare canonicalizes both inputs under rule and returns a unified diff
// of the canonical forms, empty when they are equal.
func (Comparator) Compare(rule Rule, committed, regenerated []byte) (string, error) {
	a, err := canonical(rule, committed)
	if err != nil {
		return "", fmt.Errorf("%s (committed): %w", rule.Name, err)
	}
	b, err := canonical(rule, regenerated)
	if err != nil {
		return "", fmt.Errorf("%s (regenerated): %w", rule.Name, err)
	}
	if a == b {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "committed/" + rule.Name,
		ToFile:   "regenerated/" + rule.Name,
		Context:  2,
	})
}

func canonical(rule Rule, data []byte) (string, error) {
	switch rule.Format {
	case FormatJSON:
		return canonicalJSON(data, rule.VolatileFields)
	default:
		text := outline.Normalize(string(data))
		if rule.StripProvenance {
			text = render.StripProvenance(text)
		}
		return text, nil
	}
}

// canonicalJSON re-encodes data with sorted keys and the volatile fields
// removed, so key order and whitespace never count as drift.
func canonicalJSON(data []byte, volatile []string) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("parsing json: %w", err)
	}

	drop := make(map[string]bool, len(volatile))
	for _, f := range volatile {
		drop[f] = true
	}
	v = dropFields(v, drop)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func dropFields(v any, drop map[string]bool) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if drop[k] {
				delete(t, k)
				continue
			}
			t[k] = dropFields(child, drop)
		}
	case []any:
		for i, child := range t {
			t[i] = dropFields(child, drop)
		}
	}
	return v
}
