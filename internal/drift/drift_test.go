package drift

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/outline"
	"github.com/HendryAvila/plansync/internal/pipeline"
)

const source = `# Step 1 — Build
## 1.1 Core
   1.1.1 Parser
   1.1.2 Renderer
`

// synced writes source, runs a sync, and returns the options used.
func synced(t *testing.T) pipeline.Options {
	t.Helper()
	root := t.TempDir()
	opts := pipeline.Options{Paths: config.Default().Paths(root), PlanMode: config.PlanModeRender}
	require.NoError(t, os.MkdirAll(filepath.Dir(opts.Paths.Source), 0o755))
	require.NoError(t, os.WriteFile(opts.Paths.Source, []byte(source), 0o644))

	opts.Overrides = map[string]outline.Status{"1.1.1": outline.StatusCompleted}
	_, err := pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	opts.Overrides = nil
	return opts
}

func edit(t *testing.T, path string, fn func(string) string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(fn(string(data))), 0o644))
}

func TestCheck_CleanTree(t *testing.T) {
	opts := synced(t)

	rep, err := Check(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Checked)
	assert.False(t, rep.Drifted(), "mismatches: %+v", rep.Mismatches)
	assert.NoError(t, rep.Err())
}

func TestCheck_HandEditedPlan(t *testing.T) {
	opts := synced(t)
	edit(t, opts.Paths.Plan, func(s string) string {
		return strings.Replace(s, "1.1.2 Renderer", "✅ 1.1.2 Renderer", 1)
	})
	before, err := os.ReadFile(opts.Paths.Plan)
	require.NoError(t, err)

	rep, err := Check(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, rep.Drifted())
	require.Len(t, rep.Mismatches, 1)
	assert.Equal(t, "plan", rep.Mismatches[0].Name)
	assert.Contains(t, rep.Mismatches[0].Diff, "-   ✅ 1.1.2 Renderer")

	var de *Error
	require.True(t, errors.As(rep.Err(), &de))
	assert.Equal(t, []string{opts.Paths.Plan}, de.Files)

	after, err := os.ReadFile(opts.Paths.Plan)
	require.NoError(t, err)
	assert.Equal(t, before, after, "check must not write the working tree")
}

func TestCheck_IgnoresProvenanceAndVolatileFields(t *testing.T) {
	opts := synced(t)
	edit(t, opts.Paths.Plan, func(s string) string {
		return strings.Replace(s, "plansync:source plan/plan_source.md", "plansync:source elsewhere/source.md", 1)
	})
	edit(t, opts.Paths.State, func(s string) string {
		i := strings.Index(s, `"lastSyncAt": "`)
		return s[:i] + `"lastSyncAt": "1999-01-01T00:00:00Z"` + "\n}\n"
	})
	// Reformatted JSON with different whitespace is still equal.
	edit(t, opts.Paths.Manifest, func(s string) string {
		return strings.ReplaceAll(s, "  ", "    ")
	})

	rep, err := Check(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, rep.Drifted(), "mismatches: %+v", rep.Mismatches)
}

func TestCheck_EditedStateStatus(t *testing.T) {
	opts := synced(t)
	// An invalid status would be coerced on regeneration.
	edit(t, opts.Paths.State, func(s string) string {
		return strings.Replace(s, `"1.1.2": "pending"`, `"1.1.2": "blocked"`, 1)
	})

	rep, err := Check(context.Background(), opts)
	require.NoError(t, err)
	var names []string
	for _, m := range rep.Mismatches {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "state")
}

func TestCheck_MissingArtifact(t *testing.T) {
	opts := synced(t)
	require.NoError(t, os.Remove(opts.Paths.TodoMD))

	rep, err := Check(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, rep.Mismatches, 1)
	assert.True(t, rep.Mismatches[0].Missing)
	assert.NoFileExists(t, opts.Paths.TodoMD)
}

func TestCheck_StructuralErrorPropagates(t *testing.T) {
	opts := synced(t)
	edit(t, opts.Paths.Source, func(s string) string { return s + "   1.1.2 Again\n" })

	_, err := Check(context.Background(), opts)
	var se *pipeline.StructuralError
	assert.True(t, errors.As(err, &se))
}

func TestComparator_JSONKeyOrder(t *testing.T) {
	rule := Rule{Name: "m", Format: FormatJSON, VolatileFields: []string{"lastUpdated"}}
	a := []byte(`{"b": 1, "a": {"x": true, "lastUpdated": "now"}}`)
	b := []byte(`{"a": {"x": true}, "b": 1}`)

	diff, err := Comparator{}.Compare(rule, a, b)
	require.NoError(t, err)
	assert.Empty(t, diff)

	diff, err = Comparator{}.Compare(rule, a, []byte(`{"a": {"x": false}, "b": 1}`))
	require.NoError(t, err)
	assert.Contains(t, diff, `+    "x": false`)
}

func TestComparator_MarkdownLineEndings(t *testing.T) {
	rule := Rule{Name: "p", Format: FormatMarkdown}
	diff, err := Comparator{}.Compare(rule, []byte("a\r\nb\n"), []byte("a\nb\n"))
	require.NoError(t, err)
	assert.Empty(t, diff)
}
