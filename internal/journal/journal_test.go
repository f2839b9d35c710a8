package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleNodes() []Node {
	return []Node{
		{Code: "1", Kind: "step", Title: "Build the parser", Status: "in-progress"},
		{Code: "1.1", Kind: "topic", Title: "Lexer", Status: "completed"},
		{Code: "1.1.1", Kind: "item", Title: "Tokenize headings", Status: "completed"},
		{Code: "1.2", Kind: "topic", Title: "Renderer", Status: "pending"},
	}
}

func TestNew_OpenError(t *testing.T) {
	orig := openDB
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }
	t.Cleanup(func() { openDB = orig })

	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal: open database")
}

func TestNew_ReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := New(Config{Path: path})
	require.NoError(t, err)
	_, err = s.RecordRun(context.Background(), Run{Trigger: "cli", Checksum: "a"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := New(Config{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRun_HistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })

	first, err := s.RecordRun(ctx, Run{Trigger: "cli", Checksum: "c1", Total: 4, Nodes: sampleNodes()})
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := s.RecordRun(ctx, Run{
		Trigger: "set", Checksum: "c1", Total: 4, Completed: 2, InProgress: 1,
		Pruned: []string{"9.9", "9.9.1"},
		Transitions: []Transition{
			{Code: "1.1.1", Title: "Tokenize headings", From: "pending", To: "completed", Cause: "set"},
			{Code: "1.1", Title: "Lexer", From: "pending", To: "completed", Cause: "propagated"},
		},
	})
	require.NoError(t, err)

	runs, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, "set", runs[0].Trigger)
	assert.Equal(t, 2, runs[0].TransitionCount)
	assert.Equal(t, 2, runs[0].PrunedCount)
	assert.Equal(t, "2026-05-01T09:00:00Z", runs[0].CreatedAt)
	assert.Equal(t, first, runs[1].ID)

	limited, err := s.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTransitionsAndCodeHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.RecordRun(ctx, Run{Trigger: "set", Transitions: []Transition{
		{Code: "1.1.1", From: "pending", To: "in-progress", Cause: "set"},
		{Code: "1.1", From: "pending", To: "in-progress", Cause: "propagated"},
	}})
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, Run{Trigger: "set", Transitions: []Transition{
		{Code: "1.1.1", From: "in-progress", To: "completed", Cause: "set"},
	}})
	require.NoError(t, err)

	ts, err := s.Transitions(ctx, id)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "1.1.1", ts[0].Code)
	assert.Equal(t, "propagated", ts[1].Cause)

	hist, err := s.CodeHistory(ctx, "1.1.1", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "completed", hist[0].To, "newest transition first")
	assert.Equal(t, id, hist[1].RunID)
}

func TestSearch_MatchesTitlesAndTracksSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.RecordRun(ctx, Run{Trigger: "cli", Nodes: sampleNodes()})
	require.NoError(t, err)

	hits, err := s.Search(ctx, "lexer", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1.1", hits[0].Code)
	assert.Equal(t, "completed", hits[0].Status)

	// Next snapshot renames the topic and drops 1.2.
	nodes := sampleNodes()[:3]
	nodes[1].Title = "Scanner"
	_, err = s.RecordRun(ctx, Run{Trigger: "cli", Nodes: nodes})
	require.NoError(t, err)

	hits, err = s.Search(ctx, "lexer", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(ctx, "scanner", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search(ctx, "renderer", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "pruned nodes leave the index")
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestStore(t)
	hits, err := s.Search(context.Background(), `  "" `, 10)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestSanitizeFTS(t *testing.T) {
	assert.Equal(t, `"parser" "bug"`, sanitizeFTS(`parser "bug"`))
	assert.Equal(t, "", sanitizeFTS("   "))
}
