// Package state holds the persisted status store and the pure operations
// that reconcile it with a parsed outline: merge, propagation and marker
// derivation.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/HendryAvila/plansync/internal/outline"
)

// DefaultGeneratedBy is written into the state file and manifest when the
// configuration does not override it.
const DefaultGeneratedBy = "plansync"

// Store is the persisted status store. StatusByCode is the only state that
// matters across runs; KnownCodes is the previous run's code set.
type Store struct {
	GeneratedBy  string                    `json:"generatedBy"`
	StatusByCode map[string]outline.Status `json:"statusByCode"`
	KnownCodes   []string                  `json:"knownCodes"`
	LastSyncAt   *string                   `json:"lastSyncAt"`
}

// New returns an empty store.
func New(generatedBy string) *Store {
	if generatedBy == "" {
		generatedBy = DefaultGeneratedBy
	}
	return &Store{
		GeneratedBy:  generatedBy,
		StatusByCode: make(map[string]outline.Status),
		KnownCodes:   []string{},
	}
}

// Load reads the state file at path. A missing or blank file yields an
// empty store, not an error.
func Load(path, generatedBy string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(generatedBy), nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	return Decode(data, generatedBy)
}

// Decode parses state JSON. Blank input yields an empty store.
func Decode(data []byte, generatedBy string) (*Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(generatedBy), nil
	}

	// Statuses are decoded leniently: a value that is not a string becomes
	// "" and Merge coerces it to pending.
	var raw struct {
		Store
		StatusByCode map[string]json.RawMessage `json:"statusByCode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	s := raw.Store
	s.StatusByCode = make(map[string]outline.Status, len(raw.StatusByCode))
	for code, v := range raw.StatusByCode {
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			str = ""
		}
		s.StatusByCode[code] = outline.Status(str)
	}
	if s.KnownCodes == nil {
		s.KnownCodes = []string{}
	}
	if s.GeneratedBy == "" {
		s.GeneratedBy = New(generatedBy).GeneratedBy
	}
	return &s, nil
}

// Encode renders the store as 2-space indented JSON with a trailing newline.
// Map keys come out sorted, so equal stores encode identically.
func (s *Store) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling state: %w", err)
	}
	return append(data, '\n'), nil
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := &Store{
		GeneratedBy:  s.GeneratedBy,
		StatusByCode: maps.Clone(s.StatusByCode),
		KnownCodes:   slices.Clone(s.KnownCodes),
	}
	if c.StatusByCode == nil {
		c.StatusByCode = make(map[string]outline.Status)
	}
	if c.KnownCodes == nil {
		c.KnownCodes = []string{}
	}
	if s.LastSyncAt != nil {
		ts := *s.LastSyncAt
		c.LastSyncAt = &ts
	}
	return c
}

// Apply writes propagated statuses back into the store.
func (s *Store) Apply(changes []Change) {
	for _, c := range changes {
		s.StatusByCode[c.Code] = c.To
	}
}

// Touch stamps LastSyncAt with now when the store has never been synced or
// when its statuses or code set differ from prior. Otherwise the previous
// timestamp is kept so an unchanged re-run writes identical bytes.
func (s *Store) Touch(prior *Store, now time.Time) bool {
	if s.LastSyncAt != nil && prior != nil &&
		maps.Equal(s.StatusByCode, prior.StatusByCode) &&
		sameSet(s.KnownCodes, prior.KnownCodes) {
		return false
	}
	ts := now.UTC().Format(time.RFC3339)
	s.LastSyncAt = &ts
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}
