// Package seen tracks which external items the monitor has already
// processed. Identities are persisted as a sorted JSON array so the ledger
// stays human-inspectable.
package seen

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Identity derives the dedup key for an external item from its URL and
// publish timestamp.
func Identity(url, publishedAt string) string {
	return url + "|" + publishedAt
}

// Set is an in-memory set of item identities. Pure set operations, no I/O.
type Set struct {
	ids map[string]struct{}
}

func NewSet(ids ...string) *Set {
	s := &Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Add(id string) {
	s.ids[id] = struct{}{}
}

func (s *Set) Len() int { return len(s.ids) }

// Identities returns the members in sorted order.
func (s *Set) Identities() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune evicts identities whose publish timestamp is older than maxAge.
// Items outside the monitor's look-back window can never reappear as
// candidates, so eviction cannot cause re-notification. Identities whose
// timestamp suffix does not parse are kept. Returns the number evicted.
func (s *Set) Prune(now time.Time, maxAge time.Duration) int {
	cutoff := now.Add(-maxAge)
	evicted := 0
	for id := range s.ids {
		i := strings.LastIndex(id, "|")
		if i < 0 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, id[i+1:])
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			delete(s.ids, id)
			evicted++
		}
	}
	return evicted
}

// Store persists a Set to a JSON file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted set. A missing, unreadable, or corrupt file
// degrades to an empty set: re-notifying is preferred over failing the
// cycle.
func (st *Store) Load() *Set {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("seen ledger unreadable, starting empty", "path", st.path, "error", err)
		}
		return NewSet()
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.Warn("seen ledger corrupt, starting empty", "path", st.path, "error", err)
		return NewSet()
	}
	return NewSet(ids...)
}

// Save rewrites the ledger wholesale. The write goes to a temp file first
// and is moved into place, so a concurrent reader never observes a partial
// file.
func (st *Store) Save(s *Set) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.Identities(), "", "  ")
	if err != nil {
		return err
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, st.path)
}
