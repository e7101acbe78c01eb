// Package activity reconciles a live, duplicate-prone activity feed into an
// ordered timeline for one workflow run at a time.
package activity

import (
	"strings"
	"sync"

	"flowdeck/internal/types"
)

type MergeOutcome int

const (
	MergeAdded MergeOutcome = iota
	MergeDuplicate
	MergeRejected
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeAdded:
		return "added"
	case MergeDuplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

// Store is the set of records received by one session. It only grows; a
// new session gets a new Store.
type Store struct {
	mu       sync.RWMutex
	records  []types.ActivityRecord
	byID     map[string]int
	revision uint64
}

func NewStore() *Store {
	return &Store{byID: map[string]int{}}
}

// Merge inserts record unless its id is empty or already known.
func (s *Store) Merge(record types.ActivityRecord) MergeOutcome {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return MergeRejected
	}
	record.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; ok {
		return MergeDuplicate
	}
	s.byID[id] = len(s.records)
	s.records = append(s.records, record)
	s.revision++
	return MergeAdded
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[strings.TrimSpace(id)]
	return ok
}

func (s *Store) Get(id string) (types.ActivityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return types.ActivityRecord{}, false
	}
	return s.records[idx], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision increments on every added record.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a copy of the records in arrival order together with the
// revision they correspond to.
func (s *Store) Snapshot() ([]types.ActivityRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ActivityRecord, len(s.records))
	copy(out, s.records)
	return out, s.revision
}
