package ledger

import (
	"sort"
	"sync"
)

// Store persists whole months of records. Load of a month that was never
// saved returns an empty, non-nil slice and no error.
type Store interface {
	Load(m Month) ([]Record, error)
	Save(m Month, records []Record) error
	Months() ([]Month, error)
}

// MemoryStore keeps records for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	months map[Month][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{months: map[Month][]Record{}}
}

func (s *MemoryStore) Load(m Month) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.months[m]), nil
}

func (s *MemoryStore) Save(m Month, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[m] = cloneRecords(records)
	return nil
}

func (s *MemoryStore) Months() ([]Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Month, 0, len(s.months))
	for m := range s.months {
		out = append(out, m)
	}
	sortMonths(out)
	return out, nil
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	copy(out, in)
	return out
}

func sortMonths(ms []Month) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Before(ms[j]) })
}
