package store

import (
	"context"
	"sync"
	"time"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// MemorySource keeps records in memory.
type MemorySource struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
}

// NewMemorySource returns a source holding records.
func NewMemorySource(records ...Record) *MemorySource {
	s := &MemorySource{}
	for _, r := range records {
		s.add(r)
	}
	return s
}

// NewStaticSource returns a source with a single min/max pair effective now.
func NewStaticSource(min, max int64) *MemorySource {
	now := time.Now().UTC().Truncate(time.Second)
	return NewMemorySource(
		Record{Name: NameMin, Value: min, EffectiveDate: now},
		Record{Name: NameMax, Value: max, EffectiveDate: now},
	)
}

func (s *MemorySource) add(r Record) Record {
	s.nextID++
	r.ID = s.nextID
	s.records = append(s.records, r)
	return r
}

// Fetch implements traffic.LimitSource.
func (s *MemorySource) Fetch(ctx context.Context) (traffic.Limits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Select(s.records)
}

// Insert adds a record.
func (s *MemorySource) Insert(ctx context.Context, r Record) (Record, error) {
	if err := validateRecord(r); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(r), nil
}

// Records returns a copy of all records.
func (s *MemorySource) Records(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...), nil
}

// Close is a no-op.
func (s *MemorySource) Close() error {
	return nil
}
