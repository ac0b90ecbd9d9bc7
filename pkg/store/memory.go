package store

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/reportflow/pkg/errors"
)

// MemoryStore keeps records in memory. It is intended for tests and for
// ephemeral API servers.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, rec *Record) error {
	stamp(rec, uuid.NewString)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return errors.New(errors.ErrCodeInvalidInput, "report %q already exists", rec.ID)
	}
	s.records[rec.ID] = data
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decodeRecord(data)
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return notFound(rec.ID)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.records[rec.ID] = data
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	s.mu.RLock()
	out := make([]*Record, 0, len(s.records))
	for _, data := range s.records {
		rec, err := decodeRecord(data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		if opts.EmployeeID != "" && rec.EmployeeID != opts.EmployeeID {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode report record")
	}
	return &rec, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
