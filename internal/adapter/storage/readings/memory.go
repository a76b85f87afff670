package readingstorage

import (
	"cmp"
	"context"
	"github.com/burenotti/bp_readings/internal/domain"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	"github.com/samber/lo"
	"slices"
	"sync"
)

type row struct {
	ID        int64
	Systolic  int
	Diastolic int
	Pulse     int
}

// MemoryStore holds readings for the lifetime of the process. It is shared by
// every MemoryStorage opened on it.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]row
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[int64]row),
		nextID: 1,
	}
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

type MemoryStorage struct {
	store  *MemoryStore
	seenMu sync.Mutex
	seen   []*reading.Reading
}

func NewMemoryStorage(store *MemoryStore) *MemoryStorage {
	return &MemoryStorage{store: store}
}

func (s *MemoryStorage) Add(_ context.Context, r *reading.Reading) (int64, int64, error) {
	s.store.mu.Lock()
	id := s.store.nextID
	s.store.nextID++
	s.store.rows[id] = row{
		ID:        id,
		Systolic:  r.Systolic,
		Diastolic: r.Diastolic,
		Pulse:     r.Pulse,
	}
	s.store.mu.Unlock()

	s.seenMu.Lock()
	s.seen = append(s.seen, r)
	s.seenMu.Unlock()

	return id, 1, nil
}

func (s *MemoryStorage) FindByID(_ context.Context, id int64) (*reading.Reading, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	r, ok := s.store.rows[id]
	if !ok {
		return nil, reading.ErrReadingNotFound
	}
	return r.toReading(), nil
}

func (s *MemoryStorage) ListAll(_ context.Context) ([]*reading.Reading, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return sortByID(lo.MapToSlice(s.store.rows, func(_ int64, r row) *reading.Reading {
		return r.toReading()
	})), nil
}

func (s *MemoryStorage) CollectEvents() []domain.Event {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	var events []domain.Event
	for _, r := range s.seen {
		events = append(events, r.PopEvents()...)
	}
	s.seen = nil
	return events
}

func (s *MemoryStorage) Close() error {
	s.seenMu.Lock()
	s.seen = nil
	s.seenMu.Unlock()
	return nil
}

func (r row) toReading() *reading.Reading {
	return &reading.Reading{
		ID:        r.ID,
		Systolic:  r.Systolic,
		Diastolic: r.Diastolic,
		Pulse:     r.Pulse,
	}
}

func sortByID(readings []*reading.Reading) []*reading.Reading {
	slices.SortFunc(readings, func(a, b *reading.Reading) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return readings
}

// MemoryTx satisfies storage.Tx for the memory store. Writes are applied
// immediately, so Commit and Rollback have nothing to do.
type MemoryTx struct {
	Store *MemoryStore
}

func (t *MemoryTx) Commit() error {
	return nil
}

func (t *MemoryTx) Rollback() error {
	return nil
}

func (m *MemoryStore) Begin(ctx context.Context) (*MemoryTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &MemoryTx{Store: m}, nil
}
