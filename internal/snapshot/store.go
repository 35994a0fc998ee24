// Package snapshot caches reference-source snapshots between runs so that
// repeated reconciliations do not refetch every user and spreadsheet row.
package snapshot

import (
	"context"
	"sync"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// Store persists snapshots keyed by origin. Get returns (nil, nil) when
// nothing is stored for the origin.
type Store interface {
	Get(ctx context.Context, origin model.Origin) (*model.Snapshot, error)
	Put(ctx context.Context, snap *model.Snapshot) error
	Delete(ctx context.Context, origin model.Origin) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[model.Origin]model.Snapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[model.Origin]model.Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, origin model.Origin) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[origin]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, snap *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Origin] = *snap
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, origin model.Origin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, origin)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = make(map[model.Origin]model.Snapshot)
	return nil
}
