package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryIdentityDirectory answers actor lookups from a fixed set of ids.
type MemoryIdentityDirectory struct {
	mu  sync.RWMutex
	ids map[uuid.UUID]struct{}
}

func NewMemoryIdentityDirectory(ids ...uuid.UUID) *MemoryIdentityDirectory {
	d := &MemoryIdentityDirectory{ids: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		d.ids[id] = struct{}{}
	}
	return d
}

func (d *MemoryIdentityDirectory) Add(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[id] = struct{}{}
}

func (d *MemoryIdentityDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[id]
	return ok, nil
}
