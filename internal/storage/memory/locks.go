package memory

import (
	"context"
	"fmt"
	"sync"
)

// lockManager hands out one exclusive lock per entity key. Locks are
// one-slot channels so a waiting Tx gives up when its context is done.
type lockManager struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockManager() *lockManager {
	return &lockManager{slots: make(map[string]chan struct{})}
}

func (m *lockManager) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		m.slots[key] = s
	}
	return s
}

func (m *lockManager) acquire(ctx context.Context, key string) error {
	select {
	case m.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
	}
}

func (m *lockManager) release(key string) {
	<-m.slot(key)
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func orderKey(id string) string {
	return "order:" + id
}
