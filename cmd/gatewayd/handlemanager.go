package main

import (
	"sync"

	"github.com/webrtcgw/gwcore/internal/session"
)

// handleManager is the process-wide table of live session.Handles,
// the Go analogue of the original core's handle hash table keyed by
// handle_id; appmodule.Gateway's handle-resolution callback closes
// over this.
type handleManager struct {
	mu      sync.RWMutex
	nextID  uint64
	handles map[uint64]*session.Handle
}

func newHandleManager() *handleManager {
	return &handleManager{handles: make(map[uint64]*session.Handle)}
}

func (m *handleManager) create(opaqueID string) *session.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	h := session.NewHandle(m.nextID, opaqueID)
	m.handles[h.ID()] = h
	return h
}

func (m *handleManager) lookup(id uint64) (*session.Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[id]
	return h, ok
}

func (m *handleManager) remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, id)
}

func (m *handleManager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}
