// Package session holds per-session state behind an opaque key-value store.
// The web layer mints the session ID; the core only ever sees the ID and the
// values it stored itself.
package session

import (
	"sync"

	"github.com/google/uuid"
)

type Store interface {
	Get(sessionID, key string) (any, bool)
	Put(sessionID, key string, value any)
	Delete(sessionID, key string)
}

func NewID() string {
	return uuid.NewString()
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]any)}
}

func (s *MemoryStore) Get(sessionID, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kv, ok := s.data[sessionID]
	if !ok {
		return nil, false
	}
	v, ok := kv[key]
	return v, ok
}

func (s *MemoryStore) Put(sessionID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kv, ok := s.data[sessionID]
	if !ok {
		kv = make(map[string]any)
		s.data[sessionID] = kv
	}
	kv[key] = value
}

func (s *MemoryStore) Delete(sessionID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kv, ok := s.data[sessionID]; ok {
		delete(kv, key)
		if len(kv) == 0 {
			delete(s.data, sessionID)
		}
	}
}
