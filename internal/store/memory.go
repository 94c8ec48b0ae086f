package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory ServerStore used in tests and as a seedable
// fallback when no backing database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	servers map[string]GameServer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{servers: make(map[string]GameServer)}
}

func (s *MemoryStore) Put(server GameServer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[server.ID] = server
}

func (s *MemoryStore) Get(_ context.Context, name, guildID string) (*GameServer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[Key(name, guildID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &server, nil
}

func (s *MemoryStore) List(_ context.Context, guildID string) ([]GameServer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suffix := "|" + guildID
	var servers []GameServer
	for id, server := range s.servers {
		if len(id) > len(suffix) && id[len(id)-len(suffix):] == suffix {
			servers = append(servers, server)
		}
	}
	return servers, nil
}
