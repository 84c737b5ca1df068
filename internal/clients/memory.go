// internal/clients/memory.go
package clients

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memStore struct {
	mu      sync.RWMutex
	clients map[string]Client // key: tenantID + ":" + clientID
}

func NewMemoryStore() Store {
	return &memStore{clients: map[string]Client{}}
}

func key(tenantID, clientID string) string {
	return tenantID + ":" + clientID
}

func (m *memStore) CreateClient(ctx context.Context, tenantID, clientID string, c Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.TenantID = tenantID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.clients[key(tenantID, clientID)] = c
	return nil
}

func (m *memStore) GetClient(ctx context.Context, tenantID, clientID string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[key(tenantID, clientID)]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (m *memStore) DeleteClient(ctx context.Context, tenantID, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenantID, clientID)
	if _, ok := m.clients[k]; !ok {
		return ErrClientNotFound
	}
	delete(m.clients, k)
	return nil
}

// DeleteTenantClients removes every registration under a tenant. The
// Postgres store gets this for free via ON DELETE CASCADE.
func (m *memStore) DeleteTenantClients(ctx context.Context, tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.clients {
		if strings.HasPrefix(k, tenantID+":") {
			delete(m.clients, k)
		}
	}
}
