// internal/tenants/memory.go
package tenants

import (
	"context"
	"sync"
	"time"
)

// memStore is the in-memory Store used for dev bring-up and tests.
type memStore struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
}

func NewMemoryStore() Store {
	return &memStore{tenants: map[string]Tenant{}}
}

func (m *memStore) GetTenant(ctx context.Context, id string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return Tenant{}, ErrTenantNotFound
	}
	return t, nil
}

func (m *memStore) CreateTenant(ctx context.Context, params CreateParams) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[params.ID]; ok {
		return t, nil
	}
	now := time.Now()
	t := Tenant{ID: params.ID, CreatedAt: now, UpdatedAt: now}
	m.tenants[params.ID] = t
	return t, nil
}

func (m *memStore) DeleteTenant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[id]; !ok {
		return ErrTenantNotFound
	}
	delete(m.tenants, id)
	return nil
}

func (m *memStore) update(id string, fn func(*Tenant)) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return Tenant{}, ErrTenantNotFound
	}
	fn(&t)
	t.UpdatedAt = time.Now()
	m.tenants[id] = t
	return t, nil
}

func (m *memStore) UpdateTenantApns(ctx context.Context, id string, params ApnsUpdateParams) (Tenant, error) {
	return m.update(id, func(t *Tenant) {
		topic := params.Topic
		t.ApnsTopic = &topic
	})
}

func (m *memStore) UpdateTenantApnsAuth(ctx context.Context, id string, auth ApnsAuth) (Tenant, error) {
	return m.update(id, func(t *Tenant) {
		kind := auth.Kind
		t.ApnsType = &kind
		switch auth.Kind {
		case ApnsAuthCertificate:
			cert, pw := auth.Certificate, auth.CertificatePassword
			t.ApnsCertificate, t.ApnsCertificatePassword = &cert, &pw
			t.ApnsPKCS8PEM, t.ApnsKeyID, t.ApnsTeamID = nil, nil, nil
		case ApnsAuthToken:
			pem, keyID, teamID := auth.PKCS8PEM, auth.KeyID, auth.TeamID
			t.ApnsPKCS8PEM, t.ApnsKeyID, t.ApnsTeamID = &pem, &keyID, &teamID
			t.ApnsCertificate, t.ApnsCertificatePassword = nil, nil
		}
	})
}

func (m *memStore) UpdateTenantDeleteApns(ctx context.Context, id string) (Tenant, error) {
	return m.update(id, func(t *Tenant) {
		t.ApnsTopic, t.ApnsType = nil, nil
		t.ApnsCertificate, t.ApnsCertificatePassword = nil, nil
		t.ApnsPKCS8PEM, t.ApnsKeyID, t.ApnsTeamID = nil, nil, nil
	})
}

func (m *memStore) UpdateTenantFcm(ctx context.Context, id string, params FcmUpdateParams) (Tenant, error) {
	return m.update(id, func(t *Tenant) {
		key := params.APIKey
		t.FcmAPIKey = &key
	})
}

func (m *memStore) UpdateTenantDeleteFcm(ctx context.Context, id string) (Tenant, error) {
	return m.update(id, func(t *Tenant) { t.FcmAPIKey = nil })
}

func (m *memStore) UpdateTenantFcmV1(ctx context.Context, id string, params FcmV1UpdateParams) (Tenant, error) {
	return m.update(id, func(t *Tenant) {
		creds := params.CredentialsJSON
		t.FcmV1Credentials = &creds
	})
}

func (m *memStore) UpdateTenantDeleteFcmV1(ctx context.Context, id string) (Tenant, error) {
	return m.update(id, func(t *Tenant) { t.FcmV1Credentials = nil })
}

func (m *memStore) SuspendTenant(ctx context.Context, id string) error {
	_, err := m.update(id, func(t *Tenant) { t.Suspended = true })
	return err
}

func (m *memStore) UnsuspendTenant(ctx context.Context, id string) error {
	_, err := m.update(id, func(t *Tenant) { t.Suspended = false })
	return err
}
