// internal/tenants/store.go
package tenants

import (
	"context"
	"errors"
)

var ErrTenantNotFound = errors.New("tenant not found")

type CreateParams struct {
	ID string
}

type ApnsUpdateParams struct {
	Topic string
}

type FcmUpdateParams struct {
	APIKey string
}

type FcmV1UpdateParams struct {
	CredentialsJSON string
}

// Store is the external source of truth for tenants. Every mutation returns
// the post-update snapshot; the gateway keeps no copy across requests.
// Concurrent updates to one tenant are serialized by the store, not here.
type Store interface {
	GetTenant(ctx context.Context, id string) (Tenant, error)
	CreateTenant(ctx context.Context, params CreateParams) (Tenant, error)
	DeleteTenant(ctx context.Context, id string) error

	UpdateTenantApns(ctx context.Context, id string, params ApnsUpdateParams) (Tenant, error)
	UpdateTenantApnsAuth(ctx context.Context, id string, auth ApnsAuth) (Tenant, error)
	UpdateTenantDeleteApns(ctx context.Context, id string) (Tenant, error)

	UpdateTenantFcm(ctx context.Context, id string, params FcmUpdateParams) (Tenant, error)
	UpdateTenantDeleteFcm(ctx context.Context, id string) (Tenant, error)

	UpdateTenantFcmV1(ctx context.Context, id string, params FcmV1UpdateParams) (Tenant, error)
	UpdateTenantDeleteFcmV1(ctx context.Context, id string) (Tenant, error)

	SuspendTenant(ctx context.Context, id string) error
	UnsuspendTenant(ctx context.Context, id string) error
}
