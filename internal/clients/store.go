// internal/clients/store.go
package clients

import (
	"context"
	"errors"
	"time"

	"pushgw/internal/providers"
)

var ErrClientNotFound = errors.New("client not found")

// Client is one registered device/token pair within a tenant. The device
// token stays immutable until the client re-registers.
type Client struct {
	TenantID  string
	PushType  providers.PushType
	Token     string
	AlwaysRaw bool
	CreatedAt time.Time
}

// Store persists client registrations, keyed uniquely by (tenant, client).
type Store interface {
	CreateClient(ctx context.Context, tenantID, clientID string, c Client) error
	GetClient(ctx context.Context, tenantID, clientID string) (Client, error)
	DeleteClient(ctx context.Context, tenantID, clientID string) error
}
