// internal/clients/postgres.go
package clients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pushgw/internal/providers"
)

// pgStore implements Store backed by PostgreSQL. The clients table is created
// by tenants.EnsureSchema alongside the tenants table it references.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

func (s *pgStore) CreateClient(ctx context.Context, tenantID, clientID string, c Client) error {
	// Re-registration replaces the stored token and flags.
	_, err := s.dbPool.Exec(ctx, `
		INSERT INTO clients (tenant_id, id, push_type, device_token, always_raw)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (tenant_id, id) DO UPDATE
		SET push_type=EXCLUDED.push_type, device_token=EXCLUDED.device_token, always_raw=EXCLUDED.always_raw`,
		tenantID, clientID, string(c.PushType), c.Token, c.AlwaysRaw)
	return err
}

func (s *pgStore) GetClient(ctx context.Context, tenantID, clientID string) (Client, error) {
	row := s.dbPool.QueryRow(ctx, `
		SELECT tenant_id, push_type, device_token, always_raw, created_at
		FROM clients WHERE tenant_id=$1 AND id=$2`, tenantID, clientID)
	var c Client
	var pushType string
	err := row.Scan(&c.TenantID, &pushType, &c.Token, &c.AlwaysRaw, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrClientNotFound
	}
	if err != nil {
		return Client{}, err
	}
	c.PushType = providers.PushType(pushType)
	return c, nil
}

func (s *pgStore) DeleteClient(ctx context.Context, tenantID, clientID string) error {
	tag, err := s.dbPool.Exec(ctx, `DELETE FROM clients WHERE tenant_id=$1 AND id=$2`, tenantID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}
