// internal/tenants/postgres.go
package tenants

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const tenantColumns = `id, apns_topic, apns_type, apns_certificate, apns_certificate_password,
	apns_pkcs8_pem, apns_key_id, apns_team_id, fcm_api_key, fcm_v1_credentials,
	suspended, created_at, updated_at`

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresStore constructs a PostgreSQL-backed tenant store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tenants (
  id text PRIMARY KEY,
  apns_topic text,
  apns_type text,
  apns_certificate text,
  apns_certificate_password text,
  apns_pkcs8_pem text,
  apns_key_id text,
  apns_team_id text,
  fcm_api_key text,
  fcm_v1_credentials text,
  suspended boolean NOT NULL DEFAULT false,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS clients (
  tenant_id text NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  id text NOT NULL,
  push_type text NOT NULL,
  device_token text NOT NULL,
  always_raw boolean NOT NULL DEFAULT false,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  PRIMARY KEY (tenant_id, id)
);
`)
	return err
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	var apnsType *string
	err := row.Scan(&t.ID, &t.ApnsTopic, &apnsType, &t.ApnsCertificate, &t.ApnsCertificatePassword,
		&t.ApnsPKCS8PEM, &t.ApnsKeyID, &t.ApnsTeamID, &t.FcmAPIKey, &t.FcmV1Credentials,
		&t.Suspended, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrTenantNotFound
	}
	if err != nil {
		return Tenant{}, err
	}
	if apnsType != nil {
		kind := ApnsAuthKind(*apnsType)
		t.ApnsType = &kind
	}
	return t, nil
}

func (s *pgStore) GetTenant(ctx context.Context, id string) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id=$1`, id)
	return scanTenant(row)
}

func (s *pgStore) CreateTenant(ctx context.Context, params CreateParams) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		INSERT INTO tenants (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET updated_at=NOW()
		RETURNING `+tenantColumns, params.ID)
	return scanTenant(row)
}

func (s *pgStore) DeleteTenant(ctx context.Context, id string) error {
	tag, err := s.dbPool.Exec(ctx, `DELETE FROM tenants WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *pgStore) UpdateTenantApns(ctx context.Context, id string, params ApnsUpdateParams) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		UPDATE tenants SET apns_topic=$2, updated_at=NOW()
		WHERE id=$1 RETURNING `+tenantColumns, id, params.Topic)
	return scanTenant(row)
}

func (s *pgStore) UpdateTenantApnsAuth(ctx context.Context, id string, auth ApnsAuth) (Tenant, error) {
	// Writing one auth variant nulls the other's columns so exactly one
	// variant is ever populated.
	switch auth.Kind {
	case ApnsAuthCertificate:
		row := s.dbPool.QueryRow(ctx, `
			UPDATE tenants SET apns_type='certificate',
				apns_certificate=$2, apns_certificate_password=$3,
				apns_pkcs8_pem=NULL, apns_key_id=NULL, apns_team_id=NULL,
				updated_at=NOW()
			WHERE id=$1 RETURNING `+tenantColumns, id, auth.Certificate, auth.CertificatePassword)
		return scanTenant(row)
	case ApnsAuthToken:
		row := s.dbPool.QueryRow(ctx, `
			UPDATE tenants SET apns_type='token',
				apns_pkcs8_pem=$2, apns_key_id=$3, apns_team_id=$4,
				apns_certificate=NULL, apns_certificate_password=NULL,
				updated_at=NOW()
			WHERE id=$1 RETURNING `+tenantColumns, id, auth.PKCS8PEM, auth.KeyID, auth.TeamID)
		return scanTenant(row)
	}
	return Tenant{}, errors.New("unknown apns auth variant")
}

func (s *pgStore) UpdateTenantDeleteApns(ctx context.Context, id string) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		UPDATE tenants SET apns_topic=NULL, apns_type=NULL,
			apns_certificate=NULL, apns_certificate_password=NULL,
			apns_pkcs8_pem=NULL, apns_key_id=NULL, apns_team_id=NULL,
			updated_at=NOW()
		WHERE id=$1 RETURNING `+tenantColumns, id)
	return scanTenant(row)
}

func (s *pgStore) UpdateTenantFcm(ctx context.Context, id string, params FcmUpdateParams) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		UPDATE tenants SET fcm_api_key=$2, updated_at=NOW()
		WHERE id=$1 RETURNING `+tenantColumns, id, params.APIKey)
	return scanTenant(row)
}

func (s *pgStore) UpdateTenantDeleteFcm(ctx context.Context, id string) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		UPDATE tenants SET fcm_api_key=NULL, updated_at=NOW()
		WHERE id=$1 RETURNING `+tenantColumns, id)
	return scanTenant(row)
}

func (s *pgStore) UpdateTenantFcmV1(ctx context.Context, id string, params FcmV1UpdateParams) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		UPDATE tenants SET fcm_v1_credentials=$2, updated_at=NOW()
		WHERE id=$1 RETURNING `+tenantColumns, id, params.CredentialsJSON)
	return scanTenant(row)
}

func (s *pgStore) UpdateTenantDeleteFcmV1(ctx context.Context, id string) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
		UPDATE tenants SET fcm_v1_credentials=NULL, updated_at=NOW()
		WHERE id=$1 RETURNING `+tenantColumns, id)
	return scanTenant(row)
}

func (s *pgStore) SuspendTenant(ctx context.Context, id string) error {
	return s.setSuspended(ctx, id, true)
}

func (s *pgStore) UnsuspendTenant(ctx context.Context, id string) error {
	return s.setSuspended(ctx, id, false)
}

func (s *pgStore) setSuspended(ctx context.Context, id string, suspended bool) error {
	tag, err := s.dbPool.Exec(ctx, `UPDATE tenants SET suspended=$2, updated_at=NOW() WHERE id=$1`, id, suspended)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}
