// internal/gateway/app.go
package gateway

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pushgw/internal/auth"
	"pushgw/internal/background"
	"pushgw/internal/clients"
	"pushgw/internal/providers"
	"pushgw/internal/tenants"
	"pushgw/pkg/config"
	"pushgw/pkg/metrics"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App is the push-gateway application container. Handlers and route wiring
// are methods on this type. Shared deps and config only; request-scoped work
// uses context.
type App struct {
	log        *zap.SugaredLogger
	cfg        config.Config
	tenants    tenants.Store
	clients    clients.Store
	metrics    *metrics.Metrics
	pool       *background.Pool
	rdb        *redis.Client
	tenantAuth *auth.TenantValidator
	signingKey ed25519.PublicKey

	// Provider construction and credential checks are fields so tests can
	// stub them out instead of reaching live provider backends.
	newProvider   func(ctx context.Context, t tenants.Tenant, pt providers.PushType) (providers.PushProvider, error)
	checkApnsAuth func(auth tenants.ApnsAuth, topic string) error
	checkFcmKey   func(ctx context.Context, apiKey string) error
	checkFcmV1    func(ctx context.Context, credentialsJSON string) error
}

func New(log *zap.SugaredLogger, cfg config.Config, ts tenants.Store, cs clients.Store, m *metrics.Metrics, pool *background.Pool, rdb *redis.Client) *App {
	a := &App{
		log:        log,
		cfg:        cfg,
		tenants:    ts,
		clients:    cs,
		metrics:    m,
		pool:       pool,
		rdb:        rdb,
		tenantAuth: auth.NewTenantValidator(cfg.JWTSecret, cfg.Multitenant()),
	}
	if cfg.SigningPublicKey != "" {
		raw, err := hex.DecodeString(cfg.SigningPublicKey)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			log.Fatalw("invalid SIGNING_PUBLIC_KEY", "err", err)
		}
		a.signingKey = ed25519.PublicKey(raw)
	}
	a.newProvider = func(ctx context.Context, t tenants.Tenant, pt providers.PushType) (providers.PushProvider, error) {
		return t.ProviderClient(ctx, pt, a.sendEnv())
	}
	// Credentials are always proven against the sandbox; live sends follow
	// APNS_SANDBOX.
	a.checkApnsAuth = func(auth tenants.ApnsAuth, topic string) error {
		var err error
		switch auth.Kind {
		case tenants.ApnsAuthCertificate:
			_, err = providers.NewApnsCertificateProvider(auth.Certificate, auth.CertificatePassword, topic, providers.ApnsSandbox)
		case tenants.ApnsAuthToken:
			_, err = providers.NewApnsTokenProvider(auth.PKCS8PEM, auth.KeyID, auth.TeamID, topic, providers.ApnsSandbox)
		}
		return err
	}
	a.checkFcmKey = func(ctx context.Context, apiKey string) error {
		return providers.NewFcmProvider(apiKey).ValidateKey(ctx)
	}
	a.checkFcmV1 = func(ctx context.Context, credentialsJSON string) error {
		_, err := providers.NewFcmV1Provider(ctx, credentialsJSON)
		return err
	}
	return a
}

func (a *App) sendEnv() providers.ApnsEnvironment {
	if a.cfg.ApnsSandbox {
		return providers.ApnsSandbox
	}
	return providers.ApnsProduction
}
