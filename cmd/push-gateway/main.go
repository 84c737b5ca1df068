package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"pushgw/internal/background"
	"pushgw/internal/clients"
	"pushgw/internal/gateway"
	"pushgw/internal/tenants"
	"pushgw/pkg/config"
	pdb "pushgw/pkg/db"
	"pushgw/pkg/logger"
	"pushgw/pkg/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	var (
		tenantStore tenants.Store
		clientStore clients.Store
	)
	if cfg.DatabaseURL != "" {
		pool := pdb.MustConnect(cfg, log)
		defer pool.Close()
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalf("schema: %v", err)
		}
		tenantStore = tenants.NewPostgresStore(pool, log)
		clientStore = clients.NewPostgresStore(pool, log)
	} else {
		tenantStore = tenants.NewMemoryStore()
		clientStore = clients.NewMemoryStore()
	}

	if !cfg.Multitenant() {
		// Single-tenant mode pins every request to the default tenant, which
		// must exist before the first registration arrives.
		if _, err := tenantStore.GetTenant(context.Background(), cfg.DefaultTenantID); errors.Is(err, tenants.ErrTenantNotFound) {
			if _, err := tenantStore.CreateTenant(context.Background(), tenants.CreateParams{ID: cfg.DefaultTenantID}); err != nil {
				log.Fatalf("seed default tenant: %v", err)
			}
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = pdb.MustRedis(cfg, log)
		defer rdb.Close()
	}

	pool := background.NewPool(log, 2, 256)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	}()

	app := gateway.New(
		log,
		cfg,
		tenantStore,
		clientStore,
		metrics.New(prometheus.DefaultRegisterer),
		pool,
		rdb,
	)

	log.Infof("push-gateway listening at %s (tenant mode: %s)", cfg.HTTPAddr, cfg.TenantMode)
	if err := http.ListenAndServe(cfg.HTTPAddr, app.Handler()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
