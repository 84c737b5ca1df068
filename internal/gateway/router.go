// internal/gateway/router.go
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pushgw/pkg/metrics"
	"pushgw/pkg/middleware"
)

// Handler wires the full route tree. Tenant management routes exist only in
// multitenant mode; client routes are identical in both modes, with the
// tenant either taken from the path or pinned to the configured default.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.Tracing(a.cfg))

	r.Get("/health", a.health)
	r.Handle("/metrics", metrics.Handler())

	clientRoutes := func(r chi.Router) {
		r.Use(middleware.RateLimit(a.rdb, a.cfg.RateLimit, a.cfg.RateLimitWindow, a.log))
		r.Post("/clients", a.registerClient)
		r.Delete("/clients/{clientID}", a.deleteClient)
		// Push delivery is a webhook from the upstream relay, so it alone
		// carries the signed-request requirement.
		r.With(middleware.RequireValidSignature(a.cfg.RequireSignatures, a.signingKey, a.log)).
			Post("/clients/{clientID}", a.pushMessage)
	}

	if a.cfg.Multitenant() {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", a.createTenant)
			r.Route("/{tenantID}", func(r chi.Router) {
				r.Get("/", a.getTenant)
				r.Delete("/", a.deleteTenant)
				r.Post("/apns", a.updateApns)
				r.Delete("/apns", a.deleteApns)
				r.Post("/fcm", a.updateFcm)
				r.Delete("/fcm", a.deleteFcm)
				r.Post("/fcm-v1", a.updateFcmV1)
				r.Delete("/fcm-v1", a.deleteFcmV1)
			})
		})
		r.Route("/{tenantID}", clientRoutes)
	} else {
		// Single-tenant deployments keep credential management, pinned to the
		// default tenant, without the /tenants prefix.
		r.Post("/apns", a.updateApns)
		r.Delete("/apns", a.deleteApns)
		r.Post("/fcm", a.updateFcm)
		r.Delete("/fcm", a.deleteFcm)
		r.Post("/fcm-v1", a.updateFcmV1)
		r.Delete("/fcm-v1", a.deleteFcmV1)
		r.Group(clientRoutes)
	}

	return r
}

// tenantID resolves the tenant a request addresses.
func (a *App) tenantID(r *http.Request) string {
	if !a.cfg.Multitenant() {
		return a.cfg.DefaultTenantID
	}
	return chi.URLParam(r, "tenantID")
}
