// internal/gateway/handlers_clients.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"pushgw/internal/auth"
	"pushgw/internal/clients"
	"pushgw/internal/providers"
	"pushgw/pkg/respond"
)

type registerClientBody struct {
	ClientID  string `json:"client_id"`
	Type      string `json:"type"`
	Token     string `json:"token"`
	AlwaysRaw bool   `json:"always_raw"`
}

func (a *App) registerClient(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)

	var body registerClientBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "InvalidBody", Message: "request body is not valid json"},
		}, nil)
		return
	}
	if body.ClientID == "" {
		a.writeError(w, &EmptyFieldError{Field: "client_id"})
		return
	}

	// The bearer, when present, must have been issued by the key behind the
	// client id being registered.
	ok, err := auth.AuthenticateClient(r, a.cfg.PublicURL, a.cfg.RequireClientAuth, func(id string) bool {
		return id == auth.StripDIDPrefix(body.ClientID)
	})
	if err != nil || !ok {
		a.writeError(w, auth.ErrInvalidAuthentication)
		return
	}

	pt, err := providers.ParsePushType(body.Type)
	if err != nil {
		a.writeError(w, &ProviderNotAvailableError{Provider: body.Type})
		return
	}
	tenant, err := a.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !tenant.SupportsProvider(pt) {
		a.writeError(w, &ProviderNotAvailableError{Provider: body.Type})
		return
	}
	if body.Token == "" {
		a.writeError(w, &EmptyFieldError{Field: "token"})
		return
	}

	clientID := auth.StripDIDPrefix(body.ClientID)
	err = a.clients.CreateClient(r.Context(), tenantID, clientID, clients.Client{
		TenantID:  tenantID,
		PushType:  pt,
		Token:     body.Token,
		AlwaysRaw: body.AlwaysRaw,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.metrics.RegisteredClient()

	if a.pool != nil {
		provider := pt.String()
		a.pool.Submit(func(ctx context.Context) {
			a.auditRegistration(ctx, tenantID, clientID, provider, body.AlwaysRaw)
		})
	}

	respond.OK(w)
}

// auditRegistration records the registration off the request path. Best
// effort: failures are logged and dropped.
func (a *App) auditRegistration(ctx context.Context, tenantID, clientID, provider string, alwaysRaw bool) {
	a.log.Infow("client registered",
		"tenant", tenantID, "client", clientID, "provider", provider, "always_raw", alwaysRaw)
	if a.rdb == nil {
		return
	}
	err := a.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: "pushgw:registrations",
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"tenant":   tenantID,
			"client":   clientID,
			"provider": provider,
		},
	}).Err()
	if err != nil {
		a.log.Warnw("registration audit write failed", "err", err)
	}
}

func (a *App) deleteClient(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	clientID := auth.StripDIDPrefix(chi.URLParam(r, "clientID"))

	if err := a.clients.DeleteClient(r.Context(), tenantID, clientID); err != nil {
		a.writeError(w, err)
		return
	}
	respond.OK(w)
}
