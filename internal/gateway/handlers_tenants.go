// internal/gateway/handlers_tenants.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pushgw/internal/tenants"
	"pushgw/pkg/respond"
)

type successResponse struct {
	Success bool `json:"success"`
}

// tenantInfo is the external view of a tenant. Credential material never
// leaves the store.
type tenantInfo struct {
	ID        string    `json:"id"`
	Providers []string  `json:"providers"`
	Suspended bool      `json:"suspended"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func tenantView(t tenants.Tenant) tenantInfo {
	names := make([]string, 0, 3)
	for _, p := range t.Providers() {
		names = append(names, p.String())
	}
	return tenantInfo{
		ID:        t.ID,
		Providers: names,
		Suspended: t.Suspended,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type createTenantBody struct {
	ID string `json:"id"`
}

func (a *App) createTenant(w http.ResponseWriter, r *http.Request) {
	var body createTenantBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "InvalidBody", Message: "request body is not valid json"},
		}, nil)
		return
	}
	if body.ID == "" {
		a.writeError(w, &EmptyFieldError{Field: "id"})
		return
	}
	if err := a.tenantAuth.ValidateTenantRequest(r, body.ID); err != nil {
		a.writeError(w, err)
		return
	}

	t, err := a.tenants.CreateTenant(r.Context(), tenants.CreateParams{ID: body.ID})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.metrics.RegisteredTenant()
	a.log.Infow("tenant created", "tenant", t.ID)

	respond.JSON(w, http.StatusOK, tenantView(t))
}

func (a *App) getTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}

	t, err := a.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, tenantView(t))
}

func (a *App) deleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}

	if err := a.tenants.DeleteTenant(r.Context(), tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	// Postgres cascades client rows via FK; the in-memory store needs help.
	if cascade, ok := a.clients.(interface {
		DeleteTenantClients(ctx context.Context, tenantID string)
	}); ok {
		cascade.DeleteTenantClients(r.Context(), tenantID)
	}
	a.log.Infow("tenant deleted", "tenant", tenantID)
	respond.OK(w)
}
