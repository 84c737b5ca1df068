// internal/gateway/handlers_fcm.go
package gateway

import (
	"encoding/json"
	"net/http"

	"pushgw/internal/providers"
	"pushgw/internal/tenants"
	"pushgw/pkg/respond"
)

type fcmUpdateBody struct {
	APIKey string `json:"api_key"`
}

func (a *App) updateFcm(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	tenant, err := a.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var body fcmUpdateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "InvalidBody", Message: "request body is not valid json"},
		}, nil)
		return
	}
	if body.APIKey == "" {
		a.writeError(w, &EmptyFieldError{Field: "api_key"})
		return
	}

	// Keys are proven with a dry-run send before being persisted.
	if err := a.checkFcmKey(r.Context(), body.APIKey); err != nil {
		a.writeError(w, err)
		return
	}

	if _, err := a.tenants.UpdateTenantFcm(r.Context(), tenantID, tenants.FcmUpdateParams{APIKey: body.APIKey}); err != nil {
		a.writeError(w, err)
		return
	}
	a.unsuspendAfterUpdate(r, tenant, providers.TypeFcm)
	a.metrics.TenantUpdate(providers.TypeFcm.String())
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

func (a *App) deleteFcm(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	if _, err := a.tenants.UpdateTenantDeleteFcm(r.Context(), tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	a.metrics.TenantUpdate(providers.TypeFcm.String())
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

func (a *App) updateFcmV1(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	tenant, err := a.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxCredentialFormSize); err != nil {
		a.writeError(w, ErrInvalidMultipartBody)
		return
	}
	credentials := formBytes(r, "credentials")
	if len(credentials) == 0 {
		a.writeError(w, &EmptyFieldError{Field: "credentials"})
		return
	}

	// Constructing the messaging client is the validity check: bad service
	// account JSON fails here and nothing is persisted.
	if err := a.checkFcmV1(r.Context(), string(credentials)); err != nil {
		a.writeError(w, err)
		return
	}

	if _, err := a.tenants.UpdateTenantFcmV1(r.Context(), tenantID, tenants.FcmV1UpdateParams{CredentialsJSON: string(credentials)}); err != nil {
		a.writeError(w, err)
		return
	}
	a.unsuspendAfterUpdate(r, tenant, providers.TypeFcmV1)
	a.metrics.TenantUpdate(providers.TypeFcmV1.String())
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

func (a *App) deleteFcmV1(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	if _, err := a.tenants.UpdateTenantDeleteFcmV1(r.Context(), tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	a.metrics.TenantUpdate(providers.TypeFcmV1.String())
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

// unsuspendAfterUpdate clears the suspension once a verified credential
// update has been persisted. Snapshot is the tenant as read before the
// update.
func (a *App) unsuspendAfterUpdate(r *http.Request, snapshot tenants.Tenant, pt providers.PushType) {
	if !snapshot.Suspended {
		return
	}
	if err := a.tenants.UnsuspendTenant(r.Context(), snapshot.ID); err != nil {
		a.log.Errorw("unsuspend failed", "tenant", snapshot.ID, "err", err)
		return
	}
	a.log.Infow("tenant unsuspended after credential update", "tenant", snapshot.ID, "provider", pt.String())
}
