// internal/gateway/handlers_apns.go
package gateway

import (
	"encoding/base64"
	"io"
	"net/http"

	"pushgw/internal/providers"
	"pushgw/internal/tenants"
	"pushgw/pkg/respond"
)

const maxCredentialFormSize = 32 << 20

// apnsUpdateBody holds the raw multipart fields of an APNS credential update.
// Presence matters: an included-but-empty part is not the same as an absent
// one, so every field is a pointer.
type apnsUpdateBody struct {
	topic        *string
	certificate  *string // base64 of the uploaded p12
	certPassword *string
	pkcs8        *string // base64 of the uploaded key
	keyID        *string
	teamID       *string
}

func parseApnsUpdate(r *http.Request) (apnsUpdateBody, error) {
	if err := r.ParseMultipartForm(maxCredentialFormSize); err != nil {
		return apnsUpdateBody{}, ErrInvalidMultipartBody
	}
	var b apnsUpdateBody
	b.topic = formText(r, "apns_topic")
	b.certPassword = formText(r, "apns_certificate_password")
	b.keyID = formText(r, "apns_key_id")
	b.teamID = formText(r, "apns_team_id")
	if raw := formBytes(r, "apns_certificate"); raw != nil {
		enc := base64.StdEncoding.EncodeToString(raw)
		b.certificate = &enc
	}
	if raw := formBytes(r, "apns_pkcs8_pem"); raw != nil {
		enc := base64.StdEncoding.EncodeToString(raw)
		b.pkcs8 = &enc
	}
	return b, nil
}

// validate maps the six optional fields onto the accepted combinations: a
// certificate update (password optional), a token update (all three parts
// required), a bare topic change, or any of those with a topic. Everything
// else is rejected.
func (b apnsUpdateBody) validate() (topic *string, auth *tenants.ApnsAuth, err error) {
	hasCert := b.certificate != nil
	anyToken := b.pkcs8 != nil || b.keyID != nil || b.teamID != nil
	fullToken := b.pkcs8 != nil && b.keyID != nil && b.teamID != nil

	switch {
	case hasCert && !anyToken:
		password := ""
		if b.certPassword != nil {
			password = *b.certPassword
		}
		return b.topic, &tenants.ApnsAuth{
			Kind:                tenants.ApnsAuthCertificate,
			Certificate:         *b.certificate,
			CertificatePassword: password,
		}, nil
	case fullToken && !hasCert && b.certPassword == nil:
		return b.topic, &tenants.ApnsAuth{
			Kind:     tenants.ApnsAuthToken,
			PKCS8PEM: *b.pkcs8,
			KeyID:    *b.keyID,
			TeamID:   *b.teamID,
		}, nil
	case b.topic != nil && !hasCert && !anyToken && b.certPassword == nil:
		return b.topic, nil, nil
	}
	return nil, nil, ErrInvalidMultipartBody
}

func (a *App) updateApns(w http.ResponseWriter, r *http.Request) {
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

	body, err := parseApnsUpdate(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	topic, auth, err := body.validate()
	if err != nil {
		a.writeError(w, err)
		return
	}

	if topic != nil {
		if _, err := a.tenants.UpdateTenantApns(r.Context(), tenantID, tenants.ApnsUpdateParams{Topic: *topic}); err != nil {
			a.writeError(w, err)
			return
		}
	}
	if auth == nil {
		// Topic-only change: suspension state is untouched.
		a.metrics.TenantUpdate(providers.TypeApns.String())
		respond.JSON(w, http.StatusOK, successResponse{Success: true})
		return
	}

	// Credentials are proven against the APNS sandbox before anything is
	// persisted; a tenant can never store credentials that fail to load.
	checkTopic := ""
	switch {
	case topic != nil:
		checkTopic = *topic
	case tenant.ApnsTopic != nil:
		checkTopic = *tenant.ApnsTopic
	}
	if err := a.checkApnsAuth(*auth, checkTopic); err != nil {
		a.writeError(w, err)
		return
	}

	if _, err := a.tenants.UpdateTenantApnsAuth(r.Context(), tenantID, *auth); err != nil {
		a.writeError(w, err)
		return
	}
	a.unsuspendAfterUpdate(r, tenant, providers.TypeApns)
	a.metrics.TenantUpdate(providers.TypeApns.String())
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

func (a *App) deleteApns(w http.ResponseWriter, r *http.Request) {
	tenantID := a.tenantID(r)
	if err := a.tenantAuth.ValidateTenantRequest(r, tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	if _, err := a.tenants.UpdateTenantDeleteApns(r.Context(), tenantID); err != nil {
		a.writeError(w, err)
		return
	}
	a.metrics.TenantUpdate(providers.TypeApns.String())
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

// formText returns a text part's value, nil when the part was absent.
func formText(r *http.Request, name string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}

// formBytes returns a part's raw bytes, preferring a file upload over a text
// field of the same name. Nil when absent.
func formBytes(r *http.Request, name string) []byte {
	if r.MultipartForm == nil {
		return nil
	}
	if fhs, ok := r.MultipartForm.File[name]; ok && len(fhs) > 0 {
		f, err := fhs[0].Open()
		if err != nil {
			return nil
		}
		defer f.Close()
		raw, err := io.ReadAll(f)
		if err != nil {
			return nil
		}
		return raw
	}
	if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
		return []byte(vs[0])
	}
	return nil
}
