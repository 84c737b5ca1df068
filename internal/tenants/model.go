// internal/tenants/model.go
package tenants

import (
	"time"

	"pushgw/internal/providers"
)

// ApnsAuthKind discriminates the two mutually exclusive APNS auth variants.
type ApnsAuthKind string

const (
	ApnsAuthCertificate ApnsAuthKind = "certificate"
	ApnsAuthToken       ApnsAuthKind = "token"
)

// ApnsAuth is the tagged union carried by an APNS credential update. The
// fields of the other variant are always empty.
type ApnsAuth struct {
	Kind ApnsAuthKind

	// certificate variant
	Certificate         string
	CertificatePassword string

	// token variant
	PKCS8PEM string
	KeyID    string
	TeamID   string
}

// Tenant is an isolated namespace owning push credentials and client
// registrations. Credential fields are independently nullable; writing one
// APNS auth variant nulls the other's columns.
type Tenant struct {
	ID string

	ApnsTopic               *string
	ApnsType                *ApnsAuthKind
	ApnsCertificate         *string
	ApnsCertificatePassword *string
	ApnsPKCS8PEM            *string
	ApnsKeyID               *string
	ApnsTeamID              *string

	FcmAPIKey        *string
	FcmV1Credentials *string

	// Suspended is set when the last live send failed on credentials and
	// cleared exactly when a verified credential update lands.
	Suspended bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Tenant) SupportsApns() bool {
	if t.ApnsTopic == nil || t.ApnsType == nil {
		return false
	}
	switch *t.ApnsType {
	case ApnsAuthCertificate:
		return t.ApnsCertificate != nil
	case ApnsAuthToken:
		return t.ApnsPKCS8PEM != nil && t.ApnsKeyID != nil && t.ApnsTeamID != nil
	}
	return false
}

func (t Tenant) SupportsFcm() bool {
	return t.FcmAPIKey != nil
}

func (t Tenant) SupportsFcmV1() bool {
	return t.FcmV1Credentials != nil
}

// Providers lists the push types this tenant currently has credentials for.
func (t Tenant) Providers() []providers.PushType {
	var out []providers.PushType
	if t.SupportsApns() {
		out = append(out, providers.TypeApns)
	}
	if t.SupportsFcm() {
		out = append(out, providers.TypeFcm)
	}
	if t.SupportsFcmV1() {
		out = append(out, providers.TypeFcmV1)
	}
	return out
}

func (t Tenant) SupportsProvider(pt providers.PushType) bool {
	for _, p := range t.Providers() {
		if p == pt {
			return true
		}
	}
	return false
}
