// internal/auth/tenant.go
package auth

import (
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TenantValidator verifies tenant-management bearer tokens. Unlike the
// client check, a missing Authorization header is always a failure here.
type TenantValidator struct {
	secret []byte

	// enforceTenant additionally requires the sub claim to equal the
	// path-supplied tenant id (multitenant deployments).
	enforceTenant bool
}

func NewTenantValidator(secret string, enforceTenant bool) *TenantValidator {
	return &TenantValidator{secret: []byte(secret), enforceTenant: enforceTenant}
}

// ValidateTenantRequest checks the bearer token and, in multitenant mode,
// binds it to the tenant addressed by the request path.
func (v *TenantValidator) ValidateTenantRequest(r *http.Request, tenantID string) error {
	// An unset secret disables tenant management entirely; verifying HS256
	// against an empty key would accept trivially forgeable tokens.
	if len(v.secret) == 0 {
		return ErrInvalidAuthentication
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ErrInvalidAuthentication
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return ErrInvalidAuthentication
	}
	if v.enforceTenant && tok.Subject() != tenantID {
		return ErrInvalidAuthentication
	}
	return nil
}
