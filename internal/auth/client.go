// internal/auth/client.go
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var ErrInvalidAuthentication = errors.New("invalid authentication")

// AuthenticateClient checks the bearer token on a client-facing request. The
// token is a compact JWT whose issuer is a did:key identifier carrying the
// Ed25519 key it is signed with; the audience must match this gateway's
// public URL. The caller-supplied check receives the extracted client id
// (DID prefix stripped) and its verdict is returned.
//
// When no Authorization header is present the requireAuth policy decides:
// false preserves the transitional allow-through default, true rejects.
func AuthenticateClient(r *http.Request, audience string, requireAuth bool, check func(clientID string) bool) (bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		// Note: authentication is not yet required on this path to keep the
		// rollout non-breaking; REQUIRE_CLIENT_AUTH tightens it.
		if requireAuth {
			return false, ErrInvalidAuthentication
		}
		return true, nil
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))

	// The verification key travels inside the issuer claim, so the token is
	// decoded once without verification to learn the key, then verified.
	unverified, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return false, ErrInvalidAuthentication
	}
	pub, err := DecodeEd25519DIDKey(unverified.Issuer())
	if err != nil {
		return false, ErrInvalidAuthentication
	}
	verified, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.EdDSA, pub),
		jwt.WithAudience(audience),
		jwt.WithValidate(true),
	)
	if err != nil {
		return false, ErrInvalidAuthentication
	}

	return check(StripDIDPrefix(verified.Issuer())), nil
}
