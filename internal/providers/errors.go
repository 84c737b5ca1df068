// internal/providers/errors.go
package providers

import (
	"errors"
	"fmt"
)

// Shared error taxonomy. Every provider translates its native error
// vocabulary into these so the gateway can decide on suspension uniformly.
var (
	// ErrBadDeviceToken covers unregistered, invalid and missing device
	// tokens across providers.
	ErrBadDeviceToken = errors.New("bad device token")

	// ErrBadApnsCredentials covers credentials rejected by APNS, including
	// APNS-credential problems reported through the FCM path.
	ErrBadApnsCredentials = errors.New("bad apns credentials")

	// ErrBadFcmAPIKey means the legacy FCM API key was not accepted.
	ErrBadFcmAPIKey = errors.New("bad fcm api key")

	// ErrBadFcmV1Credentials means the FCM v1 service-account credentials
	// could not be used to build a client.
	ErrBadFcmV1Credentials = errors.New("bad fcm v1 credentials")

	// ErrSerialization means the outbound provider payload could not be
	// encoded. Always an internal bug, never a caller problem.
	ErrSerialization = errors.New("provider payload serialization failed")
)

// ResponseError passes through a provider-native code that has no normalized
// equivalent.
type ResponseError struct {
	Provider PushType
	Code     string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s responded with %q", e.Provider, e.Code)
}

// IsCredentialError reports whether err should suspend the owning tenant.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrBadApnsCredentials) ||
		errors.Is(err, ErrBadFcmAPIKey) ||
		errors.Is(err, ErrBadFcmV1Credentials)
}
