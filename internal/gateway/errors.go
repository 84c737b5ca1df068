// internal/gateway/errors.go
package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"pushgw/internal/auth"
	"pushgw/internal/clients"
	"pushgw/internal/providers"
	"pushgw/internal/tenants"
	"pushgw/pkg/respond"
)

var (
	// ErrInvalidMultipartBody means a form submission matched none of the
	// accepted field combinations.
	ErrInvalidMultipartBody = errors.New("invalid multipart body")

	// ErrTenantSuspended blocks sends while a tenant's credentials are
	// known-bad.
	ErrTenantSuspended = errors.New("tenant is suspended")
)

// EmptyFieldError marks a required body field that was empty or missing.
type EmptyFieldError struct {
	Field string
}

func (e *EmptyFieldError) Error() string {
	return fmt.Sprintf("field %q must not be empty", e.Field)
}

// ProviderNotAvailableError marks a push type the tenant cannot use.
type ProviderNotAvailableError struct {
	Provider string
}

func (e *ProviderNotAvailableError) Error() string {
	return fmt.Sprintf("push provider %q is not available for this tenant", e.Provider)
}

// writeError maps an error to the caller-facing envelope. Internal errors
// stay generic: they are logged, not exposed.
func (a *App) writeError(w http.ResponseWriter, err error) {
	var (
		emptyField   *EmptyFieldError
		notAvailable *ProviderNotAvailableError
		passthrough  *providers.ResponseError
	)

	switch {
	case errors.Is(err, auth.ErrInvalidAuthentication):
		respond.Failure(w, http.StatusUnauthorized, []respond.Error{
			{Name: "InvalidAuthentication", Message: "request authentication failed"},
		}, nil)
	case errors.As(err, &emptyField):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "EmptyField", Message: err.Error()},
		}, []respond.Field{
			{Field: emptyField.Field, Description: "must not be empty", Location: respond.LocationBody},
		})
	case errors.Is(err, ErrInvalidMultipartBody):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "InvalidMultipartBody", Message: "body does not match any accepted field combination"},
		}, nil)
	case errors.As(err, &notAvailable):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "ProviderNotAvailable", Message: err.Error()},
		}, nil)
	case errors.Is(err, tenants.ErrTenantNotFound):
		respond.Failure(w, http.StatusNotFound, []respond.Error{
			{Name: "TenantNotFound", Message: "no tenant with that id"},
		}, []respond.Field{
			{Field: "tenant_id", Description: "unknown tenant", Location: respond.LocationPath},
		})
	case errors.Is(err, clients.ErrClientNotFound):
		respond.Failure(w, http.StatusNotFound, []respond.Error{
			{Name: "ClientNotFound", Message: "no client with that id"},
		}, []respond.Field{
			{Field: "client_id", Description: "unknown client", Location: respond.LocationPath},
		})
	case errors.Is(err, ErrTenantSuspended):
		respond.Failure(w, http.StatusForbidden, []respond.Error{
			{Name: "TenantSuspended", Message: "tenant is suspended until valid credentials are provided"},
		}, nil)
	case errors.Is(err, providers.ErrBadDeviceToken):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "BadDeviceToken", Message: err.Error()},
		}, nil)
	case errors.Is(err, providers.ErrBadApnsCredentials):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "BadApnsCredentials", Message: "apns credentials were rejected"},
		}, nil)
	case errors.Is(err, providers.ErrBadFcmAPIKey):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "BadFcmApiKey", Message: "fcm api key was rejected"},
		}, nil)
	case errors.Is(err, providers.ErrBadFcmV1Credentials):
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "BadFcmV1Credentials", Message: "fcm v1 credentials were rejected"},
		}, nil)
	case errors.As(err, &passthrough):
		respond.Failure(w, http.StatusBadGateway, []respond.Error{
			{Name: "ProviderResponse", Message: passthrough.Error()},
		}, nil)
	default:
		a.log.Errorw("internal error", "err", err)
		respond.Failure(w, http.StatusInternalServerError, []respond.Error{
			{Name: "InternalError", Message: "something went wrong"},
		}, nil)
	}
}
