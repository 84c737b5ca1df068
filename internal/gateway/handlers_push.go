// internal/gateway/handlers_push.go
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pushgw/internal/auth"
	"pushgw/internal/messages"
	"pushgw/internal/providers"
	"pushgw/pkg/respond"
)

type pushBody struct {
	ID      string               `json:"id"`
	Payload *messages.Payload    `json:"payload,omitempty"`
	Raw     *messages.RawMessage `json:"raw,omitempty"`
}

func (a *App) pushMessage(w http.ResponseWriter, r *http.Request) {
	a.metrics.ReceivedNotification()

	tenantID := a.tenantID(r)
	clientID := auth.StripDIDPrefix(chi.URLParam(r, "clientID"))

	var body pushBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Failure(w, http.StatusBadRequest, []respond.Error{
			{Name: "InvalidBody", Message: "request body is not valid json"},
		}, nil)
		return
	}

	client, err := a.clients.GetClient(r.Context(), tenantID, clientID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	tenant, err := a.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if tenant.Suspended {
		a.writeError(w, ErrTenantSuspended)
		return
	}

	var msg messages.PushMessage
	switch {
	case client.AlwaysRaw:
		// Clients registered always_raw opted out of the legacy envelope.
		if body.Raw == nil {
			a.writeError(w, &EmptyFieldError{Field: "raw"})
			return
		}
		msg.Raw = body.Raw
	case body.Raw != nil:
		msg.Raw = body.Raw
	case body.Payload != nil:
		msg.Legacy = &messages.LegacyMessage{ID: body.ID, Payload: *body.Payload}
	default:
		a.writeError(w, &EmptyFieldError{Field: "payload"})
		return
	}

	p, err := a.newProvider(r.Context(), tenant, client.PushType)
	if err != nil {
		a.handleSendError(w, r, tenantID, clientID, err)
		return
	}
	if err := p.Send(r.Context(), client.Token, msg); err != nil {
		a.handleSendError(w, r, tenantID, clientID, err)
		return
	}

	a.metrics.SentNotification(client.PushType.String())
	respond.Success(w, http.StatusAccepted)
}

// handleSendError applies the suspension side effects of a failed send before
// reporting it. Credential-class failures suspend the tenant; a rejected
// device token removes the client.
func (a *App) handleSendError(w http.ResponseWriter, r *http.Request, tenantID, clientID string, err error) {
	switch {
	case providers.IsCredentialError(err):
		if serr := a.tenants.SuspendTenant(r.Context(), tenantID); serr != nil {
			a.log.Errorw("tenant suspension failed", "tenant", tenantID, "err", serr)
		} else {
			a.metrics.TenantSuspension()
			a.log.Warnw("tenant suspended after credential failure", "tenant", tenantID)
		}
	case errors.Is(err, providers.ErrBadDeviceToken):
		if derr := a.clients.DeleteClient(r.Context(), tenantID, clientID); derr != nil {
			a.log.Errorw("client removal failed", "tenant", tenantID, "client", clientID, "err", derr)
		} else {
			a.metrics.ClientSuspension()
			a.log.Infow("client removed after device token rejection", "tenant", tenantID, "client", clientID)
		}
	}
	a.writeError(w, err)
}
