// internal/providers/fcm.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pushgw/internal/messages"
)

// Legacy FCM HTTP API. Deprecated by Google but still carried for tenants
// provisioned with a server key; the v1 path is the forward-looking one.
const DefaultFcmEndpoint = "https://fcm.googleapis.com/fcm/send"

// legacy wire error codes with a normalized equivalent
const (
	fcmErrMissingRegistration   = "MissingRegistration"
	fcmErrInvalidRegistration   = "InvalidRegistration"
	fcmErrNotRegistered         = "NotRegistered"
	fcmErrInvalidApnsCredential = "InvalidApnsCredential"
)

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type fcmMessage struct {
	To               string           `json:"to"`
	Priority         string           `json:"priority,omitempty"`
	ContentAvailable bool             `json:"content_available,omitempty"`
	DryRun           bool             `json:"dry_run,omitempty"`
	Data             map[string]any   `json:"data,omitempty"`
	Notification     *fcmNotification `json:"notification,omitempty"`
}

type fcmResult struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

type fcmResponse struct {
	Success int         `json:"success"`
	Failure int         `json:"failure"`
	Results []fcmResult `json:"results"`
}

// FcmProvider sends through the legacy FCM HTTP API with a server key.
type FcmProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewFcmProvider(apiKey string) *FcmProvider {
	return &FcmProvider{
		apiKey:     apiKey,
		endpoint:   DefaultFcmEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithEndpoint overrides the FCM endpoint. Used by tests.
func (p *FcmProvider) WithEndpoint(endpoint string) *FcmProvider {
	p.endpoint = endpoint
	return p
}

func (p *FcmProvider) Send(ctx context.Context, deviceToken string, m messages.PushMessage) error {
	msg := fcmMessage{To: deviceToken}

	switch {
	case m.Raw != nil:
		// Data-only messages need high priority and content-available or
		// they are not delivered while the app is backgrounded.
		msg.Priority = "high"
		msg.ContentAvailable = true
		msg.Data = map[string]any{
			"topic":   m.Raw.Topic,
			"tag":     m.Raw.Tag,
			"message": m.Raw.Message,
		}
	case m.Legacy != nil && m.Legacy.Payload.IsEncrypted():
		msg.Priority = "high"
		msg.ContentAvailable = true
		msg.Data = payloadData(m.Legacy.Payload)
	case m.Legacy != nil:
		blob, err := messages.DecodeBlob(m.Legacy.Payload.Blob)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		msg.Notification = &fcmNotification{Title: blob.Title, Body: blob.Body}
		msg.Data = payloadData(m.Legacy.Payload)
	default:
		return fmt.Errorf("%w: empty push message", ErrSerialization)
	}

	return p.post(ctx, msg)
}

// ValidateKey performs a dry-run send to a sentinel token. Only an
// authorization failure is treated as a bad key; per-token errors are the
// expected outcome for the sentinel and mean the key itself was accepted.
func (p *FcmProvider) ValidateKey(ctx context.Context) error {
	err := p.post(ctx, fcmMessage{To: "pushgw-key-validation", DryRun: true})
	if err != nil && IsCredentialError(err) {
		return err
	}
	return nil
}

func payloadData(pl messages.Payload) map[string]any {
	return map[string]any{
		"flags": pl.Flags,
		"blob":  pl.Blob,
	}
}

func (p *FcmProvider) post(ctx context.Context, msg fcmMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.apiKey)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return &ResponseError{Provider: TypeFcm, Code: err.Error()}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: fcm returned 401", ErrBadFcmAPIKey)
	case res.StatusCode != http.StatusOK:
		return &ResponseError{Provider: TypeFcm, Code: fmt.Sprintf("http %d", res.StatusCode)}
	}

	var body fcmResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return &ResponseError{Provider: TypeFcm, Code: fmt.Sprintf("undecodable response: %v", err)}
	}
	if body.Failure == 0 || len(body.Results) == 0 {
		return nil
	}

	switch code := body.Results[0].Error; code {
	case "":
		return nil
	case fcmErrMissingRegistration:
		return fmt.Errorf("%w: missing registration for token", ErrBadDeviceToken)
	case fcmErrInvalidRegistration:
		return fmt.Errorf("%w: invalid token registration", ErrBadDeviceToken)
	case fcmErrNotRegistered:
		return fmt.Errorf("%w: token is not registered", ErrBadDeviceToken)
	case fcmErrInvalidApnsCredential:
		return fmt.Errorf("%w: reported via fcm", ErrBadApnsCredentials)
	default:
		return &ResponseError{Provider: TypeFcm, Code: code}
	}
}
