// internal/providers/fcmv1.go
package providers

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	msgs "pushgw/internal/messages"
)

// FcmV1Provider sends through the FCM v1 API using service-account
// credentials.
type FcmV1Provider struct {
	client *messaging.Client
}

// NewFcmV1Provider builds a messaging client from service-account JSON.
// Construction parses the credentials, so it doubles as the sandbox check for
// credential updates; no message traffic is generated.
func NewFcmV1Provider(ctx context.Context, credentialsJSON string) (*FcmV1Provider, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFcmV1Credentials, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFcmV1Credentials, err)
	}
	return &FcmV1Provider{client: client}, nil
}

func (p *FcmV1Provider) Send(ctx context.Context, deviceToken string, m msgs.PushMessage) error {
	out := &messaging.Message{
		Token:   deviceToken,
		Android: &messaging.AndroidConfig{Priority: "high"},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{ContentAvailable: true}},
		},
	}

	switch {
	case m.Raw != nil:
		out.Data = map[string]string{
			"topic":   m.Raw.Topic,
			"tag":     m.Raw.Tag,
			"message": m.Raw.Message,
		}
	case m.Legacy != nil && m.Legacy.Payload.IsEncrypted():
		out.Data = v1PayloadData(m.Legacy.Payload)
	case m.Legacy != nil:
		blob, err := msgs.DecodeBlob(m.Legacy.Payload.Blob)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		out.Notification = &messaging.Notification{Title: blob.Title, Body: blob.Body}
		out.Data = v1PayloadData(m.Legacy.Payload)
	default:
		return fmt.Errorf("%w: empty push message", ErrSerialization)
	}

	_, err := p.client.Send(ctx, out)
	switch {
	case err == nil:
		return nil
	case messaging.IsUnregistered(err):
		return fmt.Errorf("%w: token is not registered", ErrBadDeviceToken)
	case messaging.IsThirdPartyAuthError(err):
		// FCM proxied the message to APNS and APNS rejected the credentials.
		return fmt.Errorf("%w: reported via fcm v1", ErrBadApnsCredentials)
	default:
		return &ResponseError{Provider: TypeFcmV1, Code: err.Error()}
	}
}

func v1PayloadData(pl msgs.Payload) map[string]string {
	return map[string]string{
		"flags": strconv.FormatUint(uint64(pl.Flags), 10),
		"blob":  pl.Blob,
	}
}
