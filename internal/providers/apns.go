// internal/providers/apns.go
package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"pushgw/internal/messages"
)

// ApnsEnvironment selects the APNS endpoint. Credential validation always
// uses Sandbox so a construction check never needs live credentials traffic.
type ApnsEnvironment string

const (
	ApnsSandbox    ApnsEnvironment = "sandbox"
	ApnsProduction ApnsEnvironment = "production"
)

// ApnsProvider sends through APNS with either certificate or token auth.
// Construction doubles as the credential soundness check: decoding and
// parsing the submitted material happens here, without network traffic.
type ApnsProvider struct {
	client *apns2.Client
	topic  string
}

// NewApnsCertificateProvider builds a client from a base64 PKCS#12 blob and
// its password. A failure to parse the material maps to ErrBadApnsCredentials.
func NewApnsCertificateProvider(certBase64, password, topic string, env ApnsEnvironment) (*ApnsProvider, error) {
	decoded, err := base64.StdEncoding.DecodeString(certBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate is not valid base64", ErrBadApnsCredentials)
	}
	cert, err := certificate.FromP12Bytes(decoded, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadApnsCredentials, err)
	}
	return &ApnsProvider{client: forEnv(apns2.NewClient(cert), env), topic: topic}, nil
}

// NewApnsTokenProvider builds a client from a base64 PKCS#8 key, key id and
// team id.
func NewApnsTokenProvider(pkcs8Base64, keyID, teamID, topic string, env ApnsEnvironment) (*ApnsProvider, error) {
	decoded, err := base64.StdEncoding.DecodeString(pkcs8Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: pkcs8 key is not valid base64", ErrBadApnsCredentials)
	}
	authKey, err := token.AuthKeyFromBytes(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadApnsCredentials, err)
	}
	t := &token.Token{AuthKey: authKey, KeyID: keyID, TeamID: teamID}
	return &ApnsProvider{client: forEnv(apns2.NewTokenClient(t), env), topic: topic}, nil
}

func forEnv(c *apns2.Client, env ApnsEnvironment) *apns2.Client {
	if env == ApnsProduction {
		return c.Production()
	}
	return c.Development()
}

func (p *ApnsProvider) Send(ctx context.Context, deviceToken string, m messages.PushMessage) error {
	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Priority:    apns2.PriorityHigh,
	}

	switch {
	case m.Raw != nil:
		n.PushType = apns2.PushTypeBackground
		n.Payload = payload.NewPayload().
			ContentAvailable().
			Custom("topic", m.Raw.Topic).
			Custom("tag", m.Raw.Tag).
			Custom("message", m.Raw.Message)
	case m.Legacy != nil && m.Legacy.Payload.IsEncrypted():
		n.PushType = apns2.PushTypeBackground
		n.Payload = payload.NewPayload().
			ContentAvailable().
			Custom("flags", m.Legacy.Payload.Flags).
			Custom("blob", m.Legacy.Payload.Blob)
	case m.Legacy != nil:
		blob, err := messages.DecodeBlob(m.Legacy.Payload.Blob)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		n.PushType = apns2.PushTypeAlert
		n.Payload = payload.NewPayload().
			AlertTitle(blob.Title).
			AlertBody(blob.Body).
			Custom("flags", m.Legacy.Payload.Flags).
			Custom("blob", m.Legacy.Payload.Blob)
	default:
		return fmt.Errorf("%w: empty push message", ErrSerialization)
	}

	res, err := p.client.PushWithContext(ctx, n)
	if err != nil {
		return &ResponseError{Provider: TypeApns, Code: err.Error()}
	}
	if res.Sent() {
		return nil
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonMissingDeviceToken, apns2.ReasonDeviceTokenNotForTopic:
		return fmt.Errorf("%w: %s", ErrBadDeviceToken, res.Reason)
	case apns2.ReasonBadCertificate, apns2.ReasonBadCertificateEnvironment,
		apns2.ReasonExpiredProviderToken, apns2.ReasonInvalidProviderToken, apns2.ReasonMissingProviderToken:
		return fmt.Errorf("%w: %s", ErrBadApnsCredentials, res.Reason)
	default:
		return &ResponseError{Provider: TypeApns, Code: res.Reason}
	}
}
