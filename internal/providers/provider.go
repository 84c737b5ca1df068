// internal/providers/provider.go
package providers

import (
	"context"
	"fmt"

	"pushgw/internal/messages"
)

// PushType identifies a downstream push provider. The set is fixed; provider
// selection happens at tenant-resolution time by inspecting which credential
// fields are populated.
type PushType string

const (
	TypeApns  PushType = "apns"
	TypeFcm   PushType = "fcm"
	TypeFcmV1 PushType = "fcm_v1"
)

func (t PushType) String() string { return string(t) }

// ParsePushType validates a caller-supplied provider name.
func ParsePushType(s string) (PushType, error) {
	switch PushType(s) {
	case TypeApns, TypeFcm, TypeFcmV1:
		return PushType(s), nil
	}
	return "", fmt.Errorf("unsupported push provider %q", s)
}

// PushProvider sends one message to one device token. One network call, no
// internal retry; callers decide what a failure means.
type PushProvider interface {
	Send(ctx context.Context, deviceToken string, message messages.PushMessage) error
}
