// internal/messages/messages.go
package messages

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// FlagEncrypted marks a legacy payload blob as ciphertext. Encrypted payloads
// are delivered silently; plaintext ones render a visible notification.
const FlagEncrypted uint32 = 1 << 0

var ErrInvalidBlob = errors.New("payload blob is not valid base64 json")

// Payload is the legacy message body: a bitmask plus an opaque,
// base64-encoded blob.
type Payload struct {
	Topic string `json:"topic,omitempty"`
	Flags uint32 `json:"flags"`
	Blob  string `json:"blob"`
}

func (p Payload) IsEncrypted() bool {
	return p.Flags&FlagEncrypted != 0
}

// LegacyMessage carries a message id and a payload that may be encrypted or
// plaintext.
type LegacyMessage struct {
	ID      string  `json:"id"`
	Payload Payload `json:"payload"`
}

// RawMessage is opaque ciphertext, provider-agnostic. It is always delivered
// as silent data with high priority.
type RawMessage struct {
	Topic   string `json:"topic"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// PushMessage is a closed union: exactly one of Raw or Legacy is set.
type PushMessage struct {
	Raw    *RawMessage
	Legacy *LegacyMessage
}

// DecryptedBlob is the plaintext notification content carried inside an
// unencrypted legacy payload blob.
type DecryptedBlob struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// DecodeBlob parses a base64-encoded plaintext blob into its title/body pair.
func DecodeBlob(blob string) (DecryptedBlob, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return DecryptedBlob{}, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	var d DecryptedBlob
	if err := json.Unmarshal(raw, &d); err != nil {
		return DecryptedBlob{}, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	return d, nil
}
