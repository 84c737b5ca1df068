// internal/auth/didkey.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// DecentralizedIdentifierPrefix prefixes client identities. It is stripped
// before storage and lookups.
const DecentralizedIdentifierPrefix = "did:key:"

// multicodec prefix for an Ed25519 public key
var ed25519Multicodec = []byte{0xed, 0x01}

var ErrInvalidDIDKey = errors.New("invalid did:key identifier")

// StripDIDPrefix removes the did:key prefix from a client id, if present.
func StripDIDPrefix(id string) string {
	return strings.TrimPrefix(id, DecentralizedIdentifierPrefix)
}

// DecodeEd25519DIDKey extracts the Ed25519 public key embedded in a did:key
// identifier (base58btc multibase, Ed25519 multicodec).
func DecodeEd25519DIDKey(did string) (ed25519.PublicKey, error) {
	s := StripDIDPrefix(did)
	if len(s) == 0 || s[0] != 'z' {
		return nil, fmt.Errorf("%w: expected base58btc multibase", ErrInvalidDIDKey)
	}
	raw, err := base58.Decode(s[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDIDKey, err)
	}
	if len(raw) != len(ed25519Multicodec)+ed25519.PublicKeySize ||
		raw[0] != ed25519Multicodec[0] || raw[1] != ed25519Multicodec[1] {
		return nil, fmt.Errorf("%w: not an ed25519 key", ErrInvalidDIDKey)
	}
	return ed25519.PublicKey(raw[2:]), nil
}

// EncodeEd25519DIDKey renders a public key as a did:key identifier.
func EncodeEd25519DIDKey(pub ed25519.PublicKey) string {
	raw := append(append([]byte{}, ed25519Multicodec...), pub...)
	return DecentralizedIdentifierPrefix + "z" + base58.Encode(raw)
}
