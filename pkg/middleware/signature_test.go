package middleware

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"pushgw/pkg/respond"
)

// signBody signs the canonical string: raw byte length, lossily decoded body.
func signBody(priv ed25519.PrivateKey, timestamp string, body []byte) string {
	msg := fmt.Sprintf("%s.%d.%s", timestamp, len(body), strings.ToValidUTF8(string(body), "�"))
	return hex.EncodeToString(ed25519.Sign(priv, []byte(msg)))
}

func TestSignatureValid(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	body := []byte(`{"id":"42"}`)
	const timestamp = "1700000000"
	sig := signBody(priv, timestamp, body)

	tests := []struct {
		name      string
		signature string
		timestamp string
		body      []byte
		key       ed25519.PublicKey
		want      bool
	}{
		{name: "valid", signature: sig, timestamp: timestamp, body: body, key: pub, want: true},
		{name: "tampered body", signature: sig, timestamp: timestamp, body: []byte(`{"id":"43"}`), key: pub},
		{name: "tampered timestamp", signature: sig, timestamp: "1700000001", body: body, key: pub},
		{name: "not hex", signature: "zzzz", timestamp: timestamp, body: body, key: pub},
		{name: "wrong signature length", signature: "abcd", timestamp: timestamp, body: body, key: pub},
		{name: "nil public key", signature: sig, timestamp: timestamp, body: body, key: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SignatureValid(tc.signature, tc.timestamp, tc.body, tc.key); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSignatureValidNonUTF8Body(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	body := []byte{0x7b, 0xff, 0x7d} // "{", invalid byte, "}"
	const timestamp = "1700000000"

	// A signer following the canonical form: middle segment is the raw byte
	// count, third segment is the lossy UTF-8 decoding.
	lossy := strings.ToValidUTF8(string(body), "�")
	msg := fmt.Sprintf("%s.%d.%s", timestamp, len(body), lossy)
	sig := hex.EncodeToString(ed25519.Sign(priv, []byte(msg)))

	if !SignatureValid(sig, timestamp, body, pub) {
		t.Fatal("canonical signature over a non-UTF-8 body must verify")
	}

	// Signing the raw bytes instead of the lossy decoding is a different
	// message and must not verify.
	rawMsg := fmt.Sprintf("%s.%d.%s", timestamp, len(body), body)
	rawSig := hex.EncodeToString(ed25519.Sign(priv, []byte(rawMsg)))
	if SignatureValid(rawSig, timestamp, body, pub) {
		t.Fatal("raw-byte canonicalization must be rejected")
	}

	// The length segment keeps counting raw bytes, not decoded runes.
	wrongLen := fmt.Sprintf("%s.%d.%s", timestamp, len(lossy), lossy)
	wrongLenSig := hex.EncodeToString(ed25519.Sign(priv, []byte(wrongLen)))
	if SignatureValid(wrongLenSig, timestamp, body, pub) {
		t.Fatal("decoded-length canonicalization must be rejected")
	}
}

func TestRequireValidSignature(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	log := zap.NewNop().Sugar()
	body := []byte(`{"payload":{"flags":0,"blob":"x"}}`)
	const timestamp = "1700000000"

	var downstreamBody []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstreamBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	h := RequireValidSignature(true, pub, log)(next)

	t.Run("valid signature passes and body is re-attached", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		r.Header.Set(SignatureHeader, signBody(priv, timestamp, body))
		r.Header.Set(TimestampHeader, timestamp)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if !bytes.Equal(downstreamBody, body) {
			t.Fatalf("handler saw %q", downstreamBody)
		}
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		r.Header.Set(SignatureHeader, signBody(priv, timestamp, []byte("other")))
		r.Header.Set(TimestampHeader, timestamp)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status %d", w.Code)
		}
	})

	headerCases := []struct {
		name      string
		signature bool
		timestamp bool
		wantError string
	}{
		{name: "both missing", wantError: "MissingAllSignatureHeader"},
		{name: "signature missing", timestamp: true, wantError: "MissingSignatureHeader"},
		{name: "timestamp missing", signature: true, wantError: "MissingTimestampHeader"},
	}
	for _, tc := range headerCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
			if tc.signature {
				r.Header.Set(SignatureHeader, signBody(priv, timestamp, body))
			}
			if tc.timestamp {
				r.Header.Set(TimestampHeader, timestamp)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status %d", w.Code)
			}
			var env respond.Envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatal(err)
			}
			if len(env.Errors) != 1 || env.Errors[0].Name != tc.wantError {
				t.Fatalf("errors %+v, want %s", env.Errors, tc.wantError)
			}
		})
	}

	t.Run("disabled passes through untouched", func(t *testing.T) {
		off := RequireValidSignature(false, nil, log)(next)
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		w := httptest.NewRecorder()
		off.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
	})
}
