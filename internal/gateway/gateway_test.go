package gateway

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"pushgw/internal/auth"
	"pushgw/internal/clients"
	"pushgw/internal/messages"
	"pushgw/internal/providers"
	"pushgw/internal/tenants"
	"pushgw/pkg/config"
	"pushgw/pkg/respond"
)

const (
	testPublicURL = "https://gateway.example.com"
	testSecret    = "tenant-secret"
)

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		PublicURL:       testPublicURL,
		TenantMode:      "multi",
		DefaultTenantID: "0",
		JWTSecret:       testSecret,
	}
}

func newTestApp(t *testing.T, cfg config.Config) (*App, tenants.Store, clients.Store) {
	t.Helper()
	ts := tenants.NewMemoryStore()
	cs := clients.NewMemoryStore()
	a := New(zap.NewNop().Sugar(), cfg, ts, cs, nil, nil, nil)
	return a, ts, cs
}

type sendCall struct {
	token string
	msg   messages.PushMessage
}

type fakeProvider struct {
	err   error
	calls []sendCall
}

func (f *fakeProvider) Send(ctx context.Context, deviceToken string, m messages.PushMessage) error {
	f.calls = append(f.calls, sendCall{token: deviceToken, msg: m})
	return f.err
}

func useFakeProvider(a *App, f *fakeProvider) {
	a.newProvider = func(context.Context, tenants.Tenant, providers.PushType) (providers.PushProvider, error) {
		return f, nil
	}
}

func seedTenantWithFcm(t *testing.T, ts tenants.Store, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := ts.CreateTenant(ctx, tenants.CreateParams{ID: id}); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.UpdateTenantFcm(ctx, id, tenants.FcmUpdateParams{APIKey: "key"}); err != nil {
		t.Fatal(err)
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func envelopeOf(t *testing.T, w *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response %q: %v", w.Body.String(), err)
	}
	return env
}

func wantErrorName(t *testing.T, w *httptest.ResponseRecorder, code int, name string) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status %d, want %d (body %s)", w.Code, code, w.Body.String())
	}
	env := envelopeOf(t, w)
	if len(env.Errors) == 0 || env.Errors[0].Name != name {
		t.Fatalf("errors %+v, want %s", env.Errors, name)
	}
}

func tenantBearer(t *testing.T, subject string) http.Header {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	if err != nil {
		t.Fatal(err)
	}
	return http.Header{"Authorization": []string{"Bearer " + string(signed)}}
}

func TestHealth(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig())
	w := doJSON(t, a.Handler(), http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "OK" || !body.Features.Multitenant {
		t.Fatalf("got %+v", body)
	}
}

func TestRegisterClient(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	h := a.Handler()

	w := doJSON(t, h, http.MethodPost, "/tenant-1/clients", registerClientBody{
		ClientID: "did:key:zClient1", Type: "fcm", Token: "device-token",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	got, err := cs.GetClient(context.Background(), "tenant-1", "zClient1")
	if err != nil {
		t.Fatalf("client not stored: %v", err)
	}
	if got.PushType != providers.TypeFcm || got.Token != "device-token" {
		t.Fatalf("got %+v", got)
	}
}

func TestRegisterClientRejections(t *testing.T) {
	a, ts, _ := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	h := a.Handler()

	tests := []struct {
		name     string
		path     string
		body     registerClientBody
		wantCode int
		wantName string
	}{
		{
			name:     "unknown provider type",
			path:     "/tenant-1/clients",
			body:     registerClientBody{ClientID: "c", Type: "smoke-signals", Token: "x"},
			wantCode: http.StatusBadRequest,
			wantName: "ProviderNotAvailable",
		},
		{
			name:     "provider without credentials",
			path:     "/tenant-1/clients",
			body:     registerClientBody{ClientID: "c", Type: "apns", Token: "x"},
			wantCode: http.StatusBadRequest,
			wantName: "ProviderNotAvailable",
		},
		{
			name:     "empty token",
			path:     "/tenant-1/clients",
			body:     registerClientBody{ClientID: "c", Type: "fcm"},
			wantCode: http.StatusBadRequest,
			wantName: "EmptyField",
		},
		{
			name:     "empty client id",
			path:     "/tenant-1/clients",
			body:     registerClientBody{Type: "fcm", Token: "x"},
			wantCode: http.StatusBadRequest,
			wantName: "EmptyField",
		},
		{
			name:     "unknown tenant",
			path:     "/tenant-9/clients",
			body:     registerClientBody{ClientID: "c", Type: "fcm", Token: "x"},
			wantCode: http.StatusNotFound,
			wantName: "TenantNotFound",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, tc.path, tc.body, nil)
			wantErrorName(t, w, tc.wantCode, tc.wantName)
		})
	}
}

func TestRegisterClientBearerBinding(t *testing.T) {
	cfg := testConfig()
	cfg.RequireClientAuth = true
	a, ts, _ := newTestApp(t, cfg)
	seedTenantWithFcm(t, ts, "tenant-1")
	h := a.Handler()

	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	did := auth.EncodeEd25519DIDKey(pub)
	tok, err := jwt.NewBuilder().
		Issuer(did).
		Audience([]string{testPublicURL}).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.EdDSA, priv))
	if err != nil {
		t.Fatal(err)
	}
	bearer := http.Header{"Authorization": []string{"Bearer " + string(signed)}}

	t.Run("no bearer rejected when required", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients", registerClientBody{
			ClientID: did, Type: "fcm", Token: "x",
		}, nil)
		wantErrorName(t, w, http.StatusUnauthorized, "InvalidAuthentication")
	})

	t.Run("bearer bound to client id accepted", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients", registerClientBody{
			ClientID: did, Type: "fcm", Token: "x",
		}, bearer)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("bearer for a different client rejected", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients", registerClientBody{
			ClientID: "did:key:zSomeoneElse", Type: "fcm", Token: "x",
		}, bearer)
		wantErrorName(t, w, http.StatusUnauthorized, "InvalidAuthentication")
	})
}

func TestDeleteClient(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{PushType: providers.TypeFcm, Token: "x"})
	h := a.Handler()

	w := doJSON(t, h, http.MethodDelete, "/tenant-1/clients/client-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if _, err := cs.GetClient(context.Background(), "tenant-1", "client-1"); !errors.Is(err, clients.ErrClientNotFound) {
		t.Fatal("client still present")
	}

	w = doJSON(t, h, http.MethodDelete, "/tenant-1/clients/client-1", nil, nil)
	wantErrorName(t, w, http.StatusNotFound, "ClientNotFound")
}

func TestPushMessage(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{PushType: providers.TypeFcm, Token: "device-1"})
	fake := &fakeProvider{}
	useFakeProvider(a, fake)
	h := a.Handler()

	t.Run("raw message delivered", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
			Raw: &messages.RawMessage{Topic: "t", Tag: "g", Message: "m"},
		}, nil)
		if w.Code != http.StatusAccepted {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		if len(fake.calls) != 1 || fake.calls[0].token != "device-1" || fake.calls[0].msg.Raw == nil {
			t.Fatalf("calls %+v", fake.calls)
		}
	})

	t.Run("legacy payload delivered", func(t *testing.T) {
		fake.calls = nil
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
			ID:      "msg-1",
			Payload: &messages.Payload{Flags: 0, Blob: "e30="},
		}, nil)
		if w.Code != http.StatusAccepted {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		if len(fake.calls) != 1 || fake.calls[0].msg.Legacy == nil || fake.calls[0].msg.Legacy.ID != "msg-1" {
			t.Fatalf("calls %+v", fake.calls)
		}
	})

	t.Run("empty body rejected", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{}, nil)
		wantErrorName(t, w, http.StatusBadRequest, "EmptyField")
	})

	t.Run("unknown client", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/ghost", pushBody{
			Raw: &messages.RawMessage{},
		}, nil)
		wantErrorName(t, w, http.StatusNotFound, "ClientNotFound")
	})
}

func TestPushAlwaysRawRequiresRaw(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{
		PushType: providers.TypeFcm, Token: "device-1", AlwaysRaw: true,
	})
	useFakeProvider(a, &fakeProvider{})
	h := a.Handler()

	w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
		ID:      "msg-1",
		Payload: &messages.Payload{Blob: "e30="},
	}, nil)
	wantErrorName(t, w, http.StatusBadRequest, "EmptyField")
}

func TestPushBadDeviceTokenRemovesClient(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{PushType: providers.TypeFcm, Token: "device-1"})
	useFakeProvider(a, &fakeProvider{err: providers.ErrBadDeviceToken})
	h := a.Handler()

	w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
		Raw: &messages.RawMessage{},
	}, nil)
	wantErrorName(t, w, http.StatusBadRequest, "BadDeviceToken")

	if _, err := cs.GetClient(context.Background(), "tenant-1", "client-1"); !errors.Is(err, clients.ErrClientNotFound) {
		t.Fatal("client must be removed after a device token rejection")
	}
	got, _ := ts.GetTenant(context.Background(), "tenant-1")
	if got.Suspended {
		t.Fatal("device token failures must not suspend the tenant")
	}
}

func TestPushCredentialFailureSuspendsTenant(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{PushType: providers.TypeFcm, Token: "device-1"})
	useFakeProvider(a, &fakeProvider{err: providers.ErrBadFcmAPIKey})
	h := a.Handler()

	w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
		Raw: &messages.RawMessage{},
	}, nil)
	wantErrorName(t, w, http.StatusBadRequest, "BadFcmApiKey")

	got, _ := ts.GetTenant(context.Background(), "tenant-1")
	if !got.Suspended {
		t.Fatal("credential failure must suspend the tenant")
	}
	if _, err := cs.GetClient(context.Background(), "tenant-1", "client-1"); err != nil {
		t.Fatal("credential failures must not remove the client")
	}

	// further sends are refused while suspended
	w = doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
		Raw: &messages.RawMessage{},
	}, nil)
	wantErrorName(t, w, http.StatusForbidden, "TenantSuspended")
}

func TestPushProviderResponsePassthrough(t *testing.T) {
	a, ts, cs := newTestApp(t, testConfig())
	seedTenantWithFcm(t, ts, "tenant-1")
	_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{PushType: providers.TypeFcm, Token: "device-1"})
	useFakeProvider(a, &fakeProvider{err: &providers.ResponseError{Provider: providers.TypeFcm, Code: "Unavailable"}})
	h := a.Handler()

	w := doJSON(t, h, http.MethodPost, "/tenant-1/clients/client-1", pushBody{
		Raw: &messages.RawMessage{},
	}, nil)
	wantErrorName(t, w, http.StatusBadGateway, "ProviderResponse")

	got, _ := ts.GetTenant(context.Background(), "tenant-1")
	if got.Suspended {
		t.Fatal("passthrough errors must not suspend")
	}
	if _, err := cs.GetClient(context.Background(), "tenant-1", "client-1"); err != nil {
		t.Fatal("passthrough errors must not remove the client")
	}
}

func TestTenantManagement(t *testing.T) {
	a, _, cs := newTestApp(t, testConfig())
	h := a.Handler()

	t.Run("create requires a bearer", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenants", createTenantBody{ID: "tenant-1"}, nil)
		wantErrorName(t, w, http.StatusUnauthorized, "InvalidAuthentication")
	})

	t.Run("create with a subject-bound bearer", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/tenants", createTenantBody{ID: "tenant-1"}, tenantBearer(t, "tenant-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		var info tenantInfo
		if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
			t.Fatal(err)
		}
		if info.ID != "tenant-1" || info.Suspended || len(info.Providers) != 0 {
			t.Fatalf("got %+v", info)
		}
	})

	t.Run("bearer for another tenant rejected", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/tenants/tenant-1", nil, tenantBearer(t, "tenant-2"))
		wantErrorName(t, w, http.StatusUnauthorized, "InvalidAuthentication")
	})

	t.Run("get never exposes credential material", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/tenants/tenant-1", nil, tenantBearer(t, "tenant-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if s := w.Body.String(); strings.Contains(s, "certificate") || strings.Contains(s, "api_key") {
			t.Fatalf("credential material leaked: %s", s)
		}
	})

	t.Run("delete removes tenant and its clients", func(t *testing.T) {
		_ = cs.CreateClient(context.Background(), "tenant-1", "client-1", clients.Client{PushType: providers.TypeFcm, Token: "x"})
		w := doJSON(t, h, http.MethodDelete, "/tenants/tenant-1", nil, tenantBearer(t, "tenant-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if _, err := cs.GetClient(context.Background(), "tenant-1", "client-1"); !errors.Is(err, clients.ErrClientNotFound) {
			t.Fatal("clients must be removed with their tenant")
		}
		w = doJSON(t, h, http.MethodGet, "/tenants/tenant-1", nil, tenantBearer(t, "tenant-1"))
		wantErrorName(t, w, http.StatusNotFound, "TenantNotFound")
	})
}

func TestSingleTenantMode(t *testing.T) {
	cfg := testConfig()
	cfg.TenantMode = "single"
	a, ts, cs := newTestApp(t, cfg)
	seedTenantWithFcm(t, ts, "0")
	useFakeProvider(a, &fakeProvider{})
	h := a.Handler()

	w := doJSON(t, h, http.MethodPost, "/clients", registerClientBody{
		ClientID: "client-1", Type: "fcm", Token: "device-1",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register status %d: %s", w.Code, w.Body.String())
	}
	if _, err := cs.GetClient(context.Background(), "0", "client-1"); err != nil {
		t.Fatalf("client not stored under default tenant: %v", err)
	}

	w = doJSON(t, h, http.MethodPost, "/clients/client-1", pushBody{
		Raw: &messages.RawMessage{},
	}, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("push status %d: %s", w.Code, w.Body.String())
	}

	// tenant management routes do not exist in single mode
	w = doJSON(t, h, http.MethodPost, "/tenants", createTenantBody{ID: "x"}, tenantBearer(t, "x"))
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("tenants route must be absent, got %d", w.Code)
	}
}
