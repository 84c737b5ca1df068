package clients

import (
	"context"
	"errors"
	"testing"

	"pushgw/internal/providers"
)

func TestClientLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.CreateClient(ctx, "tenant-1", "client-1", Client{
		PushType: providers.TypeFcm,
		Token:    "token-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetClient(ctx, "tenant-1", "client-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TenantID != "tenant-1" || got.PushType != providers.TypeFcm || got.Token != "token-1" {
		t.Fatalf("got %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not stamped")
	}

	if err := s.DeleteClient(ctx, "tenant-1", "client-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetClient(ctx, "tenant-1", "client-1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if err := s.DeleteClient(ctx, "tenant-1", "client-1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestReRegistrationReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.CreateClient(ctx, "tenant-1", "client-1", Client{PushType: providers.TypeFcm, Token: "old"})
	_ = s.CreateClient(ctx, "tenant-1", "client-1", Client{PushType: providers.TypeApns, Token: "new", AlwaysRaw: true})

	got, err := s.GetClient(ctx, "tenant-1", "client-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Token != "new" || got.PushType != providers.TypeApns || !got.AlwaysRaw {
		t.Fatalf("re-registration did not replace: %+v", got)
	}
}

func TestClientsAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.CreateClient(ctx, "tenant-1", "client-1", Client{PushType: providers.TypeFcm, Token: "a"})
	if _, err := s.GetClient(ctx, "tenant-2", "client-1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("client must not leak across tenants, got %v", err)
	}
}

func TestDeleteTenantClients(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore().(*memStore)

	_ = s.CreateClient(ctx, "tenant-1", "client-1", Client{PushType: providers.TypeFcm, Token: "a"})
	_ = s.CreateClient(ctx, "tenant-1", "client-2", Client{PushType: providers.TypeFcm, Token: "b"})
	_ = s.CreateClient(ctx, "tenant-2", "client-1", Client{PushType: providers.TypeFcm, Token: "c"})

	s.DeleteTenantClients(ctx, "tenant-1")

	if _, err := s.GetClient(ctx, "tenant-1", "client-1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatal("tenant-1 clients must be gone")
	}
	if _, err := s.GetClient(ctx, "tenant-2", "client-1"); err != nil {
		t.Fatalf("tenant-2 must be untouched: %v", err)
	}
}
