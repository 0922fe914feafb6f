package app

import (
	"testing"
	"time"

	"bookbazaar/pkg/auth"
	"bookbazaar/pkg/domain"
	"bookbazaar/pkg/store"
	"bookbazaar/pkg/stream"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore("test-secret-0123456789", time.Minute,
		store.NewMemoryTokenRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	a, err := New(Config{
		Store:    mem,
		Sessions: sessions,
		Bus:      stream.NewMemoryBus(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem
}

func seedUser(t *testing.T, mem *store.MemoryStore, id string, role domain.UserRole, kycStatus domain.KYCStatus) domain.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user, err := mem.EnsureUser(domain.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: hash,
		Role:         role,
		KYC:          domain.KYC{Status: kycStatus},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

func seedSeller(t *testing.T, mem *store.MemoryStore, id string) domain.User {
	t.Helper()
	return seedUser(t, mem, id, domain.RoleSeller, domain.KYCApproved)
}

func seedListing(t *testing.T, a *App, seller domain.User) domain.Listing {
	t.Helper()
	listing, err := a.CreateListing(seller, domain.ListingFields{
		Title:       "The Go Programming Language",
		Author:      "Donovan & Kernighan",
		Condition:   "like new",
		Description: "Barely opened.",
		PriceText:   "250 kr",
		City:        "Oslo",
	}, []string{"https://img.example.com/1.jpg", "https://img.example.com/2.jpg"})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}
