package app

import (
	"errors"
	"testing"

	"bookbazaar/pkg/domain"
)

func TestSignUpCreatesUserWithDefaults(t *testing.T) {
	a, _ := newTestApp(t)

	user, token, err := a.SignUp("Reader@Example.com", "password123")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected role user, got %q", user.Role)
	}
	if user.KYC.Status != domain.KYCNone {
		t.Fatalf("expected kyc none, got %q", user.KYC.Status)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}

	authed, err := a.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("authenticate returned %q, want %q", authed.ID, user.ID)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	a, _ := newTestApp(t)

	if _, _, err := a.SignUp("dup@example.com", "password123"); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	if _, _, err := a.SignUp("DUP@example.com", "password456"); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestSignUpValidatesInput(t *testing.T) {
	a, _ := newTestApp(t)

	if _, _, err := a.SignUp("", "password123"); !errors.Is(err, ErrEmailAndPasswordRequired) {
		t.Fatalf("missing email: expected ErrEmailAndPasswordRequired, got %v", err)
	}
	if _, _, err := a.SignUp("a@example.com", ""); !errors.Is(err, ErrEmailAndPasswordRequired) {
		t.Fatalf("missing password: expected ErrEmailAndPasswordRequired, got %v", err)
	}
	if _, _, err := a.SignUp("a@example.com", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak password: expected ErrValidation, got %v", err)
	}
}

func TestEnsureUserRecordIsIdempotent(t *testing.T) {
	a, _ := newTestApp(t)

	first, err := a.EnsureUserRecord("user-1", "one@example.com", "hash")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	// Promote, then ensure again. The existing record must come back
	// unchanged instead of being reset to defaults.
	if _, err := a.SetRole(domain.User{Role: domain.RoleAdmin}, first.ID, domain.RoleSeller); err != nil {
		t.Fatalf("set role: %v", err)
	}
	again, err := a.EnsureUserRecord("user-1", "one@example.com", "hash")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if again.Role != domain.RoleSeller {
		t.Fatalf("expected existing record preserved, got role %q", again.Role)
	}
	if !again.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected createdAt unchanged, got %v want %v", again.CreatedAt, first.CreatedAt)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a, _ := newTestApp(t)
	if _, _, err := a.SignUp("login@example.com", "password123"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, _, err := a.Login("login@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	// Unknown email yields the same error so callers cannot enumerate accounts.
	if _, _, err := a.Login("nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	user, token, err := a.Login("login@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "login@example.com" || token == "" {
		t.Fatalf("unexpected login result: %q %q", user.Email, token)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	a, _ := newTestApp(t)
	_, token, err := a.SignUp("bye@example.com", "password123")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if err := a.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := a.Authenticate(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked session to fail, got %v", err)
	}
	// Revoking twice is a no-op.
	if err := a.Logout(token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestSetRoleIsAdminOnly(t *testing.T) {
	a, mem := newTestApp(t)
	admin := seedUser(t, mem, "admin-1", domain.RoleAdmin, domain.KYCNone)
	target := seedUser(t, mem, "target-1", domain.RoleUser, domain.KYCNone)

	if _, err := a.SetRole(target, target.ID, domain.RoleSeller); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self-promotion: expected ErrForbidden, got %v", err)
	}
	if _, err := a.SetRole(admin, target.ID, "superuser"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown role: expected ErrValidation, got %v", err)
	}
	if _, err := a.SetRole(admin, "missing", domain.RoleSeller); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: expected ErrNotFound, got %v", err)
	}

	updated, err := a.SetRole(admin, target.ID, domain.RoleSeller)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if updated.Role != domain.RoleSeller {
		t.Fatalf("expected role seller, got %q", updated.Role)
	}
}
