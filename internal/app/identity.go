package app

import (
	"fmt"
	"strings"
	"time"

	"bookbazaar/internal/util"
	"bookbazaar/pkg/auth"
	"bookbazaar/pkg/domain"
)

// SignUp registers a new account with role user and no KYC record,
// and issues a session token.
func (a *App) SignUp(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := a.EnsureUserRecord(util.NewID(), email, passwordHash)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// EnsureUserRecord creates the user record for an identity if absent and
// returns the stored record. Calling it again for the same identity returns
// the existing record unchanged; the underlying write is a conditional create
// keyed by the identity, so concurrent first logins produce a single record.
func (a *App) EnsureUserRecord(id, email, passwordHash string) (domain.User, error) {
	now := time.Now().UTC()
	user, err := a.store.EnsureUser(domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		KYC:          domain.KYC{Status: domain.KYCNone},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("ensure user record: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Logout revokes the session token. Revoking twice is a no-op.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// Authenticate resolves a session token to its user record.
func (a *App) Authenticate(token string) (domain.User, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, ErrUnauthorized
	}
	user, ok, err := a.store.GetUser(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUnauthorized
	}
	return user, nil
}

// SetRole changes a user's role. Administrative only; there is no
// self-service path to seller or admin.
func (a *App) SetRole(caller domain.User, userID string, role domain.UserRole) (domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return domain.User{}, ErrForbidden
	}
	if !domain.ValidRole(role) {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	ok, err := a.store.SetUserRole(userID, role)
	if err != nil {
		return domain.User{}, fmt.Errorf("set role: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	user, ok, err := a.store.GetUser(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user after role change: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}
