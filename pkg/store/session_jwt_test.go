package store

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func newHSStore(t *testing.T, revoker TokenRevoker, opts JWTOptions) *JWTSessionStore {
	t.Helper()
	s, err := NewJWTSessionStore("unit-test-secret-0123456789", time.Minute, revoker, opts)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	return s
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := newHSStore(t, nil, JWTOptions{})

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok || userID != "user-1" {
		t.Fatalf("unexpected result: ok=%v userID=%q", ok, userID)
	}
}

func TestJWTSessionStoreRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("  ", time.Minute, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestJWTSessionStoreEnforcesAudience(t *testing.T) {
	signing := newHSStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-a", Leeway: time.Second})
	verify := newHSStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-b", Leeway: time.Second})

	token, err := signing.NewSession("user-aud")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, _, err := verify.GetUserIDByToken(token); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}
}

func TestJWTSessionStoreRejectsOtherSecret(t *testing.T) {
	s := newHSStore(t, nil, JWTOptions{})
	other, err := NewJWTSessionStore("another-secret-entirely", time.Minute, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new other store: %v", err)
	}
	token, err := other.NewSession("user-forged")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(token); err == nil {
		t.Fatalf("expected foreign signature to fail")
	}
}

func TestJWTSessionStoreRevokesByJTI(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s := newHSStore(t, revoker, JWTOptions{})

	token, err := s.NewSession("user-revoke")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected revoked token to fail, ok=%v err=%v", ok, err)
	}
	// Deleting again, or deleting garbage, is a no-op.
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := s.DeleteSession("not-a-jwt"); err != nil {
		t.Fatalf("delete invalid token: %v", err)
	}
}

func TestJWTSessionStoreRequiresJTIClaim(t *testing.T) {
	s := newHSStore(t, nil, JWTOptions{})

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-nojti",
		Issuer:    defaultJWTIssuer,
		Audience:  jwt.ClaimStrings{defaultJWTAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(signed); err == nil {
		t.Fatalf("expected missing jti token to fail")
	}
}

func TestJWTSessionStoreRejectsUnsignedAlg(t *testing.T) {
	s := newHSStore(t, nil, JWTOptions{})

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-none",
		Issuer:    defaultJWTIssuer,
		Audience:  jwt.ClaimStrings{defaultJWTAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		ID:        "jti-none",
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(signed); err == nil {
		t.Fatalf("expected alg=none token to fail")
	}
}

func TestJWTSessionStoreRejectsExpired(t *testing.T) {
	s := newHSStore(t, nil, JWTOptions{Leeway: time.Millisecond})

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-expired",
		Issuer:    defaultJWTIssuer,
		Audience:  jwt.ClaimStrings{defaultJWTAudience},
		IssuedAt:  jwt.NewNumericDate(now.Add(-10 * time.Minute)),
		NotBefore: jwt.NewNumericDate(now.Add(-10 * time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
		ID:        "jti-expired",
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(signed); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}
