package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevoker(t *testing.T) {
	r := NewMemoryTokenRevoker()

	if revoked, err := r.IsRevoked("jti-1"); err != nil || revoked {
		t.Fatalf("fresh token: revoked=%v err=%v", revoked, err)
	}
	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, err := r.IsRevoked("jti-1"); err != nil || !revoked {
		t.Fatalf("revoked token: revoked=%v err=%v", revoked, err)
	}
	// Zero TTL means the token already expired; nothing to record.
	if err := r.Revoke("jti-2", 0); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}
	if revoked, err := r.IsRevoked("jti-2"); err != nil || revoked {
		t.Fatalf("expired token: revoked=%v err=%v", revoked, err)
	}
}

func TestMemoryTokenRevokerEntryExpires(t *testing.T) {
	r := NewMemoryTokenRevoker()
	if err := r.Revoke("jti-short", 10*time.Millisecond); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if revoked, err := r.IsRevoked("jti-short"); err != nil || revoked {
		t.Fatalf("entry should expire with the token, revoked=%v err=%v", revoked, err)
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisTokenRevoker(mr.Addr(), "")

	if revoked, err := r.IsRevoked("jti-r1"); err != nil || revoked {
		t.Fatalf("fresh token: revoked=%v err=%v", revoked, err)
	}
	if err := r.Revoke("jti-r1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, err := r.IsRevoked("jti-r1"); err != nil || !revoked {
		t.Fatalf("revoked token: revoked=%v err=%v", revoked, err)
	}

	// The revocation entry lives only as long as the token would have.
	mr.FastForward(2 * time.Minute)
	if revoked, err := r.IsRevoked("jti-r1"); err != nil || revoked {
		t.Fatalf("after ttl: revoked=%v err=%v", revoked, err)
	}
}
