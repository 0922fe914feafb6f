package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"bookbazaar/internal/ratelimit"
)

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:auth", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestEnv(t, func(cfg *Config) {
		cfg.AuthLimiter = limiter
	})

	body := map[string]string{"email": "nobody@example.com", "password": "password123"}
	for i := 0; i < 2; i++ {
		if status := env.doJSON(t, http.MethodPost, "/api/auth/login", "", body, nil); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i, status)
		}
	}
	if status := env.doJSON(t, http.MethodPost, "/api/auth/login", "", body, nil); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after quota, got %d", status)
	}

	// Authenticated routes are not throttled by the auth limiter.
	if status := env.doJSON(t, http.MethodGet, "/healthz", "", nil, nil); status != http.StatusOK {
		t.Fatalf("healthz: status %d", status)
	}
}
