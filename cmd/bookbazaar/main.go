package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"bookbazaar/internal/app"
	"bookbazaar/internal/config"
	"bookbazaar/internal/ratelimit"
	"bookbazaar/internal/server"
	"bookbazaar/internal/util"
	"bookbazaar/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("failed to parse session ttl", "err", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		SessionTTL:    sessionTTL,
		JWTSecret:     cfg.JWTSecret,
		JWTIssuer:     cfg.JWTIssuer,
		JWTAudience:   cfg.JWTAudience,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	var uploads storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		uploads, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.MinioUseSSL, cfg.MinioPublicBaseURL)
		if err != nil {
			util.Fatal("failed to init object storage", "err", err)
		}
	} else {
		slog.Warn("object storage not configured, uploads disabled")
	}

	var authLimiter *ratelimit.FixedWindowLimiter
	if cfg.AuthRateLimitPerMinute > 0 {
		authLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword,
			"bookbazaar:ratelimit:auth", cfg.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			util.Fatal("failed to init auth rate limiter", "err", err)
		}
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("failed to parse trusted proxy cidrs", "err", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		Uploads:        uploads,
		AuthLimiter:    authLimiter,
		TrustedProxies: trustedProxies,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: chat streams stay open until the client leaves.
	}

	slog.Info("bookbazaar server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "err", err)
	}
}
