package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"guestfy/internal/clienttoken"
	"guestfy/internal/ratelimit"
	"guestfy/internal/util"
	"guestfy/services/dashboard/internal/app"
	"guestfy/services/dashboard/internal/config"
	"guestfy/services/dashboard/internal/server"
)

const defaultLoginRateLimit = 10

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel, cfg.LogFormat)

	sessionTTL := mustDuration("sessionTTL", cfg.SessionTTL)
	trainingDelay := mustDuration("trainingDelay", cfg.TrainingDelay)
	providerLatency := mustDuration("providerLatency", cfg.ProviderLatency)

	appCore, err := app.New(app.Config{
		SessionStore:      cfg.SessionStore,
		SessionFile:       cfg.SessionFile,
		SessionTTL:        sessionTTL,
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		DatabaseURL:       cfg.DatabaseURL,
		LoginEmail:        cfg.LoginEmail,
		LoginPasswordHash: cfg.LoginPasswordHash,
		LoginPassword:     cfg.LoginPassword,
		TrainingDelay:     trainingDelay,
		TrainingScheduler: cfg.TrainingScheduler,
		ProviderLatency:   providerLatency,
		PropertyLanguage:  cfg.PropertyLanguage,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer appCore.Close()

	tokens, err := clienttoken.New(clienttoken.Options{
		Secret: cfg.SessionSecret,
		Issuer: "guestfy-dashboard",
		TTL:    sessionTTL,
	})
	if err != nil {
		log.Fatalf("failed to init session tokens: %v", err)
	}
	proxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("invalid trusted proxies: %v", err)
	}

	var limiter server.Limiter
	if rdb := appCore.Redis(); rdb != nil {
		limit := cfg.LoginRateLimitPerMinute
		if limit == 0 {
			limit = defaultLoginRateLimit
		}
		fw, err := ratelimit.New(ratelimit.Config{Client: rdb, Prefix: "guestfy:ratelimit:login", Limit: limit, Window: time.Minute})
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
		limiter = fw
	} else {
		logger.Warn("login rate limiting disabled; set redisAddr to enable")
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Tokens:         tokens,
		LoginLimiter:   limiter,
		TrustedProxies: proxies,
		CookieSecure:   cfg.CookieSecure,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCore.Start(ctx)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr, "session_store", cfg.SessionStore, "training_scheduler", cfg.TrainingScheduler)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

func mustDuration(name, raw string) time.Duration {
	d, err := config.ParseDuration(raw)
	if err != nil {
		log.Fatalf("failed to parse %s: %v", name, err)
	}
	return d
}
