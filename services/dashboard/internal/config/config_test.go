package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const baseConfig = `
port: "8090"
logLevel: "debug"
loginEmail: "manager@guestfy.com"
loginPassword: "password"
trainingDelay: "5s"
`

const secretLine = `sessionSecret: "local-dev-secret-please-change"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig+secretLine))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8090" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected port/level: %+v", cfg)
	}
	if cfg.SessionStore != SessionStoreMemory {
		t.Fatalf("sessionStore = %q, want memory", cfg.SessionStore)
	}
	if cfg.TrainingScheduler != TrainingSchedulerTimer {
		t.Fatalf("trainingScheduler = %q, want timer", cfg.TrainingScheduler)
	}
	if cfg.PropertyLanguage != "pt_BR" {
		t.Fatalf("propertyLanguage = %q", cfg.PropertyLanguage)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GUESTFY_PORT", "9000")
	t.Setenv("GUESTFY_LOG_FORMAT", "text")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DATABASE_URL", "sqlite:data/guestfy.db")
	t.Setenv("GUESTFY_TRAINING_DELAY", "250ms")
	t.Setenv("GUESTFY_LOGIN_RATE_LIMIT_PER_MINUTE", "7")
	t.Setenv("GUESTFY_TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 192.168.0.1")

	cfg, err := Load(writeConfig(t, baseConfig+secretLine))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9000" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.SessionStore != SessionStoreRedis {
		t.Fatalf("expected redis session store when REDIS_ADDR is set, got %q", cfg.SessionStore)
	}
	if cfg.DatabaseURL != "sqlite:data/guestfy.db" || cfg.TrainingDelay != "250ms" {
		t.Fatalf("unexpected db/training: %+v", cfg)
	}
	if cfg.LoginRateLimitPerMinute != 7 {
		t.Fatalf("loginRateLimitPerMinute = %d", cfg.LoginRateLimitPerMinute)
	}
	if len(cfg.TrustedProxyCIDRs) != 2 || cfg.TrustedProxyCIDRs[1] != "192.168.0.1" {
		t.Fatalf("unexpected proxies: %v", cfg.TrustedProxyCIDRs)
	}
}

func TestLoadFromEnvPathWithoutFile(t *testing.T) {
	t.Setenv("GUESTFY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GUESTFY_PORT", "8090")
	t.Setenv("GUESTFY_SESSION_SECRET", "0123456789abcdef")
	t.Setenv("GUESTFY_LOGIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	if _, err := Load(""); err != nil {
		t.Fatalf("expected env-only config to load: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"short secret", `sessionSecret: "short"`, "sessionSecret"},
		{"redis store without addr", `sessionStore: "redis"`, "redisAddr"},
		{"queue scheduler without addr", `trainingScheduler: "queue"`, "redisAddr"},
		{"unknown store", `sessionStore: "etcd"`, "unknown sessionStore"},
		{"bad duration", `providerLatency: "soon"`, "providerLatency"},
		{"negative limit", `loginRateLimitPerMinute: -1`, "rate limits"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := baseConfig + tc.extra + "\n"
			if !strings.HasPrefix(tc.extra, "sessionSecret") {
				content += secretLine
			}
			_, err := Load(writeConfig(t, content))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	if d, err := ParseDuration(""); err != nil || d != 0 {
		t.Fatalf("empty duration: %v %v", d, err)
	}
	if _, err := ParseDuration("-1s"); err == nil {
		t.Fatalf("expected negative duration to fail")
	}
}
