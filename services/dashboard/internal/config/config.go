package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location, overridden by GUESTFY_CONFIG.
const ConfigPath = "config.yaml"

const (
	SessionStoreMemory = "memory"
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"

	TrainingSchedulerTimer = "timer"
	TrainingSchedulerQueue = "queue"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string   `yaml:"port"`
	LogLevel                string   `yaml:"logLevel"`
	LogFormat               string   `yaml:"logFormat"`
	SessionSecret           string   `yaml:"sessionSecret"`
	SessionTTL              string   `yaml:"sessionTTL"`
	SessionStore            string   `yaml:"sessionStore"`
	SessionFile             string   `yaml:"sessionFile"`
	CookieSecure            bool     `yaml:"cookieSecure"`
	RedisAddr               string   `yaml:"redisAddr"`
	RedisPassword           string   `yaml:"redisPassword"`
	DatabaseURL             string   `yaml:"databaseURL"`
	LoginEmail              string   `yaml:"loginEmail"`
	LoginPasswordHash       string   `yaml:"loginPasswordHash"`
	LoginPassword           string   `yaml:"loginPassword"`
	TrainingDelay           string   `yaml:"trainingDelay"`
	TrainingScheduler       string   `yaml:"trainingScheduler"`
	ProviderLatency         string   `yaml:"providerLatency"`
	PropertyLanguage        string   `yaml:"propertyLanguage"`
	TrustedProxyCIDRs       []string `yaml:"trustedProxyCidrs"`
	LoginRateLimitPerMinute int      `yaml:"loginRateLimitPerMinute"`
}

// Load reads config from path (defaults to GUESTFY_CONFIG, then config.yaml)
// and applies env overrides. A missing file is fine when env supplies the rest.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GUESTFY_CONFIG"))
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("GUESTFY_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUESTFY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUESTFY_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUESTFY_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("GUESTFY_SESSION_STORE"); v != "" {
		cfg.SessionStore = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUESTFY_SESSION_FILE"); v != "" {
		cfg.SessionFile = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GUESTFY_LOGIN_PASSWORD_HASH"); v != "" {
		cfg.LoginPasswordHash = v
	}
	if v := os.Getenv("GUESTFY_TRAINING_DELAY"); v != "" {
		cfg.TrainingDelay = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUESTFY_PROVIDER_LATENCY"); v != "" {
		cfg.ProviderLatency = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUESTFY_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("GUESTFY_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SessionStore == "" {
		cfg.SessionStore = SessionStoreMemory
		if cfg.RedisAddr != "" {
			cfg.SessionStore = SessionStoreRedis
		}
	}
	if cfg.SessionStore == SessionStoreFile && cfg.SessionFile == "" {
		cfg.SessionFile = "data/sessions.json"
	}
	if cfg.TrainingScheduler == "" {
		cfg.TrainingScheduler = TrainingSchedulerTimer
	}
	if cfg.PropertyLanguage == "" {
		cfg.PropertyLanguage = "pt_BR"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or GUESTFY_PORT)")
	}
	if len(strings.TrimSpace(cfg.SessionSecret)) < 16 {
		return errors.New("config: sessionSecret must be at least 16 characters (set in config.yaml or GUESTFY_SESSION_SECRET)")
	}
	switch cfg.SessionStore {
	case SessionStoreMemory, SessionStoreFile:
	case SessionStoreRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required when sessionStore is redis")
		}
	default:
		return fmt.Errorf("config: unknown sessionStore %q", cfg.SessionStore)
	}
	switch cfg.TrainingScheduler {
	case TrainingSchedulerTimer:
	case TrainingSchedulerQueue:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required when trainingScheduler is queue")
		}
	default:
		return fmt.Errorf("config: unknown trainingScheduler %q", cfg.TrainingScheduler)
	}
	if cfg.LoginPasswordHash == "" && cfg.LoginPassword == "" {
		return errors.New("config: loginPasswordHash or loginPassword is required")
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	for name, raw := range map[string]string{
		"sessionTTL":      cfg.SessionTTL,
		"trainingDelay":   cfg.TrainingDelay,
		"providerLatency": cfg.ProviderLatency,
	} {
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("config: invalid %s: %w", name, err)
		}
	}
	return nil
}

// ParseDuration parses an optional duration string; empty means zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("duration must be >= 0")
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
