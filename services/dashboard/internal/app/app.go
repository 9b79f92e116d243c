package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"guestfy/pkg/auth"
	"guestfy/pkg/chatview"
	"guestfy/pkg/dashboard"
	"guestfy/pkg/kv"
	"guestfy/pkg/provider"
	"guestfy/pkg/queue"
	"guestfy/pkg/session"
	"guestfy/pkg/training"
)

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"

	SchedulerTimer = "timer"
	SchedulerQueue = "queue"

	trainingStream = "guestfy:training"
)

// Config holds runtime configuration for the dashboard core.
type Config struct {
	SessionStore  string
	SessionFile   string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	// Redis overrides RedisAddr/RedisPassword when set.
	Redis       *redis.Client
	DatabaseURL string

	LoginEmail        string
	LoginPasswordHash string
	// LoginPassword is hashed at startup when no hash is configured.
	LoginPassword string

	TrainingDelay     time.Duration
	TrainingScheduler string
	ProviderLatency   time.Duration
	PropertyLanguage  string
	Now               func() time.Time
}

// App wires providers, the session store and the per-browser state machines.
type App struct {
	Reservations  provider.Reservations
	Properties    provider.Properties
	Conversations provider.Conversations
	Knowledge     provider.Knowledge
	Agents        provider.Agents
	Trainer       *training.Trainer

	auth       *auth.StaticAuthenticator
	store      kv.Store
	redis      *redis.Client
	queue      *queue.RedisJobQueue
	now        func() time.Time
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	closers  []func() error
}

// Session is one browser's state: the auth machine and its chat view.
type Session struct {
	ID      string
	Manager *session.Manager
	Chat    *chatview.View

	lastSeen time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	a := &App{
		now:        cfg.Now,
		sessionTTL: cfg.SessionTTL,
		sessions:   make(map[string]*Session),
		redis:      cfg.Redis,
	}
	if a.redis == nil && strings.TrimSpace(cfg.RedisAddr) != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.closers = append(a.closers, a.redis.Close)
	}

	if err := a.initProviders(cfg); err != nil {
		return nil, err
	}
	if err := a.initAuth(cfg); err != nil {
		return nil, err
	}
	store, err := a.newSessionStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	if err := a.initTraining(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) initProviders(cfg Config) error {
	opts := provider.Options{Now: cfg.Now, Latency: cfg.ProviderLatency, Language: cfg.PropertyLanguage}
	reservations := provider.NewMemoryReservations(opts)
	properties, err := provider.NewMemoryProperties(opts)
	if err != nil {
		return fmt.Errorf("init properties: %w", err)
	}
	clients, err := reservations.ListClients(context.Background())
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	a.Reservations = reservations
	a.Properties = properties
	a.Knowledge = provider.NewMemoryKnowledge(opts)
	a.Agents = provider.NewMemoryAgents(opts)

	seed := provider.NewMemoryConversations(opts, clients)
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		a.Conversations = seed
		return nil
	}
	db, err := provider.OpenDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	convs, err := provider.NewGormConversations(db, provider.GormOptions{Now: cfg.Now, Clients: clients})
	if err != nil {
		return fmt.Errorf("init conversation store: %w", err)
	}
	seeded, err := seed.ListConversations(context.Background())
	if err != nil {
		return err
	}
	if err := convs.SeedIfEmpty(context.Background(), seeded); err != nil {
		return fmt.Errorf("seed conversations: %w", err)
	}
	a.Conversations = convs
	return nil
}

func (a *App) initAuth(cfg Config) error {
	email := cfg.LoginEmail
	if strings.TrimSpace(email) == "" {
		email = auth.DefaultEmail
	}
	hash := cfg.LoginPasswordHash
	if hash == "" {
		password := cfg.LoginPassword
		if password == "" {
			return errors.New("login password or hash required")
		}
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return fmt.Errorf("hash login password: %w", err)
		}
		slog.Warn("using plaintext login password from config; set loginPasswordHash outside development")
	}
	authenticator, err := auth.NewStaticAuthenticator(auth.StaticConfig{Email: email, PasswordHash: hash})
	if err != nil {
		return err
	}
	a.auth = authenticator
	return nil
}

func (a *App) newSessionStore(cfg Config) (kv.Store, error) {
	switch cfg.SessionStore {
	case "", StoreMemory:
		return kv.NewMemoryStore(), nil
	case StoreFile:
		return kv.NewFileStore(cfg.SessionFile)
	case StoreRedis:
		if a.redis == nil {
			return nil, errors.New("redis session store requires redisAddr")
		}
		return kv.NewRedisStore(a.redis, "guestfy:", cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func (a *App) initTraining(cfg Config) error {
	tcfg := training.Config{Agents: a.Agents, Delay: cfg.TrainingDelay, Now: cfg.Now}
	if cfg.TrainingScheduler == SchedulerQueue {
		if a.redis == nil {
			return errors.New("queue training scheduler requires redisAddr")
		}
		q, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
			Client: a.redis,
			Stream: trainingStream,
			Group:  "dashboard",
			// a claim must never race an in-flight delayed job
			ClaimIdle: cfg.TrainingDelay + time.Minute,
			Now:       cfg.Now,
		})
		if err != nil {
			return fmt.Errorf("init training queue: %w", err)
		}
		a.queue = q
		tcfg.Scheduler = training.NewQueueScheduler(q, cfg.Now)
	}
	trainer, err := training.New(tcfg)
	if err != nil {
		return err
	}
	a.Trainer = trainer
	return nil
}

// Start runs background consumers until ctx ends.
func (a *App) Start(ctx context.Context) {
	if a.queue != nil {
		a.queue.Start(ctx, 1, training.QueueHandler(a.Trainer.Complete))
	}
}

// Now is the clock shared by providers and views.
func (a *App) Now() time.Time {
	return a.now()
}

// Redis exposes the shared client, or nil when Redis is not configured.
func (a *App) Redis() *redis.Client {
	return a.redis
}

// Session returns the state for sid, restoring it from the durable store on first use.
func (a *App) Session(ctx context.Context, sid string) (*Session, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil, ErrSessionRequired
	}
	now := a.now()
	a.mu.Lock()
	a.sweepLocked(now)
	if s, ok := a.sessions[sid]; ok {
		s.lastSeen = now
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()

	mgr, err := session.New(session.Config{
		Store:         kv.Namespace(a.store, "session:"+sid+":"),
		Authenticator: a.auth,
		Users:         a.auth,
	})
	if err != nil {
		return nil, err
	}
	if err := mgr.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	chat, err := chatview.New(chatview.Config{Provider: a.Conversations, Now: a.now})
	if err != nil {
		return nil, err
	}
	s := &Session{ID: sid, Manager: mgr, Chat: chat, lastSeen: now}

	a.mu.Lock()
	defer a.mu.Unlock()
	// another request may have restored the same browser meanwhile
	if existing, ok := a.sessions[sid]; ok {
		return existing, nil
	}
	a.sessions[sid] = s
	return s, nil
}

// Forget drops the in-memory state for sid. The durable store is untouched.
func (a *App) Forget(sid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sid)
}

func (a *App) sweepLocked(now time.Time) {
	for id, s := range a.sessions {
		if now.Sub(s.lastSeen) > a.sessionTTL {
			delete(a.sessions, id)
		}
	}
}

// Summary builds the dashboard overview.
func (a *App) Summary(ctx context.Context) (dashboard.Summary, error) {
	return dashboard.BuildSummary(ctx, dashboard.Sources{
		Reservations:  a.Reservations,
		Conversations: a.Conversations,
		Agents:        a.Agents,
	}, a.now())
}

// Close stops training timers and releases connections.
func (a *App) Close() error {
	a.Trainer.Stop()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
