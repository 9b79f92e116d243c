package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"guestfy/pkg/domain"
	"guestfy/pkg/kv"
)

// Durable keys.
const (
	KeyUser            = "user"
	KeySelectedCompany = "selectedCompany"
)

const (
	minCompanyName = 2
	maxCompanyName = 50
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateNoCompany       State = "no-company-selected"
	StateCompanySelected State = "company-selected"
)

// Authenticator validates login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.User, error)
}

// UserSaver persists account changes beyond the browser session.
type UserSaver interface {
	SaveUser(ctx context.Context, user domain.User) error
}

// Config wires a Manager.
type Config struct {
	Store         kv.Store
	Authenticator Authenticator
	// Users is optional; when set, created companies outlive logout.
	Users        UserSaver
	NewCompanyID func() string
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	State   State           `json:"state"`
	Loading bool            `json:"loading"`
	User    *domain.User    `json:"user,omitempty"`
	Company *domain.Company `json:"selectedCompany,omitempty"`
}

// Manager owns one browser's (user, active company) pair.
type Manager struct {
	store kv.Store
	auth  Authenticator
	users UserSaver
	newID func() string

	mu             sync.Mutex
	restored       bool
	authenticating bool
	// epoch advances on logout; a login that started in an older epoch is dropped
	epoch   uint64
	user    *domain.User
	company *domain.Company
}

// New constructs a Manager. Call Restore before serving guards.
func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("authenticator required")
	}
	if cfg.NewCompanyID == nil {
		cfg.NewCompanyID = func() string { return uuid.NewString() }
	}
	return &Manager{
		store: cfg.Store,
		auth:  cfg.Authenticator,
		users: cfg.Users,
		newID: cfg.NewCompanyID,
	}, nil
}

// Restore loads the durable session. Until it returns, guards report loading.
// A stored company the user no longer owns is dropped.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restored {
		return nil
	}
	defer func() { m.restored = true }()

	rawUser, err := m.store.Get(ctx, KeyUser)
	if errors.Is(err, kv.ErrMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore user: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(rawUser, &user); err != nil || user.ID == "" {
		slog.Warn("session restore: discarding unreadable user", "err", err)
		_ = m.store.Delete(ctx, KeyUser, KeySelectedCompany)
		return nil
	}
	if user.Companies == nil {
		user.Companies = []domain.Company{}
	}
	m.user = &user

	rawCompany, err := m.store.Get(ctx, KeySelectedCompany)
	if errors.Is(err, kv.ErrMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore company: %w", err)
	}
	var stored domain.Company
	if err := json.Unmarshal(rawCompany, &stored); err != nil {
		slog.Warn("session restore: discarding unreadable company", "err", err)
		_ = m.store.Delete(ctx, KeySelectedCompany)
		return nil
	}
	owned, ok := user.Company(stored.ID)
	if !ok {
		slog.Warn("session restore: dropping company not owned by user", "user_id", user.ID, "company_id", stored.ID)
		_ = m.store.Delete(ctx, KeySelectedCompany)
		return nil
	}
	m.company = &owned
	return nil
}

// Login authenticates and routes by the number of companies the user has.
// State is untouched on failure.
func (m *Manager) Login(ctx context.Context, email, password string) (Route, error) {
	m.mu.Lock()
	if m.authenticating {
		m.mu.Unlock()
		return "", ErrAuthInProgress
	}
	m.authenticating = true
	epoch := m.epoch
	m.mu.Unlock()

	user, err := m.auth.Authenticate(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticating = false
	if m.epoch != epoch {
		return "", ErrLoginCancelled
	}
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if user.Companies == nil {
		user.Companies = []domain.Company{}
	}

	var company *domain.Company
	if len(user.Companies) == 1 {
		c := user.Companies[0]
		company = &c
	}
	if err := m.writeUser(ctx, user); err != nil {
		return "", err
	}
	if company != nil {
		err = m.writeCompany(ctx, *company)
	} else {
		err = m.store.Delete(ctx, KeySelectedCompany)
	}
	if err != nil {
		_ = m.store.Delete(ctx, KeyUser)
		return "", fmt.Errorf("persist session: %w", err)
	}

	m.user = &user
	m.company = company
	m.restored = true
	return routeForCount(len(user.Companies)), nil
}

// Logout clears memory and durable storage. Memory is cleared even if the
// store delete fails. A login still waiting on the authenticator is dropped.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.user = nil
	m.company = nil
	if err := m.store.Delete(ctx, KeyUser, KeySelectedCompany); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SelectCompany activates one of the user's companies.
func (m *Manager) SelectCompany(ctx context.Context, companyID string) (Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return "", ErrNotAuthenticated
	}
	company, ok := m.user.Company(strings.TrimSpace(companyID))
	if !ok {
		return "", ErrCompanyNotOwned
	}
	if err := m.writeCompany(ctx, company); err != nil {
		return "", err
	}
	m.company = &company
	return RouteDashboard, nil
}

// CreateCompany appends a company to the user. The first company is
// auto-selected; later ones leave the active company unchanged.
func (m *Manager) CreateCompany(ctx context.Context, name, logo string) (domain.Company, Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return domain.Company{}, "", ErrNotAuthenticated
	}
	if len(m.user.Companies) >= domain.MaxCompaniesPerUser {
		return domain.Company{}, "", ErrCompanyLimitReached
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minCompanyName || n > maxCompanyName {
		return domain.Company{}, "", ErrInvalidCompanyName
	}

	company := domain.Company{ID: m.newID(), Name: name, Logo: strings.TrimSpace(logo)}
	updated := m.user.Clone()
	updated.Companies = append(updated.Companies, company)
	first := len(updated.Companies) == 1

	if err := m.writeUser(ctx, updated); err != nil {
		return domain.Company{}, "", err
	}
	rollback := func() {
		_ = m.writeUser(ctx, *m.user)
		if first {
			_ = m.store.Delete(ctx, KeySelectedCompany)
		}
	}
	if first {
		if err := m.writeCompany(ctx, company); err != nil {
			rollback()
			return domain.Company{}, "", err
		}
	}
	if m.users != nil {
		if err := m.users.SaveUser(ctx, updated); err != nil {
			rollback()
			return domain.Company{}, "", fmt.Errorf("save user: %w", err)
		}
	}

	m.user = &updated
	if first {
		c := company
		m.company = &c
	}
	return company, routeForCount(len(updated.Companies)), nil
}

// State reports the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Snapshot returns a copy of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{State: m.stateLocked(), Loading: m.loadingLocked()}
	if m.user != nil {
		u := m.user.Clone()
		snap.User = &u
	}
	if m.company != nil {
		c := *m.company
		snap.Company = &c
	}
	return snap
}

// User returns the logged-in user.
func (m *Manager) User() (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return domain.User{}, false
	}
	return m.user.Clone(), true
}

// ActiveCompany returns the selected company.
func (m *Manager) ActiveCompany() (domain.Company, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.company == nil {
		return domain.Company{}, false
	}
	return *m.company, true
}

func (m *Manager) stateLocked() State {
	switch {
	case m.authenticating:
		return StateAuthenticating
	case m.user == nil:
		return StateUnauthenticated
	case m.company == nil:
		return StateNoCompany
	default:
		return StateCompanySelected
	}
}

func (m *Manager) loadingLocked() bool {
	return !m.restored || m.authenticating
}

func (m *Manager) writeUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := m.store.Set(ctx, KeyUser, raw); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (m *Manager) writeCompany(ctx context.Context, company domain.Company) error {
	raw, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("encode company: %w", err)
	}
	if err := m.store.Set(ctx, KeySelectedCompany, raw); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	return nil
}

func routeForCount(n int) Route {
	switch {
	case n == 0:
		return RouteCreateCompany
	case n == 1:
		return RouteDashboard
	default:
		return RouteSelectCompany
	}
}
