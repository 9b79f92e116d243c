package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"guestfy/pkg/domain"
)

// ErrInvalidCredentials is returned when the email/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	// DefaultEmail is the built-in manager login.
	DefaultEmail = "manager@guestfy.com"
	// DefaultPassword is the built-in manager password, for local use only.
	DefaultPassword = "password"
)

// DefaultUser is the account behind the built-in login. It starts with no companies.
func DefaultUser() domain.User {
	return domain.User{
		ID:        "1",
		Name:      "Guest Manager",
		Email:     DefaultEmail,
		Companies: []domain.Company{},
	}
}

// StaticAuthenticator checks a single fixed credential pair and remembers
// the account's companies across logins.
type StaticAuthenticator struct {
	email        string
	passwordHash string

	mu   sync.RWMutex
	user domain.User
}

// StaticConfig configures the fixed credential.
type StaticConfig struct {
	Email        string
	PasswordHash string
	User         domain.User
}

// NewStaticAuthenticator builds an authenticator. The account email follows cfg.Email.
func NewStaticAuthenticator(cfg StaticConfig) (*StaticAuthenticator, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		return nil, errors.New("login email required")
	}
	if cfg.PasswordHash == "" {
		return nil, errors.New("login password hash required")
	}
	user := cfg.User
	if user.ID == "" {
		user = DefaultUser()
	}
	user.Email = email
	if user.Companies == nil {
		user.Companies = []domain.Company{}
	}
	return &StaticAuthenticator{
		email:        email,
		passwordHash: cfg.PasswordHash,
		user:         user.Clone(),
	}, nil
}

// Authenticate returns the account when the credentials match.
func (a *StaticAuthenticator) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if strings.ToLower(strings.TrimSpace(email)) != a.email {
		return domain.User{}, ErrInvalidCredentials
	}
	if !CheckPassword(password, a.passwordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user.Clone(), nil
}

// SaveUser records company changes so the next login sees them.
func (a *StaticAuthenticator) SaveUser(_ context.Context, user domain.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if user.ID != a.user.ID {
		return errors.New("unknown user")
	}
	a.user = user.Clone()
	return nil
}
