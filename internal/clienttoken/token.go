// Package clienttoken signs the opaque browser session id handed to the
// dashboard front-end, so a session key cannot be guessed or forged.
package clienttoken

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTTL bounds how long a browser session stays addressable.
	DefaultTTL = 12 * time.Hour
	// DefaultLeeway is clock skew tolerance for validation.
	DefaultLeeway = 15 * time.Second
	DefaultIssuer = "guestfy-dashboard"
	// CookieName carries the token when the client does not send a bearer header.
	CookieName = "guestfy_session"

	minSecretLen = 16
)

var (
	ErrTokenRequired = errors.New("session token required")
	ErrTokenInvalid  = errors.New("session token invalid")
)

// Codec issues and verifies browser session tokens.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	Now    func() time.Time
}

func New(opts Options) (*Codec, error) {
	secret := strings.TrimSpace(opts.Secret)
	if len(secret) < minSecretLen {
		return nil, errors.New("session secret must be at least 16 characters")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), issuer: issuer, ttl: ttl, leeway: leeway, now: now}, nil
}

// TTL reports the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue mints a fresh session id and its signed token.
func (c *Codec) Issue() (sessionID, token string, err error) {
	sessionID = uuid.NewString()
	token, err = c.Sign(sessionID)
	return sessionID, token, err
}

// Sign returns a token whose subject is sessionID.
func (c *Codec) Sign(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("session id required")
	}
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify validates signature, issuer and expiry and returns the session id.
func (c *Codec) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenRequired
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// FromRequest extracts the token from a bearer header or the session cookie.
func FromRequest(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token, true
		}
	}
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value), true
	}
	return "", false
}
