package clienttoken

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef-test"

func TestIssueVerify(t *testing.T) {
	codec, err := New(Options{Secret: testSecret})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	sid, token, err := codec.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != sid {
		t.Fatalf("session id mismatch: %s != %s", got, sid)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	codec, err := New(Options{Secret: testSecret, TTL: time.Minute, Leeway: time.Second, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	token, err := codec.Sign("sid-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestVerifyRejectsOtherSecretAndIssuer(t *testing.T) {
	a, _ := New(Options{Secret: testSecret})
	b, _ := New(Options{Secret: "another-secret-value-xyz"})
	c, _ := New(Options{Secret: testSecret, Issuer: "someone-else"})
	token, err := a.Sign("sid-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := b.Verify(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := c.Verify(token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
	if _, err := a.Verify(""); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
}

func TestVerifyRejectsNoneAlg(t *testing.T) {
	codec, _ := New(Options{Secret: testSecret})
	claims := jwt.RegisteredClaims{
		Issuer:    DefaultIssuer,
		Subject:   "sid-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := codec.Verify(token); err == nil {
		t.Fatalf("expected unsigned token to be rejected")
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(Options{Secret: "short"}); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	if _, ok := FromRequest(req); ok {
		t.Fatalf("expected no token")
	}
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	if got, ok := FromRequest(req); !ok || got != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", got)
	}
	req.Header.Set("Authorization", "Bearer header-token")
	if got, ok := FromRequest(req); !ok || got != "header-token" {
		t.Fatalf("expected bearer header to win, got %q", got)
	}
}
