package auth

import (
	"context"
	"errors"
	"testing"

	"guestfy/pkg/domain"
)

func newTestAuthenticator(t *testing.T) *StaticAuthenticator {
	t.Helper()
	hash, err := HashPassword(DefaultPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	a, err := NewStaticAuthenticator(StaticConfig{Email: DefaultEmail, PasswordHash: hash})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return a
}

func TestStaticAuthenticator(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	user, err := a.Authenticate(ctx, "Manager@Guestfy.com ", DefaultPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != "1" || len(user.Companies) != 0 {
		t.Fatalf("unexpected seed user: %+v", user)
	}
	if _, err := a.Authenticate(ctx, DefaultEmail, "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got: %v", err)
	}
	if _, err := a.Authenticate(ctx, "other@guestfy.com", DefaultPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for other email, got: %v", err)
	}
}

func TestStaticAuthenticatorSaveUser(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()
	user, err := a.Authenticate(ctx, DefaultEmail, DefaultPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	user.Companies = append(user.Companies, domain.Company{ID: "c1", Name: "Seaside Rentals"})
	if err := a.SaveUser(ctx, user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	again, err := a.Authenticate(ctx, DefaultEmail, DefaultPassword)
	if err != nil {
		t.Fatalf("authenticate again: %v", err)
	}
	if len(again.Companies) != 1 || again.Companies[0].Name != "Seaside Rentals" {
		t.Fatalf("expected saved company, got: %+v", again.Companies)
	}
	if err := a.SaveUser(ctx, domain.User{ID: "stranger"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}
