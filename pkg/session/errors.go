package session

import (
	"errors"

	"guestfy/pkg/auth"
)

var (
	// ErrInvalidCredentials is returned by Login when the credentials do not match.
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	// ErrCompanyLimitReached is returned when the user already administers the maximum number of companies.
	ErrCompanyLimitReached = errors.New("company limit reached")
	// ErrNotAuthenticated is returned by mutating operations when no user is logged in.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrCompanyNotOwned is returned when selecting a company outside the user's set.
	ErrCompanyNotOwned    = errors.New("company not owned by user")
	ErrInvalidCompanyName = errors.New("company name must be between 2 and 50 characters")
	ErrAuthInProgress     = errors.New("login already in progress")
	// ErrLoginCancelled is returned by a Login overtaken by Logout.
	ErrLoginCancelled = errors.New("login cancelled by logout")
)
