package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"guestfy/pkg/auth"
	"guestfy/pkg/domain"
	"guestfy/pkg/kv"
)

type recordingStore struct {
	*kv.MemoryStore
	mu     sync.Mutex
	writes int
	fail   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: kv.NewMemoryStore()}
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.writes++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *recordingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type blockingAuthenticator struct {
	release chan struct{}
	user    domain.User
}

func (b *blockingAuthenticator) Authenticate(ctx context.Context, _, _ string) (domain.User, error) {
	select {
	case <-b.release:
		return b.user, nil
	case <-ctx.Done():
		return domain.User{}, ctx.Err()
	}
}

func newAuthenticator(t *testing.T) *auth.StaticAuthenticator {
	t.Helper()
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	a, err := auth.NewStaticAuthenticator(auth.StaticConfig{Email: auth.DefaultEmail, PasswordHash: hash})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return a
}

func newManager(t *testing.T, store kv.Store, a *auth.StaticAuthenticator) *Manager {
	t.Helper()
	n := 0
	m, err := New(Config{
		Store:         store,
		Authenticator: a,
		Users:         a,
		NewCompanyID: func() string {
			n++
			return fmt.Sprintf("company-%d", n)
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return m
}

func TestCompanyOnboardingScenario(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newManager(t, store, newAuthenticator(t))

	route, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if route != RouteCreateCompany {
		t.Fatalf("expected create-company route, got %s", route)
	}
	if m.State() != StateNoCompany {
		t.Fatalf("expected no-company state, got %s", m.State())
	}

	seaside, route, err := m.CreateCompany(ctx, "Seaside Rentals", "")
	if err != nil {
		t.Fatalf("create first company: %v", err)
	}
	if route != RouteDashboard {
		t.Fatalf("expected dashboard after first company, got %s", route)
	}
	active, ok := m.ActiveCompany()
	if !ok || active.ID != seaside.ID {
		t.Fatalf("expected first company auto-selected, got %+v", active)
	}

	_, route, err = m.CreateCompany(ctx, "Mountain Retreats", "https://example.com/mr.png")
	if err != nil {
		t.Fatalf("create second company: %v", err)
	}
	if route != RouteSelectCompany {
		t.Fatalf("expected select-company after second company, got %s", route)
	}
	active, _ = m.ActiveCompany()
	if active.Name != "Seaside Rentals" {
		t.Fatalf("second company must not be auto-selected, active=%s", active.Name)
	}

	if _, _, err := m.CreateCompany(ctx, "City Apartments", ""); !errors.Is(err, ErrCompanyLimitReached) {
		t.Fatalf("expected company limit, got: %v", err)
	}
	user, _ := m.User()
	if len(user.Companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(user.Companies))
	}
	if m.State() != StateCompanySelected {
		t.Fatalf("expected company-selected, got %s", m.State())
	}
}

func TestLoginInvalidCredentialsLeavesState(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newManager(t, store, newAuthenticator(t))

	if _, err := m.Login(ctx, auth.DefaultEmail, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", m.State())
	}
	if store.writeCount() != 0 {
		t.Fatalf("expected no durable write, got %d", store.writeCount())
	}
	if _, err := store.Get(ctx, KeyUser); !errors.Is(err, kv.ErrMiss) {
		t.Fatalf("expected no stored user, got: %v", err)
	}
}

func TestLoginRoutesByCompanyCount(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator(t)
	user, err := a.Authenticate(ctx, auth.DefaultEmail, auth.DefaultPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	user.Companies = []domain.Company{{ID: "c1", Name: "Seaside Rentals"}}
	if err := a.SaveUser(ctx, user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	m := newManager(t, newRecordingStore(), a)
	route, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if route != RouteDashboard {
		t.Fatalf("expected dashboard for one company, got %s", route)
	}
	if c, ok := m.ActiveCompany(); !ok || c.ID != "c1" {
		t.Fatalf("expected auto-selected c1, got %+v", c)
	}

	user.Companies = append(user.Companies, domain.Company{ID: "c2", Name: "Mountain Retreats"})
	if err := a.SaveUser(ctx, user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	m2 := newManager(t, newRecordingStore(), a)
	route, err = m2.Login(ctx, auth.DefaultEmail, auth.DefaultPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if route != RouteSelectCompany {
		t.Fatalf("expected select-company for two companies, got %s", route)
	}
	if _, ok := m2.ActiveCompany(); ok {
		t.Fatalf("expected no active company")
	}
}

func TestSelectCompanyRejectsForeignCompany(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newManager(t, store, newAuthenticator(t))

	if _, err := m.SelectCompany(ctx, "c1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got: %v", err)
	}
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := m.CreateCompany(ctx, "Seaside Rentals", ""); err != nil {
		t.Fatalf("create company: %v", err)
	}
	before := store.writeCount()
	if _, err := m.SelectCompany(ctx, "someone-elses"); !errors.Is(err, ErrCompanyNotOwned) {
		t.Fatalf("expected not owned, got: %v", err)
	}
	if store.writeCount() != before {
		t.Fatalf("rejected select must not write")
	}
	active, _ := m.ActiveCompany()
	if active.Name != "Seaside Rentals" {
		t.Fatalf("active company changed on rejected select: %+v", active)
	}
}

func TestSelectCompanyPersists(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newManager(t, store, newAuthenticator(t))
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := m.CreateCompany(ctx, "Seaside Rentals", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	second, _, err := m.CreateCompany(ctx, "Mountain Retreats", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	route, err := m.SelectCompany(ctx, second.ID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if route != RouteDashboard {
		t.Fatalf("expected dashboard route, got %s", route)
	}
	raw, err := store.Get(ctx, KeySelectedCompany)
	if err != nil {
		t.Fatalf("read stored company: %v", err)
	}
	var stored domain.Company
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode stored company: %v", err)
	}
	if stored.ID != second.ID {
		t.Fatalf("expected stored company %s, got %s", second.ID, stored.ID)
	}
}

func TestCreateCompanyValidation(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newRecordingStore(), newAuthenticator(t))
	if _, _, err := m.CreateCompany(ctx, "Seaside", ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got: %v", err)
	}
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, name := range []string{"", " a ", "x123456789x123456789x123456789x123456789x123456789x"} {
		if _, _, err := m.CreateCompany(ctx, name, ""); !errors.Is(err, ErrInvalidCompanyName) {
			t.Fatalf("expected invalid name for %q, got: %v", name, err)
		}
	}
}

func TestCreateCompanyStoreFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newManager(t, store, newAuthenticator(t))
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	store.fail = errors.New("disk full")
	if _, _, err := m.CreateCompany(ctx, "Seaside Rentals", ""); err == nil {
		t.Fatalf("expected store failure")
	}
	user, _ := m.User()
	if len(user.Companies) != 0 {
		t.Fatalf("expected no companies after failed write, got %d", len(user.Companies))
	}
}

func TestRestoreAcrossReload(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	a := newAuthenticator(t)
	m := newManager(t, store, a)
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	company, _, err := m.CreateCompany(ctx, "Seaside Rentals", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reloaded, err := New(Config{Store: store, Authenticator: a})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if got := reloaded.RequireCompany(); got.Status != GuardLoading {
		t.Fatalf("expected loading before restore, got %+v", got)
	}
	if err := reloaded.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := reloaded.RequireCompany(); got.Status != GuardAuthorized {
		t.Fatalf("expected authorized after restore, got %+v", got)
	}
	active, ok := reloaded.ActiveCompany()
	if !ok || active.ID != company.ID {
		t.Fatalf("expected restored company %s, got %+v", company.ID, active)
	}
}

func TestRestoreDropsUnownedCompany(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	userRaw, _ := json.Marshal(domain.User{ID: "1", Name: "Guest Manager", Companies: []domain.Company{{ID: "c1", Name: "Seaside"}}})
	companyRaw, _ := json.Marshal(domain.Company{ID: "c9", Name: "Elsewhere"})
	_ = store.Set(ctx, KeyUser, userRaw)
	_ = store.Set(ctx, KeySelectedCompany, companyRaw)

	m, err := New(Config{Store: store, Authenticator: newAuthenticator(t)})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m.State() != StateNoCompany {
		t.Fatalf("expected no-company state, got %s", m.State())
	}
	if _, err := store.Get(ctx, KeySelectedCompany); !errors.Is(err, kv.ErrMiss) {
		t.Fatalf("expected stale company removed, got: %v", err)
	}
	if got := m.RequireCompany(); got.Redirect != RouteSelectCompany {
		t.Fatalf("expected redirect to select-company, got %+v", got)
	}
}

func TestLogoutClearsBothKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	m := newManager(t, store, newAuthenticator(t))
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := m.CreateCompany(ctx, "Seaside Rentals", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", m.State())
	}
	for _, key := range []string{KeyUser, KeySelectedCompany} {
		if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrMiss) {
			t.Fatalf("expected %s cleared, got: %v", key, err)
		}
	}
	if got := m.RequireAuth(); got.Status != GuardDenied || got.Redirect != RouteLogin {
		t.Fatalf("expected denied to login, got %+v", got)
	}
}

func TestCompaniesSurviveLogout(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, kv.NewMemoryStore(), newAuthenticator(t))
	if _, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := m.CreateCompany(ctx, "Seaside Rentals", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	route, err := m.Login(ctx, auth.DefaultEmail, auth.DefaultPassword)
	if err != nil {
		t.Fatalf("login again: %v", err)
	}
	if route != RouteDashboard {
		t.Fatalf("expected dashboard on second login, got %s", route)
	}
}

func TestGuardLoadingDuringLogin(t *testing.T) {
	ctx := context.Background()
	a := &blockingAuthenticator{release: make(chan struct{}), user: domain.User{ID: "1", Name: "Guest Manager"}}
	m, err := New(Config{Store: kv.NewMemoryStore(), Authenticator: a})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(ctx, "x", "y")
		done <- err
	}()
	waitForState(t, m, StateAuthenticating)

	if got := m.RequireAuth(); got.Status != GuardLoading {
		t.Fatalf("expected loading during login, got %+v", got)
	}
	if got := m.Guard(AccessPublic); got.Status != GuardAuthorized {
		t.Fatalf("public routes are always authorized, got %+v", got)
	}
	if _, err := m.Login(ctx, "x", "y"); !errors.Is(err, ErrAuthInProgress) {
		t.Fatalf("expected auth in progress, got: %v", err)
	}
	close(a.release)
	if err := <-done; err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := m.RequireCompany(); got.Status != GuardDenied || got.Redirect != RouteCreateCompany {
		t.Fatalf("expected redirect to create-company, got %+v", got)
	}
}

func TestLogoutDropsPendingLogin(t *testing.T) {
	ctx := context.Background()
	a := &blockingAuthenticator{release: make(chan struct{}), user: domain.User{ID: "1", Name: "Guest Manager"}}
	store := kv.NewMemoryStore()
	m, err := New(Config{Store: store, Authenticator: a})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(ctx, "x", "y")
		done <- err
	}()
	waitForState(t, m, StateAuthenticating)

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	close(a.release)
	if err := <-done; !errors.Is(err, ErrLoginCancelled) {
		t.Fatalf("expected cancelled login, got: %v", err)
	}
	if got := m.State(); got != StateUnauthenticated {
		t.Fatalf("expected unauthenticated after logout, got %s", got)
	}
	if _, err := store.Get(ctx, KeyUser); !errors.Is(err, kv.ErrMiss) {
		t.Fatalf("cancelled login persisted a user: %v", err)
	}

	// the next login is unaffected
	a.release = make(chan struct{})
	close(a.release)
	if _, err := m.Login(ctx, "x", "y"); err != nil {
		t.Fatalf("login after logout: %v", err)
	}
	if got := m.State(); got != StateNoCompany {
		t.Fatalf("expected no-company state, got %s", got)
	}
}

func TestGuardPath(t *testing.T) {
	m := newManager(t, kv.NewMemoryStore(), newAuthenticator(t))
	if got, ok := m.GuardPath("/login"); !ok || got.Status != GuardAuthorized {
		t.Fatalf("expected login authorized, got %+v %v", got, ok)
	}
	if got, ok := m.GuardPath("/chats/"); !ok || got.Redirect != RouteLogin {
		t.Fatalf("expected chats to redirect to login, got %+v %v", got, ok)
	}
	if _, ok := m.GuardPath("/nowhere"); ok {
		t.Fatalf("expected unknown path")
	}
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if m.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state never reached %s", want)
}
