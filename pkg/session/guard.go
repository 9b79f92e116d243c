package session

type GuardStatus string

const (
	GuardLoading    GuardStatus = "loading"
	GuardAuthorized GuardStatus = "authorized"
	GuardDenied     GuardStatus = "denied"
)

// GuardResult tells a caller whether to render, wait, or redirect.
type GuardResult struct {
	Status   GuardStatus `json:"status"`
	Redirect Route       `json:"redirect,omitempty"`
}

// Guard evaluates an access requirement against the current session.
// It reports loading until Restore completes and while a login is running.
func (m *Manager) Guard(access Access) GuardResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if access == AccessPublic {
		return GuardResult{Status: GuardAuthorized}
	}
	if m.loadingLocked() {
		return GuardResult{Status: GuardLoading}
	}
	if m.user == nil {
		return GuardResult{Status: GuardDenied, Redirect: RouteLogin}
	}
	if access == AccessRequireCompany && m.company == nil {
		if len(m.user.Companies) == 0 {
			return GuardResult{Status: GuardDenied, Redirect: RouteCreateCompany}
		}
		return GuardResult{Status: GuardDenied, Redirect: RouteSelectCompany}
	}
	return GuardResult{Status: GuardAuthorized}
}

// RequireAuth guards semi-protected destinations.
func (m *Manager) RequireAuth() GuardResult {
	return m.Guard(AccessRequireAuth)
}

// RequireCompany guards fully protected destinations.
func (m *Manager) RequireCompany() GuardResult {
	return m.Guard(AccessRequireCompany)
}

// GuardPath resolves path and guards it. Unknown paths are reported as not found.
func (m *Manager) GuardPath(path string) (GuardResult, bool) {
	access, ok := AccessFor(path)
	if !ok {
		return GuardResult{}, false
	}
	return m.Guard(access), true
}
