package server

import (
	"net/http"
	"strings"

	"guestfy/pkg/domain"
	"guestfy/pkg/session"
	"guestfy/services/dashboard/internal/app"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createCompanyRequest struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type selectCompanyRequest struct {
	ID string `json:"id"`
}

// sessionResponse is returned by every session-mutating endpoint.
type sessionResponse struct {
	Route   session.Route    `json:"route,omitempty"`
	Session session.Snapshot `json:"session"`
	Company *domain.Company  `json:"company,omitempty"`
}

type routeGuard struct {
	Path   session.Route       `json:"path"`
	Access string              `json:"access"`
	Guard  session.GuardResult `json:"guard"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "dashboard.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "dashboard.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	route, err := sess.Manager.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "dashboard.login", "fail", "reason", err.Error())
		writeDomainError(w, r, err)
		return
	}
	snap := sess.Manager.Snapshot()
	s.audit(r, "dashboard.login", "success", "user_id", snap.User.ID, "route", string(route))
	writeJSON(w, http.StatusOK, sessionResponse{Route: route, Session: snap})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	err := sess.Manager.Logout(r.Context())
	sess.Chat.Reset()
	if err != nil {
		// memory is already cleared; the stale durable entry is dropped on next restore
		s.audit(r, "dashboard.logout", "fail", "reason", err.Error())
	} else {
		s.audit(r, "dashboard.logout", "success")
	}
	writeJSON(w, http.StatusOK, sessionResponse{Route: session.RouteLogin, Session: sess.Manager.Snapshot()})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request, sess *app.Session) {
	routes := session.Routes()
	guards := make([]routeGuard, 0, len(routes))
	for _, route := range routes {
		access, _ := session.AccessFor(string(route))
		guards = append(guards, routeGuard{Path: route, Access: access.String(), Guard: sess.Manager.Guard(access)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": sess.Manager.Snapshot(),
		"routes":  guards,
	})
}

func (s *Server) handleRouteCheck(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	guard, ok := sess.Manager.GuardPath(path)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown route")
		return
	}
	if guard.Status == session.GuardDenied {
		s.audit(r, "dashboard.guard", "denied", "route", path, "redirect", string(guard.Redirect))
	}
	writeJSON(w, http.StatusOK, guard)
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req createCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	company, route, err := sess.Manager.CreateCompany(r.Context(), req.Name, req.Logo)
	if err != nil {
		s.audit(r, "dashboard.company.create", "fail", "reason", err.Error())
		writeDomainError(w, r, err)
		return
	}
	s.audit(r, "dashboard.company.create", "success", "company_id", company.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{Route: route, Session: sess.Manager.Snapshot(), Company: &company})
}

func (s *Server) handleSelectCompany(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req selectCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	prev, hadPrev := sess.Manager.ActiveCompany()
	route, err := sess.Manager.SelectCompany(r.Context(), strings.TrimSpace(req.ID))
	if err != nil {
		s.audit(r, "dashboard.company.select", "fail", "company_id", req.ID, "reason", err.Error())
		writeDomainError(w, r, err)
		return
	}
	if !hadPrev || prev.ID != req.ID {
		sess.Chat.Reset()
	}
	s.audit(r, "dashboard.company.select", "success", "company_id", req.ID)
	writeJSON(w, http.StatusOK, sessionResponse{Route: route, Session: sess.Manager.Snapshot()})
}
