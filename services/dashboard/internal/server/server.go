package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"guestfy/internal/clienttoken"
	"guestfy/internal/ratelimit"
	"guestfy/internal/util"
	"guestfy/pkg/chatview"
	"guestfy/pkg/dashboard"
	"guestfy/pkg/provider"
	"guestfy/pkg/session"
	"guestfy/pkg/training"
	"guestfy/services/dashboard/internal/app"
)

const (
	serviceName  = "dashboard"
	maxBodyBytes = 1 << 20
	// TokenHeader returns a freshly issued session token to non-cookie clients.
	TokenHeader = "X-Session-Token"
)

// Limiter guards login attempts.
type Limiter interface {
	Allow(ctx context.Context, key string) ratelimit.Decision
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Tokens         *clienttoken.Codec
	LoginLimiter   Limiter
	TrustedProxies *util.TrustedProxies
	CookieSecure   bool
	// Location renders display times; defaults to time.Local.
	Location *time.Location
}

// Server exposes the dashboard JSON API.
type Server struct {
	app          *app.App
	tokens       *clienttoken.Codec
	loginLimiter Limiter
	proxies      *util.TrustedProxies
	cookieSecure bool
	loc          *time.Location
	mux          *http.ServeMux
}

func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("session token codec required")
	}
	s := &Server{
		app:          cfg.App,
		tokens:       cfg.Tokens,
		loginLimiter: cfg.LoginLimiter,
		proxies:      cfg.TrustedProxies,
		cookieSecure: cfg.CookieSecure,
		loc:          cfg.Location,
		mux:          http.NewServeMux(),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(serviceName, util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// session
	s.mux.Handle("POST /api/auth/login", s.withSession(s.handleLogin))
	s.mux.Handle("POST /api/auth/logout", s.withSession(s.handleLogout))
	s.mux.Handle("GET /api/session", s.withSession(s.handleSession))
	s.mux.Handle("GET /api/routes/check", s.withSession(s.handleRouteCheck))
	s.mux.Handle("POST /api/companies", s.withSession(s.handleCreateCompany))
	s.mux.Handle("POST /api/companies/select", s.withSession(s.handleSelectCompany))

	// dashboard pages (auth + company)
	s.mux.Handle("GET /api/dashboard", s.protected(s.handleDashboard))
	s.mux.Handle("GET /api/reservations", s.protected(s.handleListReservations))
	s.mux.Handle("GET /api/reservations/{id}", s.protected(s.handleGetReservation))
	s.mux.Handle("GET /api/properties", s.protected(s.handleListProperties))
	s.mux.Handle("GET /api/properties/{id}", s.protected(s.handleGetProperty))

	// chat
	s.mux.Handle("GET /api/conversations", s.protected(s.handleConversations))
	s.mux.Handle("POST /api/conversations/load", s.protected(s.handleLoadConversations))
	s.mux.Handle("GET /api/conversations/active", s.protected(s.handleActiveConversation))
	s.mux.Handle("POST /api/conversations/active/messages", s.protected(s.handleSendMessage))
	s.mux.Handle("POST /api/conversations/{id}/select", s.protected(s.handleSelectConversation))
	s.mux.Handle("POST /api/conversations/{id}/read", s.protected(s.handleMarkRead))

	// agents
	s.mux.Handle("GET /api/agents", s.protected(s.handleListAgents))
	s.mux.Handle("GET /api/agents/tasks", s.protected(s.handleListTasks))
	s.mux.Handle("PATCH /api/agents/{id}", s.protected(s.handleUpdateAgent))
	s.mux.Handle("POST /api/agents/{id}/train", s.protected(s.handleTrainAgent))

	// knowledge base
	s.mux.Handle("GET /api/knowledge/lists", s.protected(s.handleListKnowledgeLists))
	s.mux.Handle("POST /api/knowledge/lists", s.protected(s.handleCreateKnowledgeList))
	s.mux.Handle("GET /api/knowledge/lists/{id}", s.protected(s.handleGetKnowledgeList))
	s.mux.Handle("PATCH /api/knowledge/lists/{id}", s.protected(s.handleUpdateKnowledgeList))
	s.mux.Handle("DELETE /api/knowledge/lists/{id}", s.protected(s.handleDeleteKnowledgeList))
	s.mux.Handle("POST /api/knowledge/lists/{id}/items", s.protected(s.handleAddListItem))
	s.mux.Handle("PATCH /api/knowledge/lists/{id}/items/{itemId}", s.protected(s.handleUpdateListItem))
	s.mux.Handle("DELETE /api/knowledge/lists/{id}/items/{itemId}", s.protected(s.handleDeleteListItem))
	s.mux.Handle("GET /api/knowledge/info", s.protected(s.handleListCompanyInfo))
	s.mux.Handle("POST /api/knowledge/info", s.protected(s.handleCreateCompanyInfo))
	s.mux.Handle("GET /api/knowledge/info/grouped", s.protected(s.handleGroupedCompanyInfo))
	s.mux.Handle("GET /api/knowledge/info/{id}", s.protected(s.handleGetCompanyInfo))
	s.mux.Handle("PATCH /api/knowledge/info/{id}", s.protected(s.handleUpdateCompanyInfo))
	s.mux.Handle("DELETE /api/knowledge/info/{id}", s.protected(s.handleDeleteCompanyInfo))
}

func (s *Server) location() *time.Location { return s.loc }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session wrappers
type sessionHandler func(http.ResponseWriter, *http.Request, *app.Session)

// withSession resolves the browser session from its token, issuing a new
// one when the request carries none or an invalid one.
func (s *Server) withSession(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := s.sessionID(r)
		if !ok {
			var token string
			var err error
			sid, token, err = s.tokens.Issue()
			if err != nil {
				slog.Error("issue session token failed", "err", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			s.setSessionToken(w, r, token)
		}
		sess, err := s.app.Session(r.Context(), sid)
		if err != nil {
			slog.Error("load session failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) sessionID(r *http.Request) (string, bool) {
	token, ok := clienttoken.FromRequest(r)
	if !ok {
		return "", false
	}
	sid, err := s.tokens.Verify(token)
	if err != nil {
		s.audit(r, "dashboard.session.verify", "fail", "reason", "invalid_token")
		return "", false
	}
	return sid, true
}

func (s *Server) setSessionToken(w http.ResponseWriter, r *http.Request, token string) {
	w.Header().Set(TokenHeader, token)
	http.SetCookie(w, &http.Cookie{
		Name:     clienttoken.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure || util.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// protected requires an authenticated user with an active company.
func (s *Server) protected(next sessionHandler) http.Handler {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, sess *app.Session) {
		guard := sess.Manager.RequireCompany()
		switch guard.Status {
		case session.GuardAuthorized:
			next(w, r, sess)
		case session.GuardLoading:
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, guardResponse{Error: "session loading", Guard: guard})
		default:
			s.audit(r, "dashboard.guard", "denied", "redirect", string(guard.Redirect))
			if guard.Redirect == session.RouteLogin {
				writeJSON(w, http.StatusUnauthorized, guardResponse{Error: "not authenticated", Guard: guard})
				return
			}
			writeJSON(w, http.StatusConflict, guardResponse{Error: "company selection required", Guard: guard})
		}
	})
}

type guardResponse struct {
	Error string              `json:"error"`
	Guard session.GuardResult `json:"guard"`
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps package sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrCompanyNotOwned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrCompanyLimitReached),
		errors.Is(err, session.ErrAuthInProgress),
		errors.Is(err, session.ErrLoginCancelled),
		errors.Is(err, training.ErrAlreadyTraining),
		errors.Is(err, provider.ErrAgentTraining):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidCompanyName),
		errors.Is(err, provider.ErrInvalidStatus),
		errors.Is(err, provider.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrNotFound),
		errors.Is(err, chatview.ErrConversationNotFound),
		errors.Is(err, training.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errProviderUnavailable),
		errors.Is(err, chatview.ErrProviderUnavailable),
		errors.Is(err, dashboard.ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		util.LoggerFromContext(r.Context()).Warn("provider call failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "provider unavailable")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.proxies),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.proxies)
	d := limiter.Allow(r.Context(), key)
	if d.Allowed {
		return true
	}
	retry := int(d.RetryAfter.Round(time.Second) / time.Second)
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
