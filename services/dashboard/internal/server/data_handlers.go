package server

import (
	"net/http"

	"guestfy/pkg/dashboard"
	"guestfy/pkg/domain"
	"guestfy/pkg/provider"
	"guestfy/services/dashboard/internal/app"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	summary, err := s.app.Summary(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	q := r.URL.Query()
	status := q.Get("status")
	if status != "" && status != dashboard.StatusAll {
		if _, ok := domain.ParseReservationStatus(status); !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}
	items, err := s.app.Reservations.ListReservations(r.Context())
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	items = dashboard.FilterReservations(items, status, q.Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	res, prop, ok, err := provider.ReservationWithProperty(r.Context(), s.app.Reservations, s.app.Properties, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reservation": res,
		"property":    prop,
		"nights":      res.Nights(),
	})
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	items, err := s.app.Properties.ListProperties(r.Context())
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	items = dashboard.FilterProperties(items, r.URL.Query().Get("status"), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	prop, ok, err := s.app.Properties.GetProperty(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

type updateAgentRequest = provider.AgentPatch

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	agents, err := s.app.Agents.ListAgents(r.Context())
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":        agents,
		"count":        len(agents),
		"capabilities": provider.Capabilities(),
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	tasks, err := s.app.Agents.ListTasks(r.Context())
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	agentID := r.URL.Query().Get("agentId")
	out := tasks[:0]
	for _, t := range tasks {
		if agentID == "" || t.AgentID == agentID {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": out,
		"count": len(out),
	})
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req updateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	agent, err := s.app.Agents.UpdateAgent(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleTrainAgent(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	agent, err := s.app.Trainer.Train(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, agent)
}
