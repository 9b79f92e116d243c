package server

import (
	"net/http"
	"strings"

	"guestfy/pkg/dashboard"
	"guestfy/pkg/provider"
	"guestfy/services/dashboard/internal/app"
)

type listItemRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleListKnowledgeLists(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	lists, err := s.app.Knowledge.ListKnowledgeLists(r.Context())
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": lists,
		"count": len(lists),
	})
}

func (s *Server) handleGetKnowledgeList(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	list, ok, err := s.app.Knowledge.GetKnowledgeList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "knowledge list not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateKnowledgeList(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req provider.KnowledgeListInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	list, err := s.app.Knowledge.CreateKnowledgeList(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (s *Server) handleUpdateKnowledgeList(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req provider.KnowledgeListPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	list, err := s.app.Knowledge.UpdateKnowledgeList(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteKnowledgeList(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	if err := s.app.Knowledge.DeleteKnowledgeList(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddListItem(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req listItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	item, err := s.app.Knowledge.AddListItem(r.Context(), r.PathValue("id"), req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateListItem(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req listItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	item, err := s.app.Knowledge.UpdateListItem(r.Context(), r.PathValue("id"), r.PathValue("itemId"), req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteListItem(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	if err := s.app.Knowledge.DeleteListItem(r.Context(), r.PathValue("id"), r.PathValue("itemId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCompanyInfo(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	ctx := r.Context()
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	var (
		sections any
		count    int
	)
	if category == "" {
		all, err := s.app.Knowledge.ListCompanyInfo(ctx)
		if err != nil {
			writeDomainError(w, r, unavailable(err))
			return
		}
		sections, count = all, len(all)
	} else {
		some, err := s.app.Knowledge.ListCompanyInfoByCategory(ctx, category)
		if err != nil {
			writeDomainError(w, r, unavailable(err))
			return
		}
		sections, count = some, len(some)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": sections,
		"count": count,
	})
}

func (s *Server) handleGroupedCompanyInfo(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	all, err := s.app.Knowledge.ListCompanyInfo(r.Context())
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": dashboard.GroupCompanyInfo(all)})
}

func (s *Server) handleGetCompanyInfo(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	section, ok, err := s.app.Knowledge.GetCompanyInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, unavailable(err))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "company info not found")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleCreateCompanyInfo(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req provider.CompanyInfoInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	section, err := s.app.Knowledge.CreateCompanyInfo(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

func (s *Server) handleUpdateCompanyInfo(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	var req provider.CompanyInfoPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	section, err := s.app.Knowledge.UpdateCompanyInfo(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleDeleteCompanyInfo(w http.ResponseWriter, r *http.Request, _ *app.Session) {
	if err := s.app.Knowledge.DeleteCompanyInfo(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
