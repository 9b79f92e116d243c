package server

import (
	"net/http"
	"strings"

	"guestfy/pkg/chatview"
	"guestfy/pkg/domain"
	"guestfy/services/dashboard/internal/app"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

// conversationRow is a list entry with its rendered timestamp.
type conversationRow struct {
	domain.Conversation
	DisplayTime string `json:"displayTime"`
}

type conversationsResponse struct {
	Items    []conversationRow `json:"items"`
	Count    int               `json:"count"`
	Total    int               `json:"total"`
	Term     string            `json:"term"`
	ActiveID string            `json:"activeId,omitempty"`
}

type activeResponse struct {
	Conversation conversationRow `json:"conversation"`
	Messages     []messageRow    `json:"messages"`
}

type messageRow struct {
	domain.Message
	DisplayTime string `json:"displayTime"`
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if len(sess.Chat.Conversations()) == 0 {
		if err := sess.Chat.LoadConversations(r.Context()); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if q, ok := r.URL.Query()["q"]; ok {
		sess.Chat.Search(strings.Join(q, " "))
	}
	writeJSON(w, http.StatusOK, s.conversationList(sess.Chat))
}

func (s *Server) handleLoadConversations(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if err := sess.Chat.LoadConversations(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.conversationList(sess.Chat))
}

func (s *Server) handleSelectConversation(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if err := sess.Chat.SelectConversation(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.writeActive(w, sess.Chat)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if err := sess.Chat.MarkAllRead(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.conversationList(sess.Chat))
}

func (s *Server) handleActiveConversation(w http.ResponseWriter, _ *http.Request, sess *app.Session) {
	s.writeActive(w, sess.Chat)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg, sent, err := sess.Chat.SendMessage(r.Context(), req.Text)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !sent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, messageRow{Message: msg, DisplayTime: chatview.FormatMessageTime(msg.Timestamp, s.location())})
}

func (s *Server) writeActive(w http.ResponseWriter, view *chatview.View) {
	active, ok := view.Active()
	if !ok {
		writeError(w, http.StatusNotFound, "no active conversation")
		return
	}
	msgs := view.Messages()
	rows := make([]messageRow, len(msgs))
	for i, m := range msgs {
		rows[i] = messageRow{Message: m, DisplayTime: chatview.FormatMessageTime(m.Timestamp, s.location())}
	}
	writeJSON(w, http.StatusOK, activeResponse{Conversation: s.row(active), Messages: rows})
}

func (s *Server) conversationList(view *chatview.View) conversationsResponse {
	filtered := view.Filtered()
	rows := make([]conversationRow, len(filtered))
	for i, c := range filtered {
		rows[i] = s.row(c)
	}
	resp := conversationsResponse{
		Items: rows,
		Count: len(rows),
		Total: len(view.Conversations()),
		Term:  view.Term(),
	}
	if active, ok := view.Active(); ok {
		resp.ActiveID = active.ID
	}
	return resp
}

func (s *Server) row(c domain.Conversation) conversationRow {
	row := conversationRow{Conversation: c}
	if !c.LastMessageTimestamp.IsZero() {
		row.DisplayTime = chatview.FormatConversationTime(c.LastMessageTimestamp, s.app.Now().In(s.location()))
	}
	return row
}
