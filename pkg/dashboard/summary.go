// Package dashboard shapes provider data for the list and overview pages.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"guestfy/pkg/chatview"
	"guestfy/pkg/domain"
)

const (
	MaxUpcoming = 5
	MaxRecent   = 3
)

// ErrProviderUnavailable wraps any fetch failure while building a summary.
var ErrProviderUnavailable = errors.New("provider unavailable")

type ReservationSource interface {
	ListReservations(ctx context.Context) ([]domain.Reservation, error)
}

type ConversationSource interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
}

type AgentSource interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
}

type Sources struct {
	Reservations  ReservationSource
	Conversations ConversationSource
	Agents        AgentSource
}

// RecentConversation is one row of the recent-messages card.
type RecentConversation struct {
	ConversationID string        `json:"conversationId"`
	Client         domain.Client `json:"client"`
	Preview        string        `json:"preview"`
	Sender         domain.Sender `json:"sender,omitempty"`
	UnreadCount    int           `json:"unreadCount"`
	Timestamp      time.Time     `json:"timestamp"`
	DisplayTime    string        `json:"displayTime"`
}

type Summary struct {
	UnreadMessages      int                  `json:"unreadMessages"`
	ActiveAgents        int                  `json:"activeAgents"`
	TotalAgents         int                  `json:"totalAgents"`
	PendingReservations int                  `json:"pendingReservations"`
	ConfirmedCount      int                  `json:"confirmedReservations"`
	Upcoming            []domain.Reservation `json:"upcomingReservations"`
	Recent              []RecentConversation `json:"recentConversations"`
}

// BuildSummary fetches the three sources concurrently and derives the overview.
// Any failure fails the whole summary.
func BuildSummary(ctx context.Context, src Sources, now time.Time) (Summary, error) {
	var (
		reservations  []domain.Reservation
		conversations []domain.Conversation
		agents        []domain.Agent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if reservations, err = src.Reservations.ListReservations(gctx); err != nil {
			return fmt.Errorf("list reservations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if conversations, err = src.Conversations.ListConversations(gctx); err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if agents, err = src.Agents.ListAgents(gctx); err != nil {
			return fmt.Errorf("list agents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	s := Summary{TotalAgents: len(agents)}
	for _, a := range agents {
		if a.Status == domain.AgentActive {
			s.ActiveAgents++
		}
	}
	for _, r := range reservations {
		switch r.Status {
		case domain.ReservationPending:
			s.PendingReservations++
		case domain.ReservationConfirmed:
			s.ConfirmedCount++
		}
	}
	for _, c := range conversations {
		s.UnreadMessages += domain.CountUnread(c.Messages)
	}
	s.Upcoming = Upcoming(reservations, MaxUpcoming)
	s.Recent = Recent(conversations, now, MaxRecent)
	return s, nil
}

// Upcoming returns confirmed or pending reservations by check-in, earliest first.
func Upcoming(reservations []domain.Reservation, limit int) []domain.Reservation {
	out := make([]domain.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Status == domain.ReservationConfirmed || r.Status == domain.ReservationPending {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckInDate.Before(out[j].CheckInDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Recent returns the most recently active conversations, newest first.
func Recent(conversations []domain.Conversation, now time.Time, limit int) []RecentConversation {
	sorted := make([]domain.Conversation, 0, len(conversations))
	for _, c := range conversations {
		c = c.Clone()
		c.Refresh()
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastMessageTimestamp.After(sorted[j].LastMessageTimestamp)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]RecentConversation, 0, len(sorted))
	for _, c := range sorted {
		row := RecentConversation{
			ConversationID: c.ID,
			Client:         c.Client,
			UnreadCount:    c.UnreadCount,
			Timestamp:      c.LastMessageTimestamp,
		}
		if last, ok := c.LastMessage(); ok {
			row.Preview = last.Content
			row.Sender = last.Sender
			row.DisplayTime = chatview.FormatConversationTime(last.Timestamp, now)
		}
		out = append(out, row)
	}
	return out
}
