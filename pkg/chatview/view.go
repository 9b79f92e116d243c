package chatview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"guestfy/pkg/domain"
)

const (
	resourceConversations = "conversations"
	resourceMessages      = "messages"
)

// Provider is the conversation backend the view reads from.
type Provider interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// Config wires a View.
type Config struct {
	Provider     Provider
	Now          func() time.Time
	NewMessageID func() string
}

// View keeps the full conversation list, the filtered list and the active
// transcript consistent under selection, read and send.
type View struct {
	provider Provider
	now      func() time.Time
	newID    func() string

	mu            sync.Mutex
	seq           sequencer
	conversations []domain.Conversation
	filtered      []domain.Conversation
	term          string
	activeID      string
	messages      []domain.Message
}

// New constructs an empty view.
func New(cfg Config) (*View, error) {
	if cfg.Provider == nil {
		return nil, errors.New("conversation provider required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewMessageID == nil {
		cfg.NewMessageID = func() string { return "msg-" + uuid.NewString() }
	}
	return &View{provider: cfg.Provider, now: cfg.Now, newID: cfg.NewMessageID}, nil
}

// LoadConversations replaces the conversation list and selects the first
// conversation when none is active. Results of a superseded load are dropped.
func (v *View) LoadConversations(ctx context.Context) error {
	v.mu.Lock()
	token := v.seq.next(resourceConversations)
	v.mu.Unlock()

	list, err := v.provider.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("%w: list conversations: %w", ErrProviderUnavailable, err)
	}

	v.mu.Lock()
	if !v.seq.current(resourceConversations, token) {
		v.mu.Unlock()
		return nil
	}
	next := make([]domain.Conversation, len(list))
	for i, c := range list {
		c = c.Clone()
		c.Refresh()
		next[i] = c
	}
	v.conversations = next
	v.filtered = filter(next, v.term)
	var first string
	if v.activeID == "" && len(next) > 0 {
		first = next[0].ID
	}
	v.mu.Unlock()

	if first == "" {
		return nil
	}
	return v.SelectConversation(ctx, first)
}

// Search recomputes the filtered projection. An empty term restores the full list.
func (v *View) Search(term string) []domain.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.term = term
	v.filtered = filter(v.conversations, term)
	return cloneAll(v.filtered)
}

// SelectConversation loads a conversation's transcript, activates it and
// marks it read when it has unread guest messages. A failed fetch leaves the
// current selection in place.
func (v *View) SelectConversation(ctx context.Context, id string) error {
	v.mu.Lock()
	if indexOf(v.conversations, id) < 0 {
		v.mu.Unlock()
		return ErrConversationNotFound
	}
	token := v.seq.next(resourceMessages)
	v.mu.Unlock()

	msgs, err := v.provider.ListMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: list messages: %w", ErrProviderUnavailable, err)
	}

	v.mu.Lock()
	idx := indexOf(v.conversations, id)
	if !v.seq.current(resourceMessages, token) || idx < 0 {
		v.mu.Unlock()
		return nil
	}
	// messages sent while the fetch was in flight are kept
	merged := mergeMessages(msgs, v.conversations[idx].Messages)
	v.activeID = id
	v.messages = append([]domain.Message(nil), merged...)
	v.update(id, func(c *domain.Conversation) {
		c.Messages = append([]domain.Message(nil), merged...)
	})
	unread := v.conversations[idx].UnreadCount
	v.mu.Unlock()

	if unread > 0 {
		return v.MarkAllRead(ctx, id)
	}
	return nil
}

// MarkAllRead marks every guest message in the conversation read. It is idempotent.
func (v *View) MarkAllRead(ctx context.Context, id string) error {
	v.mu.Lock()
	known := indexOf(v.conversations, id) >= 0
	v.mu.Unlock()
	if !known {
		return ErrConversationNotFound
	}
	if err := v.provider.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("%w: mark read: %w", ErrProviderUnavailable, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.update(id, func(c *domain.Conversation) {
		markRead(c.Messages)
	})
	if v.activeID == id {
		markRead(v.messages)
	}
	return nil
}

// SendMessage appends an agent-authored message to the active conversation.
// It reports false without error when there is nothing to send.
func (v *View) SendMessage(ctx context.Context, text string) (domain.Message, bool, error) {
	v.mu.Lock()
	id := v.activeID
	v.mu.Unlock()
	if id == "" || strings.TrimSpace(text) == "" {
		return domain.Message{}, false, nil
	}

	msg := domain.Message{
		ID:             v.newID(),
		ConversationID: id,
		Sender:         domain.SenderAgent,
		Content:        text,
		Timestamp:      v.now(),
		Read:           true,
	}
	saved, err := v.provider.AppendMessage(ctx, msg)
	if err != nil {
		return domain.Message{}, false, fmt.Errorf("%w: append message: %w", ErrProviderUnavailable, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.update(id, func(c *domain.Conversation) {
		c.Messages = append(c.Messages, saved)
	})
	if v.activeID == id {
		v.messages = append(v.messages, saved)
	}
	// the sent text may bring the conversation into the current search
	v.filtered = filter(v.conversations, v.term)
	return saved, true, nil
}

// Conversations returns the full list.
func (v *View) Conversations() []domain.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneAll(v.conversations)
}

// Filtered returns the current search projection.
func (v *View) Filtered() []domain.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneAll(v.filtered)
}

// Active returns the active conversation as seen in the full list.
func (v *View) Active() (domain.Conversation, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx := indexOf(v.conversations, v.activeID)
	if idx < 0 {
		return domain.Conversation{}, false
	}
	return v.conversations[idx].Clone(), true
}

// Messages returns the active transcript in append order.
func (v *View) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Message(nil), v.messages...)
}

// Term returns the current search term.
func (v *View) Term() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.term
}

// Reset drops all state, e.g. on logout or company switch.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq.next(resourceConversations)
	v.seq.next(resourceMessages)
	v.conversations = nil
	v.filtered = nil
	v.term = ""
	v.activeID = ""
	v.messages = nil
}

// update applies fn to the conversation in both projections and refreshes derived fields.
func (v *View) update(id string, fn func(*domain.Conversation)) {
	for _, list := range [][]domain.Conversation{v.conversations, v.filtered} {
		if idx := indexOf(list, id); idx >= 0 {
			c := &list[idx]
			fn(c)
			c.Refresh()
		}
	}
}

func filter(list []domain.Conversation, term string) []domain.Conversation {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return cloneAll(list)
	}
	out := make([]domain.Conversation, 0, len(list))
	for _, c := range list {
		if matches(c, term) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func matches(c domain.Conversation, term string) bool {
	if strings.Contains(strings.ToLower(c.Client.FirstName), term) ||
		strings.Contains(strings.ToLower(c.Client.LastName), term) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), term) {
			return true
		}
	}
	return false
}

// mergeMessages returns fetched followed by any local messages it lacks.
func mergeMessages(fetched, local []domain.Message) []domain.Message {
	seen := make(map[string]struct{}, len(fetched))
	for _, m := range fetched {
		seen[m.ID] = struct{}{}
	}
	out := append([]domain.Message(nil), fetched...)
	for _, m := range local {
		if _, ok := seen[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func markRead(msgs []domain.Message) {
	for i := range msgs {
		if msgs[i].Sender == domain.SenderGuest {
			msgs[i].Read = true
		}
	}
}

func indexOf(list []domain.Conversation, id string) int {
	if id == "" {
		return -1
	}
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(list []domain.Conversation) []domain.Conversation {
	out := make([]domain.Conversation, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}
