package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"guestfy/pkg/domain"
)

type seedMessage struct {
	sender domain.Sender
	text   string
	ago    time.Duration
	read   bool
}

var seedThreads = []struct {
	id       string
	messages []seedMessage
}{
	{"conversation-1", []seedMessage{
		{domain.SenderGuest, "Hi, I have a question about my upcoming reservation.", 120 * time.Minute, true},
		{domain.SenderAgent, "Hello! I'd be happy to help with your reservation. What would you like to know?", 114 * time.Minute, true},
		{domain.SenderGuest, "What time is check-in?", 108 * time.Minute, true},
		{domain.SenderAgent, "Check-in is at 3:00 PM. If you'd like to request an early check-in, we can try to accommodate that based on availability.", 102 * time.Minute, true},
	}},
	{"conversation-2", []seedMessage{
		{domain.SenderGuest, "Is there parking available at the property?", 60 * time.Minute, true},
		{domain.SenderAgent, "Yes, we offer free on-site parking for all guests. You'll find the parking area to the right of the building entrance.", 54 * time.Minute, true},
		{domain.SenderGuest, "Great! Do I need a special code to enter the building?", 10 * time.Minute, false},
	}},
	{"conversation-3", []seedMessage{
		{domain.SenderGuest, "Hi, I need to cancel my reservation due to an emergency.", 24 * time.Hour, true},
		{domain.SenderAgent, "I'm sorry to hear that. I can help you with the cancellation process. Could you please confirm your reservation number?", 24*time.Hour - 5*time.Minute, true},
		{domain.SenderGuest, "It's reservation-3", 24*time.Hour - 10*time.Minute, true},
		{domain.SenderAgent, "Thank you for providing your reservation number. According to our cancellation policy, you are eligible for a 50% refund since you're canceling more than 24 hours before check-in. Would you like to proceed with the cancellation?", 24*time.Hour - 15*time.Minute, true},
	}},
}

// MemoryConversations keeps message logs keyed by conversation id.
// Clients are assigned round-robin in log creation order.
type MemoryConversations struct {
	latency time.Duration
	now     func() time.Time
	clients []domain.Client

	mu    sync.RWMutex
	order []string
	logs  map[string][]domain.Message
}

// NewMemoryConversations seeds three threads. clients defaults to the
// seeded reservation guests.
func NewMemoryConversations(opts Options, clients []domain.Client) *MemoryConversations {
	opts = opts.withDefaults()
	if len(clients) == 0 {
		clients = append([]domain.Client(nil), seedClients...)
	}
	now := opts.Now()
	p := &MemoryConversations{
		latency: opts.Latency,
		now:     opts.Now,
		clients: clients,
		logs:    make(map[string][]domain.Message),
	}
	for _, thread := range seedThreads {
		msgs := make([]domain.Message, len(thread.messages))
		for i, m := range thread.messages {
			msgs[i] = domain.Message{
				ID:             fmt.Sprintf("msg-%s-%d", strings.TrimPrefix(thread.id, "conversation-"), i+1),
				ConversationID: thread.id,
				Sender:         m.sender,
				Content:        m.text,
				Timestamp:      now.Add(-m.ago),
				Read:           m.read,
			}
		}
		p.order = append(p.order, thread.id)
		p.logs[thread.id] = msgs
	}
	return p
}

func (p *MemoryConversations) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Conversation, 0, len(p.order))
	for i, id := range p.order {
		out = append(out, p.conversationLocked(i, id))
	}
	return out, nil
}

func (p *MemoryConversations) GetConversation(ctx context.Context, id string) (domain.Conversation, bool, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Conversation{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i, known := range p.order {
		if known == id {
			return p.conversationLocked(i, id), true, nil
		}
	}
	return domain.Conversation{}, false, nil
}

func (p *MemoryConversations) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Message{}, p.logs[conversationID]...), nil
}

// AppendMessage stores msg at the end of its log, creating the log when the
// conversation is new. Agent messages are stored read, guest messages unread.
func (p *MemoryConversations) AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Message{}, err
	}
	if strings.TrimSpace(msg.ConversationID) == "" {
		return domain.Message{}, errConversationIDRequired
	}
	msg = completeMessage(msg, p.now())
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.logs[msg.ConversationID]; !ok {
		p.order = append(p.order, msg.ConversationID)
	}
	p.logs[msg.ConversationID] = append(p.logs[msg.ConversationID], msg)
	return msg, nil
}

// MarkRead flags every message in the conversation read. Unknown ids are a no-op.
func (p *MemoryConversations) MarkRead(ctx context.Context, conversationID string) error {
	if err := pause(ctx, p.latency); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	log := p.logs[conversationID]
	for i := range log {
		log[i].Read = true
	}
	return nil
}

func (p *MemoryConversations) conversationLocked(index int, id string) domain.Conversation {
	client := p.clients[index%len(p.clients)]
	c := domain.Conversation{
		ID:       id,
		ClientID: client.ID,
		Client:   client,
		Messages: append([]domain.Message{}, p.logs[id]...),
	}
	c.Refresh()
	return c
}

func completeMessage(msg domain.Message, now time.Time) domain.Message {
	if msg.Sender == "" {
		msg.Sender = domain.SenderAgent
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%s-%d", msg.ConversationID, msg.Timestamp.UnixNano())
	}
	msg.Read = msg.Sender == domain.SenderAgent
	return msg
}

var errConversationIDRequired = errors.New("conversation id required")
