package provider

import (
	"context"
	"errors"
	"time"

	"guestfy/pkg/domain"
)

var (
	// ErrNotFound is returned by mutations addressing a missing record.
	ErrNotFound = errors.New("not found")
	// ErrAgentTraining is returned when an agent in training is asked to change status.
	ErrAgentTraining = errors.New("agent is training")
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput wraps validation failures on create and update.
	ErrInvalidInput = errors.New("invalid input")
)

// Reservations serves bookings and the guests behind them.
type Reservations interface {
	ListReservations(ctx context.Context) ([]domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (domain.Reservation, bool, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
}

// Properties serves the canonical property catalogue.
type Properties interface {
	ListProperties(ctx context.Context) ([]domain.Property, error)
	GetProperty(ctx context.Context, id string) (domain.Property, bool, error)
}

// Conversations serves guest message threads.
type Conversations interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (domain.Conversation, bool, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// Knowledge serves knowledge lists and company information sections.
type Knowledge interface {
	ListKnowledgeLists(ctx context.Context) ([]domain.KnowledgeList, error)
	GetKnowledgeList(ctx context.Context, id string) (domain.KnowledgeList, bool, error)
	CreateKnowledgeList(ctx context.Context, in KnowledgeListInput) (domain.KnowledgeList, error)
	UpdateKnowledgeList(ctx context.Context, id string, patch KnowledgeListPatch) (domain.KnowledgeList, error)
	DeleteKnowledgeList(ctx context.Context, id string) error
	AddListItem(ctx context.Context, listID, value string) (domain.KnowledgeListItem, error)
	UpdateListItem(ctx context.Context, listID, itemID, value string) (domain.KnowledgeListItem, error)
	DeleteListItem(ctx context.Context, listID, itemID string) error

	ListCompanyInfo(ctx context.Context) ([]domain.CompanyInfoSection, error)
	GetCompanyInfo(ctx context.Context, id string) (domain.CompanyInfoSection, bool, error)
	ListCompanyInfoByCategory(ctx context.Context, category string) ([]domain.CompanyInfoSection, error)
	CreateCompanyInfo(ctx context.Context, in CompanyInfoInput) (domain.CompanyInfoSection, error)
	UpdateCompanyInfo(ctx context.Context, id string, patch CompanyInfoPatch) (domain.CompanyInfoSection, error)
	DeleteCompanyInfo(ctx context.Context, id string) error
}

// Agents serves AI agents and their task queue.
type Agents interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	GetAgent(ctx context.Context, id string) (domain.Agent, bool, error)
	UpdateAgent(ctx context.Context, id string, patch AgentPatch) (domain.Agent, error)
	BeginTraining(ctx context.Context, id string) (domain.Agent, error)
	FinishTraining(ctx context.Context, id string, at time.Time) (domain.Agent, error)
	ListTasks(ctx context.Context) ([]domain.AgentTask, error)
}

type KnowledgeListInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
}

type KnowledgeListPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CompanyInfoInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Order    int    `json:"order"`
}

type CompanyInfoPatch struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Order    *int    `json:"order"`
}

// AgentPatch updates editable agent fields. Status may only be active or inactive.
type AgentPatch struct {
	Name             *string             `json:"name"`
	Description      *string             `json:"description"`
	Status           *domain.AgentStatus `json:"status"`
	Capabilities     *[]string           `json:"capabilities"`
	KnowledgeBaseIDs *[]string           `json:"knowledgeBaseIds"`
}

// Options is shared by the in-memory providers.
type Options struct {
	// Now anchors seeded timestamps and stamps mutations.
	Now func() time.Time
	// Latency is added to every call to mimic a remote backend.
	Latency time.Duration
	// Language selects localized property text, e.g. "pt_BR".
	Language string
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// pause waits out the simulated latency unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
