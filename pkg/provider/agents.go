package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guestfy/pkg/domain"
)

var agentCapabilities = []string{
	"Responder dúvidas",
	"Enviar mensagens",
	"Agendar serviços",
	"Auxiliar check-in",
	"Auxiliar check-out",
	"Recomendar locais",
	"Informações do quarto",
	"Solicitações especiais",
}

var (
	agentNames    = []string{"Assistente Virtual", "Concierge Digital", "Suporte ao Hóspede", "Atendente Virtual"}
	agentStatuses = []domain.AgentStatus{domain.AgentActive, domain.AgentInactive, domain.AgentTraining}
	taskTitles    = []string{
		"Verificar preferências de check-in",
		"Confirmar horário de chegada",
		"Enviar instruções de acesso",
		"Verificar necessidades especiais",
		"Confirmar número de hóspedes",
		"Oferecer serviços adicionais",
		"Perguntar sobre transporte",
		"Sugerir restaurantes locais",
	}
	taskStatuses   = []domain.TaskStatus{domain.TaskPending, domain.TaskCompleted, domain.TaskCancelled}
	taskPriorities = []domain.TaskPriority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow}
)

const (
	seededAgents = 2
	seededTasks  = 8
)

// MemoryAgents keeps agents and tasks in memory.
type MemoryAgents struct {
	latency time.Duration

	mu     sync.RWMutex
	agents []domain.Agent
	tasks  []domain.AgentTask
}

// NewMemoryAgents seeds two agents and eight tasks.
func NewMemoryAgents(opts Options) *MemoryAgents {
	opts = opts.withDefaults()
	now := opts.Now()
	p := &MemoryAgents{latency: opts.Latency}
	for i := 0; i < seededAgents; i++ {
		name := agentNames[i%len(agentNames)]
		a := domain.Agent{
			SchemaVersion: domain.AgentSchemaVersion,
			ID:            fmt.Sprintf("agent-%d", i+1),
			Name:          name,
			Description:   "Um agente de IA para " + strings.ToLower(name),
			Status:        agentStatuses[i%len(agentStatuses)],
			Capabilities: []string{
				agentCapabilities[i%len(agentCapabilities)],
				agentCapabilities[(i+1)%len(agentCapabilities)],
				agentCapabilities[(i+2)%len(agentCapabilities)],
			},
			KnowledgeBaseIDs:     []string{fmt.Sprintf("list-%d", i+1)},
			LastActive:           now.Add(-time.Duration(i+1) * 7 * time.Hour),
			ConversationsHandled: 42 + 17*i,
		}
		if i%2 == 0 {
			a.Avatar = fmt.Sprintf("/agents/avatar-%d.png", i)
		}
		p.agents = append(p.agents, a)
	}
	for i := 0; i < seededTasks; i++ {
		title := taskTitles[i%len(taskTitles)]
		due := now.AddDate(0, 0, i%7)
		t := domain.AgentTask{
			ID:          fmt.Sprintf("task-%d", i+1),
			Title:       title,
			Description: "Detalhes sobre a tarefa: " + strings.ToLower(title),
			Status:      taskStatuses[i%len(taskStatuses)],
			Priority:    taskPriorities[i%len(taskPriorities)],
			CreatedAt:   now.Add(-time.Duration(i+1) * 5 * time.Hour),
			DueDate:     &due,
			AgentID:     fmt.Sprintf("agent-%d", i%2+1),
		}
		if i%3 == 0 {
			t.ReservationID = fmt.Sprintf("reservation-%d", i+1)
		}
		if i%4 == 0 {
			t.ClientID = fmt.Sprintf("client-%d", i+1)
		}
		p.tasks = append(p.tasks, t)
	}
	return p
}

// Capabilities lists every capability an agent can be given.
func Capabilities() []string {
	return append([]string(nil), agentCapabilities...)
}

func (p *MemoryAgents) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Agent, len(p.agents))
	for i, a := range p.agents {
		out[i] = a.Clone()
	}
	return out, nil
}

func (p *MemoryAgents) GetAgent(ctx context.Context, id string) (domain.Agent, bool, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Agent{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.indexLocked(id); i >= 0 {
		return p.agents[i].Clone(), true, nil
	}
	return domain.Agent{}, false, nil
}

// UpdateAgent applies patch. Status changes are refused while training.
func (p *MemoryAgents) UpdateAgent(ctx context.Context, id string, patch AgentPatch) (domain.Agent, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Agent{}, err
	}
	if patch.Status != nil && *patch.Status != domain.AgentActive && *patch.Status != domain.AgentInactive {
		return domain.Agent{}, ErrInvalidStatus
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return domain.Agent{}, ErrNotFound
	}
	a := &p.agents[i]
	if patch.Status != nil {
		if a.Status == domain.AgentTraining {
			return domain.Agent{}, ErrAgentTraining
		}
		a.Status = *patch.Status
	}
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			a.Name = name
		}
	}
	if patch.Description != nil {
		a.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Capabilities != nil {
		a.Capabilities = append([]string{}, (*patch.Capabilities)...)
	}
	if patch.KnowledgeBaseIDs != nil {
		a.KnowledgeBaseIDs = append([]string{}, (*patch.KnowledgeBaseIDs)...)
	}
	a.SchemaVersion = domain.AgentSchemaVersion
	return a.Clone(), nil
}

// BeginTraining moves an agent into training.
func (p *MemoryAgents) BeginTraining(ctx context.Context, id string) (domain.Agent, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Agent{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return domain.Agent{}, ErrNotFound
	}
	if p.agents[i].Status == domain.AgentTraining {
		return domain.Agent{}, ErrAgentTraining
	}
	p.agents[i].Status = domain.AgentTraining
	return p.agents[i].Clone(), nil
}

// FinishTraining returns a training agent to active. Agents not in training are left alone.
func (p *MemoryAgents) FinishTraining(ctx context.Context, id string, at time.Time) (domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return domain.Agent{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return domain.Agent{}, ErrNotFound
	}
	if p.agents[i].Status == domain.AgentTraining {
		p.agents[i].Status = domain.AgentActive
		p.agents[i].LastActive = at
	}
	return p.agents[i].Clone(), nil
}

func (p *MemoryAgents) ListTasks(ctx context.Context) ([]domain.AgentTask, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.AgentTask(nil), p.tasks...), nil
}

func (p *MemoryAgents) indexLocked(id string) int {
	for i := range p.agents {
		if p.agents[i].ID == id {
			return i
		}
	}
	return -1
}
