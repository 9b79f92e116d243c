package provider

import (
	"context"
	"errors"
	"testing"

	"guestfy/pkg/domain"
)

func TestMemoryAgentsSeed(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryAgents(Options{Now: fixedNow})
	agents, err := p.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	if agents[0].Status != domain.AgentActive || agents[1].Status != domain.AgentInactive {
		t.Fatalf("unexpected statuses: %s %s", agents[0].Status, agents[1].Status)
	}
	if len(agents[1].Capabilities) != 3 || agents[1].Capabilities[0] != "Enviar mensagens" {
		t.Fatalf("unexpected capabilities: %v", agents[1].Capabilities)
	}
	if agents[0].Avatar == "" || agents[1].Avatar != "" {
		t.Fatalf("expected avatar only on even agents")
	}
	tasks, err := p.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 8 || tasks[0].ReservationID != "reservation-1" || tasks[1].AgentID != "agent-2" {
		t.Fatalf("unexpected tasks: %+v", tasks[:2])
	}
}

func TestMemoryAgentsStatusRules(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryAgents(Options{Now: fixedNow})

	inactive := domain.AgentInactive
	a, err := p.UpdateAgent(ctx, "agent-1", AgentPatch{Status: &inactive})
	if err != nil || a.Status != domain.AgentInactive {
		t.Fatalf("update status: %+v %v", a, err)
	}
	training := domain.AgentTraining
	if _, err := p.UpdateAgent(ctx, "agent-1", AgentPatch{Status: &training}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got: %v", err)
	}

	if _, err := p.BeginTraining(ctx, "agent-1"); err != nil {
		t.Fatalf("begin training: %v", err)
	}
	if _, err := p.BeginTraining(ctx, "agent-1"); !errors.Is(err, ErrAgentTraining) {
		t.Fatalf("expected already training, got: %v", err)
	}
	active := domain.AgentActive
	if _, err := p.UpdateAgent(ctx, "agent-1", AgentPatch{Status: &active}); !errors.Is(err, ErrAgentTraining) {
		t.Fatalf("expected status update rejected while training, got: %v", err)
	}
	done, err := p.FinishTraining(ctx, "agent-1", seedNow)
	if err != nil {
		t.Fatalf("finish training: %v", err)
	}
	if done.Status != domain.AgentActive || !done.LastActive.Equal(seedNow) {
		t.Fatalf("unexpected agent after training: %+v", done)
	}
	if _, err := p.BeginTraining(ctx, "agent-9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}
