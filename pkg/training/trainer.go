// Package training moves AI agents through the train -> training -> active cycle.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guestfy/pkg/domain"
	"guestfy/pkg/provider"
)

// DefaultDelay is how long an agent stays in training.
const DefaultDelay = 5 * time.Second

// Agents is the provider surface the trainer drives.
type Agents interface {
	BeginTraining(ctx context.Context, id string) (domain.Agent, error)
	FinishTraining(ctx context.Context, id string, at time.Time) (domain.Agent, error)
}

type Config struct {
	Agents Agents
	// Scheduler defaults to a TimerScheduler bound to this trainer.
	Scheduler Scheduler
	Delay     time.Duration
	Now       func() time.Time
}

type Trainer struct {
	agents    Agents
	scheduler Scheduler
	delay     time.Duration
	now       func() time.Time
}

func New(cfg Config) (*Trainer, error) {
	if cfg.Agents == nil {
		return nil, errors.New("agents provider required")
	}
	t := &Trainer{
		agents:    cfg.Agents,
		scheduler: cfg.Scheduler,
		delay:     cfg.Delay,
		now:       cfg.Now,
	}
	if t.delay <= 0 {
		t.delay = DefaultDelay
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.scheduler == nil {
		t.scheduler = NewTimerScheduler(t.Complete)
	}
	return t, nil
}

// Train puts the agent into training and schedules its return to active.
// The returned agent reflects the training state; completion happens later.
func (t *Trainer) Train(ctx context.Context, agentID string) (domain.Agent, error) {
	agentID = strings.TrimSpace(agentID)
	agent, err := t.agents.BeginTraining(ctx, agentID)
	switch {
	case errors.Is(err, provider.ErrAgentTraining):
		return domain.Agent{}, ErrAlreadyTraining
	case errors.Is(err, provider.ErrNotFound):
		return domain.Agent{}, ErrAgentNotFound
	case err != nil:
		return domain.Agent{}, fmt.Errorf("begin training: %w", err)
	}
	if err := t.scheduler.Schedule(ctx, agentID, t.delay); err != nil {
		// without a scheduled completion the agent would stay stuck in training
		if _, ferr := t.agents.FinishTraining(context.WithoutCancel(ctx), agentID, t.now()); ferr != nil {
			slog.Error("agent training rollback failed", "agent_id", agentID, "err", ferr)
		}
		return domain.Agent{}, fmt.Errorf("schedule training completion: %w", err)
	}
	slog.Info("agent training started", "agent_id", agentID, "delay", t.delay.String())
	return agent, nil
}

// Complete returns the agent to active. It is the scheduler callback.
func (t *Trainer) Complete(ctx context.Context, agentID string) error {
	agent, err := t.agents.FinishTraining(ctx, agentID, t.now())
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			slog.Warn("agent vanished before training completed", "agent_id", agentID)
			return nil
		}
		return err
	}
	slog.Info("agent training finished", "agent_id", agentID, "status", string(agent.Status))
	return nil
}

// Stop releases the default scheduler's timers.
func (t *Trainer) Stop() {
	if s, ok := t.scheduler.(*TimerScheduler); ok {
		s.Stop()
	}
}
