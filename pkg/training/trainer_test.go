package training

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"guestfy/pkg/domain"
	"guestfy/pkg/provider"
	"guestfy/pkg/queue"
)

func TestTrainResolvesToActive(t *testing.T) {
	agents := provider.NewMemoryAgents(provider.Options{})
	trainer, err := New(Config{Agents: agents, Delay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	defer trainer.Stop()
	ctx := context.Background()

	agent, err := trainer.Train(ctx, "agent-2")
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if agent.Status != domain.AgentTraining {
		t.Fatalf("expected training status, got %s", agent.Status)
	}
	if _, err := trainer.Train(ctx, "agent-2"); !errors.Is(err, ErrAlreadyTraining) {
		t.Fatalf("expected ErrAlreadyTraining, got %v", err)
	}
	waitAgentStatus(t, agents, "agent-2", domain.AgentActive)
}

func TestTrainUnknownAgent(t *testing.T) {
	trainer, err := New(Config{Agents: provider.NewMemoryAgents(provider.Options{})})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	defer trainer.Stop()
	if _, err := trainer.Train(context.Background(), "agent-404"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

type failingScheduler struct{}

func (failingScheduler) Schedule(context.Context, string, time.Duration) error {
	return errors.New("queue offline")
}

func TestTrainScheduleFailureDoesNotStrandAgent(t *testing.T) {
	agents := provider.NewMemoryAgents(provider.Options{})
	trainer, err := New(Config{Agents: agents, Scheduler: failingScheduler{}})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if _, err := trainer.Train(context.Background(), "agent-1"); err == nil {
		t.Fatalf("expected schedule failure")
	}
	got, _, err := agents.GetAgent(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status == domain.AgentTraining {
		t.Fatalf("agent left in training")
	}
}

type recordingScheduler struct {
	mu    sync.Mutex
	ids   []string
	delay time.Duration
}

func (s *recordingScheduler) Schedule(_ context.Context, id string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.delay = d
	return nil
}

func TestTrainUsesDefaultDelay(t *testing.T) {
	sched := &recordingScheduler{}
	trainer, err := New(Config{Agents: provider.NewMemoryAgents(provider.Options{}), Scheduler: sched})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if _, err := trainer.Train(context.Background(), "agent-1"); err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(sched.ids) != 1 || sched.ids[0] != "agent-1" || sched.delay != DefaultDelay {
		t.Fatalf("unexpected schedule: %v %v", sched.ids, sched.delay)
	}
}

func TestTimerSchedulerReschedule(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	s := NewTimerScheduler(func(context.Context, string) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	ctx := context.Background()
	_ = s.Schedule(ctx, "agent-1", time.Hour)
	_ = s.Schedule(ctx, "agent-1", 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one completion, got %d", calls)
	}
}

func TestQueueSchedulerCompletesThroughRedis(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	q, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       redisSrv.Addr(),
		Stream:     "test:training",
		Block:      20 * time.Millisecond,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	agents := provider.NewMemoryAgents(provider.Options{})
	trainer, err := New(Config{
		Agents:    agents,
		Scheduler: NewQueueScheduler(q, nil),
		Delay:     30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 1, QueueHandler(trainer.Complete))

	if _, err := trainer.Train(ctx, "agent-1"); err != nil {
		t.Fatalf("train: %v", err)
	}
	waitAgentStatus(t, agents, "agent-1", domain.AgentActive)
}

func TestQueueHandlerIgnoresOtherKinds(t *testing.T) {
	called := false
	h := QueueHandler(func(context.Context, string) error {
		called = true
		return nil
	})
	if err := h(context.Background(), queue.JobStatus{Kind: "other", Subject: "agent-1"}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if called {
		t.Fatalf("expected other job kinds to be skipped")
	}
}

func waitAgentStatus(t *testing.T, agents *provider.MemoryAgents, id string, want domain.AgentStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, ok, err := agents.GetAgent(context.Background(), id)
		if err != nil || !ok {
			t.Fatalf("get agent %s: ok=%v err=%v", id, ok, err)
		}
		if got.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("agent %s never reached %s", id, want)
}
