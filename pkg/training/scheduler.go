package training

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"guestfy/pkg/queue"
)

// JobKind names training completion jobs on the queue.
const JobKind = "agent.training.complete"

// CompleteFunc finishes training for one agent.
type CompleteFunc func(ctx context.Context, agentID string) error

// Scheduler runs fn for agentID once delay has elapsed.
type Scheduler interface {
	Schedule(ctx context.Context, agentID string, delay time.Duration) error
}

// TimerScheduler completes training in-process. Pending timers are lost on restart.
type TimerScheduler struct {
	complete CompleteFunc

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func NewTimerScheduler(complete CompleteFunc) *TimerScheduler {
	return &TimerScheduler{complete: complete, pending: make(map[string]*time.Timer)}
}

// Schedule replaces any timer already pending for agentID.
func (s *TimerScheduler) Schedule(_ context.Context, agentID string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[agentID]; ok && prev.Stop() {
		s.wg.Done()
	}
	s.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if s.pending[agentID] == timer {
			delete(s.pending, agentID)
		}
		s.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.complete(ctx, agentID); err != nil {
			slog.Error("agent training completion failed", "agent_id", agentID, "err", err)
		}
	})
	s.pending[agentID] = timer
	return nil
}

// Stop cancels pending timers and waits for running completions.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.pending {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Enqueuer is the part of queue.RedisJobQueue the scheduler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind, subject string, runAt time.Time) (queue.JobStatus, error)
}

// QueueScheduler persists completions as delayed queue jobs so they survive restarts.
type QueueScheduler struct {
	queue Enqueuer
	now   func() time.Time
}

func NewQueueScheduler(q Enqueuer, now func() time.Time) *QueueScheduler {
	if now == nil {
		now = time.Now
	}
	return &QueueScheduler{queue: q, now: now}
}

func (s *QueueScheduler) Schedule(ctx context.Context, agentID string, delay time.Duration) error {
	job, err := s.queue.Enqueue(ctx, JobKind, agentID, s.now().Add(delay))
	if err != nil {
		return err
	}
	slog.Debug("agent training scheduled", "agent_id", agentID, "job_id", job.ID, "run_at", job.RunAt)
	return nil
}

// QueueHandler adapts complete into a queue handler. Jobs of other kinds are acknowledged untouched.
func QueueHandler(complete CompleteFunc) queue.Handler {
	return func(ctx context.Context, job queue.JobStatus) error {
		if job.Kind != JobKind {
			return nil
		}
		return complete(ctx, job.Subject)
	}
}
