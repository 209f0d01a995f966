package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// State is the lifecycle position of one solve call.
type State int

const (
	StateCreated State = iota
	StatePolling
	StateCompleted
	StateFailed
	StateTimedOut
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s >= StateCompleted }

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await drives a freshly created task to a terminal state. Polls are strictly
// sequential and the deadline counts from task creation.
func (s *Service) await(ctx context.Context, task *Task) (*Response, State, error) {
	name := s.provider.Name()

	if task.Completed() {
		if r := task.Result(); r != nil {
			return r, StateCompleted, nil
		}
		return nil, StateFailed, &Error{Kind: ErrorTaskSolution, Provider: name, Message: fmt.Sprintf("task %s completed without a result", task.ID)}
	}

	if s.cfg.InitialDelay > 0 {
		if err := s.sleep(ctx, s.cfg.InitialDelay); err != nil {
			return nil, StateCancelled, err
		}
	}

	for polls := 1; ; polls++ {
		if err := s.sleep(ctx, s.cfg.PollingInterval); err != nil {
			return nil, StateCancelled, err
		}
		if elapsed := time.Since(task.CreatedAt); elapsed > s.cfg.Timeout {
			return nil, StateTimedOut, &Error{
				Kind:     ErrorTimeout,
				Provider: name,
				Message:  fmt.Sprintf("task %s not solved within %s", task.ID, s.cfg.Timeout),
			}
		}

		resp, err := s.provider.Poll(ctx, task)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, StateCancelled, err
			}
			if KindOf(err) == ErrorTaskSolution {
				task.Complete()
			}
			return nil, StateFailed, err
		}
		if resp != nil {
			task.Complete()
			return resp, StateCompleted, nil
		}

		slog.Debug("captcha not ready",
			slog.String("provider", name),
			slog.String("taskId", task.ID),
			slog.Int("poll", polls))
	}
}
