package captcha

import "time"

// Task is the handle for one in-flight solve request. It belongs to the solve
// call that created it; only the completion flag changes after creation.
type Task struct {
	ID        string
	Kind      ChallengeKind
	CreatedAt time.Time

	completed bool
	result    *Response
}

// NewTask returns a pending task for a provider-assigned id.
func NewTask(id string, kind ChallengeKind) *Task {
	return &Task{ID: id, Kind: kind, CreatedAt: time.Now()}
}

// NewCompletedTask returns a task that was answered synchronously at creation.
func NewCompletedTask(id string, kind ChallengeKind, sol Solution) (*Task, error) {
	t := NewTask(id, kind)
	resp, err := NewResponse(t, sol)
	if err != nil {
		return nil, err
	}
	t.result = resp
	t.completed = true
	return t, nil
}

// Completed reports whether the task reached a terminal state.
func (t *Task) Completed() bool { return t.completed }

// Complete marks the task terminal. It never reverts.
func (t *Task) Complete() { t.completed = true }

// Result returns the response captured at creation for synchronous providers.
func (t *Task) Result() *Response { return t.result }

// Resolve builds the response for sol and marks the task terminal.
// Providers call it from Poll once the vendor reports success.
func (t *Task) Resolve(sol Solution) (*Response, error) {
	resp, err := NewResponse(t, sol)
	if err != nil {
		return nil, err
	}
	t.completed = true
	return resp, nil
}

// Fail marks the task terminal and returns err for the provider to surface.
func (t *Task) Fail(err error) error {
	t.completed = true
	return err
}
