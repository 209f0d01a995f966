package captcha

import "context"

// Provider is the contract every solving service implements. It only does
// single-shot work; timing and polling policy belong to Service.
type Provider interface {
	// Name is a short identifier used in errors, logs and metrics.
	Name() string

	// Capabilities declares the kinds and image features the provider handles.
	Capabilities() Capabilities

	// Create submits the challenge. A refused job is a TaskCreation error and
	// no polling happens. Synchronous providers return a task that is already
	// complete and carries its response.
	Create(ctx context.Context, c Challenge, sess *Session) (*Task, error)

	// Poll issues exactly one status check. It returns (nil, nil) while the
	// task is not ready, a response once solved, or a TaskSolution error on
	// definitive failure. Both terminal outcomes mark the task complete.
	Poll(ctx context.Context, task *Task) (*Response, error)
}

// Reporter is implemented by providers that accept feedback on solutions.
// Providers that only refund bad answers return Unsupported when correct is true.
type Reporter interface {
	Report(ctx context.Context, id string, kind ChallengeKind, correct bool) error
}

// BalanceChecker is implemented by providers with an account balance.
type BalanceChecker interface {
	Balance(ctx context.Context) (float64, error)
}
