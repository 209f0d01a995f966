package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service drives a Provider through the uniform solve lifecycle. It is safe
// for concurrent use; every solve call owns its own Task.
type Service struct {
	provider Provider
	cfg      Config
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService wraps p with the given timing configuration.
func NewService(p Provider, cfg Config) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("nil provider")
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{provider: p, cfg: cfg, sleep: sleepCtx}, nil
}

// Provider returns the wrapped provider.
func (s *Service) Provider() Provider { return s.provider }

// Capabilities returns the provider's declared capabilities.
func (s *Service) Capabilities() Capabilities { return s.provider.Capabilities() }

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Solve submits c and waits for its canonical response.
func (s *Service) Solve(ctx context.Context, c Challenge, sess *Session) (*Response, error) {
	name := s.provider.Name()
	if c == nil {
		return nil, &Error{Kind: ErrorTaskCreation, Provider: name, Message: "nil challenge"}
	}
	kind := c.Kind()
	if !s.provider.Capabilities().Supports(kind) {
		return nil, UnsupportedKind(name, kind)
	}
	if err := c.Validate(); err != nil {
		return nil, withProvider(err, name)
	}
	if err := sess.Validate(); err != nil {
		return nil, &Error{Kind: ErrorTaskCreation, Provider: name, Message: "invalid session", Err: err}
	}

	start := time.Now()
	resp, state, err := s.run(ctx, c, sess)
	s.record(kind, state, time.Since(start))

	switch state {
	case StateCompleted:
		slog.Info("captcha solved",
			slog.String("provider", name),
			slog.String("kind", kind.String()),
			slog.String("taskId", resp.ID),
			slog.Duration("elapsed", time.Since(start)))
	case StateCancelled:
		slog.Debug("captcha solve cancelled", slog.String("provider", name), slog.String("kind", kind.String()))
	default:
		slog.Warn("captcha solve failed",
			slog.String("provider", name),
			slog.String("kind", kind.String()),
			slog.String("state", state.String()),
			slog.Any("error", err))
	}
	return resp, err
}

func (s *Service) run(ctx context.Context, c Challenge, sess *Session) (*Response, State, error) {
	if err := ctx.Err(); err != nil {
		return nil, StateCancelled, err
	}
	task, err := s.provider.Create(ctx, c, sess)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, StateCancelled, err
		}
		return nil, StateFailed, err
	}
	if task == nil {
		return nil, StateFailed, &Error{Kind: ErrorTaskCreation, Provider: s.provider.Name(), Message: "provider returned no task"}
	}
	slog.Debug("captcha task created",
		slog.String("provider", s.provider.Name()),
		slog.String("kind", task.Kind.String()),
		slog.String("taskId", task.ID))
	return s.await(ctx, task)
}

func (s *Service) record(kind ChallengeKind, state State, elapsed time.Duration) {
	if s.cfg.MetricsHook != nil {
		s.cfg.MetricsHook(s.provider.Name(), kind, state, elapsed)
	}
}

// withProvider stamps the provider name on taxonomy errors raised before any call.
func withProvider(err error, name string) error {
	var e *Error
	if errors.As(err, &e) && e.Provider == "" {
		cp := *e
		cp.Provider = name
		return &cp
	}
	return err
}

// Balance returns the account balance.
func (s *Service) Balance(ctx context.Context) (float64, error) {
	bc, ok := s.provider.(BalanceChecker)
	if !ok {
		return 0, &Error{Kind: ErrorUnsupported, Provider: s.provider.Name(), Message: "balance is not supported"}
	}
	bal, err := bc.Balance(ctx)
	if err != nil {
		return 0, err
	}
	if s.cfg.BalanceWarnLevel > 0 && bal < s.cfg.BalanceWarnLevel {
		slog.Warn("captcha balance low", slog.String("provider", s.provider.Name()), slog.Float64("balance", bal))
	}
	return bal, nil
}

// ReportSolution tells the provider whether the solution for id was accepted.
func (s *Service) ReportSolution(ctx context.Context, id string, kind ChallengeKind, correct bool) error {
	r, ok := s.provider.(Reporter)
	if !ok {
		return &Error{Kind: ErrorUnsupported, Provider: s.provider.Name(), Message: "reporting is not supported"}
	}
	if id == "" {
		return &Error{Kind: ErrorTaskReport, Provider: s.provider.Name(), Message: "empty task id"}
	}
	return r.Report(ctx, id, kind, correct)
}

func (s *Service) SolveImage(ctx context.Context, c ImageChallenge) (*Response, error) {
	return s.Solve(ctx, c, nil)
}

func (s *Service) SolveText(ctx context.Context, c TextChallenge) (*Response, error) {
	return s.Solve(ctx, c, nil)
}

func (s *Service) SolveRecaptchaV2(ctx context.Context, c RecaptchaV2, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveRecaptchaV3(ctx context.Context, c RecaptchaV3, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveFuncaptcha(ctx context.Context, c Funcaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveHCaptcha(ctx context.Context, c HCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveKeyCaptcha(ctx context.Context, c KeyCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveGeeTest(ctx context.Context, c GeeTest, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveGeeTestV4(ctx context.Context, c GeeTestV4, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveCapy(ctx context.Context, c Capy, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveDataDome(ctx context.Context, c DataDome, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveCloudflareTurnstile(ctx context.Context, c Turnstile, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveAmazonWaf(ctx context.Context, c AmazonWaf, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveCyberSiAra(ctx context.Context, c CyberSiAra, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveMtCaptcha(ctx context.Context, c MtCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveCutCaptcha(ctx context.Context, c CutCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveFriendlyCaptcha(ctx context.Context, c FriendlyCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveAtbCaptcha(ctx context.Context, c AtbCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveTencentCaptcha(ctx context.Context, c TencentCaptcha, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveAudio(ctx context.Context, c AudioChallenge) (*Response, error) {
	return s.Solve(ctx, c, nil)
}

func (s *Service) SolveRecaptchaMobile(ctx context.Context, c RecaptchaMobile, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}

func (s *Service) SolveCloudflareChallengePage(ctx context.Context, c CloudflareChallengePage, sess *Session) (*Response, error) {
	return s.Solve(ctx, c, sess)
}
