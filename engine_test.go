package captcha

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// fakeProvider scripts Create and Poll outcomes.
type fakeProvider struct {
	caps Capabilities

	create func(ctx context.Context, c Challenge) (*Task, error)
	poll   func(ctx context.Context, task *Task, n int) (*Response, error)

	creates atomic.Int32
	polls   atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Capabilities() Capabilities { return f.caps }

func (f *fakeProvider) Create(ctx context.Context, c Challenge, _ *Session) (*Task, error) {
	f.creates.Add(1)
	return f.create(ctx, c)
}

func (f *fakeProvider) Poll(ctx context.Context, task *Task) (*Response, error) {
	n := int(f.polls.Add(1))
	return f.poll(ctx, task, n)
}

func createWithID(id string) func(context.Context, Challenge) (*Task, error) {
	return func(_ context.Context, c Challenge) (*Task, error) {
		return NewTask(id, c.Kind()), nil
	}
}

func neverReady(context.Context, *Task, int) (*Response, error) { return nil, nil }

var imageOnly = Capabilities{Kinds: KindsOf(KindImage, KindGeeTest)}

var testImage = ImageChallenge{Image: []byte{0x89, 'P', 'N', 'G'}}

// recordingSleep replaces the real wait and records every requested duration.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return nil
}

func newTestService(t *testing.T, p Provider, cfg Config) (*Service, *recordingSleep) {
	t.Helper()
	svc, err := NewService(p, cfg)
	require.NoError(t, err)
	rec := &recordingSleep{}
	svc.sleep = rec.sleep
	return svc, rec
}

func TestSolveReturnsAfterFourthPoll(t *testing.T) {
	p := &fakeProvider{
		caps:   imageOnly,
		create: createWithID("42"),
		poll: func(_ context.Context, task *Task, n int) (*Response, error) {
			if n < 4 {
				return nil, nil
			}
			return task.Resolve(TextSolution{Value: "w68hp"})
		},
	}
	svc, rec := newTestService(t, p, Config{
		Timeout:         time.Minute,
		PollingInterval: 5 * time.Second,
		InitialDelay:    2 * time.Second,
	})

	resp, err := svc.SolveImage(context.Background(), testImage)
	require.NoError(t, err)
	require.Equal(t, "42", resp.ID)
	text, ok := resp.Text()
	require.True(t, ok)
	require.Equal(t, "w68hp", text)

	require.EqualValues(t, 1, p.creates.Load())
	require.EqualValues(t, 4, p.polls.Load())
	require.Equal(t, []time.Duration{
		2 * time.Second,
		5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second,
	}, rec.waits)
}

func TestSolveCreationErrorSkipsPolling(t *testing.T) {
	p := &fakeProvider{
		caps: imageOnly,
		create: func(context.Context, Challenge) (*Task, error) {
			return nil, NewError(ErrorTaskCreation, "fake", "", "ERROR_KEY_DOES_NOT_EXIST")
		},
		poll: neverReady,
	}
	svc, rec := newTestService(t, p, Config{})

	_, err := svc.SolveImage(context.Background(), testImage)
	require.ErrorIs(t, err, ErrTaskCreation)
	require.Contains(t, err.Error(), "ERROR_KEY_DOES_NOT_EXIST")
	require.Zero(t, p.polls.Load())
	require.Empty(t, rec.waits)
}

func TestSolveTimesOut(t *testing.T) {
	var seen atomic.Pointer[Task]
	p := &fakeProvider{
		caps:   imageOnly,
		create: createWithID("7"),
		poll: func(_ context.Context, task *Task, _ int) (*Response, error) {
			seen.Store(task)
			return nil, nil
		},
	}
	svc, err := NewService(p, Config{Timeout: 100 * time.Millisecond, PollingInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.SolveImage(context.Background(), testImage)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	require.False(t, errors.Is(err, ErrTaskSolution))
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Less(t, elapsed, 400*time.Millisecond)
	// At most one poll per elapsed interval.
	require.LessOrEqual(t, int(p.polls.Load()), int(elapsed/(20*time.Millisecond))+1)
	require.NotNil(t, seen.Load())
	require.False(t, seen.Load().Completed())
}

func TestSolveTaskSolutionErrorCompletesTask(t *testing.T) {
	var seen *Task
	p := &fakeProvider{
		caps:   imageOnly,
		create: createWithID("9"),
		poll: func(_ context.Context, task *Task, n int) (*Response, error) {
			seen = task
			if n < 2 {
				return nil, nil
			}
			return nil, task.Fail(NewError(ErrorTaskSolution, "fake", "ERROR_CAPTCHA_UNSOLVABLE", ""))
		},
	}
	svc, _ := newTestService(t, p, Config{})

	_, err := svc.SolveImage(context.Background(), testImage)
	require.ErrorIs(t, err, ErrTaskSolution)
	require.Equal(t, ErrorTaskSolution, KindOf(err))
	require.EqualValues(t, 2, p.polls.Load())
	require.True(t, seen.Completed())
}

func TestSolveCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{
		caps:   imageOnly,
		create: createWithID("11"),
		poll: func(context.Context, *Task, int) (*Response, error) {
			cancel()
			return nil, nil
		},
	}
	svc, err := NewService(p, Config{Timeout: time.Minute, PollingInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = svc.SolveImage(ctx, testImage)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, KindOf(err))
	require.False(t, errors.Is(err, ErrTimeout))
	require.EqualValues(t, 1, p.polls.Load())
}

func TestSolveCancelledBeforeCreate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{caps: imageOnly, create: createWithID("1"), poll: neverReady}
	svc, _ := newTestService(t, p, Config{})

	_, err := svc.SolveImage(ctx, testImage)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, p.creates.Load())
}

func TestSolveSynchronousTaskSkipsPolling(t *testing.T) {
	p := &fakeProvider{
		caps: imageOnly,
		create: func(_ context.Context, c Challenge) (*Task, error) {
			return NewCompletedTask("sync-1", c.Kind(), TextSolution{Value: "abc"})
		},
		poll: neverReady,
	}
	svc, rec := newTestService(t, p, Config{InitialDelay: time.Second})

	resp, err := svc.SolveImage(context.Background(), testImage)
	require.NoError(t, err)
	require.Equal(t, "sync-1", resp.ID)
	require.Zero(t, p.polls.Load())
	require.Empty(t, rec.waits)
}

func TestSolveUnsupportedKindRejectedBeforeCreate(t *testing.T) {
	p := &fakeProvider{caps: imageOnly, create: createWithID("1"), poll: neverReady}
	svc, _ := newTestService(t, p, Config{})

	_, err := svc.SolveHCaptcha(context.Background(), HCaptcha{SiteKey: "k", SiteURL: "https://example.com"}, nil)
	require.ErrorIs(t, err, ErrUnsupported)
	require.Zero(t, p.creates.Load())
}

func TestSolveInvalidChallengeRejectedBeforeCreate(t *testing.T) {
	p := &fakeProvider{caps: imageOnly, create: createWithID("1"), poll: neverReady}
	svc, _ := newTestService(t, p, Config{})

	_, err := svc.SolveImage(context.Background(), ImageChallenge{})
	require.ErrorIs(t, err, ErrTaskCreation)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, "fake", e.Provider)
	require.Zero(t, p.creates.Load())
}

func TestSolveStructuredVariant(t *testing.T) {
	p := &fakeProvider{
		caps:   imageOnly,
		create: createWithID("g1"),
		poll: func(_ context.Context, task *Task, _ int) (*Response, error) {
			return task.Resolve(GeeTestV3Solution{Challenge: "c", Validate: "v", SecCode: "v|jordan"})
		},
	}
	svc, _ := newTestService(t, p, Config{})

	resp, err := svc.SolveGeeTest(context.Background(), GeeTest{GT: "gt", Challenge: "c", SiteURL: "https://example.com"}, nil)
	require.NoError(t, err)
	_, isText := resp.Text()
	require.False(t, isText)
	sol, ok := SolutionAs[GeeTestV3Solution](resp)
	require.True(t, ok)
	require.Equal(t, "v", sol.Validate)
}

func TestSolveConcurrentCallsAreIndependent(t *testing.T) {
	var ids atomic.Int32
	p := &fakeProvider{
		caps: imageOnly,
		create: func(_ context.Context, c Challenge) (*Task, error) {
			n := ids.Add(1)
			return NewTask(string(rune('a'+n-1)), c.Kind()), nil
		},
		poll: func(_ context.Context, task *Task, _ int) (*Response, error) {
			return task.Resolve(TextSolution{Value: "answer-" + task.ID})
		},
	}
	svc, _ := newTestService(t, p, Config{})

	const n = 8
	results := make([]*Response, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range n {
		g.Go(func() error {
			resp, err := svc.SolveImage(ctx, testImage)
			results[i] = resp
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := map[string]bool{}
	for _, r := range results {
		text, _ := r.Text()
		require.Equal(t, "answer-"+r.ID, text)
		require.False(t, seen[r.ID], "duplicate task %s", r.ID)
		seen[r.ID] = true
	}
	require.EqualValues(t, n, p.creates.Load())
}

func TestSolveMetricsHook(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	p := &fakeProvider{caps: imageOnly, create: createWithID("m"), poll: func(_ context.Context, task *Task, _ int) (*Response, error) {
		return task.Resolve(TextSolution{Value: "x"})
	}}
	svc, _ := newTestService(t, p, Config{MetricsHook: func(provider string, kind ChallengeKind, state State, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, "fake", provider)
		require.Equal(t, KindImage, kind)
		states = append(states, state)
	}})

	_, err := svc.SolveImage(context.Background(), testImage)
	require.NoError(t, err)
	require.Equal(t, []State{StateCompleted}, states)
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	p := &fakeProvider{caps: imageOnly}
	_, err := NewService(nil, Config{})
	require.Error(t, err)
	_, err = NewService(p, Config{PollingInterval: -time.Second})
	require.Error(t, err)

	svc, err := NewService(p, Config{})
	require.NoError(t, err)
	require.Equal(t, 3*time.Minute, svc.Config().Timeout)
	require.Equal(t, 5*time.Second, svc.Config().PollingInterval)
}

func TestBalanceAndReportUnsupported(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{caps: imageOnly}, Config{})

	_, err := svc.Balance(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
	err = svc.ReportSolution(context.Background(), "1", KindImage, false)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
	}{
		{StateCreated, false},
		{StatePolling, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateTimedOut, true},
		{StateCancelled, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if tt.state.Terminal() != tt.terminal {
				t.Fatalf("%s.Terminal() = %v, want %v", tt.state, !tt.terminal, tt.terminal)
			}
		})
	}
}
