package captchacoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/transport"
)

func newProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tc, err := transport.New(transport.Options{
		Doer:    transport.HTTPDoer{},
		Backoff: stealth.BackoffConfig{InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Multiplier: 2},
	})
	require.NoError(t, err)
	p, err := New("secret", WithBaseURL(srv.URL), WithTransport(tc))
	require.NoError(t, err)
	return p
}

func TestSolveCompletesWithoutPolling(t *testing.T) {
	var hits atomic.Int32
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/imagepost.ashx", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "upload", r.PostForm.Get("action"))
		require.Equal(t, "secret", r.PostForm.Get("key"))
		require.Equal(t, "cG5n", r.PostForm.Get("file"))
		_, _ = w.Write([]byte("w68hp\n"))
	})

	var state captcha.State
	svc, err := captcha.NewService(p, captcha.Config{
		InitialDelay:    time.Hour,
		PollingInterval: time.Hour,
		MetricsHook: func(_ string, _ captcha.ChallengeKind, s captcha.State, _ time.Duration) {
			state = s
		},
	})
	require.NoError(t, err)

	resp, err := svc.SolveImage(context.Background(), captcha.ImageChallenge{Image: []byte("png")})
	require.NoError(t, err)
	text, ok := resp.Text()
	require.True(t, ok)
	require.Equal(t, "w68hp", text)
	require.EqualValues(t, 1, hits.Load())
	require.Equal(t, captcha.StateCompleted, state)

	_, err = uuid.Parse(resp.ID)
	require.NoError(t, err)
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"bad key", "Error: invalid key", captcha.ErrBadAuthentication},
		{"login", "ERROR: login failed", captcha.ErrBadAuthentication},
		{"no credits", "Error: not enough credits", captcha.ErrTaskCreation},
		{"empty", "  ", captcha.ErrTaskCreation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := p.Create(context.Background(), captcha.ImageChallenge{Image: []byte{1}}, nil)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateRejectsUnsupported(t *testing.T) {
	var hits atomic.Int32
	p := newProvider(t, func(http.ResponseWriter, *http.Request) { hits.Add(1) })
	ctx := context.Background()
	img := captcha.ImageChallenge{Image: []byte{1}}

	_, err := p.Create(ctx, captcha.RecaptchaV2{SiteKey: "k", SiteURL: "u"}, nil)
	require.ErrorIs(t, err, captcha.ErrUnsupported)

	_, err = p.Create(ctx, img, &captcha.Session{UserAgent: "UA"})
	require.ErrorIs(t, err, captcha.ErrUnsupported)

	_, err = p.Create(ctx, img, &captcha.Session{Proxy: &captcha.Proxy{Scheme: captcha.ProxyHTTP, Host: "h", Port: 8080}})
	require.ErrorIs(t, err, captcha.ErrUnsupported)

	img.Options.CaseSensitive = true
	_, err = p.Create(ctx, img, nil)
	require.ErrorIs(t, err, captcha.ErrUnsupported)

	require.Zero(t, hits.Load())
}

func TestPollWithoutResult(t *testing.T) {
	p := newProvider(t, func(http.ResponseWriter, *http.Request) {})
	task := captcha.NewTask("x", captcha.KindImage)

	_, err := p.Poll(context.Background(), task)
	require.ErrorIs(t, err, captcha.ErrTaskSolution)
	require.True(t, task.Completed())
}

func TestBalance(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "balance", r.PostForm.Get("action"))
		_, _ = w.Write([]byte("17.5"))
	})
	bal, err := p.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 17.5, bal)

	p = newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Error: bad key"))
	})
	_, err = p.Balance(context.Background())
	require.ErrorIs(t, err, captcha.ErrBadAuthentication)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body   string
		msg    string
		failed bool
	}{
		{"Error: no credits", "no credits", true},
		{"error:x", "x", true},
		{"abc", "", false},
		{"12:30", "", false},
	}
	for _, tt := range tests {
		msg, failed := errorMessage(tt.body)
		require.Equal(t, tt.msg, msg, tt.body)
		require.Equal(t, tt.failed, failed, tt.body)
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, captcha.ErrBadAuthentication)
}
