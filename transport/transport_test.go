package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{
		Doer:    HTTPDoer{},
		Retries: 2,
		Backoff: stealth.BackoffConfig{InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2},
	})
	require.NoError(t, err)
	return c
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"clientKey":"k"}`, string(body))
		_, _ = w.Write([]byte(`{"errorId":0,"balance":1.5}`))
	}))
	defer srv.Close()

	var out struct {
		Balance float64 `json:"balance"`
	}
	err := newTestClient(t).PostJSON(context.Background(), "getBalance", srv.URL, map[string]string{"clientKey": "k"}, &out, true)
	require.NoError(t, err)
	require.Equal(t, 1.5, out.Balance)
}

func TestIdempotentRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("OK|1"))
	}))
	defer srv.Close()

	body, err := newTestClient(t).Get(context.Background(), "res.php", srv.URL)
	require.NoError(t, err)
	require.Equal(t, "OK|1", string(body))
	require.EqualValues(t, 2, hits.Load())
}

func TestNonIdempotentIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "base64", r.PostForm.Get("method"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t).PostForm(context.Background(), "in.php", srv.URL, url.Values{"method": {"base64"}})
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusServiceUnavailable, se.Status)
	require.EqualValues(t, 1, hits.Load())
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer srv.Close()

	err := newTestClient(t).DoJSON(context.Background(), Request{Method: "GET", URL: srv.URL, Endpoint: "tasks.get"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusUnauthorized, se.Status)
	require.Contains(t, se.Body, "invalid_token")
}

func TestCancelledContextSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t).Get(ctx, "res.php", srv.URL)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, hits.Load())
}

func TestParseRetryAfter(t *testing.T) {
	got := parseRetryAfter("30")
	require.WithinDuration(t, time.Now().Add(30*time.Second), got, time.Second)

	got = parseRetryAfter("soon")
	require.WithinDuration(t, time.Now().Add(10*time.Second), got, time.Second)
}

func TestTruncateBytes(t *testing.T) {
	require.Equal(t, "abc", truncateBytes([]byte("abc"), 5))
	require.Equal(t, "ab...", truncateBytes([]byte("abcdef"), 2))
}
