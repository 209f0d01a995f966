// Package captchacoder implements a synchronous image provider: the upload
// request blocks until a worker has typed the answer and returns it as the
// response body.
package captchacoder

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/transport"
)

const name = "captchacoder"

const endpoint = "imagepost.ashx"

// Provider is the captchacoder.com client.
type Provider struct {
	apiKey  string
	baseURL string
	http    *transport.Client
}

// Option customizes a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a different host.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTransport replaces the default go-stealth transport.
func WithTransport(c *transport.Client) Option {
	return func(p *Provider) { p.http = c }
}

// New creates a client.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, captcha.NewError(captcha.ErrorBadAuthentication, name, "", "api key is empty")
	}
	p := &Provider{apiKey: apiKey, baseURL: "http://api.captchacoder.com"}
	for _, o := range opts {
		o(p)
	}
	if p.http == nil {
		c, err := transport.New(transport.Options{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		p.http = c
	}
	return p, nil
}

// Name implements captcha.Provider.
func (p *Provider) Name() string { return name }

// Capabilities implements captcha.Provider.
func (p *Provider) Capabilities() captcha.Capabilities {
	return captcha.Capabilities{Kinds: captcha.KindsOf(captcha.KindImage)}
}

// Create uploads the image and returns a task that is already complete. The
// API has no task ids, so one is generated locally.
func (p *Provider) Create(ctx context.Context, c captcha.Challenge, sess *captcha.Session) (*captcha.Task, error) {
	img, ok := c.(captcha.ImageChallenge)
	if !ok {
		return nil, captcha.UnsupportedKind(name, c.Kind())
	}
	if sess.HasProxy() {
		return nil, captcha.UnsupportedSession(name, c.Kind(), "proxy")
	}
	if sess.HasUserAgent() {
		return nil, captcha.UnsupportedSession(name, c.Kind(), "user agent")
	}
	if sess.HasCookies() {
		return nil, captcha.UnsupportedSession(name, c.Kind(), "cookies")
	}
	if err := captcha.CheckImageOptions(name, p.Capabilities(), img.Options); err != nil {
		return nil, err
	}

	form := url.Values{
		"key":    {p.apiKey},
		"action": {"upload"},
		"file":   {base64.StdEncoding.EncodeToString(img.Image)},
	}
	body, err := p.http.PostForm(ctx, endpoint, p.baseURL+"/"+endpoint, form)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, captcha.WrapError(captcha.ErrorTaskCreation, name, err)
	}
	text := strings.TrimSpace(string(body))
	if msg, failed := errorMessage(text); failed {
		return nil, captcha.NewError(classify(msg), name, "", msg)
	}
	if text == "" {
		return nil, captcha.NewError(captcha.ErrorTaskCreation, name, "", "empty answer")
	}

	id := uuid.NewString()
	slog.Info("CAPTCHA solved synchronously", slog.String("provider", name), slog.String("taskId", id))
	return captcha.NewCompletedTask(id, captcha.KindImage, captcha.TextSolution{Value: text})
}

// Poll is never reached for this provider since Create completes the task.
func (p *Provider) Poll(_ context.Context, task *captcha.Task) (*captcha.Response, error) {
	if res := task.Result(); res != nil {
		return res, nil
	}
	return nil, task.Fail(captcha.NewError(captcha.ErrorTaskSolution, name, "", "task "+task.ID+" has no pending result"))
}

// Balance implements captcha.BalanceChecker.
func (p *Provider) Balance(ctx context.Context) (float64, error) {
	form := url.Values{"key": {p.apiKey}, "action": {"balance"}}
	body, err := p.http.PostForm(ctx, endpoint, p.baseURL+"/"+endpoint, form)
	if err != nil {
		return 0, fmt.Errorf("%s balance: %w", name, err)
	}
	text := strings.TrimSpace(string(body))
	if msg, failed := errorMessage(text); failed {
		return 0, captcha.NewError(classify(msg), name, "", msg)
	}
	bal, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%s balance: unexpected body %q", name, text)
	}
	return bal, nil
}

// errorMessage recognizes "Error: <reason>" bodies.
func errorMessage(body string) (string, bool) {
	head, rest, found := strings.Cut(body, ":")
	if !found || !strings.EqualFold(strings.TrimSpace(head), "error") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func classify(msg string) captcha.ErrorKind {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "key") || strings.Contains(lower, "login") || strings.Contains(lower, "auth") {
		return captcha.ErrorBadAuthentication
	}
	return captcha.ErrorTaskCreation
}
