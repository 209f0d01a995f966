// Package tokenapi implements a subscription provider whose JSON task API is
// guarded by an OAuth2 password-grant bearer token. The token is cached per
// Provider and shared by concurrent solve calls.
package tokenapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/auth"
	"github.com/anatolykoptev/go-captcha/transport"
)

const name = "tokenapi"

// Unlimited is the balance reported by flat-rate accounts.
var Unlimited = math.Inf(1)

// tokenSkew renews the bearer token this long before it expires.
const tokenSkew = 30 * time.Second

// Credentials are the OAuth2 password-grant inputs.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

func (c Credentials) validate() error {
	switch {
	case c.ClientID == "":
		return captcha.NewError(captcha.ErrorBadAuthentication, name, "", "client id is empty")
	case c.ClientSecret == "":
		return captcha.NewError(captcha.ErrorBadAuthentication, name, "", "client secret is empty")
	case c.Username == "" || c.Password == "":
		return captcha.NewError(captcha.ErrorBadAuthentication, name, "", "username and password are required")
	}
	return nil
}

// Provider is the bearer-token task API client.
type Provider struct {
	creds   Credentials
	baseURL string
	http    *transport.Client
	token   *auth.TokenCell
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

// New creates a client. No request is made until the first solve.
func New(creds Credentials, opts ...Option) (*Provider, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	p := &Provider{creds: creds, baseURL: "https://api.tokenapi.io"}
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
	p.token = auth.NewTokenCell(p.fetchToken, tokenSkew)
	return p, nil
}

// Name implements captcha.Provider.
func (p *Provider) Name() string { return name }

// Capabilities implements captcha.Provider.
func (p *Provider) Capabilities() captcha.Capabilities { return capabilities }

func (p *Provider) fetchToken(ctx context.Context) (auth.Token, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {p.creds.ClientID},
		"client_secret": {p.creds.ClientSecret},
		"username":      {p.creds.Username},
		"password":      {p.creds.Password},
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	err := p.http.DoJSON(ctx, transport.Request{
		Method:   "POST",
		URL:      p.baseURL + "/oauth/token",
		Endpoint: "oauth/token",
		Headers:  map[string]string{"content-type": "application/x-www-form-urlencoded"},
		Body:     []byte(form.Encode()),
	}, &resp)
	if err != nil {
		return auth.Token{}, captcha.WrapError(captcha.ErrorBadAuthentication, name, err)
	}
	if resp.Error != "" || resp.AccessToken == "" {
		return auth.Token{}, captcha.NewError(captcha.ErrorBadAuthentication, name, resp.Error, "token request rejected")
	}
	tok := auth.Token{Value: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// call performs an authorized JSON request. A 401 drops the cached token and
// the request is repeated once with a fresh one.
func (p *Provider) call(ctx context.Context, req transport.Request, out any) error {
	for attempt := 0; ; attempt++ {
		tok, err := p.token.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		r := req
		r.Headers = map[string]string{"authorization": "Bearer " + tok}
		for k, v := range req.Headers {
			r.Headers[k] = v
		}
		err = p.http.DoJSON(ctx, r, out)
		var se *transport.StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			p.token.Invalidate()
			if attempt == 0 {
				slog.Warn("tokenapi: bearer token rejected, refreshing", slog.String("endpoint", req.Endpoint))
				continue
			}
			return captcha.WrapError(captcha.ErrorBadAuthentication, name, err)
		}
		return err
	}
}

type taskState struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Solution *taskSolution  `json:"solution"`
	Error    *taskErrorBody `json:"error"`
}

type taskSolution struct {
	Text      string `json:"text"`
	Token     string `json:"token"`
	UserAgent string `json:"user_agent"`
}

type taskErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Create implements captcha.Provider. The API may answer with a finished
// task, in which case no polling is needed.
func (p *Provider) Create(ctx context.Context, c captcha.Challenge, sess *captcha.Session) (*captcha.Task, error) {
	payload, err := buildTask(c, sess)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, captcha.WrapError(captcha.ErrorTaskCreation, name, err)
	}
	var resp taskState
	err = p.call(ctx, transport.Request{
		Method:   "POST",
		URL:      p.baseURL + "/v1/tasks",
		Endpoint: "tasks.create",
		Headers:  map[string]string{"content-type": "application/json"},
		Body:     body,
	}, &resp)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if captcha.KindOf(err) == captcha.ErrorBadAuthentication {
			return nil, err
		}
		return nil, captcha.WrapError(captcha.ErrorTaskCreation, name, err)
	}
	if resp.Error != nil {
		return nil, captcha.NewError(classifyCreate(resp.Error.Code), name, resp.Error.Code, resp.Error.Message)
	}
	if resp.ID == "" {
		return nil, captcha.NewError(captcha.ErrorTaskCreation, name, "", "empty task id in response")
	}

	if resp.Status == statusSolved {
		sol, err := toSolution(c.Kind(), resp.Solution)
		if err != nil {
			return nil, err
		}
		slog.Info("CAPTCHA solved at creation", slog.String("provider", name), slog.String("taskId", resp.ID))
		return captcha.NewCompletedTask(resp.ID, c.Kind(), sol)
	}
	slog.Info("CAPTCHA task created", slog.String("provider", name), slog.String("taskId", resp.ID))
	return captcha.NewTask(resp.ID, c.Kind()), nil
}

const (
	statusPending = "pending"
	statusSolved  = "solved"
	statusFailed  = "failed"
)

// Poll implements captcha.Provider.
func (p *Provider) Poll(ctx context.Context, task *captcha.Task) (*captcha.Response, error) {
	var resp taskState
	err := p.call(ctx, transport.Request{
		Method:     "GET",
		URL:        p.baseURL + "/v1/tasks/" + url.PathEscape(task.ID),
		Endpoint:   "tasks.get",
		Idempotent: true,
	}, &resp)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var se *transport.StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return nil, task.Fail(captcha.WrapError(captcha.ErrorTaskSolution, name, err))
		}
		return nil, err
	}

	switch resp.Status {
	case statusPending:
		return nil, nil
	case statusSolved:
		sol, err := toSolution(task.Kind, resp.Solution)
		if err != nil {
			return nil, task.Fail(err)
		}
		return task.Resolve(sol)
	case statusFailed:
		e := captcha.NewError(captcha.ErrorTaskSolution, name, "", "task failed")
		if resp.Error != nil {
			e.Code, e.Message = resp.Error.Code, resp.Error.Message
		}
		return nil, task.Fail(e)
	default:
		return nil, task.Fail(captcha.NewError(captcha.ErrorTaskSolution, name, "", fmt.Sprintf("unexpected status %q", resp.Status)))
	}
}

// Balance implements captcha.BalanceChecker. Accounts are flat-rate, so the
// answer is Unlimited and no request is made.
func (p *Provider) Balance(context.Context) (float64, error) {
	return Unlimited, nil
}

func classifyCreate(code string) captcha.ErrorKind {
	switch code {
	case "unauthorized", "subscription_expired":
		return captcha.ErrorBadAuthentication
	}
	return captcha.ErrorTaskCreation
}
