// Package anticaptcha implements the JSON createTask/getTaskResult protocol
// shared by Anti-Captcha, CapMonster Cloud and Capsolver.
package anticaptcha

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/providers/internal/wire"
	"github.com/anatolykoptev/go-captcha/transport"
)

// Provider is one createTask/getTaskResult service.
type Provider struct {
	f       flavor
	apiKey  string
	baseURL string
	softID  int
	http    *transport.Client
}

// Option customizes a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a different API host, e.g. a mirror or a test server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTransport replaces the default go-stealth transport.
func WithTransport(c *transport.Client) Option {
	return func(p *Provider) { p.http = c }
}

// WithSoftID sets the developer software id sent with every task.
func WithSoftID(id int) Option {
	return func(p *Provider) { p.softID = id }
}

// NewAntiCaptcha creates an anti-captcha.com client.
func NewAntiCaptcha(apiKey string, opts ...Option) (*Provider, error) {
	return newProvider(antiCaptcha, apiKey, opts)
}

// NewCapMonster creates a capmonster.cloud client.
func NewCapMonster(apiKey string, opts ...Option) (*Provider, error) {
	return newProvider(capMonster, apiKey, opts)
}

// NewCapsolver creates a capsolver.com client.
func NewCapsolver(apiKey string, opts ...Option) (*Provider, error) {
	return newProvider(capsolver, apiKey, opts)
}

func newProvider(f flavor, apiKey string, opts []Option) (*Provider, error) {
	if apiKey == "" {
		return nil, captcha.NewError(captcha.ErrorBadAuthentication, f.name, "", "api key is empty")
	}
	p := &Provider{f: f, apiKey: apiKey, baseURL: f.baseURL}
	for _, o := range opts {
		o(p)
	}
	if p.http == nil {
		c, err := transport.New(transport.Options{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		p.http = c
	}
	return p, nil
}

// Name implements captcha.Provider.
func (p *Provider) Name() string { return p.f.name }

// Capabilities implements captcha.Provider.
func (p *Provider) Capabilities() captcha.Capabilities { return p.f.caps }

type apiError struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (e apiError) failed() bool { return e.ErrorID != 0 }

// Create implements captcha.Provider.
func (p *Provider) Create(ctx context.Context, c captcha.Challenge, sess *captcha.Session) (*captcha.Task, error) {
	task, err := p.buildTask(c, sess)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"clientKey": p.apiKey,
		"task":      task,
	}
	if p.softID != 0 {
		req["softId"] = p.softID
	}

	var resp struct {
		apiError
		TaskID   wire.FlexString `json:"taskId"`
		Status   string          `json:"status"`
		Solution solution        `json:"solution"`
	}
	if err := p.http.PostJSON(ctx, "createTask", p.baseURL+"/createTask", req, &resp, false); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, captcha.WrapError(captcha.ErrorTaskCreation, p.f.name, err)
	}
	if resp.failed() {
		return nil, p.apiErr(resp.apiError, captcha.ErrorTaskCreation)
	}
	if resp.Status == "ready" {
		sol, err := p.toSolution(c.Kind(), resp.Solution)
		if err != nil {
			return nil, err
		}
		id := string(resp.TaskID)
		if id == "" {
			id = uuid.NewString()
		}
		slog.Info("CAPTCHA solved at creation", slog.String("provider", p.f.name), slog.String("taskId", id))
		return captcha.NewCompletedTask(id, c.Kind(), sol)
	}
	if resp.TaskID == "" {
		return nil, captcha.NewError(captcha.ErrorTaskCreation, p.f.name, "", "empty taskId in response")
	}

	slog.Info("CAPTCHA task created", slog.String("provider", p.f.name), slog.String("taskId", string(resp.TaskID)))
	return captcha.NewTask(string(resp.TaskID), c.Kind()), nil
}

type solution struct {
	Text               string          `json:"text"`
	GRecaptchaResponse string          `json:"gRecaptchaResponse"`
	Token              string          `json:"token"`
	Cookie             string          `json:"cookie"`
	UserAgent          string          `json:"userAgent"`
	Challenge          string          `json:"challenge"`
	Validate           string          `json:"validate"`
	SecCode            string          `json:"seccode"`
	CaptchaID          string          `json:"captcha_id"`
	LotNumber          string          `json:"lot_number"`
	PassToken          string          `json:"pass_token"`
	GenTime            wire.FlexString `json:"gen_time"`
	CaptchaOutput      string          `json:"captcha_output"`
}

// Poll implements captcha.Provider.
func (p *Provider) Poll(ctx context.Context, task *captcha.Task) (*captcha.Response, error) {
	req := map[string]any{
		"clientKey": p.apiKey,
		"taskId":    p.taskID(task.ID),
	}
	var resp struct {
		apiError
		Status   string   `json:"status"`
		Solution solution `json:"solution"`
	}
	if err := p.http.PostJSON(ctx, "getTaskResult", p.baseURL+"/getTaskResult", req, &resp, true); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s getTaskResult: %w", p.f.name, err)
	}
	if resp.failed() {
		e := p.apiErr(resp.apiError, captcha.ErrorTaskSolution)
		if e.Kind == captcha.ErrorTaskSolution {
			return nil, task.Fail(e)
		}
		return nil, e
	}

	switch resp.Status {
	case "processing", "idle":
		return nil, nil
	case "ready":
		sol, err := p.toSolution(task.Kind, resp.Solution)
		if err != nil {
			return nil, task.Fail(err)
		}
		return task.Resolve(sol)
	default:
		return nil, task.Fail(captcha.NewError(captcha.ErrorTaskSolution, p.f.name, "", fmt.Sprintf("unexpected status %q", resp.Status)))
	}
}

func (p *Provider) toSolution(kind captcha.ChallengeKind, s solution) (captcha.Solution, error) {
	var sol captcha.Solution
	var empty bool
	switch kind {
	case captcha.KindImage:
		sol, empty = captcha.TextSolution{Value: s.Text}, s.Text == ""
	case captcha.KindRecaptchaV2, captcha.KindRecaptchaV3, captcha.KindHCaptcha:
		sol, empty = captcha.TextSolution{Value: s.GRecaptchaResponse}, s.GRecaptchaResponse == ""
	case captcha.KindFuncaptcha:
		sol, empty = captcha.TextSolution{Value: s.Token}, s.Token == ""
	case captcha.KindAmazonWaf:
		sol, empty = captcha.TextSolution{Value: s.Cookie}, s.Cookie == ""
	case captcha.KindGeeTest:
		sol = captcha.GeeTestV3Solution{Challenge: s.Challenge, Validate: s.Validate, SecCode: s.SecCode}
		empty = s.Validate == ""
	case captcha.KindGeeTestV4:
		sol = captcha.GeeTestV4Solution{
			CaptchaID:     s.CaptchaID,
			LotNumber:     s.LotNumber,
			PassToken:     s.PassToken,
			GenTime:       string(s.GenTime),
			CaptchaOutput: s.CaptchaOutput,
		}
		empty = s.PassToken == ""
	case captcha.KindTurnstile:
		sol, empty = captcha.TokenUserAgentSolution{Token: s.Token, UserAgent: s.UserAgent}, s.Token == ""
	case captcha.KindDataDome:
		sol, empty = captcha.TokenUserAgentSolution{Token: s.Cookie, UserAgent: s.UserAgent}, s.Cookie == ""
	default:
		return nil, captcha.UnsupportedKind(p.f.name, kind)
	}
	if empty {
		return nil, captcha.NewError(captcha.ErrorTaskSolution, p.f.name, "", "ready but empty solution")
	}
	return sol, nil
}

// Balance implements captcha.BalanceChecker.
func (p *Provider) Balance(ctx context.Context) (float64, error) {
	req := map[string]any{"clientKey": p.apiKey}
	var resp struct {
		apiError
		Balance float64 `json:"balance"`
	}
	if err := p.http.PostJSON(ctx, "getBalance", p.baseURL+"/getBalance", req, &resp, true); err != nil {
		return 0, fmt.Errorf("%s getBalance: %w", p.f.name, err)
	}
	if resp.failed() {
		return 0, p.apiErr(resp.apiError, captcha.ErrorBadAuthentication)
	}
	return resp.Balance, nil
}

// taskID renders id the way the flavor expects it on the wire.
func (p *Provider) taskID(id string) any {
	if p.f.numericIDs {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			return n
		}
	}
	return id
}

func (p *Provider) apiErr(e apiError, fallback captcha.ErrorKind) *captcha.Error {
	return captcha.NewError(classify(e.ErrorCode, fallback), p.f.name, e.ErrorCode, e.ErrorDescription)
}
