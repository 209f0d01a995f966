// Package twocaptcha implements the in.php/res.php protocol of 2Captcha and
// RuCaptcha: form submission answered with "OK|<id>", then GET polling until
// the body stops saying CAPCHA_NOT_READY.
package twocaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/providers/internal/wire"
	"github.com/anatolykoptev/go-captcha/transport"
)

const notReady = "CAPCHA_NOT_READY"

// Provider is a 2Captcha-compatible service.
type Provider struct {
	name    string
	apiKey  string
	baseURL string
	softID  int
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

// WithSoftID sets the developer software id sent with every task.
func WithSoftID(id int) Option {
	return func(p *Provider) { p.softID = id }
}

// New creates a 2captcha.com client.
func New(apiKey string, opts ...Option) (*Provider, error) {
	return newProvider("twocaptcha", "https://2captcha.com", apiKey, opts)
}

// NewRuCaptcha creates a rucaptcha.com client.
func NewRuCaptcha(apiKey string, opts ...Option) (*Provider, error) {
	return newProvider("rucaptcha", "https://rucaptcha.com", apiKey, opts)
}

func newProvider(name, baseURL, apiKey string, opts []Option) (*Provider, error) {
	if apiKey == "" {
		return nil, captcha.NewError(captcha.ErrorBadAuthentication, name, "", "api key is empty")
	}
	p := &Provider{name: name, apiKey: apiKey, baseURL: baseURL}
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
func (p *Provider) Name() string { return p.name }

// Capabilities implements captcha.Provider.
func (p *Provider) Capabilities() captcha.Capabilities { return capabilities }

// Create implements captcha.Provider.
func (p *Provider) Create(ctx context.Context, c captcha.Challenge, sess *captcha.Session) (*captcha.Task, error) {
	form, err := p.buildForm(c, sess)
	if err != nil {
		return nil, err
	}
	form.Set("key", p.apiKey)
	if p.softID != 0 {
		form.Set("soft_id", strconv.Itoa(p.softID))
	}

	body, err := p.http.PostForm(ctx, "in.php", p.baseURL+"/in.php", form)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, captcha.WrapError(captcha.ErrorTaskCreation, p.name, err)
	}
	id, ok := parseOK(body)
	if !ok {
		return nil, p.codeErr(string(body), captcha.ErrorTaskCreation)
	}
	if id == "" {
		return nil, captcha.NewError(captcha.ErrorTaskCreation, p.name, "", "empty captcha id in response")
	}

	slog.Info("CAPTCHA task created", slog.String("provider", p.name), slog.String("taskId", id))
	return captcha.NewTask(id, c.Kind()), nil
}

// Poll implements captcha.Provider. Text answers are read from the plain
// "OK|<answer>" body; structured answers need json=1.
func (p *Provider) Poll(ctx context.Context, task *captcha.Task) (*captcha.Response, error) {
	structured := captcha.VariantOf(task.Kind) != captcha.VariantText
	q := url.Values{
		"key":    {p.apiKey},
		"action": {"get"},
		"id":     {task.ID},
	}
	if structured {
		q.Set("json", "1")
	}
	body, err := p.http.Get(ctx, "res.php", p.baseURL+"/res.php?"+q.Encode())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s res.php: %w", p.name, err)
	}

	if !structured {
		text := strings.TrimSpace(string(body))
		if text == notReady {
			return nil, nil
		}
		answer, ok := parseOK(body)
		if !ok {
			return nil, p.pollErr(task, text)
		}
		if answer == "" {
			return nil, task.Fail(captcha.NewError(captcha.ErrorTaskSolution, p.name, "", "ready but empty solution"))
		}
		return task.Resolve(captcha.TextSolution{Value: answer})
	}

	var resp jsonResult
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s res.php: decode response: %w", p.name, err)
	}
	if resp.Status != 1 {
		code := resp.requestString()
		if code == notReady {
			return nil, nil
		}
		return nil, p.pollErr(task, code)
	}
	sol, err := p.toSolution(task.Kind, resp)
	if err != nil {
		return nil, task.Fail(err)
	}
	return task.Resolve(sol)
}

func (p *Provider) pollErr(task *captcha.Task, code string) error {
	e := p.codeErr(code, captcha.ErrorTaskSolution)
	if e.Kind == captcha.ErrorTaskSolution {
		return task.Fail(e)
	}
	return e
}

// jsonResult is the json=1 envelope. Request holds either an error code, a
// token string or an object, depending on the outcome and the kind.
type jsonResult struct {
	Status    int             `json:"status"`
	Request   json.RawMessage `json:"request"`
	UserAgent string          `json:"useragent"`
}

func (r jsonResult) requestString() string {
	var s string
	if json.Unmarshal(r.Request, &s) == nil {
		return s
	}
	return string(r.Request)
}

func (p *Provider) toSolution(kind captcha.ChallengeKind, r jsonResult) (captcha.Solution, error) {
	bad := func(err error) error {
		return captcha.NewError(captcha.ErrorTaskSolution, p.name, "", fmt.Sprintf("malformed %s solution: %v", kind, err))
	}
	switch kind {
	case captcha.KindGeeTest:
		var s struct {
			Challenge string `json:"geetest_challenge"`
			Validate  string `json:"geetest_validate"`
			SecCode   string `json:"geetest_seccode"`
		}
		if err := json.Unmarshal(r.Request, &s); err != nil {
			return nil, bad(err)
		}
		return captcha.GeeTestV3Solution{Challenge: s.Challenge, Validate: s.Validate, SecCode: s.SecCode}, nil

	case captcha.KindGeeTestV4:
		var s struct {
			CaptchaID     string          `json:"captcha_id"`
			LotNumber     string          `json:"lot_number"`
			PassToken     string          `json:"pass_token"`
			GenTime       wire.FlexString `json:"gen_time"`
			CaptchaOutput string          `json:"captcha_output"`
		}
		if err := json.Unmarshal(r.Request, &s); err != nil {
			return nil, bad(err)
		}
		return captcha.GeeTestV4Solution{
			CaptchaID:     s.CaptchaID,
			LotNumber:     s.LotNumber,
			PassToken:     s.PassToken,
			GenTime:       s.GenTime.String(),
			CaptchaOutput: s.CaptchaOutput,
		}, nil

	case captcha.KindCapy:
		var s struct {
			CaptchaKey   string `json:"captchakey"`
			ChallengeKey string `json:"challengekey"`
			Answer       string `json:"answer"`
		}
		if err := json.Unmarshal(r.Request, &s); err != nil {
			return nil, bad(err)
		}
		return captcha.CapySolution{CaptchaKey: s.CaptchaKey, ChallengeKey: s.ChallengeKey, Answer: s.Answer}, nil

	case captcha.KindTencentCaptcha:
		var s struct {
			AppID   wire.FlexString `json:"appid"`
			Ticket  string          `json:"ticket"`
			Ret     wire.FlexString `json:"ret"`
			RandStr string          `json:"randstr"`
		}
		if err := json.Unmarshal(r.Request, &s); err != nil {
			return nil, bad(err)
		}
		return captcha.TencentSolution{AppID: s.AppID.String(), Ticket: s.Ticket, ReturnCode: s.Ret.String(), RandomString: s.RandStr}, nil

	case captcha.KindTurnstile, captcha.KindDataDome:
		token := r.requestString()
		if token == "" {
			return nil, captcha.NewError(captcha.ErrorTaskSolution, p.name, "", "ready but empty solution")
		}
		return captcha.TokenUserAgentSolution{Token: token, UserAgent: r.UserAgent}, nil
	}
	return nil, captcha.UnsupportedKind(p.name, kind)
}

// Balance implements captcha.BalanceChecker.
func (p *Provider) Balance(ctx context.Context) (float64, error) {
	q := url.Values{"key": {p.apiKey}, "action": {"getbalance"}}
	body, err := p.http.Get(ctx, "res.php", p.baseURL+"/res.php?"+q.Encode())
	if err != nil {
		return 0, fmt.Errorf("%s getbalance: %w", p.name, err)
	}
	text := strings.TrimSpace(string(body))
	bal, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, p.codeErr(text, captcha.ErrorBadAuthentication)
	}
	return bal, nil
}

// Report implements captcha.Reporter.
func (p *Provider) Report(ctx context.Context, id string, kind captcha.ChallengeKind, correct bool) error {
	action := "reportbad"
	if correct {
		action = "reportgood"
	}
	q := url.Values{"key": {p.apiKey}, "action": {action}, "id": {id}}
	body, err := p.http.Get(ctx, "res.php", p.baseURL+"/res.php?"+q.Encode())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return captcha.WrapError(captcha.ErrorTaskReport, p.name, err)
	}
	text := strings.TrimSpace(string(body))
	if text != "OK_REPORT_RECORDED" {
		return p.codeErr(text, captcha.ErrorTaskReport)
	}
	slog.Debug("captcha reported", slog.String("provider", p.name), slog.String("taskId", id), slog.Bool("correct", correct))
	return nil
}

// parseOK splits an "OK|<payload>" body.
func parseOK(body []byte) (string, bool) {
	s := strings.TrimSpace(string(body))
	if s == "OK" {
		return "", true
	}
	payload, found := strings.CutPrefix(s, "OK|")
	if !found {
		return "", false
	}
	return payload, true
}

func (p *Provider) codeErr(code string, stage captcha.ErrorKind) *captcha.Error {
	code = strings.TrimSpace(code)
	return captcha.NewError(classify(code, stage), p.name, code, "")
}
