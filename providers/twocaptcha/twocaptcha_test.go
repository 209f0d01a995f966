package twocaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/stretchr/testify/require"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/transport"
)

type fakeAPI struct {
	mu      sync.Mutex
	created []url.Values
	polled  []url.Values
	polls   atomic.Int32

	inResponse  string
	resResponse func(q url.Values, n int) string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/in.php":
		_ = r.ParseForm()
		f.mu.Lock()
		f.created = append(f.created, r.PostForm)
		f.mu.Unlock()
		_, _ = w.Write([]byte(f.inResponse))
	case "/res.php":
		q := r.URL.Query()
		n := 0
		if q.Get("action") == "get" {
			n = int(f.polls.Add(1))
		}
		f.mu.Lock()
		f.polled = append(f.polled, q)
		f.mu.Unlock()
		_, _ = w.Write([]byte(f.resResponse(q, n)))
	default:
		http.NotFound(w, r)
	}
}

func newTestProvider(t *testing.T, api *fakeAPI) *Provider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	tc, err := transport.New(transport.Options{
		Doer:    transport.HTTPDoer{},
		Backoff: stealth.BackoffConfig{InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Multiplier: 2},
	})
	require.NoError(t, err)
	p, err := New("secret", WithBaseURL(srv.URL), WithTransport(tc), WithSoftID(3898))
	require.NoError(t, err)
	return p
}

func fastService(t *testing.T, p captcha.Provider) *captcha.Service {
	t.Helper()
	svc, err := captcha.NewService(p, captcha.Config{Timeout: 5 * time.Second, PollingInterval: time.Millisecond})
	require.NoError(t, err)
	return svc
}

func TestSolveImage(t *testing.T) {
	api := &fakeAPI{
		inResponse: "OK|42",
		resResponse: func(_ url.Values, n int) string {
			if n < 4 {
				return "CAPCHA_NOT_READY"
			}
			return "OK|w68hp"
		},
	}
	p := newTestProvider(t, api)

	resp, err := fastService(t, p).SolveImage(context.Background(), captcha.ImageChallenge{
		Image:   []byte("gif"),
		Options: captcha.ImageOptions{Phrase: true, LanguageGroup: "cyrillic", MinLength: 4},
	})
	require.NoError(t, err)
	require.Equal(t, "42", resp.ID)
	text, ok := resp.Text()
	require.True(t, ok)
	require.Equal(t, "w68hp", text)
	require.EqualValues(t, 4, api.polls.Load())

	require.Len(t, api.created, 1)
	form := api.created[0]
	require.Equal(t, "base64", form.Get("method"))
	require.Equal(t, "secret", form.Get("key"))
	require.Equal(t, "3898", form.Get("soft_id"))
	require.Equal(t, "1", form.Get("phrase"))
	require.Equal(t, "1", form.Get("language"))
	require.Equal(t, "4", form.Get("min_len"))
	require.Equal(t, "42", api.polled[0].Get("id"))
	require.Empty(t, api.polled[0].Get("json"))
}

func TestCreateErrorSkipsPolling(t *testing.T) {
	tests := []struct {
		body string
		want error
	}{
		{"ERROR_KEY_DOES_NOT_EXIST", captcha.ErrBadAuthentication},
		{"ERROR_ZERO_BALANCE", captcha.ErrTaskCreation},
		{"ERROR_BAD_PARAMETERS", captcha.ErrTaskCreation},
		{"ERROR_GOOGLEKEY", captcha.ErrTaskCreation},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			api := &fakeAPI{inResponse: tt.body, resResponse: func(url.Values, int) string { return "CAPCHA_NOT_READY" }}
			p := newTestProvider(t, api)

			_, err := fastService(t, p).SolveRecaptchaV2(context.Background(), captcha.RecaptchaV2{SiteKey: "k", SiteURL: "https://example.com"}, nil)
			require.ErrorIs(t, err, tt.want)
			require.Contains(t, err.Error(), tt.body)
			require.Zero(t, api.polls.Load())
		})
	}
}

func TestPollUnsolvable(t *testing.T) {
	api := &fakeAPI{inResponse: "OK|1", resResponse: func(url.Values, int) string { return "ERROR_CAPTCHA_UNSOLVABLE" }}
	p := newTestProvider(t, api)

	task := captcha.NewTask("1", captcha.KindHCaptcha)
	_, err := p.Poll(context.Background(), task)
	require.ErrorIs(t, err, captcha.ErrTaskSolution)
	require.True(t, task.Completed())
}

func TestStructuredSolutions(t *testing.T) {
	tests := []struct {
		name  string
		c     captcha.Challenge
		body  string
		check func(t *testing.T, r *captcha.Response)
	}{
		{
			name: "geetest",
			c:    captcha.GeeTest{GT: "gt", Challenge: "ch", SiteURL: "https://example.com"},
			body: `{"status":1,"request":{"geetest_challenge":"ch2","geetest_validate":"val","geetest_seccode":"val|jordan"}}`,
			check: func(t *testing.T, r *captcha.Response) {
				sol, ok := captcha.SolutionAs[captcha.GeeTestV3Solution](r)
				require.True(t, ok)
				require.Equal(t, captcha.GeeTestV3Solution{Challenge: "ch2", Validate: "val", SecCode: "val|jordan"}, sol)
			},
		},
		{
			name: "capy",
			c:    captcha.Capy{SiteKey: "PUZZLE_x", SiteURL: "https://example.com"},
			body: `{"status":1,"request":{"captchakey":"ck","challengekey":"chk","answer":"ans"}}`,
			check: func(t *testing.T, r *captcha.Response) {
				sol, ok := captcha.SolutionAs[captcha.CapySolution](r)
				require.True(t, ok)
				require.Equal(t, "ans", sol.Answer)
			},
		},
		{
			name: "tencent",
			c:    captcha.TencentCaptcha{AppID: "190014885", SiteURL: "https://example.com"},
			body: `{"status":1,"request":{"appid":190014885,"ticket":"tr03","ret":0,"randstr":"@KVN"}}`,
			check: func(t *testing.T, r *captcha.Response) {
				sol, ok := captcha.SolutionAs[captcha.TencentSolution](r)
				require.True(t, ok)
				require.Equal(t, captcha.TencentSolution{AppID: "190014885", Ticket: "tr03", ReturnCode: "0", RandomString: "@KVN"}, sol)
			},
		},
		{
			name: "turnstile",
			c:    captcha.Turnstile{SiteKey: "0x4AAA", SiteURL: "https://example.com"},
			body: `{"status":1,"request":"0.WoGeDojxQzHCCk023JRjfxv23olYh37jFdvPrcqmNeQ7PbSYIEuiBTK2SR_GdjfMitYEC23Gm7Vt93U1CPcI6aIFEhG-ffe1i9e6tIfIlYCFtb7OMxTB4tKCyTdpiaA.SP5YT77nuMNdOhZlvoBWAQ.da6448d22df7dd92f56a9fcf6d7138e5d4cb5b4d9f3fc1f1f4c05ceb28bd2a2e","useragent":"Mozilla/5.0"}`,
			check: func(t *testing.T, r *captcha.Response) {
				sol, ok := captcha.SolutionAs[captcha.TokenUserAgentSolution](r)
				require.True(t, ok)
				require.Equal(t, "Mozilla/5.0", sol.UserAgent)
				require.NotEmpty(t, sol.Token)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				inResponse: "OK|77",
				resResponse: func(q url.Values, n int) string {
					require.Equal(t, "1", q.Get("json"))
					if n == 1 {
						return `{"status":0,"request":"CAPCHA_NOT_READY"}`
					}
					return tt.body
				},
			}
			p := newTestProvider(t, api)

			resp, err := fastService(t, p).Solve(context.Background(), tt.c, nil)
			require.NoError(t, err)
			require.Equal(t, captcha.VariantOf(tt.c.Kind()), resp.Solution().Variant())
			tt.check(t, resp)
		})
	}
}

func TestSessionForm(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{})

	form, err := p.buildForm(captcha.RecaptchaV2{SiteKey: "k", SiteURL: "u"}, &captcha.Session{
		Proxy:     &captcha.Proxy{Scheme: captcha.ProxySOCKS5, Host: "1.2.3.4", Port: 1080, Username: "u", Password: "p"},
		UserAgent: "UA",
		Cookies:   map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	require.Equal(t, "userrecaptcha", form.Get("method"))
	require.Equal(t, "u:p@1.2.3.4:1080", form.Get("proxy"))
	require.Equal(t, "SOCKS5", form.Get("proxytype"))
	require.Equal(t, "UA", form.Get("userAgent"))
	require.Equal(t, "a:1;b:2", form.Get("cookies"))

	_, err = p.buildForm(captcha.ImageChallenge{Image: []byte{1}}, &captcha.Session{Proxy: &captcha.Proxy{Scheme: captcha.ProxyHTTP, Host: "h", Port: 1}})
	require.ErrorIs(t, err, captcha.ErrUnsupported)

	_, err = p.buildForm(captcha.Turnstile{SiteKey: "k", SiteURL: "u"}, &captcha.Session{Cookies: map[string]string{"a": "b"}})
	require.ErrorIs(t, err, captcha.ErrUnsupported)

	_, err = p.buildForm(captcha.DataDome{SiteURL: "u", CaptchaURL: "c"}, nil)
	require.ErrorIs(t, err, captcha.ErrTaskCreation)

	_, err = p.buildForm(captcha.RecaptchaMobile{AppPackageName: "a", AppKey: "k"}, nil)
	require.ErrorIs(t, err, captcha.ErrUnsupported)
}

func TestRecaptchaV3Form(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{})
	form, err := p.buildForm(captcha.RecaptchaV3{SiteKey: "k", SiteURL: "u", Action: "login", MinScore: 0.3, Enterprise: true}, nil)
	require.NoError(t, err)
	require.Equal(t, "v3", form.Get("version"))
	require.Equal(t, "login", form.Get("action"))
	require.Equal(t, "0.3", form.Get("min_score"))
	require.Equal(t, "1", form.Get("enterprise"))
}

func TestBalanceAndReport(t *testing.T) {
	api := &fakeAPI{resResponse: func(q url.Values, _ int) string {
		switch q.Get("action") {
		case "getbalance":
			return "12.3456"
		case "reportbad":
			return "OK_REPORT_RECORDED"
		}
		return "ERROR_DUPLICATE_REPORT"
	}}
	p := newTestProvider(t, api)

	bal, err := p.Balance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 12.3456, bal, 1e-9)

	require.NoError(t, p.Report(context.Background(), "42", captcha.KindImage, false))
	err = p.Report(context.Background(), "42", captcha.KindImage, true)
	require.ErrorIs(t, err, captcha.ErrTaskReport)
}

func TestBalanceBadKey(t *testing.T) {
	api := &fakeAPI{resResponse: func(url.Values, int) string { return "ERROR_WRONG_USER_KEY" }}
	_, err := newTestProvider(t, api).Balance(context.Background())
	require.ErrorIs(t, err, captcha.ErrBadAuthentication)
}

func TestParseOK(t *testing.T) {
	tests := []struct {
		body    string
		payload string
		ok      bool
	}{
		{"OK|123", "123", true},
		{"OK|a|b", "a|b", true},
		{"OK", "", true},
		{"ERROR_ZERO_BALANCE", "", false},
		{"  OK|x\n", "x", true},
	}
	for _, tt := range tests {
		payload, ok := parseOK([]byte(tt.body))
		if payload != tt.payload || ok != tt.ok {
			t.Fatalf("parseOK(%q) = %q, %v; want %q, %v", tt.body, payload, ok, tt.payload, tt.ok)
		}
	}
}
