package tokenapi

import (
	"encoding/base64"

	captcha "github.com/anatolykoptev/go-captcha"
)

var capabilities = captcha.Capabilities{
	Kinds: captcha.KindsOf(
		captcha.KindImage,
		captcha.KindRecaptchaV2,
		captcha.KindRecaptchaV3,
		captcha.KindHCaptcha,
		captcha.KindTurnstile,
		captcha.KindRecaptchaMobile,
		captcha.KindCloudflareChallengePage,
	),
	Image: captcha.FeatureCaseSensitive | captcha.FeatureMinLength | captcha.FeatureMaxLength,
	Proxy: captcha.KindsOf(
		captcha.KindRecaptchaV2,
		captcha.KindHCaptcha,
		captcha.KindTurnstile,
		captcha.KindCloudflareChallengePage,
	),
}

type proxyBody struct {
	Scheme   string `json:"scheme"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type taskBody struct {
	Type      string         `json:"type"`
	Params    map[string]any `json:"params"`
	Proxy     *proxyBody     `json:"proxy,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
}

func buildTask(c captcha.Challenge, sess *captcha.Session) (*taskBody, error) {
	kind := c.Kind()
	if !capabilities.Supports(kind) {
		return nil, captcha.UnsupportedKind(name, kind)
	}
	t := &taskBody{Type: kind.String(), Params: map[string]any{}}

	if sess.HasProxy() {
		if !capabilities.Proxy.Has(kind) {
			return nil, captcha.UnsupportedSession(name, kind, "proxy")
		}
		px := sess.Proxy
		t.Proxy = &proxyBody{Scheme: string(px.Scheme), Host: px.Host, Port: px.Port, Username: px.Username, Password: px.Password}
	}
	if sess.HasUserAgent() {
		if !capabilities.Proxy.Has(kind) {
			return nil, captcha.UnsupportedSession(name, kind, "user agent")
		}
		t.UserAgent = sess.UserAgent
	}
	if sess.HasCookies() {
		return nil, captcha.UnsupportedSession(name, kind, "cookies")
	}

	switch v := c.(type) {
	case captcha.ImageChallenge:
		if err := captcha.CheckImageOptions(name, capabilities, v.Options); err != nil {
			return nil, err
		}
		t.Params["image"] = base64.StdEncoding.EncodeToString(v.Image)
		if v.Options.CaseSensitive {
			t.Params["case_sensitive"] = true
		}
		if v.Options.MinLength > 0 {
			t.Params["min_length"] = v.Options.MinLength
		}
		if v.Options.MaxLength > 0 {
			t.Params["max_length"] = v.Options.MaxLength
		}
	case captcha.RecaptchaV2:
		t.Params["site_key"] = v.SiteKey
		t.Params["site_url"] = v.SiteURL
		t.Params["invisible"] = v.Invisible
		t.Params["enterprise"] = v.Enterprise
		if v.DataS != "" {
			t.Params["data_s"] = v.DataS
		}
	case captcha.RecaptchaV3:
		t.Params["site_key"] = v.SiteKey
		t.Params["site_url"] = v.SiteURL
		t.Params["action"] = v.Action
		t.Params["min_score"] = v.MinScore
		t.Params["enterprise"] = v.Enterprise
	case captcha.HCaptcha:
		t.Params["site_key"] = v.SiteKey
		t.Params["site_url"] = v.SiteURL
		if v.RqData != "" {
			t.Params["rqdata"] = v.RqData
		}
	case captcha.Turnstile:
		t.Params["site_key"] = v.SiteKey
		t.Params["site_url"] = v.SiteURL
		if v.Action != "" {
			t.Params["action"] = v.Action
		}
		if v.Data != "" {
			t.Params["cdata"] = v.Data
		}
	case captcha.RecaptchaMobile:
		t.Params["app_package"] = v.AppPackageName
		t.Params["app_key"] = v.AppKey
		t.Params["app_action"] = v.AppAction
	case captcha.CloudflareChallengePage:
		if !sess.HasProxy() {
			return nil, captcha.NewError(captcha.ErrorTaskCreation, name, "", "cloudflare challenge page requires a proxy")
		}
		t.Params["site_url"] = v.SiteURL
		if v.PageHTML != "" {
			t.Params["page_html"] = v.PageHTML
		}
	default:
		return nil, captcha.UnsupportedKind(name, kind)
	}
	return t, nil
}

func toSolution(kind captcha.ChallengeKind, s *taskSolution) (captcha.Solution, error) {
	empty := captcha.NewError(captcha.ErrorTaskSolution, name, "", "solved but empty solution")
	if s == nil {
		return nil, empty
	}
	switch captcha.VariantOf(kind) {
	case captcha.VariantTokenUserAgent:
		if s.Token == "" {
			return nil, empty
		}
		return captcha.TokenUserAgentSolution{Token: s.Token, UserAgent: s.UserAgent}, nil
	case captcha.VariantText:
		v := s.Text
		if v == "" {
			v = s.Token
		}
		if v == "" {
			return nil, empty
		}
		return captcha.TextSolution{Value: v}, nil
	}
	return nil, captcha.UnsupportedKind(name, kind)
}
