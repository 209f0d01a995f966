package twocaptcha

import (
	"encoding/base64"
	"net/url"
	"strconv"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/providers/internal/wire"
)

var capabilities = captcha.Capabilities{
	Kinds: captcha.KindsOf(
		captcha.KindImage,
		captcha.KindText,
		captcha.KindRecaptchaV2,
		captcha.KindRecaptchaV3,
		captcha.KindFuncaptcha,
		captcha.KindHCaptcha,
		captcha.KindKeyCaptcha,
		captcha.KindGeeTest,
		captcha.KindGeeTestV4,
		captcha.KindCapy,
		captcha.KindDataDome,
		captcha.KindTurnstile,
		captcha.KindAmazonWaf,
		captcha.KindCyberSiAra,
		captcha.KindMtCaptcha,
		captcha.KindCutCaptcha,
		captcha.KindFriendlyCaptcha,
		captcha.KindAtbCaptcha,
		captcha.KindTencentCaptcha,
		captcha.KindAudio,
	),
	Image: captcha.FeaturePhrase | captcha.FeatureCaseSensitive | captcha.FeatureCharacterSet |
		captcha.FeatureMath | captcha.FeatureMinLength | captcha.FeatureMaxLength |
		captcha.FeatureInstructions | captcha.FeatureLanguage | captcha.FeatureLanguageGroup,
	Proxy: captcha.KindsOf(
		captcha.KindRecaptchaV2,
		captcha.KindRecaptchaV3,
		captcha.KindFuncaptcha,
		captcha.KindHCaptcha,
		captcha.KindGeeTest,
		captcha.KindGeeTestV4,
		captcha.KindCapy,
		captcha.KindDataDome,
		captcha.KindTurnstile,
		captcha.KindAmazonWaf,
		captcha.KindCyberSiAra,
		captcha.KindMtCaptcha,
		captcha.KindCutCaptcha,
		captcha.KindFriendlyCaptcha,
		captcha.KindAtbCaptcha,
		captcha.KindTencentCaptcha,
	),
}

var userAgentKinds = captcha.KindsOf(
	captcha.KindRecaptchaV2,
	captcha.KindRecaptchaV3,
	captcha.KindHCaptcha,
	captcha.KindFuncaptcha,
	captcha.KindCyberSiAra,
	captcha.KindTurnstile,
	captcha.KindDataDome,
)

var languageGroups = map[string]string{
	"cyrillic": "1",
	"latin":    "2",
}

func (p *Provider) sessionFields(form url.Values, kind captcha.ChallengeKind, sess *captcha.Session) error {
	if sess == nil {
		return nil
	}
	if sess.HasProxy() {
		if !capabilities.Proxy.Has(kind) {
			return captcha.UnsupportedSession(p.name, kind, "proxy")
		}
		px := sess.Proxy
		addr := px.Address()
		if px.HasAuth() {
			addr = px.Username + ":" + px.Password + "@" + addr
		}
		form.Set("proxy", addr)
		form.Set("proxytype", proxyType(px.Scheme))
	}
	if sess.HasUserAgent() {
		if !userAgentKinds.Has(kind) {
			return captcha.UnsupportedSession(p.name, kind, "user agent")
		}
		form.Set("userAgent", sess.UserAgent)
	}
	if sess.HasCookies() {
		if kind != captcha.KindRecaptchaV2 {
			return captcha.UnsupportedSession(p.name, kind, "cookies")
		}
		form.Set("cookies", wire.JoinCookies(sess.Cookies, ":", ";"))
	}
	return nil
}

func proxyType(s captcha.ProxyScheme) string {
	switch s {
	case captcha.ProxyHTTPS:
		return "HTTPS"
	case captcha.ProxySOCKS4:
		return "SOCKS4"
	case captcha.ProxySOCKS5:
		return "SOCKS5"
	}
	return "HTTP"
}

func (p *Provider) buildForm(c captcha.Challenge, sess *captcha.Session) (url.Values, error) {
	kind := c.Kind()
	if !capabilities.Supports(kind) {
		return nil, captcha.UnsupportedKind(p.name, kind)
	}
	form := url.Values{}
	if err := p.sessionFields(form, kind, sess); err != nil {
		return nil, err
	}

	switch v := c.(type) {
	case captcha.ImageChallenge:
		form.Set("method", "base64")
		form.Set("body", base64.StdEncoding.EncodeToString(v.Image))
		if err := p.imageOptions(form, v.Options); err != nil {
			return nil, err
		}

	case captcha.TextChallenge:
		form.Set("method", "post")
		form.Set("textcaptcha", v.Text)
		if v.Language != "" {
			form.Set("lang", v.Language)
		}

	case captcha.RecaptchaV2:
		form.Set("method", "userrecaptcha")
		form.Set("googlekey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)
		if v.DataS != "" {
			form.Set("data-s", v.DataS)
		}
		if v.Invisible {
			form.Set("invisible", "1")
		}
		if v.Enterprise {
			form.Set("enterprise", "1")
		}

	case captcha.RecaptchaV3:
		form.Set("method", "userrecaptcha")
		form.Set("version", "v3")
		form.Set("googlekey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)
		if v.Action != "" {
			form.Set("action", v.Action)
		}
		if v.MinScore > 0 {
			form.Set("min_score", strconv.FormatFloat(v.MinScore, 'f', 1, 64))
		}
		if v.Enterprise {
			form.Set("enterprise", "1")
		}

	case captcha.Funcaptcha:
		form.Set("method", "funcaptcha")
		form.Set("publickey", v.PublicKey)
		form.Set("pageurl", v.SiteURL)
		if v.ServiceURL != "" {
			form.Set("surl", v.ServiceURL)
		}
		if v.NoJS {
			form.Set("nojs", "1")
		}
		if v.Data != "" {
			form.Set("data[blob]", v.Data)
		}

	case captcha.HCaptcha:
		form.Set("method", "hcaptcha")
		form.Set("sitekey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)
		if v.Invisible {
			form.Set("invisible", "1")
		}
		if v.RqData != "" {
			form.Set("data", v.RqData)
		}

	case captcha.KeyCaptcha:
		form.Set("method", "keycaptcha")
		form.Set("s_s_c_user_id", v.UserID)
		form.Set("s_s_c_session_id", v.SessionID)
		form.Set("s_s_c_web_server_sign", v.WebServerSign)
		form.Set("s_s_c_web_server_sign2", v.WebServerSign2)
		form.Set("pageurl", v.SiteURL)

	case captcha.GeeTest:
		form.Set("method", "geetest")
		form.Set("gt", v.GT)
		form.Set("challenge", v.Challenge)
		form.Set("pageurl", v.SiteURL)
		if v.APIServer != "" {
			form.Set("api_server", v.APIServer)
		}

	case captcha.GeeTestV4:
		form.Set("method", "geetest_v4")
		form.Set("captcha_id", v.CaptchaID)
		form.Set("pageurl", v.SiteURL)

	case captcha.Capy:
		form.Set("method", "capy")
		form.Set("captchakey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)

	case captcha.DataDome:
		if !sess.HasProxy() || !sess.HasUserAgent() {
			return nil, captcha.NewError(captcha.ErrorTaskCreation, p.name, "", "datadome requires a proxy and a user agent")
		}
		form.Set("method", "datadome")
		form.Set("captcha_url", v.CaptchaURL)
		form.Set("pageurl", v.SiteURL)

	case captcha.Turnstile:
		form.Set("method", "turnstile")
		form.Set("sitekey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)
		if v.Action != "" {
			form.Set("action", v.Action)
		}
		if v.Data != "" {
			form.Set("data", v.Data)
		}
		if v.PageData != "" {
			form.Set("pagedata", v.PageData)
		}

	case captcha.AmazonWaf:
		form.Set("method", "amazon_waf")
		form.Set("sitekey", v.SiteKey)
		form.Set("iv", v.IV)
		form.Set("context", v.Context)
		form.Set("pageurl", v.SiteURL)
		if v.ChallengeScript != "" {
			form.Set("challenge_script", v.ChallengeScript)
		}
		if v.CaptchaScript != "" {
			form.Set("captcha_script", v.CaptchaScript)
		}

	case captcha.CyberSiAra:
		form.Set("method", "cybersiara")
		form.Set("master_url_id", v.MasterURLID)
		form.Set("pageurl", v.SiteURL)

	case captcha.MtCaptcha:
		form.Set("method", "mt_captcha")
		form.Set("sitekey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)

	case captcha.CutCaptcha:
		form.Set("method", "cutcaptcha")
		form.Set("misery_key", v.MiseryKey)
		form.Set("api_key", v.APIKey)
		form.Set("pageurl", v.SiteURL)

	case captcha.FriendlyCaptcha:
		form.Set("method", "friendly_captcha")
		form.Set("sitekey", v.SiteKey)
		form.Set("pageurl", v.SiteURL)

	case captcha.AtbCaptcha:
		form.Set("method", "atb_captcha")
		form.Set("app_id", v.AppID)
		form.Set("api_server", v.APIServer)
		form.Set("pageurl", v.SiteURL)

	case captcha.TencentCaptcha:
		form.Set("method", "tencent")
		form.Set("app_id", v.AppID)
		form.Set("pageurl", v.SiteURL)

	case captcha.AudioChallenge:
		form.Set("method", "audio")
		form.Set("body", base64.StdEncoding.EncodeToString(v.Audio))
		if v.Language != "" {
			form.Set("lang", v.Language)
		}

	default:
		return nil, captcha.UnsupportedKind(p.name, kind)
	}
	return form, nil
}

func (p *Provider) imageOptions(form url.Values, o captcha.ImageOptions) error {
	if o.Phrase {
		form.Set("phrase", "1")
	}
	if o.CaseSensitive {
		form.Set("regsense", "1")
	}
	if o.CharacterSet != captcha.CharacterSetAny {
		form.Set("numeric", strconv.Itoa(int(o.CharacterSet)))
	}
	if o.RequiresCalculation {
		form.Set("calc", "1")
	}
	if o.MinLength > 0 {
		form.Set("min_len", strconv.Itoa(o.MinLength))
	}
	if o.MaxLength > 0 {
		form.Set("max_len", strconv.Itoa(o.MaxLength))
	}
	if o.Instructions != "" {
		form.Set("textinstructions", o.Instructions)
	}
	if o.Language != "" {
		form.Set("lang", o.Language)
	}
	if o.LanguageGroup != "" {
		code, ok := languageGroups[o.LanguageGroup]
		if !ok {
			return captcha.NewError(captcha.ErrorUnsupported, p.name, "", "language group "+o.LanguageGroup+" is not supported")
		}
		form.Set("language", code)
	}
	return nil
}
