package anticaptcha

import (
	"encoding/base64"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/providers/internal/wire"
)

// userAgentKinds accept a caller user agent.
var userAgentKinds = captcha.KindsOf(
	captcha.KindRecaptchaV2,
	captcha.KindFuncaptcha,
	captcha.KindHCaptcha,
	captcha.KindGeeTest,
	captcha.KindGeeTestV4,
	captcha.KindTurnstile,
	captcha.KindDataDome,
)

// sessionFields validates sess for kind and returns the task fields it maps to.
func (p *Provider) sessionFields(kind captcha.ChallengeKind, sess *captcha.Session) (map[string]any, bool, error) {
	fields := map[string]any{}
	if sess == nil {
		return fields, false, nil
	}
	proxied := false
	if sess.HasProxy() {
		if !p.f.caps.Proxy.Has(kind) {
			return nil, false, captcha.UnsupportedSession(p.f.name, kind, "proxy")
		}
		px := sess.Proxy
		fields["proxyType"] = string(px.Scheme)
		fields["proxyAddress"] = px.Host
		fields["proxyPort"] = px.Port
		if px.HasAuth() {
			fields["proxyLogin"] = px.Username
			fields["proxyPassword"] = px.Password
		}
		proxied = true
	}
	if sess.HasUserAgent() {
		if !userAgentKinds.Has(kind) {
			return nil, false, captcha.UnsupportedSession(p.f.name, kind, "user agent")
		}
		fields["userAgent"] = sess.UserAgent
	}
	if sess.HasCookies() {
		if kind != captcha.KindRecaptchaV2 {
			return nil, false, captcha.UnsupportedSession(p.f.name, kind, "cookies")
		}
		fields["cookies"] = wire.JoinCookies(sess.Cookies, "=", "; ")
	}
	return fields, proxied, nil
}

func (p *Provider) buildTask(c captcha.Challenge, sess *captcha.Session) (map[string]any, error) {
	kind := c.Kind()
	if !p.f.caps.Supports(kind) {
		return nil, captcha.UnsupportedKind(p.f.name, kind)
	}
	task, proxied, err := p.sessionFields(kind, sess)
	if err != nil {
		return nil, err
	}
	enterprise := false

	switch v := c.(type) {
	case captcha.ImageChallenge:
		if err := captcha.CheckImageOptions(p.f.name, p.f.caps, v.Options); err != nil {
			return nil, err
		}
		task["body"] = base64.StdEncoding.EncodeToString(v.Image)
		if err := p.imageOptions(task, v.Options); err != nil {
			return nil, err
		}

	case captcha.RecaptchaV2:
		enterprise = v.Enterprise
		task["websiteURL"] = v.SiteURL
		task["websiteKey"] = v.SiteKey
		if v.DataS != "" {
			task["recaptchaDataSValue"] = v.DataS
		}
		if v.Invisible {
			task["isInvisible"] = true
		}

	case captcha.RecaptchaV3:
		enterprise = v.Enterprise
		task["websiteURL"] = v.SiteURL
		task["websiteKey"] = v.SiteKey
		task["pageAction"] = v.Action
		if v.MinScore > 0 {
			task["minScore"] = v.MinScore
		}
		if v.Enterprise && p.f.enterprise[kind].base == "" {
			task["isEnterprise"] = true
		}

	case captcha.Funcaptcha:
		if v.NoJS {
			return nil, p.unsupportedField(kind, "nojs")
		}
		task["websiteURL"] = v.SiteURL
		task["websitePublicKey"] = v.PublicKey
		if v.ServiceURL != "" {
			task["funcaptchaApiJSSubdomain"] = v.ServiceURL
		}
		if v.Data != "" {
			task["data"] = v.Data
		}

	case captcha.HCaptcha:
		task["websiteURL"] = v.SiteURL
		task["websiteKey"] = v.SiteKey
		if v.Invisible {
			task["isInvisible"] = true
		}
		if v.RqData != "" {
			task["enterprisePayload"] = map[string]any{"rqdata": v.RqData}
		}

	case captcha.GeeTest:
		task["websiteURL"] = v.SiteURL
		task["gt"] = v.GT
		task["challenge"] = v.Challenge
		if v.APIServer != "" {
			task["geetestApiServerSubdomain"] = v.APIServer
		}

	case captcha.GeeTestV4:
		task["websiteURL"] = v.SiteURL
		task["version"] = 4
		if p.f.report == reportFeedbackTask {
			task["captchaId"] = v.CaptchaID
		} else {
			task["gt"] = v.CaptchaID
			task["initParameters"] = map[string]any{"captcha_id": v.CaptchaID}
		}

	case captcha.Turnstile:
		task["websiteURL"] = v.SiteURL
		task["websiteKey"] = v.SiteKey
		if p.f.report == reportFeedbackTask {
			if v.PageData != "" {
				return nil, p.unsupportedField(kind, "page data")
			}
			meta := map[string]any{}
			if v.Action != "" {
				meta["action"] = v.Action
			}
			if v.Data != "" {
				meta["cdata"] = v.Data
			}
			if len(meta) > 0 {
				task["metadata"] = meta
			}
		} else {
			if v.Action != "" {
				task["action"] = v.Action
			}
			if v.Data != "" {
				task["cData"] = v.Data
			}
			if v.PageData != "" {
				task["chlPageData"] = v.PageData
			}
		}

	case captcha.DataDome:
		if !proxied || !sess.HasUserAgent() {
			return nil, captcha.NewError(captcha.ErrorTaskCreation, p.f.name, "", "datadome requires a proxy and a user agent")
		}
		task["websiteURL"] = v.SiteURL
		task["captchaUrl"] = v.CaptchaURL

	case captcha.AmazonWaf:
		if v.CaptchaScript != "" {
			return nil, p.unsupportedField(kind, "captcha script")
		}
		task["websiteURL"] = v.SiteURL
		task["awsKey"] = v.SiteKey
		task["awsIv"] = v.IV
		task["awsContext"] = v.Context
		if v.ChallengeScript != "" {
			task["awsChallengeJS"] = v.ChallengeScript
		}

	default:
		return nil, captcha.UnsupportedKind(p.f.name, kind)
	}

	task["type"] = p.f.taskType(kind, proxied, enterprise)
	return task, nil
}

// unsupportedField rejects a challenge field the task payload has no slot for.
func (p *Provider) unsupportedField(kind captcha.ChallengeKind, field string) error {
	return captcha.NewError(captcha.ErrorUnsupported, p.f.name, "", field+" is not supported for "+kind.String())
}

func (p *Provider) imageOptions(task map[string]any, o captcha.ImageOptions) error {
	if o.Phrase {
		task["phrase"] = true
	}
	if o.CaseSensitive {
		task["case"] = true
	}
	switch o.CharacterSet {
	case captcha.CharacterSetAny:
	case captcha.CharacterSetNumbers:
		task["numeric"] = 1
	case captcha.CharacterSetLetters:
		task["numeric"] = 2
	default:
		return captcha.NewError(captcha.ErrorUnsupported, p.f.name, "", "character set must be numbers or letters")
	}
	if o.RequiresCalculation {
		task["math"] = true
	}
	if o.MinLength > 0 {
		task["minLength"] = o.MinLength
	}
	if o.MaxLength > 0 {
		task["maxLength"] = o.MaxLength
	}
	if o.Instructions != "" {
		task["comment"] = o.Instructions
	}
	switch o.LanguageGroup {
	case "":
	case "latin":
		task["languagePool"] = "en"
	case "cyrillic":
		task["languagePool"] = "rn"
	default:
		return captcha.NewError(captcha.ErrorUnsupported, p.f.name, "", "language group "+o.LanguageGroup+" is not supported")
	}
	return nil
}
