package anticaptcha

import captcha "github.com/anatolykoptev/go-captcha"

// taskName is a task type. Non-fixed names get "Task" or the flavor's
// proxyless suffix appended depending on whether a caller proxy is used.
type taskName struct {
	base  string
	fixed bool
}

type reportStyle int

const (
	reportAntiCaptcha reportStyle = iota
	reportCapMonster
	reportFeedbackTask
)

type flavor struct {
	name       string
	baseURL    string
	proxyless  string
	numericIDs bool
	report     reportStyle
	caps       captcha.Capabilities
	types      map[captcha.ChallengeKind]taskName
	enterprise map[captcha.ChallengeKind]taskName
}

var antiCaptcha = flavor{
	name:       "anticaptcha",
	baseURL:    "https://api.anti-captcha.com",
	proxyless:  "TaskProxyless",
	numericIDs: true,
	report:     reportAntiCaptcha,
	caps: captcha.Capabilities{
		Kinds: captcha.KindsOf(
			captcha.KindImage,
			captcha.KindRecaptchaV2,
			captcha.KindRecaptchaV3,
			captcha.KindFuncaptcha,
			captcha.KindHCaptcha,
			captcha.KindGeeTest,
			captcha.KindGeeTestV4,
			captcha.KindTurnstile,
		),
		Image: captcha.FeaturePhrase | captcha.FeatureCaseSensitive | captcha.FeatureCharacterSet |
			captcha.FeatureMath | captcha.FeatureMinLength | captcha.FeatureMaxLength |
			captcha.FeatureInstructions | captcha.FeatureLanguageGroup,
		Proxy: captcha.KindsOf(
			captcha.KindRecaptchaV2,
			captcha.KindFuncaptcha,
			captcha.KindHCaptcha,
			captcha.KindGeeTest,
			captcha.KindGeeTestV4,
			captcha.KindTurnstile,
		),
	},
	types: map[captcha.ChallengeKind]taskName{
		captcha.KindImage:       {base: "ImageToTextTask", fixed: true},
		captcha.KindRecaptchaV2: {base: "RecaptchaV2"},
		captcha.KindRecaptchaV3: {base: "RecaptchaV3TaskProxyless", fixed: true},
		captcha.KindFuncaptcha:  {base: "FunCaptcha"},
		captcha.KindHCaptcha:    {base: "HCaptcha"},
		captcha.KindGeeTest:     {base: "GeeTest"},
		captcha.KindGeeTestV4:   {base: "GeeTest"},
		captcha.KindTurnstile:   {base: "Turnstile"},
	},
	enterprise: map[captcha.ChallengeKind]taskName{
		captcha.KindRecaptchaV2: {base: "RecaptchaV2Enterprise"},
	},
}

var capMonster = flavor{
	name:       "capmonster",
	baseURL:    "https://api.capmonster.cloud",
	proxyless:  "TaskProxyless",
	numericIDs: true,
	report:     reportCapMonster,
	caps: captcha.Capabilities{
		Kinds: captcha.KindsOf(
			captcha.KindImage,
			captcha.KindRecaptchaV2,
			captcha.KindRecaptchaV3,
			captcha.KindHCaptcha,
			captcha.KindGeeTest,
			captcha.KindGeeTestV4,
			captcha.KindTurnstile,
		),
		Image: captcha.FeatureCaseSensitive | captcha.FeatureCharacterSet | captcha.FeatureMath,
		Proxy: captcha.KindsOf(
			captcha.KindRecaptchaV2,
			captcha.KindHCaptcha,
			captcha.KindGeeTest,
			captcha.KindGeeTestV4,
			captcha.KindTurnstile,
		),
	},
	types: map[captcha.ChallengeKind]taskName{
		captcha.KindImage:       {base: "ImageToTextTask", fixed: true},
		captcha.KindRecaptchaV2: {base: "RecaptchaV2"},
		captcha.KindRecaptchaV3: {base: "RecaptchaV3TaskProxyless", fixed: true},
		captcha.KindHCaptcha:    {base: "HCaptcha"},
		captcha.KindGeeTest:     {base: "GeeTest"},
		captcha.KindGeeTestV4:   {base: "GeeTest"},
		captcha.KindTurnstile:   {base: "Turnstile"},
	},
	enterprise: map[captcha.ChallengeKind]taskName{
		captcha.KindRecaptchaV2: {base: "RecaptchaV2Enterprise"},
	},
}

var capsolver = flavor{
	name:      "capsolver",
	baseURL:   "https://api.capsolver.com",
	proxyless: "TaskProxyLess",
	report:    reportFeedbackTask,
	caps: captcha.Capabilities{
		Kinds: captcha.KindsOf(
			captcha.KindImage,
			captcha.KindRecaptchaV2,
			captcha.KindRecaptchaV3,
			captcha.KindFuncaptcha,
			captcha.KindGeeTest,
			captcha.KindGeeTestV4,
			captcha.KindTurnstile,
			captcha.KindDataDome,
			captcha.KindAmazonWaf,
		),
		Proxy: captcha.KindsOf(
			captcha.KindRecaptchaV2,
			captcha.KindRecaptchaV3,
			captcha.KindFuncaptcha,
			captcha.KindGeeTest,
			captcha.KindGeeTestV4,
			captcha.KindDataDome,
			captcha.KindAmazonWaf,
		),
	},
	types: map[captcha.ChallengeKind]taskName{
		captcha.KindImage:       {base: "ImageToTextTask", fixed: true},
		captcha.KindRecaptchaV2: {base: "ReCaptchaV2"},
		captcha.KindRecaptchaV3: {base: "ReCaptchaV3"},
		captcha.KindFuncaptcha:  {base: "FunCaptcha"},
		captcha.KindGeeTest:     {base: "GeeTest"},
		captcha.KindGeeTestV4:   {base: "GeeTest"},
		captcha.KindTurnstile:   {base: "AntiTurnstileTaskProxyLess", fixed: true},
		captcha.KindDataDome:    {base: "DatadomeSliderTask", fixed: true},
		captcha.KindAmazonWaf:   {base: "AntiAwsWaf"},
	},
	enterprise: map[captcha.ChallengeKind]taskName{
		captcha.KindRecaptchaV2: {base: "ReCaptchaV2Enterprise"},
		captcha.KindRecaptchaV3: {base: "ReCaptchaV3Enterprise"},
	},
}

// taskType resolves the wire task type for kind.
func (f flavor) taskType(kind captcha.ChallengeKind, proxied, enterprise bool) string {
	n, ok := f.types[kind]
	if enterprise {
		if e, eok := f.enterprise[kind]; eok {
			n, ok = e, true
		}
	}
	if !ok {
		return ""
	}
	if n.fixed {
		return n.base
	}
	if proxied {
		return n.base + "Task"
	}
	return n.base + f.proxyless
}
