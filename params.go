package captcha

import "fmt"

// Challenge is the identifying parameter set of one challenge kind.
type Challenge interface {
	Kind() ChallengeKind
	// Validate reports missing required fields before any network call.
	Validate() error
}

func required(kind ChallengeKind, fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i+1] == "" {
			return &Error{Kind: ErrorTaskCreation, Message: fmt.Sprintf("%s: %s is required", kind, fields[i])}
		}
	}
	return nil
}

// CharacterSet restricts the characters an image answer may contain.
type CharacterSet int

const (
	CharacterSetAny CharacterSet = iota
	CharacterSetNumbers
	CharacterSetLetters
	CharacterSetNumbersOrLetters
	CharacterSetNumbersAndLetters
)

// ImageOptions are optional hints for image and text challenges.
type ImageOptions struct {
	Phrase              bool
	CaseSensitive       bool
	CharacterSet        CharacterSet
	RequiresCalculation bool
	MinLength           int
	MaxLength           int
	Instructions        string
	Language            string // ISO 639-1 code, e.g. "en"
	LanguageGroup       string // e.g. "latin", "cyrillic"
}

// Features returns the optional features these options rely on.
func (o ImageOptions) Features() ImageFeature {
	var f ImageFeature
	if o.Phrase {
		f |= FeaturePhrase
	}
	if o.CaseSensitive {
		f |= FeatureCaseSensitive
	}
	if o.CharacterSet != CharacterSetAny {
		f |= FeatureCharacterSet
	}
	if o.RequiresCalculation {
		f |= FeatureMath
	}
	if o.MinLength > 0 {
		f |= FeatureMinLength
	}
	if o.MaxLength > 0 {
		f |= FeatureMaxLength
	}
	if o.Instructions != "" {
		f |= FeatureInstructions
	}
	if o.Language != "" {
		f |= FeatureLanguage
	}
	if o.LanguageGroup != "" {
		f |= FeatureLanguageGroup
	}
	return f
}

// ImageChallenge is a picture of distorted text.
type ImageChallenge struct {
	Image   []byte
	Options ImageOptions
}

func (ImageChallenge) Kind() ChallengeKind { return KindImage }

func (c ImageChallenge) Validate() error {
	if len(c.Image) == 0 {
		return &Error{Kind: ErrorTaskCreation, Message: "image: image data is required"}
	}
	if c.Options.MinLength > 0 && c.Options.MaxLength > 0 && c.Options.MinLength > c.Options.MaxLength {
		return &Error{Kind: ErrorTaskCreation, Message: "image: min length exceeds max length"}
	}
	return nil
}

// TextChallenge is a textual question.
type TextChallenge struct {
	Text     string
	Language string
}

func (TextChallenge) Kind() ChallengeKind { return KindText }

func (c TextChallenge) Validate() error { return required(KindText, "text", c.Text) }

// RecaptchaV2 is a Google reCAPTCHA v2 checkbox or invisible widget.
type RecaptchaV2 struct {
	SiteKey    string
	SiteURL    string
	DataS      string
	Enterprise bool
	Invisible  bool
}

func (RecaptchaV2) Kind() ChallengeKind { return KindRecaptchaV2 }

func (c RecaptchaV2) Validate() error {
	return required(KindRecaptchaV2, "site key", c.SiteKey, "site url", c.SiteURL)
}

// RecaptchaV3 is a score-based reCAPTCHA v3 challenge.
type RecaptchaV3 struct {
	SiteKey    string
	SiteURL    string
	Action     string
	MinScore   float64
	Enterprise bool
}

func (RecaptchaV3) Kind() ChallengeKind { return KindRecaptchaV3 }

func (c RecaptchaV3) Validate() error {
	if err := required(KindRecaptchaV3, "site key", c.SiteKey, "site url", c.SiteURL); err != nil {
		return err
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return &Error{Kind: ErrorTaskCreation, Message: fmt.Sprintf("recaptcha-v3: min score %.2f out of range", c.MinScore)}
	}
	return nil
}

// Funcaptcha is an Arkose Labs challenge.
type Funcaptcha struct {
	PublicKey  string
	ServiceURL string
	SiteURL    string
	NoJS       bool
	Data       string // JSON blob some sites pass to the enforcement API
}

func (Funcaptcha) Kind() ChallengeKind { return KindFuncaptcha }

func (c Funcaptcha) Validate() error {
	return required(KindFuncaptcha, "public key", c.PublicKey, "site url", c.SiteURL)
}

// HCaptcha is an hCaptcha widget.
type HCaptcha struct {
	SiteKey   string
	SiteURL   string
	Invisible bool
	RqData    string
}

func (HCaptcha) Kind() ChallengeKind { return KindHCaptcha }

func (c HCaptcha) Validate() error {
	return required(KindHCaptcha, "site key", c.SiteKey, "site url", c.SiteURL)
}

// KeyCaptcha carries the four KeyCaptcha page variables.
type KeyCaptcha struct {
	UserID         string
	SessionID      string
	WebServerSign  string
	WebServerSign2 string
	SiteURL        string
}

func (KeyCaptcha) Kind() ChallengeKind { return KindKeyCaptcha }

func (c KeyCaptcha) Validate() error {
	return required(KindKeyCaptcha, "user id", c.UserID, "session id", c.SessionID,
		"web server sign", c.WebServerSign, "web server sign 2", c.WebServerSign2, "site url", c.SiteURL)
}

// GeeTest is a GeeTest v3 slider.
type GeeTest struct {
	GT        string
	Challenge string
	SiteURL   string
	APIServer string
}

func (GeeTest) Kind() ChallengeKind { return KindGeeTest }

func (c GeeTest) Validate() error {
	return required(KindGeeTest, "gt", c.GT, "challenge", c.Challenge, "site url", c.SiteURL)
}

// GeeTestV4 is a GeeTest v4 challenge.
type GeeTestV4 struct {
	CaptchaID string
	SiteURL   string
}

func (GeeTestV4) Kind() ChallengeKind { return KindGeeTestV4 }

func (c GeeTestV4) Validate() error {
	return required(KindGeeTestV4, "captcha id", c.CaptchaID, "site url", c.SiteURL)
}

// Capy is a Capy puzzle.
type Capy struct {
	SiteKey string
	SiteURL string
}

func (Capy) Kind() ChallengeKind { return KindCapy }

func (c Capy) Validate() error {
	return required(KindCapy, "site key", c.SiteKey, "site url", c.SiteURL)
}

// DataDome is a DataDome interstitial; CaptchaURL is the iframe src.
type DataDome struct {
	SiteURL    string
	CaptchaURL string
}

func (DataDome) Kind() ChallengeKind { return KindDataDome }

func (c DataDome) Validate() error {
	return required(KindDataDome, "site url", c.SiteURL, "captcha url", c.CaptchaURL)
}

// Turnstile is a Cloudflare Turnstile widget.
type Turnstile struct {
	SiteKey  string
	SiteURL  string
	Action   string
	Data     string
	PageData string
}

func (Turnstile) Kind() ChallengeKind { return KindTurnstile }

func (c Turnstile) Validate() error {
	return required(KindTurnstile, "site key", c.SiteKey, "site url", c.SiteURL)
}

// AmazonWaf is an AWS WAF captcha.
type AmazonWaf struct {
	SiteKey         string
	IV              string
	Context         string
	SiteURL         string
	ChallengeScript string
	CaptchaScript   string
}

func (AmazonWaf) Kind() ChallengeKind { return KindAmazonWaf }

func (c AmazonWaf) Validate() error {
	return required(KindAmazonWaf, "site key", c.SiteKey, "iv", c.IV, "context", c.Context, "site url", c.SiteURL)
}

// CyberSiAra is a CyberSiARA slider.
type CyberSiAra struct {
	MasterURLID string
	SiteURL     string
}

func (CyberSiAra) Kind() ChallengeKind { return KindCyberSiAra }

func (c CyberSiAra) Validate() error {
	return required(KindCyberSiAra, "master url id", c.MasterURLID, "site url", c.SiteURL)
}

// MtCaptcha is an MTCaptcha widget.
type MtCaptcha struct {
	SiteKey string
	SiteURL string
}

func (MtCaptcha) Kind() ChallengeKind { return KindMtCaptcha }

func (c MtCaptcha) Validate() error {
	return required(KindMtCaptcha, "site key", c.SiteKey, "site url", c.SiteURL)
}

// CutCaptcha is a CutCaptcha widget.
type CutCaptcha struct {
	MiseryKey string
	APIKey    string
	SiteURL   string
}

func (CutCaptcha) Kind() ChallengeKind { return KindCutCaptcha }

func (c CutCaptcha) Validate() error {
	return required(KindCutCaptcha, "misery key", c.MiseryKey, "api key", c.APIKey, "site url", c.SiteURL)
}

// FriendlyCaptcha is a Friendly Captcha widget.
type FriendlyCaptcha struct {
	SiteKey string
	SiteURL string
}

func (FriendlyCaptcha) Kind() ChallengeKind { return KindFriendlyCaptcha }

func (c FriendlyCaptcha) Validate() error {
	return required(KindFriendlyCaptcha, "site key", c.SiteKey, "site url", c.SiteURL)
}

// AtbCaptcha is an aTBCaptcha widget.
type AtbCaptcha struct {
	AppID     string
	APIServer string
	SiteURL   string
}

func (AtbCaptcha) Kind() ChallengeKind { return KindAtbCaptcha }

func (c AtbCaptcha) Validate() error {
	return required(KindAtbCaptcha, "app id", c.AppID, "api server", c.APIServer, "site url", c.SiteURL)
}

// TencentCaptcha is a Tencent slider.
type TencentCaptcha struct {
	AppID   string
	SiteURL string
}

func (TencentCaptcha) Kind() ChallengeKind { return KindTencentCaptcha }

func (c TencentCaptcha) Validate() error {
	return required(KindTencentCaptcha, "app id", c.AppID, "site url", c.SiteURL)
}

// AudioChallenge is a spoken captcha recording.
type AudioChallenge struct {
	Audio    []byte
	Language string
}

func (AudioChallenge) Kind() ChallengeKind { return KindAudio }

func (c AudioChallenge) Validate() error {
	if len(c.Audio) == 0 {
		return &Error{Kind: ErrorTaskCreation, Message: "audio: audio data is required"}
	}
	return nil
}

// RecaptchaMobile is reCAPTCHA embedded in a mobile app.
type RecaptchaMobile struct {
	AppPackageName string
	AppKey         string
	AppAction      string
}

func (RecaptchaMobile) Kind() ChallengeKind { return KindRecaptchaMobile }

func (c RecaptchaMobile) Validate() error {
	return required(KindRecaptchaMobile, "app package name", c.AppPackageName, "app key", c.AppKey)
}

// CloudflareChallengePage is a full Cloudflare "checking your browser" interstitial.
type CloudflareChallengePage struct {
	SiteURL  string
	PageHTML string
}

func (CloudflareChallengePage) Kind() ChallengeKind { return KindCloudflareChallengePage }

func (c CloudflareChallengePage) Validate() error {
	return required(KindCloudflareChallengePage, "site url", c.SiteURL)
}
