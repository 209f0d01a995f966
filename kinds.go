package captcha

import "fmt"

// ChallengeKind identifies the type of human-verification puzzle.
type ChallengeKind int

const (
	KindImage ChallengeKind = iota
	KindText
	KindRecaptchaV2
	KindRecaptchaV3
	KindFuncaptcha
	KindHCaptcha
	KindKeyCaptcha
	KindGeeTest
	KindGeeTestV4
	KindCapy
	KindDataDome
	KindTurnstile
	KindAmazonWaf
	KindCyberSiAra
	KindMtCaptcha
	KindCutCaptcha
	KindFriendlyCaptcha
	KindAtbCaptcha
	KindTencentCaptcha
	KindAudio
	KindRecaptchaMobile
	KindCloudflareChallengePage

	numKinds
)

var kindNames = [numKinds]string{
	KindImage:                   "image",
	KindText:                    "text",
	KindRecaptchaV2:             "recaptcha-v2",
	KindRecaptchaV3:             "recaptcha-v3",
	KindFuncaptcha:              "funcaptcha",
	KindHCaptcha:                "hcaptcha",
	KindKeyCaptcha:              "keycaptcha",
	KindGeeTest:                 "geetest",
	KindGeeTestV4:               "geetest-v4",
	KindCapy:                    "capy",
	KindDataDome:                "datadome",
	KindTurnstile:               "turnstile",
	KindAmazonWaf:               "amazon-waf",
	KindCyberSiAra:              "cybersiara",
	KindMtCaptcha:               "mtcaptcha",
	KindCutCaptcha:              "cutcaptcha",
	KindFriendlyCaptcha:         "friendlycaptcha",
	KindAtbCaptcha:              "atbcaptcha",
	KindTencentCaptcha:          "tencent",
	KindAudio:                   "audio",
	KindRecaptchaMobile:         "recaptcha-mobile",
	KindCloudflareChallengePage: "cloudflare-challenge",
}

func (k ChallengeKind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a known challenge kind.
func (k ChallengeKind) Valid() bool { return k >= 0 && k < numKinds }

// AllKinds returns every known challenge kind in declaration order.
func AllKinds() []ChallengeKind {
	out := make([]ChallengeKind, 0, numKinds)
	for k := ChallengeKind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a kind name (as returned by String) back to its value.
func ParseKind(s string) (ChallengeKind, error) {
	for k, name := range kindNames {
		if name == s {
			return ChallengeKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown challenge kind %q", s)
}
