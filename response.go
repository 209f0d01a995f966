package captcha

import (
	"fmt"
	"strconv"
	"time"
)

// Variant names the shape of a solution payload.
type Variant int

const (
	VariantText Variant = iota
	VariantGeeTestV3
	VariantGeeTestV4
	VariantCapy
	VariantTokenUserAgent
	VariantTencent
)

func (v Variant) String() string {
	switch v {
	case VariantText:
		return "text"
	case VariantGeeTestV3:
		return "geetest-v3"
	case VariantGeeTestV4:
		return "geetest-v4"
	case VariantCapy:
		return "capy"
	case VariantTokenUserAgent:
		return "token+useragent"
	case VariantTencent:
		return "tencent"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// VariantOf returns the solution variant every response for kind must carry.
func VariantOf(kind ChallengeKind) Variant {
	switch kind {
	case KindGeeTest:
		return VariantGeeTestV3
	case KindGeeTestV4:
		return VariantGeeTestV4
	case KindCapy:
		return VariantCapy
	case KindTurnstile, KindDataDome, KindCloudflareChallengePage:
		return VariantTokenUserAgent
	case KindTencentCaptcha:
		return VariantTencent
	}
	return VariantText
}

// Solution is implemented only by the variant types in this package.
type Solution interface {
	Variant() Variant
}

// TextSolution is a plain token or recognized text.
type TextSolution struct {
	Value string
}

// GeeTestV3Solution is the challenge/validate/seccode triple.
type GeeTestV3Solution struct {
	Challenge string
	Validate  string
	SecCode   string
}

// GeeTestV4Solution is the quintuple returned for GeeTest v4.
type GeeTestV4Solution struct {
	CaptchaID     string
	LotNumber     string
	PassToken     string
	GenTime       string
	CaptchaOutput string
}

// CapySolution holds the Capy puzzle answer.
type CapySolution struct {
	CaptchaKey   string
	ChallengeKey string
	Answer       string
}

// TokenUserAgentSolution is a token or cookie that is only valid together with
// the user agent the provider solved it with.
type TokenUserAgentSolution struct {
	Token     string
	UserAgent string
}

// TencentSolution holds the Tencent captcha verification result.
type TencentSolution struct {
	AppID        string
	Ticket       string
	ReturnCode   string
	RandomString string
}

func (TextSolution) Variant() Variant           { return VariantText }
func (GeeTestV3Solution) Variant() Variant      { return VariantGeeTestV3 }
func (GeeTestV4Solution) Variant() Variant      { return VariantGeeTestV4 }
func (CapySolution) Variant() Variant           { return VariantCapy }
func (TokenUserAgentSolution) Variant() Variant { return VariantTokenUserAgent }
func (TencentSolution) Variant() Variant        { return VariantTencent }

// Response is the provider-independent result of a solve call.
type Response struct {
	ID         string
	Kind       ChallengeKind
	ReceivedAt time.Time

	solution Solution
}

// NewResponse builds the response for task. The solution must be of the
// variant mapped to task.Kind.
func NewResponse(task *Task, sol Solution) (*Response, error) {
	if sol == nil {
		return nil, fmt.Errorf("nil solution for %s task %s", task.Kind, task.ID)
	}
	if want := VariantOf(task.Kind); sol.Variant() != want {
		return nil, fmt.Errorf("solution variant %s does not match %s (want %s)", sol.Variant(), task.Kind, want)
	}
	return &Response{
		ID:         task.ID,
		Kind:       task.Kind,
		ReceivedAt: time.Now(),
		solution:   sol,
	}, nil
}

// Solution returns the populated variant.
func (r *Response) Solution() Solution { return r.solution }

// Text returns the plain-string solution. ok is false for structured variants.
func (r *Response) Text() (text string, ok bool) {
	s, ok := r.solution.(TextSolution)
	return s.Value, ok
}

// NumericID parses the provider task ID as an integer for providers that use numeric IDs.
func (r *Response) NumericID() (int64, error) {
	return strconv.ParseInt(r.ID, 10, 64)
}

// SolutionAs returns the solution of r as T.
func SolutionAs[T Solution](r *Response) (T, bool) {
	s, ok := r.solution.(T)
	return s, ok
}
