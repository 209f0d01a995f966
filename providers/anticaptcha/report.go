package anticaptcha

import (
	"context"

	captcha "github.com/anatolykoptev/go-captcha"
)

// Report implements captcha.Reporter.
func (p *Provider) Report(ctx context.Context, id string, kind captcha.ChallengeKind, correct bool) error {
	endpoint, payload, err := p.reportRequest(id, kind, correct)
	if err != nil {
		return err
	}
	var resp struct {
		apiError
		Status string `json:"status"`
	}
	if err := p.http.PostJSON(ctx, endpoint, p.baseURL+"/"+endpoint, payload, &resp, false); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return captcha.WrapError(captcha.ErrorTaskReport, p.f.name, err)
	}
	if resp.failed() {
		return p.apiErr(resp.apiError, captcha.ErrorTaskReport)
	}
	return nil
}

func (p *Provider) reportRequest(id string, kind captcha.ChallengeKind, correct bool) (string, map[string]any, error) {
	payload := map[string]any{
		"clientKey": p.apiKey,
		"taskId":    p.taskID(id),
	}
	unsupported := captcha.NewError(captcha.ErrorUnsupported, p.f.name, "", "reporting "+kind.String()+" solutions is not supported")

	switch p.f.report {
	case reportFeedbackTask:
		payload["result"] = map[string]any{"invalid": !correct}
		return "feedbackTask", payload, nil

	case reportCapMonster:
		if correct {
			return "", nil, unsupported
		}
		switch kind {
		case captcha.KindImage:
			return "reportIncorrectImageCaptcha", payload, nil
		case captcha.KindRecaptchaV2, captcha.KindRecaptchaV3, captcha.KindHCaptcha, captcha.KindTurnstile:
			return "reportIncorrectTokenCaptcha", payload, nil
		}

	default:
		switch {
		case correct && (kind == captcha.KindRecaptchaV2 || kind == captcha.KindRecaptchaV3):
			return "reportCorrectRecaptcha", payload, nil
		case correct:
		case kind == captcha.KindImage:
			return "reportIncorrectImageCaptcha", payload, nil
		case kind == captcha.KindRecaptchaV2 || kind == captcha.KindRecaptchaV3:
			return "reportIncorrectRecaptcha", payload, nil
		case kind == captcha.KindHCaptcha:
			return "reportIncorrectHcaptcha", payload, nil
		}
	}
	return "", nil, unsupported
}
