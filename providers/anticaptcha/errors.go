package anticaptcha

import captcha "github.com/anatolykoptev/go-captcha"

// classify maps an API error code to the taxonomy. Codes that are not
// credential problems keep the kind of the stage that raised them.
func classify(code string, stage captcha.ErrorKind) captcha.ErrorKind {
	switch code {
	case "ERROR_KEY_DOES_NOT_EXIST",
		"ERROR_WRONG_USER_KEY",
		"ERROR_KEY_DENIED_ACCESS",
		"ERROR_IP_NOT_ALLOWED",
		"ERROR_IP_BLOCKED",
		"ERROR_ACCOUNT_SUSPENDED",
		"ERROR_INVALID_KEY":
		return captcha.ErrorBadAuthentication
	case "ERROR_CAPTCHA_UNSOLVABLE",
		"ERROR_NO_SUCH_CAPCHA_ID",
		"ERROR_TASK_TIMEOUT",
		"ERROR_RECAPTCHA_TIMEOUT",
		"ERROR_PROXY_CONNECT_REFUSED",
		"ERROR_PROXY_CONNECT_TIMEOUT",
		"ERROR_PROXY_BANNED",
		"ERROR_FAILED_LOADING_WIDGET":
		if stage == captcha.ErrorTaskSolution {
			return captcha.ErrorTaskSolution
		}
	}
	return stage
}
