package twocaptcha

import captcha "github.com/anatolykoptev/go-captcha"

func classify(code string, stage captcha.ErrorKind) captcha.ErrorKind {
	switch code {
	case "ERROR_WRONG_USER_KEY",
		"ERROR_KEY_DOES_NOT_EXIST",
		"ERROR_IP_NOT_ALLOWED",
		"IP_BANNED",
		"ERROR_IP_BANNED",
		"ERROR_ACCOUNT_SUSPENDED":
		return captcha.ErrorBadAuthentication
	case "ERROR_CAPTCHA_UNSOLVABLE",
		"ERROR_WRONG_CAPTCHA_ID",
		"ERROR_WRONG_ID_FORMAT",
		"ERROR_EMPTY_ACTION",
		"ERROR_PROXY_CONNECTION_FAILED",
		"ERROR_BAD_PROXY":
		if stage == captcha.ErrorTaskSolution {
			return captcha.ErrorTaskSolution
		}
	}
	return stage
}
