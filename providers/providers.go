// Package providers opens a reference adapter by name.
package providers

import (
	"fmt"
	"sort"
	"strings"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/providers/anticaptcha"
	"github.com/anatolykoptev/go-captcha/providers/captchacoder"
	"github.com/anatolykoptev/go-captcha/providers/tokenapi"
	"github.com/anatolykoptev/go-captcha/providers/twocaptcha"
	"github.com/anatolykoptev/go-captcha/transport"
)

// Credentials carries whichever secret a provider needs. API-key providers
// read APIKey; tokenapi reads the OAuth fields.
type Credentials struct {
	APIKey       string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Options apply to every provider.
type Options struct {
	BaseURL   string
	SoftID    int
	Transport *transport.Client
}

type opener func(Credentials, Options) (captcha.Provider, error)

var registry = map[string]opener{
	"anticaptcha": func(c Credentials, o Options) (captcha.Provider, error) {
		return anticaptcha.NewAntiCaptcha(c.APIKey, anticaptchaOpts(o)...)
	},
	"capmonster": func(c Credentials, o Options) (captcha.Provider, error) {
		return anticaptcha.NewCapMonster(c.APIKey, anticaptchaOpts(o)...)
	},
	"capsolver": func(c Credentials, o Options) (captcha.Provider, error) {
		return anticaptcha.NewCapsolver(c.APIKey, anticaptchaOpts(o)...)
	},
	"twocaptcha": func(c Credentials, o Options) (captcha.Provider, error) {
		return twocaptcha.New(c.APIKey, twocaptchaOpts(o)...)
	},
	"rucaptcha": func(c Credentials, o Options) (captcha.Provider, error) {
		return twocaptcha.NewRuCaptcha(c.APIKey, twocaptchaOpts(o)...)
	},
	"captchacoder": func(c Credentials, o Options) (captcha.Provider, error) {
		var opts []captchacoder.Option
		if o.BaseURL != "" {
			opts = append(opts, captchacoder.WithBaseURL(o.BaseURL))
		}
		if o.Transport != nil {
			opts = append(opts, captchacoder.WithTransport(o.Transport))
		}
		return captchacoder.New(c.APIKey, opts...)
	},
	"tokenapi": func(c Credentials, o Options) (captcha.Provider, error) {
		var opts []tokenapi.Option
		if o.BaseURL != "" {
			opts = append(opts, tokenapi.WithBaseURL(o.BaseURL))
		}
		if o.Transport != nil {
			opts = append(opts, tokenapi.WithTransport(o.Transport))
		}
		return tokenapi.New(tokenapi.Credentials{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Username:     c.Username,
			Password:     c.Password,
		}, opts...)
	},
}

// Names lists the registered providers in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open constructs the named provider.
func Open(name string, creds Credentials, opts Options) (captcha.Provider, error) {
	open, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return open(creds, opts)
}

func anticaptchaOpts(o Options) []anticaptcha.Option {
	var opts []anticaptcha.Option
	if o.BaseURL != "" {
		opts = append(opts, anticaptcha.WithBaseURL(o.BaseURL))
	}
	if o.SoftID != 0 {
		opts = append(opts, anticaptcha.WithSoftID(o.SoftID))
	}
	if o.Transport != nil {
		opts = append(opts, anticaptcha.WithTransport(o.Transport))
	}
	return opts
}

func twocaptchaOpts(o Options) []twocaptcha.Option {
	var opts []twocaptcha.Option
	if o.BaseURL != "" {
		opts = append(opts, twocaptcha.WithBaseURL(o.BaseURL))
	}
	if o.SoftID != 0 {
		opts = append(opts, twocaptcha.WithSoftID(o.SoftID))
	}
	if o.Transport != nil {
		opts = append(opts, twocaptcha.WithTransport(o.Transport))
	}
	return opts
}
