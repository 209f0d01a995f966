package main

import (
	"github.com/anatolykoptev/go-stealth/ratelimit"
	"github.com/spf13/viper"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/metrics"
	"github.com/anatolykoptev/go-captcha/providers"
	"github.com/anatolykoptev/go-captcha/transport"
)

// openService builds the provider named in v and wraps it in a Service.
// m may be nil.
func openService(v *viper.Viper, m *metrics.Metrics) (*captcha.Service, error) {
	topts := transport.Options{Proxy: v.GetString("api-proxy")}
	if n := v.GetInt("rate-limit"); n > 0 {
		rl := ratelimit.DefaultConfig
		rl.RequestsPerWindow = n
		topts.RateLimit = rl
	}
	tc, err := transport.New(topts)
	if err != nil {
		return nil, err
	}

	p, err := providers.Open(v.GetString("provider"), providers.Credentials{
		APIKey:       v.GetString("api-key"),
		ClientID:     v.GetString("client-id"),
		ClientSecret: v.GetString("client-secret"),
		Username:     v.GetString("username"),
		Password:     v.GetString("password"),
	}, providers.Options{
		BaseURL:   v.GetString("base-url"),
		SoftID:    v.GetInt("soft-id"),
		Transport: tc,
	})
	if err != nil {
		return nil, err
	}

	cfg := captcha.Config{
		Timeout:          v.GetDuration("timeout"),
		PollingInterval:  v.GetDuration("polling-interval"),
		InitialDelay:     v.GetDuration("initial-delay"),
		BalanceWarnLevel: v.GetFloat64("balance-warn"),
	}
	if m != nil {
		cfg.MetricsHook = m.Hook()
	}
	return captcha.NewService(p, cfg)
}
