// Command captchactl solves captchas and manages solver accounts from the shell.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CAPTCHA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "captchactl",
		Short:         "Solve captchas through third-party solving services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if file := v.GetString("config"); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			level := slog.LevelInfo
			if v.GetBool("debug") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.StringP("provider", "p", "twocaptcha", "solver service name")
	pf.String("api-key", "", "API key (env CAPTCHA_API_KEY)")
	pf.String("client-id", "", "OAuth client id for token-based providers")
	pf.String("client-secret", "", "OAuth client secret for token-based providers")
	pf.String("username", "", "account username for token-based providers")
	pf.String("password", "", "account password for token-based providers")
	pf.String("base-url", "", "override the provider API host")
	pf.String("api-proxy", "", "proxy used to reach the solver API")
	pf.Int("soft-id", 0, "developer software id")
	pf.Int("rate-limit", 0, "max API requests per endpoint per rate window, 0 disables")
	pf.Duration("timeout", 0, "overall solve deadline (default 3m)")
	pf.Duration("polling-interval", 0, "wait between status polls (default 5s)")
	pf.Duration("initial-delay", 0, "extra wait before the first poll")
	pf.Float64("balance-warn", 0, "warn when the balance drops below this value")
	pf.Bool("debug", false, "debug logging")

	root.AddCommand(
		newBalanceCommand(v),
		newSolveCommand(v),
		newReportCommand(v),
		newProvidersCommand(),
	)
	return root
}
