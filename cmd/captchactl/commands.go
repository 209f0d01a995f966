package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	captcha "github.com/anatolykoptev/go-captcha"
	"github.com/anatolykoptev/go-captcha/metrics"
	"github.com/anatolykoptev/go-captcha/providers"
)

func newBalanceCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the account balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := metrics.MustNewMetrics(prometheus.NewRegistry())
			svc, err := openService(v, m)
			if err != nil {
				return err
			}
			bal, err := svc.Balance(cmd.Context())
			if err != nil {
				return err
			}
			m.ObserveBalance(svc.Provider().Name(), bal)
			if math.IsInf(bal, 1) {
				fmt.Fprintln(cmd.OutOrStdout(), "unlimited")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", bal)
			return nil
		},
	}
}

func newReportCommand(v *viper.Viper) *cobra.Command {
	var (
		id      string
		kind    string
		correct bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report a solution as correct or incorrect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := captcha.ParseKind(kind)
			if err != nil {
				return err
			}
			svc, err := openService(v, nil)
			if err != nil {
				return err
			}
			if err := svc.ReportSolution(cmd.Context(), id, k, correct); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reported")
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "task id returned by solve")
	cmd.Flags().StringVar(&kind, "kind", "image", "challenge kind of the task")
	cmd.Flags().BoolVar(&correct, "correct", false, "mark the solution as correct")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported solver services",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(providers.Names(), "\n"))
		},
	}
}
