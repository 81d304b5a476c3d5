package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runAccountName string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one processing cycle",
	Long:  `Fetch open orders, generate batch files with shipping labels, publish them and exit.`,
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runAccountName, "account", "", "process only the named account")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, p, _, _, _, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if runAccountName != "" {
		if err := p.SelectAccount(runAccountName); err != nil {
			return err
		}
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("orders", summary.TotalOrders).Int("files", len(summary.Files)).Msg("Run complete")
	return nil
}
