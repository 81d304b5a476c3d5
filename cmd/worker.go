package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that runs a processing cycle at the configured daily times.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return errors.Wrap(err, "failed to create scheduler")
		}

		atTimes, err := dailyTimes(cfg.Worker.ProcessTimes)
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DailyJob(1, atTimes),
			gocron.NewTask(func() {
				log.Info().Msg("Starting scheduled processing run")
				if _, err := p.Run(ctx); err != nil {
					log.Error().Err(err).Msg("Scheduled run failed")
				}
			}),
		)
		if err != nil {
			return errors.Wrap(err, "failed to schedule processing job")
		}

		scheduler.Start()
		log.Info().Strs("times", cfg.Worker.ProcessTimes).Msg("Worker started, waiting for scheduled runs")

		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// dailyTimes converts HH:MM strings into gocron daily at-times. Invalid
// entries are dropped with a warning; at least one valid time is required.
func dailyTimes(times []string) (gocron.AtTimes, error) {
	ats := make([]gocron.AtTime, 0, len(times))
	for _, t := range times {
		parsed, err := time.Parse("15:04", t)
		if err != nil {
			log.Warn().Str("time", t).Msg("Ignoring invalid process time, expected HH:MM")
			continue
		}
		ats = append(ats, gocron.NewAtTime(uint(parsed.Hour()), uint(parsed.Minute()), 0))
	}
	if len(ats) == 0 {
		return nil, errors.New("no valid process times configured")
	}
	return gocron.NewAtTimes(ats[0], ats[1:]...), nil
}
