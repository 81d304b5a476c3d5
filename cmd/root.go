package cmd

import (
	"github.com/Juan7731/bol.com/config"
	"github.com/Juan7731/bol.com/internal/cache"
	"github.com/Juan7731/bol.com/internal/label"
	"github.com/Juan7731/bol.com/internal/ledger"
	"github.com/Juan7731/bol.com/internal/metrics"
	"github.com/Juan7731/bol.com/internal/notify"
	"github.com/Juan7731/bol.com/internal/pipeline"
	"github.com/Juan7731/bol.com/internal/tracing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bol",
	Short: "Bol.com order batch pipeline",
	Long:  `Fetches open bol.com retailer orders, generates warehouse batch files with shipping labels and publishes them.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap wires the shared infrastructure for the run and worker
// commands: configuration, ledger, label store, cache, tracer and the
// pipeline itself.
func bootstrap() (config.Config, *pipeline.Pipeline, *ledger.Ledger, *metrics.Metrics, tracing.Tracer, func(), error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return config.Config{}, nil, nil, nil, nil, nil, err
	}

	ldg, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return config.Config{}, nil, nil, nil, nil, nil, err
	}

	store, err := label.NewStore(cfg.Label.Dir)
	if err != nil {
		ldg.Close()
		return config.Config{}, nil, nil, nil, nil, nil, err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth("ledger", true)
	mailer := notify.NewMailer(cfg.Email)

	p := pipeline.New(cfg, ldg, store, tracer, metricsCollector, redisCache, mailer)

	cleanup := func() {
		if tracer != nil {
			tracer.Close()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		if err := ldg.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close ledger")
		}
	}
	return cfg, p, ldg, metricsCollector, tracer, cleanup, nil
}
