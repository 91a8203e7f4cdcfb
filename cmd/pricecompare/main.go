// Package main is the entry point for the pricecompare CLI. It runs the
// same search pipeline as the HTTP service directly against the pharmacies
// and prints results as JSON.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pharmalens/price-compare-service/internal/aggregator"
	"github.com/pharmalens/price-compare-service/internal/config"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/orchestrator"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/catalog"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(defaultDeps()).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// deps are the collaborators commands are built from, swappable in tests.
type deps struct {
	loadConfig func() (*config.Config, error)
	newSources func(cfg config.PharmaciesConfig, logger zerolog.Logger) orchestrator.SourceProvider
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newSources: func(cfg config.PharmaciesConfig, logger zerolog.Logger) orchestrator.SourceProvider {
			return catalog.NewRegistry(cfg, logger)
		},
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	deps     deps
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger
}

func newRootCmd(d deps) *cobra.Command {
	c := &cli{deps: d}

	root := &cobra.Command{
		Use:   "pricecompare",
		Short: "Compare medicine prices across online pharmacies",
		Long: `pricecompare searches every configured pharmacy concurrently and reports
the offers found, the cheapest one and the savings against the most
expensive. Configuration comes from PRICECOMPARE_* environment variables,
a .env file or config.yaml, exactly as for the service.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newSearchCmd(c),
		newBatchCmd(c),
		newPharmaciesCmd(c),
		newMigrateCmd(c),
	)
	return root
}

// init loads configuration once per invocation.
func (c *cli) init() error {
	cfg, err := c.deps.loadConfig()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = observability.NewLogger(observability.LoggingConfig{
		Level:  c.logLevel,
		Format: "console",
		Output: "stderr",
	}).With().Str("component", "cli").Logger()
	return nil
}

// orchestrator builds a search pipeline without history or publishing.
func (c *cli) pipeline(perSourceTimeout time.Duration, fallback bool) *orchestrator.Orchestrator {
	searchCfg := orchestrator.Config{
		PerSourceTimeout: c.cfg.Search.PerSourceTimeout,
		BatchConcurrency: c.cfg.Search.BatchConcurrency,
		FallbackEnabled:  c.cfg.Search.FallbackEnabled || fallback,
	}
	if perSourceTimeout > 0 {
		searchCfg.PerSourceTimeout = perSourceTimeout
	}
	return orchestrator.New(
		searchCfg,
		c.deps.newSources(c.cfg.Pharmacies, c.logger),
		aggregator.New(c.logger, nil),
		nil,
		nil,
		c.logger,
		nil,
	)
}
