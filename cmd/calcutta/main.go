// Package main provides the calcutta valuation CLI and web form.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/calcutta-valuation/internal/config"
	"github.com/yourusername/calcutta-valuation/internal/datasource"
	"github.com/yourusername/calcutta-valuation/internal/health"
	"github.com/yourusername/calcutta-valuation/internal/logger"
	"github.com/yourusername/calcutta-valuation/internal/metrics"
	"github.com/yourusername/calcutta-valuation/internal/scheduler"
	"github.com/yourusername/calcutta-valuation/internal/service"
	"github.com/yourusername/calcutta-valuation/internal/web"
	"github.com/yourusername/calcutta-valuation/internal/workbook"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	bidsFile   string
	outFile    string
	inProgress string

	cfg       *config.Config
	appLogger *logrus.Logger
	source    datasource.OddsSource
	pipeline  *service.Pipeline
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")

	refreshCmd.Flags().StringVar(&bidsFile, "bids", "", "Bid export from the auction site (.xlsx)")
	refreshCmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the workbook here instead of the configured path")
	_ = refreshCmd.MarkFlagRequired("bids")

	bestOddsCmd.Flags().StringVar(&inProgress, "workbook", "", "In-progress workbook to update (.xlsx)")
	_ = bestOddsCmd.MarkFlagRequired("workbook")

	rootCmd.AddCommand(serveCmd, refreshCmd, bestOddsCmd, watchCmd)
}

var rootCmd = &cobra.Command{
	Use:           "calcutta",
	Short:         "Calcutta auction valuation workbook builder",
	Long:          `Fetches golf market odds, derives finish-position probabilities and best prices, and reconciles auction bids into the valuation workbook.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return setupDependencies()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the password-gated upload/download form",
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := health.NewChecker(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Logger:      appLogger,
			Feed:        source,
		})
		checker.SetReady(true)

		return web.NewServer(cfg, pipeline, checker, appLogger).ListenAndServe(cmd.Context())
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild every pipeline sheet from a bid export",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(bidsFile)
		if err != nil {
			return fmt.Errorf("opening bid export: %w", err)
		}
		defer f.Close()

		bids, err := workbook.ReadBidExport(f)
		if err != nil {
			return err
		}

		sheets := workbook.SheetNamesFromConfig(cfg.Workbook)
		wb, err := workbook.Open(cfg.Workbook.Path, sheets)
		if err != nil {
			return err
		}
		defer wb.Close()

		if err := pipeline.RefreshWorkbook(cmd.Context(), wb, bids); err != nil {
			return err
		}

		dest := cfg.Workbook.Path
		if outFile != "" {
			dest = outFile
		}
		if err := wb.SaveAs(dest); err != nil {
			return err
		}
		appLogger.WithField("path", dest).Info("Workbook refreshed")
		return nil
	},
}

var bestOddsCmd = &cobra.Command{
	Use:   "best-odds",
	Short: "Replace the Best Odds sheet of an in-progress workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(inProgress); err != nil {
			return fmt.Errorf("opening workbook: %w", err)
		}
		return refreshBestOddsFile(cmd.Context(), inProgress)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the Best Odds sheet of the configured workbook on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Schedule.BestOddsCron == "" {
			return fmt.Errorf("schedule.best_odds_cron is not set")
		}

		s := scheduler.NewScheduler(appLogger, 0)
		err := s.ScheduleBestOddsRefresh(cfg.Schedule.BestOddsCron, func(ctx context.Context) error {
			return refreshBestOddsFile(ctx, cfg.Workbook.Path)
		})
		if err != nil {
			return err
		}
		if err := s.Start(); err != nil {
			return err
		}
		appLogger.WithField("next_run", s.GetNextRun()).Info("Watching odds")

		<-cmd.Context().Done()
		return s.Stop()
	},
}

func refreshBestOddsFile(ctx context.Context, path string) error {
	sheets := workbook.SheetNamesFromConfig(cfg.Workbook)
	if err := workbook.UpdateFile(path, sheets, func(wb *workbook.Workbook) error {
		return pipeline.RefreshBestOdds(ctx, wb)
	}); err != nil {
		return err
	}
	appLogger.WithField("path", path).Info("Best Odds refreshed")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	closeSource()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func closeSource() {
	closer, ok := source.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil && appLogger != nil {
		appLogger.WithError(err).Warn("Failed to close odds source")
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies() error {
	appLogger = logger.NewLogger(cfg.App.LogLevel, cfg.IsProduction())

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	var err error
	source, err = datasource.NewOddsSource(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create odds source: %w", err)
	}
	pipeline = service.NewPipeline(cfg, source, appLogger)

	appLogger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"source":      source.Name(),
		"version":     Version,
		"commit":      GitCommit,
	}).Debug("Dependencies initialized")
	return nil
}
