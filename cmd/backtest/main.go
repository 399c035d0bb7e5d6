// Package main provides the entry point for the walk-forward backtest CLI tool.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-analytics/internal/backtest"
	"github.com/yourusername/keiba-analytics/internal/config"
	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/logger"
	"github.com/yourusername/keiba-analytics/internal/metrics"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

var (
	configFile    string
	startOverride string
	endOverride   string
	interval      string
	showDetails   bool
	appLogger     *logrus.Logger
	cfg           *config.Config
	db            *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&startOverride, "start-date", "", "Override start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&endOverride, "end-date", "", "Override end date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&interval, "retrain-interval", "", "Override retrain interval (daily|weekly|monthly)")
	rootCmd.Flags().BoolVar(&showDetails, "details", false, "Print per-race detail tables")
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the walk-forward backtest",
	Long:  `Replays the configured window in time order, retraining on the configured cadence with a cutoff strictly before each race, and reports race-grouped metrics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithDefaults(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLogger = logger.NewLogger(cfg.App.LogLevel)
		db, err = database.Initialize(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer db.Close()
		return runBacktest(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func buildConfig() (backtest.Config, error) {
	btConfig := backtest.Config{
		RetrainInterval:        backtest.RetrainInterval(cfg.Backtest.RetrainInterval),
		MinTrainingSamples:     cfg.Backtest.MinTrainingSamples,
		MaxPastResultsPerHorse: cfg.Backtest.MaxPastResultsPerHorse,
		LightweightTraining:    cfg.Backtest.LightweightTraining,
	}

	var err error
	start, end := cfg.Backtest.StartDate, cfg.Backtest.EndDate
	if startOverride != "" {
		start = startOverride
	}
	if endOverride != "" {
		end = endOverride
	}
	if btConfig.StartDate, err = time.Parse("2006-01-02", start); err != nil {
		return btConfig, fmt.Errorf("invalid start date: %w", err)
	}
	if btConfig.EndDate, err = time.Parse("2006-01-02", end); err != nil {
		return btConfig, fmt.Errorf("invalid end date: %w", err)
	}
	if interval != "" {
		btConfig.RetrainInterval = backtest.RetrainInterval(interval)
	}
	return btConfig, nil
}

func runBacktest(ctx context.Context) error {
	btConfig, err := buildConfig()
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		go serveMetrics()
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return err
	}
	engine, err := backtest.NewEngine(btConfig, repos, appLogger)
	if err != nil {
		return err
	}

	appLogger.WithFields(logrus.Fields{
		"start":    btConfig.StartDate.Format("2006-01-02"),
		"end":      btConfig.EndDate.Format("2006-01-02"),
		"interval": btConfig.RetrainInterval,
	}).Info("Starting walk-forward backtest")

	reporter := backtest.NewReporter(btConfig.StartDate, btConfig.EndDate, btConfig.RetrainInterval)
	var results []*backtest.RaceBacktestResult
	failures := 0

	for result, err := range engine.Run(ctx) {
		if err != nil {
			failures++
			continue
		}
		if showDetails {
			fmt.Println(reporter.RaceDetail(result, 3))
		}
		results = append(results, result)
	}

	summary := backtest.CalculateMetrics(results)
	fmt.Println(reporter.Summary(summary))
	if failures > 0 {
		fmt.Printf("%d races failed this run\n", failures)
	}

	hits, misses, ratio := engine.FactorCacheStats()
	appLogger.WithFields(logrus.Fields{
		"hits":      hits,
		"misses":    misses,
		"hit_ratio": fmt.Sprintf("%.2f", ratio),
	}).Info("Factor cache statistics")

	return nil
}

func serveMetrics() {
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		appLogger.WithError(err).Warn("Metrics server stopped")
	}
}
