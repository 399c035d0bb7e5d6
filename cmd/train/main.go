// Package main provides the entry point for the model training CLI tool.
package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-analytics/internal/config"
	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/logger"
	"github.com/yourusername/keiba-analytics/internal/repository"
	"github.com/yourusername/keiba-analytics/internal/training"
)

var (
	configFile  string
	cutoffDate  string
	lightweight bool
	appLogger   *logrus.Logger
	cfg         *config.Config
	db          *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&cutoffDate, "cutoff", "", "Train only on races before this date (YYYY-MM-DD, default: tomorrow)")
	rootCmd.Flags().BoolVar(&lightweight, "lightweight", false, "Use the reduced training profile")
}

var rootCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the probability model on the historical store",
	Long:  `Builds the labeled dataset, runs stratified cross-validation, refits on all data, and writes a model artifact.`,
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
		return runTrain(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runTrain(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	if cutoffDate != "" {
		parsed, err := time.Parse("2006-01-02", cutoffDate)
		if err != nil {
			return fmt.Errorf("invalid cutoff date: %w", err)
		}
		cutoff = parsed
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return err
	}
	service, err := training.NewService(repos, appLogger)
	if err != nil {
		return err
	}

	result, err := service.Train(ctx, cutoff, lightweight, cfg.Model.CVFolds, cfg.Model.Dir)
	if err != nil {
		return err
	}

	grouping := "global"
	if result.Metrics.RaceGrouped {
		grouping = "race-grouped"
	}
	fmt.Printf("Model saved to %s\n", result.ArtifactPath)
	fmt.Printf("Samples:       %d\n", result.Metrics.Samples)
	fmt.Printf("Precision@1:   %.3f (%s)\n", result.Metrics.PrecisionAt1, grouping)
	fmt.Printf("Precision@3:   %.3f (%s)\n", result.Metrics.PrecisionAt3, grouping)
	fmt.Printf("AUC:           %.3f (over %d folds)\n", result.Metrics.AUC, result.Metrics.AUCFolds)
	fmt.Printf("Log loss:      %.4f\n", result.Metrics.LogLoss)

	printImportance(result.Importance)
	return nil
}

func printImportance(importance map[string]float64) {
	type pair struct {
		name string
		gain float64
	}
	pairs := make([]pair, 0, len(importance))
	for name, gain := range importance {
		pairs = append(pairs, pair{name, gain})
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].gain > pairs[b].gain })

	fmt.Println("\nFeature importance (total gain):")
	for _, p := range pairs {
		fmt.Printf("  %-24s %10.2f\n", p.name, p.gain)
	}
}
