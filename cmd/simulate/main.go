// Package main provides the entry point for the ticket simulation CLI tool.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-analytics/internal/config"
	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/logger"
	"github.com/yourusername/keiba-analytics/internal/ml"
	"github.com/yourusername/keiba-analytics/internal/payout"
	"github.com/yourusername/keiba-analytics/internal/repository"
	"github.com/yourusername/keiba-analytics/internal/simulator"
)

var (
	configFile string
	ticket     string
	fromDate   string
	toDate     string
	venues     []string
	topN       int
	modelPath  string
	appLogger  *logrus.Logger
	cfg        *config.Config
	db         *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&ticket, "ticket", "place", "Ticket kind: place|win|quinella|trio")
	rootCmd.Flags().StringVar(&fromDate, "from", "", "Window start (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&toDate, "to", "", "Window end (YYYY-MM-DD)")
	rootCmd.Flags().StringSliceVar(&venues, "venues", nil, "Venue filter (default: all venues)")
	rootCmd.Flags().IntVar(&topN, "top-n", 0, "Selection size for place/win tickets")
	rootCmd.Flags().StringVar(&modelPath, "model", "", "Path to a model artifact (default: latest in model dir)")
	_ = rootCmd.MarkFlagRequired("from")
	_ = rootCmd.MarkFlagRequired("to")
}

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Settle simulated bet tickets over a period",
	Long:  `Replays a window of races, bets tickets from the prediction rankings, settles against fetched payouts, and prints the period summary.`,
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
		return runSimulation(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runSimulation(ctx context.Context) error {
	from, err := time.Parse("2006-01-02", fromDate)
	if err != nil {
		return fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.Parse("2006-01-02", toDate)
	if err != nil {
		return fmt.Errorf("invalid to date: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return err
	}

	model, err := resolveModel()
	if err != nil {
		return err
	}

	fetcher := buildFetcher()
	base, err := simulator.NewBase(repos, fetcher, model, selectionSize(), appLogger)
	if err != nil {
		return err
	}
	defer func() {
		hits, misses, ratio := fetcher.Stats()
		appLogger.WithFields(logrus.Fields{
			"hits":      hits,
			"misses":    misses,
			"hit_ratio": fmt.Sprintf("%.2f", ratio),
		}).Info("Payout cache statistics")
	}()

	if len(venues) == 0 {
		venues = cfg.Simulator.Venues
	}

	switch ticket {
	case "place":
		summary, err := simulator.NewPlaceSimulator(base).SimulatePeriod(ctx, from, to, venues)
		if err != nil {
			return err
		}
		printSummary("place", summary.TotalRaces, summary.TotalHits, summary.HitRate,
			summary.TotalInvestment, summary.TotalPayout, summary.ReturnRate)
	case "win":
		summary, err := simulator.NewWinSimulator(base).SimulatePeriod(ctx, from, to, venues)
		if err != nil {
			return err
		}
		printSummary("win", summary.TotalRaces, summary.TotalHits, summary.HitRate,
			summary.TotalInvestment, summary.TotalPayout, summary.ReturnRate)
	case "quinella":
		summary, err := simulator.NewQuinellaSimulator(base).SimulatePeriod(ctx, from, to, venues)
		if err != nil {
			return err
		}
		printSummary("quinella", summary.TotalRaces, summary.TotalHits, summary.HitRate,
			summary.TotalInvestment, summary.TotalPayout, summary.ReturnRate)
	case "trio":
		summary, err := simulator.NewTrioSimulator(base).SimulatePeriod(ctx, from, to, venues)
		if err != nil {
			return err
		}
		printSummary("trio", summary.TotalRaces, summary.TotalHits, summary.HitRate,
			summary.TotalInvestment, summary.TotalPayout, summary.ReturnRate)
	default:
		return fmt.Errorf("unknown ticket kind %q", ticket)
	}

	return nil
}

// buildFetcher composes the single rate-limited fetcher shared by the run.
func buildFetcher() *payout.CachedFetcher {
	httpCfg := payout.DefaultHTTPConfig()
	httpCfg.BaseURL = cfg.Fetcher.BaseURL
	httpCfg.Timeout = time.Duration(cfg.Fetcher.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.Fetcher.MaxRetries
	httpCfg.RequestDelay = cfg.Fetcher.RequestDelay

	limiter := payout.NewRateLimiter(cfg.Fetcher.RequestDelay)
	fetcher := payout.NewHTTPFetcher(httpCfg, limiter, appLogger)
	return payout.NewCachedFetcher(fetcher, time.Duration(cfg.Fetcher.CacheTTLHours)*time.Hour)
}

func selectionSize() int {
	if topN > 0 {
		return topN
	}
	return cfg.Simulator.TopN
}

func resolveModel() (*ml.Model, error) {
	path := modelPath
	if path == "" {
		path = cfg.Simulator.ModelPath
	}
	if path == "" {
		latest, err := ml.FindLatestModel(cfg.Model.Dir)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	if path == "" {
		appLogger.Warn("No model artifact found, simulating on factor scores only")
		return nil, nil
	}
	return ml.LoadModel(path)
}

func printSummary(kind string, races, hits int, hitRate float64, investment, totalPayout int, rate float64) {
	fmt.Printf("Ticket:          %s\n", kind)
	fmt.Printf("Period:          %s .. %s\n", fromDate, toDate)
	fmt.Printf("Races:           %d\n", races)
	fmt.Printf("Hits:            %d\n", hits)
	fmt.Printf("Hit rate:        %.1f%%\n", hitRate*100)
	fmt.Printf("Investment:      %d yen\n", investment)
	fmt.Printf("Payout:          %d yen\n", totalPayout)
	fmt.Printf("Return rate:     %.1f%%\n", rate*100)
}
