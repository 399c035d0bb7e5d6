// Package main provides the entry point for the race prediction CLI tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-analytics/internal/config"
	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/logger"
	"github.com/yourusername/keiba-analytics/internal/ml"
	"github.com/yourusername/keiba-analytics/internal/models"
	"github.com/yourusername/keiba-analytics/internal/prediction"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

var (
	configFile string
	modelPath  string
	appLogger  *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&modelPath, "model", "", "Path to a model artifact (default: latest in model dir)")
}

var rootCmd = &cobra.Command{
	Use:   "predict <race_id>",
	Short: "Predict a race field from stored entries",
	Long:  `Runs the factor and model pipeline over the stored entries of one race and prints the ranked field.`,
	Args:  cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer db.Close()
		return runPredict(cmd.Context(), args[0])
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
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
	repos, err = repository.NewRepositories(db)
	if err != nil {
		return err
	}
	return nil
}

func runPredict(ctx context.Context, raceID string) error {
	race, err := repos.Race.GetByID(ctx, raceID)
	if err != nil {
		return fmt.Errorf("failed to load race %s: %w", raceID, err)
	}
	results, err := repos.RaceResult.GetByRaceID(ctx, raceID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("race %s has no stored entries", raceID)
	}

	model, err := resolveModel()
	if err != nil {
		return err
	}

	service, err := prediction.NewService(repos.RaceResult, repos.Horse, model, appLogger)
	if err != nil {
		return err
	}

	horseIDs := make([]string, len(results))
	for i, r := range results {
		horseIDs[i] = r.HorseID
	}
	horses, err := repos.Horse.GetBatch(ctx, horseIDs)
	if err != nil {
		return err
	}

	entries := make([]models.RaceEntry, 0, len(results))
	for _, r := range results {
		name := ""
		if h := horses[r.HorseID]; h != nil {
			name = h.Name
		}
		impost := 0.0
		if r.Impost != nil {
			impost = *r.Impost
		}
		entries = append(entries, models.RaceEntry{
			HorseID:       r.HorseID,
			HorseName:     name,
			HorseNumber:   r.HorseNumber,
			BracketNumber: r.BracketNumber,
			JockeyID:      r.JockeyID,
			JockeyName:    r.JockeyName,
			Impost:        impost,
			Sex:           r.Sex,
			Age:           r.Age,
			Odds:          r.Odds,
			Popularity:    r.Popularity,
			Weight:        r.Weight,
			WeightDiff:    r.WeightDiff,
		})
	}

	shutuba := models.ShutubaData{
		RaceID:         race.ID,
		RaceName:       race.Name,
		RaceNumber:     race.RaceNumber,
		Venue:          race.Venue,
		Distance:       race.Distance,
		Surface:        race.Surface,
		TrackCondition: race.TrackCondition,
		Date:           race.Date,
		Entries:        entries,
	}

	predictions, err := service.PredictRace(ctx, shutuba)
	if err != nil {
		return err
	}
	if len(predictions) == 0 {
		fmt.Println("Debut race, no prediction.")
		return nil
	}

	printPredictions(race, predictions)
	return nil
}

func resolveModel() (*ml.Model, error) {
	path := modelPath
	if path == "" {
		latest, err := ml.FindLatestModel(cfg.Model.Dir)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	if path == "" {
		appLogger.Warn("No model artifact found, ranking by factor scores only")
		return nil, nil
	}
	appLogger.WithField("model", path).Info("Loaded model artifact")
	return ml.LoadModel(path)
}

func printPredictions(race *models.Race, predictions []models.PredictionResult) {
	fmt.Fprintf(os.Stdout, "%s %s %s (%dm %s)\n",
		race.Date.Format("2006-01-02"), race.Venue, race.Name, race.Distance, race.Surface)
	fmt.Fprintf(os.Stdout, "%4s | %4s | %-16s | %8s | %7s | %8s\n",
		"Rank", "No.", "Horse", "Combined", "ML prob", "Factors")
	for _, p := range predictions {
		combined := "-"
		if p.CombinedScore != nil {
			combined = fmt.Sprintf("%.1f", *p.CombinedScore)
		}
		total := "-"
		if p.TotalScore != nil {
			total = fmt.Sprintf("%.1f", *p.TotalScore)
		}
		fmt.Fprintf(os.Stdout, "%4d | %4d | %-16s | %8s | %6.1f%% | %8s\n",
			p.Rank, p.HorseNumber, p.HorseName, combined, p.MLProbability*100, total)
	}
}
