// Package config provides configuration management for the keiba analytics core.
package config

import "fmt"

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Model     ModelConfig     `mapstructure:"model" validate:"required"`
	Backtest  BacktestConfig  `mapstructure:"backtest" validate:"required"`
	Simulator SimulatorConfig `mapstructure:"simulator" validate:"required"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents the SQLite database configuration
type DatabaseConfig struct {
	Path         string `mapstructure:"path" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"required,gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"required,gt=0"`
}

// ModelConfig represents model training and artifact configuration
type ModelConfig struct {
	Dir                string `mapstructure:"dir" validate:"required"`
	Path               string `mapstructure:"path"`
	MinTrainingSamples int    `mapstructure:"min_training_samples" validate:"required,gt=0"`
	CVFolds            int    `mapstructure:"cv_folds" validate:"required,gt=1"`
}

// BacktestConfig represents walk-forward backtest configuration
type BacktestConfig struct {
	StartDate              string `mapstructure:"start_date" validate:"required,dateformat"`
	EndDate                string `mapstructure:"end_date" validate:"required,dateformat"`
	RetrainInterval        string `mapstructure:"retrain_interval" validate:"required,retraininterval"`
	MinTrainingSamples     int    `mapstructure:"min_training_samples" validate:"required,gt=0"`
	MaxPastResultsPerHorse int    `mapstructure:"max_past_results_per_horse" validate:"required,gt=0"`
	LightweightTraining    bool   `mapstructure:"lightweight_training"`
}

// SimulatorConfig represents ticket simulator configuration
type SimulatorConfig struct {
	TopN      int      `mapstructure:"top_n" validate:"required,gt=0"`
	Venues    []string `mapstructure:"venues"`
	ModelPath string   `mapstructure:"model_path"`
}

// FetcherConfig represents payout fetcher configuration
type FetcherConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	RequestDelay   float64 `mapstructure:"request_delay" validate:"required,gt=0"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"required,gte=0"`
	CacheTTLHours  int     `mapstructure:"cache_ttl_hours" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the SQLite DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("file:%s?_fk=1", c.Database.Path)
}
