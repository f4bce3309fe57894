// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/phishguard/driftmon/internal/drift"
)

// Config holds the full service configuration.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	ReferencePath   string
	ModelPath       string
	HistoryDBPath   string
	BatchSize       int
	SeedSamples     int
	PValueThreshold float64
	Aggregation     string
}

// Load reads configuration with viper, preferring environment variables
// over the .env file, over defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REFERENCE_PATH", "models/reference_data.csv")
	v.SetDefault("MODEL_PATH", "models/phishing_model.bin")
	v.SetDefault("HISTORY_DB_PATH", "models/history.db")
	v.SetDefault("BATCH_SIZE", 500)
	v.SetDefault("SEED_SAMPLES", 10000)
	v.SetDefault("P_VALUE_THRESHOLD", drift.DefaultPValueThreshold)
	v.SetDefault("AGGREGATION", drift.AggregateAny)

	// A missing .env file is fine; the environment and defaults cover it.
	_ = v.ReadInConfig()

	cfg := &Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		ReferencePath:   v.GetString("REFERENCE_PATH"),
		ModelPath:       v.GetString("MODEL_PATH"),
		HistoryDBPath:   v.GetString("HISTORY_DB_PATH"),
		BatchSize:       v.GetInt("BATCH_SIZE"),
		SeedSamples:     v.GetInt("SEED_SAMPLES"),
		PValueThreshold: v.GetFloat64("P_VALUE_THRESHOLD"),
		Aggregation:     v.GetString("AGGREGATION"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.SeedSamples <= 0 {
		return fmt.Errorf("config: SEED_SAMPLES must be positive, got %d", c.SeedSamples)
	}
	if c.PValueThreshold <= 0 || c.PValueThreshold >= 1 {
		return fmt.Errorf("config: P_VALUE_THRESHOLD must be in (0,1), got %v", c.PValueThreshold)
	}
	switch c.Aggregation {
	case drift.AggregateAny, drift.AggregateMajority, drift.AggregateBonferroni:
	default:
		return fmt.Errorf("config: unknown AGGREGATION %q", c.Aggregation)
	}
	return nil
}

// DriftConfig projects the detection policy settings.
func (c *Config) DriftConfig() drift.Config {
	return drift.Config{PValueThreshold: c.PValueThreshold, Aggregation: c.Aggregation}
}
