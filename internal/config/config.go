// Package config gathers every knob the pipeline reads from the environment
// into one explicit object. Components receive it (or slices of it) at
// construction; nothing reads the environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ssenyonjo/aircast/pkg/types"
)

type Config struct {
	ScyllaNodes  []string
	ValkeyNodes  []string
	KafkaBrokers []string

	DeviceRegistryURL string
	Tenant            string

	ModelDir string

	// forecast horizons, in steps of the frequency
	HourlyHorizon int
	DailyHorizon  int

	// how far back each job reads from the warehouse
	HourlyTrainingScopeHours   int
	DailyTrainingScopeDays     int
	HourlyPredictionScopeHours int
	DailyPredictionScopeDays   int

	// search budget and the cyclic-year anchor
	SearchTrials int
	YearPeriod   int

	ForecastWorkers int
}

func Load() (*Config, error) {
	cfg := &Config{
		DeviceRegistryURL: os.Getenv("DEVICE_REGISTRY_URL"),
		Tenant:            envOr("TENANT", "airqo"),
		ModelDir:          envOr("MODEL_DIR", "./models"),
	}

	if nodes := os.Getenv("SCYLLA_NODES"); nodes != "" {
		cfg.ScyllaNodes = strings.Split(nodes, ",")
	}
	if nodes := os.Getenv("VALKEY_NODES"); nodes != "" {
		cfg.ValkeyNodes = strings.Split(nodes, ",")
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.HourlyHorizon, err = envIntOr("HOURLY_FORECAST_HORIZON", 24); err != nil {
		return nil, err
	}
	if cfg.DailyHorizon, err = envIntOr("DAILY_FORECAST_HORIZON", 7); err != nil {
		return nil, err
	}
	if cfg.HourlyTrainingScopeHours, err = envIntOr("HOURLY_TRAINING_SCOPE_HOURS", 24*30*9); err != nil {
		return nil, err
	}
	if cfg.DailyTrainingScopeDays, err = envIntOr("DAILY_TRAINING_SCOPE_DAYS", 30*12); err != nil {
		return nil, err
	}
	if cfg.HourlyPredictionScopeHours, err = envIntOr("HOURLY_PREDICTION_SCOPE_HOURS", 24*7); err != nil {
		return nil, err
	}
	if cfg.DailyPredictionScopeDays, err = envIntOr("DAILY_PREDICTION_SCOPE_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.SearchTrials, err = envIntOr("SEARCH_TRIALS", 15); err != nil {
		return nil, err
	}
	if cfg.YearPeriod, err = envIntOr("CYCLIC_YEAR_PERIOD", 2023); err != nil {
		return nil, err
	}
	if cfg.ForecastWorkers, err = envIntOr("FORECAST_WORKERS", 4); err != nil {
		return nil, err
	}

	if cfg.HourlyHorizon <= 0 || cfg.DailyHorizon <= 0 {
		return nil, fmt.Errorf("forecast horizons must be positive")
	}
	return cfg, nil
}

// Horizon returns the forecast horizon for a frequency.
func (c *Config) Horizon(freq types.Frequency) (int, error) {
	switch freq {
	case types.FrequencyHourly:
		return c.HourlyHorizon, nil
	case types.FrequencyDaily:
		return c.DailyHorizon, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrUnsupportedFrequency, freq)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
