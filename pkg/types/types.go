// Package types
package types

import (
	"fmt"
	"time"
)

// Observation is a single raw air-quality reading as delivered by the
// warehouse. PM25 may be NaN where the device reported nothing.
type Observation struct {
	DeviceID  string    `json:"device_id"`
	SiteID    string    `json:"site_id"`
	Timestamp time.Time `json:"timestamp"`
	PM25      float64   `json:"pm2_5"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// ForecastPoint is one predicted value for one device at one future timestamp.
type ForecastPoint struct {
	DeviceID  string    `json:"device_id"`
	SiteID    string    `json:"site_id"`
	Timestamp time.Time `json:"timestamp"`
	PM25      float64   `json:"pm2_5"`
}

// ForecastDocument is the per (device, site) record kept in the document
// store. Each run replaces the arrays wholesale.
type ForecastDocument struct {
	DeviceID   string      `json:"device_id"`
	SiteID     string      `json:"site_id"`
	CreatedAt  string      `json:"created_at"`
	Timestamps []time.Time `json:"timestamp"`
	PM25       []float64   `json:"pm2_5"`
}

type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
)

// ToFrequency validates a frequency string from config or query params.
func ToFrequency(s string) (Frequency, error) {
	switch s {
	case "hourly":
		return FrequencyHourly, nil
	case "daily":
		return FrequencyDaily, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFrequency, s)
	}
}

// Step is the distance between two consecutive points at this frequency.
func (f Frequency) Step() time.Duration {
	if f == FrequencyDaily {
		return 24 * time.Hour
	}
	return time.Hour
}

// ModelKey is the registry key for the active model at this frequency.
func (f Frequency) ModelKey() string {
	return string(f) + "_forecast_model"
}

type JobState string

const (
	JobStateStarted   JobState = "Started"
	JobStateCompleted JobState = "Completed"
	JobStateFailed    JobState = "Failed"
)

// JobEvent announces a pipeline run transition on the event bus.
type JobEvent struct {
	RunID     string    `json:"run_id"`
	Job       string    `json:"job"`
	Frequency Frequency `json:"frequency"`
	State     JobState  `json:"state"`
	Rows      int       `json:"rows,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
