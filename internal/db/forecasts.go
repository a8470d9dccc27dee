package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// SaveForecasts appends forecast rows to long-term storage. The table is
// append-only; reruns for the same window produce additional rows rather
// than overwriting (the document store holds the authoritative latest run).
func (db *DB) SaveForecasts(ctx context.Context, points []types.ForecastPoint, freq types.Frequency) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := `
INSERT INTO air_quality.forecasts (device_id, site_id, frequency, timestamp, pm2_5, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`
	createdAt := time.Now().UTC()
	start := time.Now()
	for _, pt := range points {
		if err := db.Session.Query(query,
			pt.DeviceID, pt.SiteID, string(freq), pt.Timestamp, pt.PM25, createdAt,
		).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to save forecast for device %s: %w", pt.DeviceID, err)
		}
	}
	metrics.DbWriteLatencySeconds.WithLabelValues("forecasts").Observe(time.Since(start).Seconds())
	return nil
}
