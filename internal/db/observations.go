package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// ingested timestamps are kept verbatim as ISO-8601 text; parsing happens
// here, at the warehouse boundary, so a bad upstream value surfaces as a
// ParseError before any feature code runs.
const observationTimestampLayout = time.RFC3339

// GetObservations returns all device readings between two timestamps,
// possibly spanning multiple bucket_dates. Rows are returned in scan order;
// callers sort before grouping.
func (db *DB) GetObservations(ctx context.Context, from, to time.Time) ([]types.Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	obs := make([]types.Observation, 0, 1024)

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	// Scan all days (buckets) between from and to
	for date := start; !date.After(end); date = date.Add(24 * time.Hour) {
		bucket := date

		query := `
SELECT device_id, site_id, timestamp, pm2_5, latitude, longitude
FROM air_quality.measurements
WHERE bucket_date = ?
`
		queryStart := time.Now()
		iter := db.Session.Query(query, bucket).WithContext(ctx).Iter()

		var (
			deviceID, siteID, ts string
			pm, lat, lon         float64
		)
		for iter.Scan(&deviceID, &siteID, &ts, &pm, &lat, &lon) {
			parsed, err := time.Parse(observationTimestampLayout, ts)
			if err != nil {
				iter.Close()
				return nil, &types.ParseError{Value: ts, Err: err}
			}
			if parsed.Before(from) || parsed.After(to) {
				continue
			}
			obs = append(obs, types.Observation{
				DeviceID:  deviceID,
				SiteID:    siteID,
				Timestamp: parsed.UTC(),
				PM25:      pm,
				Latitude:  lat,
				Longitude: lon,
			})
		}

		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("failed to query bucket %s: %w", bucket.Format("2006-01-02"), err)
		}
		metrics.DbReadLatencySeconds.WithLabelValues("measurements").Observe(time.Since(queryStart).Seconds())
	}

	return obs, nil
}
