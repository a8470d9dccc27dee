package docstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// Sink turns a forecast table into one document per (device, site) and
// upserts each. A failed document is logged and skipped; the batch continues,
// so a partially persisted run is possible and acceptable.
type Sink struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewSink(store Store, logger zerolog.Logger) *Sink {
	return &Sink{
		store:  store,
		logger: logger.With().Str("component", "sink").Logger(),
		now:    time.Now,
	}
}

// Upsert groups points by (device, site), builds the ordered timestamp/value
// arrays with a fresh created_at, and replaces each document wholesale.
// Returns how many documents were persisted.
func (s *Sink) Upsert(ctx context.Context, points []types.ForecastPoint, freq types.Frequency) (int, error) {
	if len(points) == 0 {
		return 0, types.ErrEmptyInput
	}

	createdAt := s.now().UTC().Format(time.RFC3339)

	type groupKey struct{ device, site string }
	docs := make(map[groupKey]*types.ForecastDocument)
	var order []groupKey
	for _, pt := range points {
		k := groupKey{pt.DeviceID, pt.SiteID}
		doc, ok := docs[k]
		if !ok {
			doc = &types.ForecastDocument{
				DeviceID:  pt.DeviceID,
				SiteID:    pt.SiteID,
				CreatedAt: createdAt,
			}
			docs[k] = doc
			order = append(order, k)
		}
		doc.Timestamps = append(doc.Timestamps, pt.Timestamp)
		doc.PM25 = append(doc.PM25, pt.PM25)
	}

	saved := 0
	for _, k := range order {
		doc := docs[k]
		b, err := json.Marshal(doc)
		if err == nil {
			err = s.store.Put(ctx, Key(string(freq), doc.DeviceID, doc.SiteID), b)
		}
		if err != nil {
			perr := &types.PersistenceError{DeviceID: doc.DeviceID, SiteID: doc.SiteID, Err: err}
			s.logger.Error().Err(perr).
				Str("device_id", doc.DeviceID).
				Str("site_id", doc.SiteID).
				Msg("failed to upsert forecast document, skipping")
			metrics.ForecastUpsertFailuresTotal.WithLabelValues(string(freq)).Inc()
			continue
		}
		saved++
	}
	return saved, nil
}

// Latest reads back the current forecast document for one (device, site).
func (s *Sink) Latest(ctx context.Context, freq types.Frequency, deviceID, siteID string) (*types.ForecastDocument, error) {
	b, err := s.store.Get(ctx, Key(string(freq), deviceID, siteID))
	if err != nil {
		return nil, err
	}
	var doc types.ForecastDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
