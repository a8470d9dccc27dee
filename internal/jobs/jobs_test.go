package jobs

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/config"
	"github.com/ssenyonjo/aircast/internal/docstore"
	"github.com/ssenyonjo/aircast/internal/forecast"
	"github.com/ssenyonjo/aircast/internal/modelstore"
	"github.com/ssenyonjo/aircast/internal/training"
	"github.com/ssenyonjo/aircast/pkg/types"
)

type fakeWarehouse struct {
	obs   []types.Observation
	err   error
	saved []types.ForecastPoint
}

func (w *fakeWarehouse) GetObservations(ctx context.Context, from, to time.Time) ([]types.Observation, error) {
	if w.err != nil {
		return nil, w.err
	}
	var out []types.Observation
	for _, o := range w.obs {
		if !o.Timestamp.Before(from) && !o.Timestamp.After(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (w *fakeWarehouse) SaveForecasts(ctx context.Context, points []types.ForecastPoint, freq types.Frequency) error {
	w.saved = append(w.saved, points...)
	return nil
}

type fakeDocStore struct {
	docs map[string][]byte
}

func (s *fakeDocStore) Put(ctx context.Context, key string, doc []byte) error {
	s.docs[key] = doc
	return nil
}

func (s *fakeDocStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := s.docs[key]
	if !ok {
		return nil, docstore.ErrNoDocument
	}
	return b, nil
}

func (s *fakeDocStore) Ping(ctx context.Context) error { return nil }
func (s *fakeDocStore) Close()                         {}

type eventRecorder struct {
	events []types.JobEvent
}

func (r *eventRecorder) PublishJobEvent(ev types.JobEvent) error {
	r.events = append(r.events, ev)
	return nil
}

var testNow = time.Date(2024, 10, 27, 12, 0, 0, 0, time.UTC)

// dailyObservations is 300 days of one reading per day, ending yesterday.
func dailyObservations() []types.Observation {
	var obs []types.Observation
	for i := 0; i < 300; i++ {
		ts := testNow.AddDate(0, 0, -300+i)
		obs = append(obs, types.Observation{
			DeviceID:  "dev-a",
			SiteID:    "site-1",
			Timestamp: ts,
			PM25:      25 + 8*math.Sin(float64(i)/9),
			Latitude:  0.3,
			Longitude: 0.5,
		})
	}
	return obs
}

func testRunner(t *testing.T, warehouse Warehouse, docs docstore.Store, events EventPublisher) *Runner {
	t.Helper()
	logger := zerolog.Nop()

	blobs, err := modelstore.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	registry := modelstore.New(blobs, logger)

	cfg := &config.Config{
		HourlyHorizon:              24,
		DailyHorizon:               7,
		HourlyTrainingScopeHours:   24 * 330,
		DailyTrainingScopeDays:     330,
		HourlyPredictionScopeHours: 24 * 30,
		DailyPredictionScopeDays:   30,
		YearPeriod:                 2023,
		ForecastWorkers:            2,
	}

	r := NewRunner(
		cfg,
		warehouse,
		registry,
		training.NewPipeline(registry, 2, logger),
		forecast.NewEngine(cfg.YearPeriod, cfg.ForecastWorkers, logger),
		docstore.NewSink(docs, logger),
		events,
		nil,
		logger,
	)
	r.now = func() time.Time { return testNow }
	return r
}

func TestTrainThenForecastDaily(t *testing.T) {
	if testing.Short() {
		t.Skip("trains a real model")
	}
	warehouse := &fakeWarehouse{obs: dailyObservations()}
	docs := &fakeDocStore{docs: make(map[string][]byte)}
	recorder := &eventRecorder{}
	r := testRunner(t, warehouse, docs, recorder)
	ctx := context.Background()

	if err := r.Train(ctx, types.FrequencyDaily); err != nil {
		t.Fatalf("Train: %v", err)
	}
	m, err := r.registry.Load(ctx, types.FrequencyDaily.ModelKey())
	if err != nil {
		t.Fatalf("trained model not registered: %v", err)
	}
	if m.Frequency != types.FrequencyDaily {
		t.Errorf("model frequency = %q, want daily", m.Frequency)
	}

	if err := r.Forecast(ctx, types.FrequencyDaily); err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	if len(warehouse.saved) != 7 {
		t.Errorf("warehouse got %d forecast rows, want the daily horizon of 7", len(warehouse.saved))
	}
	if _, ok := docs.docs[docstore.Key("daily", "dev-a", "site-1")]; !ok {
		t.Error("forecast document was not upserted")
	}

	wantStates := []types.JobState{
		types.JobStateStarted, types.JobStateCompleted, // train
		types.JobStateStarted, types.JobStateCompleted, // forecast
	}
	if len(recorder.events) != len(wantStates) {
		t.Fatalf("got %d events, want %d", len(recorder.events), len(wantStates))
	}
	for i, ev := range recorder.events {
		if ev.State != wantStates[i] {
			t.Errorf("event %d state = %q, want %q", i, ev.State, wantStates[i])
		}
		if ev.RunID == "" {
			t.Errorf("event %d has empty run id", i)
		}
	}
	// both events of one run share the run id; runs differ
	if recorder.events[0].RunID != recorder.events[1].RunID {
		t.Error("train events have different run ids")
	}
	if recorder.events[0].RunID == recorder.events[2].RunID {
		t.Error("train and forecast runs share a run id")
	}
}

func TestForecastWithoutModel(t *testing.T) {
	warehouse := &fakeWarehouse{obs: dailyObservations()}
	docs := &fakeDocStore{docs: make(map[string][]byte)}
	recorder := &eventRecorder{}
	r := testRunner(t, warehouse, docs, recorder)

	err := r.Forecast(context.Background(), types.FrequencyDaily)
	if !errors.Is(err, types.ErrModelNotFound) {
		t.Fatalf("error = %v, want ErrModelNotFound", err)
	}
	last := recorder.events[len(recorder.events)-1]
	if last.State != types.JobStateFailed || last.Error == "" {
		t.Errorf("final event = %+v, want a Failed event carrying the error", last)
	}
}

func TestTrainEmptyWindow(t *testing.T) {
	warehouse := &fakeWarehouse{} // no observations at all
	r := testRunner(t, warehouse, &fakeDocStore{docs: make(map[string][]byte)}, nil)

	if err := r.Train(context.Background(), types.FrequencyDaily); !errors.Is(err, types.ErrEmptyInput) {
		t.Fatalf("error = %v, want ErrEmptyInput", err)
	}
}

func TestGroupingKeys(t *testing.T) {
	// training groups by device only, prediction by device and site
	if len(trainingGroupKeys) != 1 || trainingGroupKeys[0] != "device_id" {
		t.Errorf("training keys = %v, want [device_id]", trainingGroupKeys)
	}
	if len(predictionGroupKeys) != 2 || predictionGroupKeys[0] != "device_id" || predictionGroupKeys[1] != "site_id" {
		t.Errorf("prediction keys = %v, want [device_id site_id]", predictionGroupKeys)
	}
}

func TestUnsupportedFrequency(t *testing.T) {
	warehouse := &fakeWarehouse{obs: dailyObservations()}
	r := testRunner(t, warehouse, &fakeDocStore{docs: make(map[string][]byte)}, nil)
	ctx := context.Background()

	if err := r.Train(ctx, types.Frequency("weekly")); !errors.Is(err, types.ErrUnsupportedFrequency) {
		t.Errorf("Train error = %v, want ErrUnsupportedFrequency", err)
	}
	if err := r.Forecast(ctx, types.Frequency("weekly")); !errors.Is(err, types.ErrUnsupportedFrequency) {
		t.Errorf("Forecast error = %v, want ErrUnsupportedFrequency", err)
	}
}
