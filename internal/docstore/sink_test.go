package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/pkg/types"
)

type fakeStore struct {
	docs    map[string][]byte
	failKey string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, doc []byte) error {
	if key == s.failKey {
		return errors.New("store unavailable")
	}
	s.docs[key] = doc
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := s.docs[key]
	if !ok {
		return nil, ErrNoDocument
	}
	return b, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close()                         {}

func point(device, site string, h int, pm float64) types.ForecastPoint {
	return types.ForecastPoint{
		DeviceID:  device,
		SiteID:    site,
		Timestamp: time.Date(2024, 3, 1, h, 0, 0, 0, time.UTC),
		PM25:      pm,
	}
}

func fixedSink(store Store) *Sink {
	s := NewSink(store, zerolog.Nop())
	s.now = func() time.Time {
		return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	}
	return s
}

func TestUpsertGroupsByDeviceAndSite(t *testing.T) {
	store := newFakeStore()
	sink := fixedSink(store)

	points := []types.ForecastPoint{
		point("dev-a", "s1", 10, 1),
		point("dev-a", "s1", 11, 2),
		point("dev-b", "s2", 10, 3),
		point("dev-a", "s2", 10, 4), // same device, different site: its own doc
	}
	saved, err := sink.Upsert(context.Background(), points, types.FrequencyHourly)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved != 3 {
		t.Fatalf("saved = %d, want 3 documents", saved)
	}

	b, ok := store.docs[Key("hourly", "dev-a", "s1")]
	if !ok {
		t.Fatal("document for (dev-a, s1) missing")
	}
	var doc types.ForecastDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(doc.PM25) != 2 || doc.PM25[0] != 1 || doc.PM25[1] != 2 {
		t.Errorf("doc.PM25 = %v, want [1 2]", doc.PM25)
	}
	if doc.CreatedAt != "2024-03-01T09:00:00Z" {
		t.Errorf("CreatedAt = %q", doc.CreatedAt)
	}
}

func TestUpsertReplacesWholesale(t *testing.T) {
	store := newFakeStore()
	sink := fixedSink(store)
	ctx := context.Background()

	first := []types.ForecastPoint{point("dev-a", "s1", 10, 1), point("dev-a", "s1", 11, 2)}
	if _, err := sink.Upsert(ctx, first, types.FrequencyHourly); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	second := []types.ForecastPoint{point("dev-a", "s1", 12, 9)}
	if _, err := sink.Upsert(ctx, second, types.FrequencyHourly); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	doc, err := sink.Latest(ctx, types.FrequencyHourly, "dev-a", "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(doc.PM25) != 1 || doc.PM25[0] != 9 {
		t.Errorf("doc.PM25 = %v, want the second run only", doc.PM25)
	}
}

func TestUpsertSkipsFailedDocument(t *testing.T) {
	store := newFakeStore()
	store.failKey = Key("hourly", "dev-a", "s1")
	sink := fixedSink(store)

	points := []types.ForecastPoint{
		point("dev-a", "s1", 10, 1),
		point("dev-b", "s2", 10, 3),
	}
	saved, err := sink.Upsert(context.Background(), points, types.FrequencyHourly)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1 (failed document skipped)", saved)
	}
	if _, ok := store.docs[Key("hourly", "dev-b", "s2")]; !ok {
		t.Error("healthy document was not persisted")
	}
}

func TestUpsertEmptyInput(t *testing.T) {
	sink := fixedSink(newFakeStore())
	if _, err := sink.Upsert(context.Background(), nil, types.FrequencyHourly); !errors.Is(err, types.ErrEmptyInput) {
		t.Errorf("error = %v, want ErrEmptyInput", err)
	}
}

func TestLatestMissing(t *testing.T) {
	sink := fixedSink(newFakeStore())
	_, err := sink.Latest(context.Background(), types.FrequencyHourly, "dev-a", "s1")
	if !errors.Is(err, ErrNoDocument) {
		t.Errorf("error = %v, want ErrNoDocument", err)
	}
}
