package modelstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/model"
	"github.com/ssenyonjo/aircast/pkg/types"
)

func testRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return New(blobs, zerolog.Nop()), dir
}

func artifact(base float64) *model.Model {
	return &model.Model{
		Frequency:    types.FrequencyHourly,
		FeatureNames: []string{"pm2_5_last_1_hour"},
		BaseScore:    base,
		LearningRate: 0.1,
	}
}

func TestLoadMissingModel(t *testing.T) {
	reg, _ := testRegistry(t)
	_, err := reg.Load(context.Background(), "hourly_forecast_model")
	if !errors.Is(err, types.ErrModelNotFound) {
		t.Fatalf("Load() error = %v, want ErrModelNotFound", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()
	key := types.FrequencyHourly.ModelKey()

	if err := reg.Save(ctx, artifact(42), key); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := reg.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BaseScore != 42 {
		t.Errorf("BaseScore = %v, want 42", got.BaseScore)
	}
	if len(got.FeatureNames) != 1 || got.FeatureNames[0] != "pm2_5_last_1_hour" {
		t.Errorf("FeatureNames = %v", got.FeatureNames)
	}
}

func TestSaveBacksUpPreviousModel(t *testing.T) {
	reg, dir := testRegistry(t)
	// fixed clock so the backup name is predictable
	reg.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	ctx := context.Background()
	key := types.FrequencyHourly.ModelKey()

	if err := reg.Save(ctx, artifact(1), key); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := reg.Save(ctx, artifact(2), key); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := reg.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BaseScore != 2 {
		t.Errorf("active model BaseScore = %v, want the second save", got.BaseScore)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("dir has %v, want the active model plus exactly one backup", names)
	}

	backupKey := key + "-2024-03-01T12:00:00Z"
	old, err := reg.Load(ctx, backupKey)
	if err != nil {
		t.Fatalf("Load backup: %v", err)
	}
	if old.BaseScore != 1 {
		t.Errorf("backup BaseScore = %v, want the first save", old.BaseScore)
	}
}

func TestFSStoreExists(t *testing.T) {
	blobs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	ok, err := blobs.Exists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("Exists on empty store = (%v, %v), want (false, nil)", ok, err)
	}
	if err := blobs.Write(ctx, "k", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err = blobs.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists after write = (%v, %v), want (true, nil)", ok, err)
	}
}
