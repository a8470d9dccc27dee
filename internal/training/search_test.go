package training

import (
	"context"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/dataset"
)

// featureFrame builds a table with one engineered feature "a" and a target
// that follows it linearly.
func featureFrame(n int, seed int64) *dataset.Frame {
	rng := rand.New(rand.NewSource(seed))
	f := dataset.NewFrame()
	a := make([]float64, n)
	pm := make([]float64, n)
	for i := 0; i < n; i++ {
		f.DeviceID = append(f.DeviceID, "dev-a")
		f.SiteID = append(f.SiteID, "site-1")
		f.Timestamp = append(f.Timestamp, time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC))
		a[i] = rng.Float64() * 10
		pm[i] = 2*a[i] + rng.NormFloat64()*0.05
	}
	f.SetColumn(dataset.ColPM25, pm)
	f.SetColumn("a", a)
	return f
}

func testPartitions(t *testing.T) *Partitions {
	t.Helper()
	return &Partitions{
		Train:      featureFrame(120, 1),
		Validation: featureFrame(40, 2),
		Test:       featureFrame(40, 3),
	}
}

func TestSearchDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("search is compute heavy")
	}
	parts := testPartitions(t)
	ctx := context.Background()

	p1, s1, err := Search(ctx, parts, []string{"a"}, 6, zerolog.Nop())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	p2, s2, err := Search(ctx, parts, []string{"a"}, 6, zerolog.Nop())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if s1 != s2 || !reflect.DeepEqual(p1, p2) {
		t.Errorf("two searches over identical inputs disagree: (%v, %v) vs (%v, %v)", p1, s1, p2, s2)
	}
}

func TestSearchRespectsContext(t *testing.T) {
	parts := testPartitions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := Search(ctx, parts, []string{"a"}, 6, zerolog.Nop()); err == nil {
		t.Error("Search with cancelled context should fail")
	}
}

func TestPrunerKeepsBetterHalf(t *testing.T) {
	p := newPruner()

	// first report at a rung can never be pruned
	if p.shouldPrune(0, 5) {
		t.Error("pruning with no history")
	}
	p.report(0, 1)
	p.report(0, 2)
	p.report(0, 3)
	p.report(0, 4)

	if p.shouldPrune(0, 0.5) {
		t.Error("best score so far was pruned")
	}
	if !p.shouldPrune(0, 10) {
		t.Error("worst score so far survived")
	}
}

func TestSamplerStaysInBounds(t *testing.T) {
	s := newSampler(1)
	for trial := 0; trial < 50; trial++ {
		p := s.suggest()
		if p.ColSample < searchSpace.colSample[0] || p.ColSample > searchSpace.colSample[1] {
			t.Fatalf("trial %d: colsample %v out of bounds", trial, p.ColSample)
		}
		if p.LearningRate < searchSpace.lr[0] || p.LearningRate > searchSpace.lr[1] {
			t.Fatalf("trial %d: learning rate %v out of bounds", trial, p.LearningRate)
		}
		if p.NumLeaves < searchSpace.leaves[0] || p.NumLeaves > searchSpace.leaves[1] {
			t.Fatalf("trial %d: leaves %v out of bounds", trial, p.NumLeaves)
		}
		if p.MaxDepth < searchSpace.depth[0] || p.MaxDepth > searchSpace.depth[1] {
			t.Fatalf("trial %d: depth %v out of bounds", trial, p.MaxDepth)
		}
		s.history = append(s.history, trialResult{params: p, score: float64(trial)})
	}
}
