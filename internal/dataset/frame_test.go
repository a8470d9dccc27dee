package dataset

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ssenyonjo/aircast/pkg/types"
)

func ts(h int) time.Time {
	return time.Date(2024, 3, 1, h, 0, 0, 0, time.UTC)
}

func sampleFrame() *Frame {
	f := NewFrame()
	f.DeviceID = []string{"dev-a", "dev-a", "dev-b", "dev-a"}
	f.SiteID = []string{"s1", "s1", "s2", "s2"}
	f.Timestamp = []time.Time{ts(0), ts(1), ts(2), ts(3)}
	f.SetColumn(ColPM25, []float64{10, 11, 12, 13})
	return f
}

func TestSetColumnPreservesInsertionOrder(t *testing.T) {
	f := sampleFrame()
	f.SetColumn("b", []float64{1, 2, 3, 4})
	f.SetColumn("a", []float64{5, 6, 7, 8})
	// replacing must keep the original position
	f.SetColumn("b", []float64{9, 9, 9, 9})

	want := []string{ColPM25, "b", "a"}
	got := f.Columns()
	if len(got) != len(want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
	if f.Value("b", 0) != 9 {
		t.Errorf("replaced column value = %v, want 9", f.Value("b", 0))
	}
}

func TestRequireReportsAllMissing(t *testing.T) {
	f := NewFrame()
	f.DeviceID = []string{"dev-a"}
	f.SiteID = []string{"s1"}
	f.Timestamp = []time.Time{ts(0)}

	err := f.Require(ColDeviceID, ColPM25, "humidity")
	var schemaErr *types.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Require() error = %v, want *types.SchemaError", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Fatalf("missing = %v, want [pm2_5 humidity]", schemaErr.Missing)
	}
	if schemaErr.Missing[0] != ColPM25 || schemaErr.Missing[1] != "humidity" {
		t.Errorf("missing = %v, want [pm2_5 humidity]", schemaErr.Missing)
	}
}

func TestGroupByFirstAppearanceOrder(t *testing.T) {
	f := sampleFrame()

	tests := []struct {
		name      string
		keys      []string
		wantOrder int
		wantFirst []int
	}{
		{"by device", []string{ColDeviceID}, 2, []int{0, 1, 3}},
		{"by device and site", []string{ColDeviceID, ColSiteID}, 3, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, groups := f.GroupBy(tt.keys)
			if len(order) != tt.wantOrder {
				t.Fatalf("got %d groups, want %d", len(order), tt.wantOrder)
			}
			first := groups[order[0]]
			if len(first) != len(tt.wantFirst) {
				t.Fatalf("first group = %v, want %v", first, tt.wantFirst)
			}
			for i := range first {
				if first[i] != tt.wantFirst[i] {
					t.Errorf("first group = %v, want %v", first, tt.wantFirst)
					break
				}
			}
		})
	}
}

func TestSelectCopiesRows(t *testing.T) {
	f := sampleFrame()
	sub := f.Select([]int{2, 0})

	if sub.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sub.Len())
	}
	if sub.DeviceID[0] != "dev-b" || sub.DeviceID[1] != "dev-a" {
		t.Errorf("devices = %v, want [dev-b dev-a]", sub.DeviceID)
	}
	if sub.Value(ColPM25, 0) != 12 {
		t.Errorf("pm2_5[0] = %v, want 12", sub.Value(ColPM25, 0))
	}

	// mutating the selection must not leak into the source
	sub.SetValue(ColPM25, 0, 99)
	if f.Value(ColPM25, 2) != 12 {
		t.Errorf("source pm2_5[2] = %v after mutating selection, want 12", f.Value(ColPM25, 2))
	}
}

func TestAppendColumnMismatch(t *testing.T) {
	f := sampleFrame()
	other := sampleFrame()
	other.SetColumn("extra", []float64{0, 0, 0, 0})

	if err := f.Append(other); err == nil {
		t.Fatal("Append() with mismatched columns should fail")
	}
}

func TestAppendIntoEmptyFrameAdoptsLayout(t *testing.T) {
	dst := NewFrame()
	if err := dst.Append(sampleFrame()); err != nil {
		t.Fatalf("Append() into empty frame: %v", err)
	}
	if dst.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", dst.Len())
	}
	if !dst.HasColumn(ColPM25) {
		t.Error("appended frame is missing pm2_5 column")
	}
}

func TestAppendRowFillsMissingWithNaN(t *testing.T) {
	f := sampleFrame()
	f.AppendRow("dev-c", "s3", ts(4), map[string]float64{})
	if v := f.Value(ColPM25, 4); !math.IsNaN(v) {
		t.Errorf("pm2_5 for row without value = %v, want NaN", v)
	}
}

func TestSortByTimestampStable(t *testing.T) {
	f := NewFrame()
	f.DeviceID = []string{"b", "a", "c"}
	f.SiteID = []string{"s", "s", "s"}
	f.Timestamp = []time.Time{ts(1), ts(0), ts(1)}
	f.SetColumn(ColPM25, []float64{2, 1, 3})

	f.SortByTimestamp()

	if f.DeviceID[0] != "a" {
		t.Errorf("first row device = %q, want a", f.DeviceID[0])
	}
	// equal timestamps keep their input order
	if f.DeviceID[1] != "b" || f.DeviceID[2] != "c" {
		t.Errorf("tie order = %v, want [a b c]", f.DeviceID)
	}
}

func TestValueMissingColumnIsNaN(t *testing.T) {
	f := sampleFrame()
	if v := f.Value("no_such_column", 0); !math.IsNaN(v) {
		t.Errorf("Value() on missing column = %v, want NaN", v)
	}
}
