package features

import (
	"math"
	"testing"

	"github.com/ssenyonjo/aircast/internal/dataset"
)

func TestSpatialUnitSphere(t *testing.T) {
	f := hourlyFrame("dev-a", t0, []float64{1, 2, 3})
	f.SetColumn(dataset.ColLatitude, []float64{0, 0.3, -1.2})
	f.SetColumn(dataset.ColLongitude, []float64{0, 2.1, -0.5})

	if err := Spatial(f); err != nil {
		t.Fatalf("Spatial: %v", err)
	}

	for i := 0; i < f.Len(); i++ {
		x := f.Value("x_cord", i)
		y := f.Value("y_cord", i)
		z := f.Value("z_cord", i)
		if r := x*x + y*y + z*z; math.Abs(r-1) > 1e-9 {
			t.Errorf("row %d: |v|^2 = %v, want 1", i, r)
		}
	}

	// lat=0, lon=0 maps to (1, 0, 0)
	if f.Value("x_cord", 0) != 1 || f.Value("y_cord", 0) != 0 || f.Value("z_cord", 0) != 0 {
		t.Errorf("origin encoding = (%v, %v, %v), want (1, 0, 0)",
			f.Value("x_cord", 0), f.Value("y_cord", 0), f.Value("z_cord", 0))
	}
}

func TestModelColumnsExcludesTargetAndLocation(t *testing.T) {
	f := hourlyFrame("dev-a", t0, []float64{1})
	f.SetColumn(dataset.ColLatitude, []float64{0.1})
	f.SetColumn(dataset.ColLongitude, []float64{0.2})
	f.SetColumn("pm2_5_last_1_hour", []float64{1})
	f.SetColumn("hour_sin", []float64{0})

	got := ModelColumns(f)
	want := []string{"pm2_5_last_1_hour", "hour_sin"}
	if len(got) != len(want) {
		t.Fatalf("ModelColumns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ModelColumns[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
