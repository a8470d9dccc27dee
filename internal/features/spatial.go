package features

import (
	"math"

	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// Spatial projects (latitude, longitude), taken as radians, onto x/y/z on
// the unit sphere so nearby monitors get nearby encodings without a
// longitude wraparound seam.
func Spatial(f *dataset.Frame) error {
	if f.Len() == 0 {
		return types.ErrEmptyInput
	}
	if err := f.Require(dataset.ColTimestamp, dataset.ColLatitude, dataset.ColLongitude); err != nil {
		return err
	}

	lat := f.Column(dataset.ColLatitude)
	lon := f.Column(dataset.ColLongitude)
	x := make([]float64, f.Len())
	y := make([]float64, f.Len())
	z := make([]float64, f.Len())
	for i := 0; i < f.Len(); i++ {
		x[i] = math.Cos(lat[i]) * math.Cos(lon[i])
		y[i] = math.Cos(lat[i]) * math.Sin(lon[i])
		z[i] = math.Sin(lat[i])
	}
	f.SetColumn("x_cord", x)
	f.SetColumn("y_cord", y)
	f.SetColumn("z_cord", z)
	return nil
}
