package features

import (
	"math"
	"time"

	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// DefaultYearPeriod is the historical anchor divisor used for the "year"
// sinusoid. It is not a true period; it is kept configurable so the anchor
// can move without retraining everything else.
const DefaultYearPeriod = 2023

// Fixed sinusoid divisors for the remaining calendar attributes.
const (
	monthPeriod     = 12
	dayPeriod       = 30
	dayOfWeekPeriod = 7
	hourPeriod      = 23
	weekPeriod      = 52
)

func cyclicAttrs(freq types.Frequency) []string {
	attrs := []string{"year", "month", "day", "dayofweek"}
	if freq == types.FrequencyHourly {
		attrs = append(attrs, "hour")
	}
	return attrs
}

// CyclicColumns lists the generated column names in output order.
func CyclicColumns(freq types.Frequency) []string {
	var cols []string
	for _, a := range append(cyclicAttrs(freq), "week") {
		cols = append(cols, a+"_sin", a+"_cos")
	}
	return cols
}

// CyclicValues computes the sin/cos encoding of one timestamp.
func CyclicValues(ts time.Time, freq types.Frequency, yearPeriod int) map[string]float64 {
	ts = ts.UTC()
	attrs := map[string]struct {
		value  float64
		period float64
	}{
		"year":      {float64(ts.Year()), float64(yearPeriod)},
		"month":     {float64(ts.Month()), monthPeriod},
		"day":       {float64(ts.Day()), dayPeriod},
		"dayofweek": {float64((int(ts.Weekday()) + 6) % 7), dayOfWeekPeriod}, // Monday = 0
	}
	if freq == types.FrequencyHourly {
		attrs["hour"] = struct {
			value  float64
			period float64
		}{float64(ts.Hour()), hourPeriod}
	}
	_, week := ts.ISOWeek()
	attrs["week"] = struct {
		value  float64
		period float64
	}{float64(week), weekPeriod}

	out := make(map[string]float64, 2*len(attrs))
	for name, a := range attrs {
		angle := 2 * math.Pi * a.value / a.period
		out[name+"_sin"] = math.Sin(angle)
		out[name+"_cos"] = math.Cos(angle)
	}
	return out
}

// CyclicTime appends the sin/cos pair columns for every calendar attribute of
// the frequency. The raw calendar attributes are never materialized; only the
// encoded pairs land in the frame.
func CyclicTime(f *dataset.Frame, freq types.Frequency, yearPeriod int) error {
	if f.Len() == 0 {
		return types.ErrEmptyInput
	}
	if err := f.Require(dataset.ColTimestamp); err != nil {
		return err
	}
	if freq != types.FrequencyHourly && freq != types.FrequencyDaily {
		return types.ErrUnsupportedFrequency
	}
	if yearPeriod <= 0 {
		yearPeriod = DefaultYearPeriod
	}

	cols := CyclicColumns(freq)
	buf := make(map[string][]float64, len(cols))
	for _, c := range cols {
		buf[c] = make([]float64, f.Len())
	}
	for i := 0; i < f.Len(); i++ {
		vals := CyclicValues(f.Timestamp[i], freq, yearPeriod)
		for _, c := range cols {
			buf[c][i] = vals[c]
		}
	}
	for _, c := range cols {
		f.SetColumn(c, buf[c])
	}
	return nil
}
