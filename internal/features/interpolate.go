// Package features derives model inputs from raw observation tables: gap
// interpolation, lag and rolling statistics, cyclic time encodings and
// spatial encodings. All functions are pure; they never touch storage.
package features

import (
	"math"
	"time"

	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// InterpolateAndResample linearly interpolates bounded pm2_5 gaps per group
// and, for daily frequency, collapses each group to one row per calendar day
// (averaging numeric columns) before re-interpolating. Rows whose pm2_5 is
// still NaN afterwards (leading/trailing gaps) are dropped.
//
// groupBy names the grouping key columns: device_id alone for training data,
// device_id plus site_id for prediction data.
func InterpolateAndResample(f *dataset.Frame, freq types.Frequency, groupBy []string) (*dataset.Frame, error) {
	if err := f.Require(dataset.ColDeviceID, dataset.ColPM25, dataset.ColTimestamp); err != nil {
		return nil, err
	}
	if freq != types.FrequencyHourly && freq != types.FrequencyDaily {
		return nil, types.ErrUnsupportedFrequency
	}
	if f.Len() == 0 {
		return nil, types.ErrEmptyInput
	}

	out := f.Select(rowSeq(f.Len()))
	out.SortByTimestamp()

	_, groups := out.GroupBy(groupBy)
	pm := out.Column(dataset.ColPM25)
	for _, idx := range groups {
		interpolateAt(pm, idx)
	}

	if freq == types.FrequencyDaily {
		var err error
		out, err = resampleDaily(out, groupBy)
		if err != nil {
			return nil, err
		}
		_, groups = out.GroupBy(groupBy)
		pm = out.Column(dataset.ColPM25)
		for _, idx := range groups {
			interpolateAt(pm, idx)
		}
	}

	return dropMissingTarget(out), nil
}

// interpolateAt fills NaN runs in vals at the given indices, linearly in
// position space, but only runs bounded by observed values on both sides.
func interpolateAt(vals []float64, idx []int) {
	lastKnown := -1 // position within idx of the previous non-NaN value
	for p := 0; p < len(idx); p++ {
		v := vals[idx[p]]
		if math.IsNaN(v) {
			continue
		}
		if lastKnown >= 0 && p-lastKnown > 1 {
			lo, hi := vals[idx[lastKnown]], v
			span := float64(p - lastKnown)
			for q := lastKnown + 1; q < p; q++ {
				frac := float64(q-lastKnown) / span
				vals[idx[q]] = lo + (hi-lo)*frac
			}
		}
		lastKnown = p
	}
}

// resampleDaily produces one row per group per calendar day between the
// group's first and last observation, averaging each numeric column over the
// day's rows (NaN-skipping); days without rows stay NaN for interpolation.
func resampleDaily(f *dataset.Frame, groupBy []string) (*dataset.Frame, error) {
	out := dataset.NewFrame()
	for _, c := range f.Columns() {
		out.SetColumn(c, nil)
	}

	order, groups := f.GroupBy(groupBy)
	for _, key := range order {
		idx := groups[key]
		first := idx[0]

		days := make(map[time.Time][]int)
		start := dayOf(f.Timestamp[idx[0]])
		end := start
		for _, i := range idx {
			d := dayOf(f.Timestamp[i])
			days[d] = append(days[d], i)
			if d.After(end) {
				end = d
			}
		}

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			vals := make(map[string]float64, len(f.Columns()))
			for _, c := range f.Columns() {
				vals[c] = nanMeanAt(f.Column(c), days[d])
			}
			out.AppendRow(f.DeviceID[first], f.SiteID[first], d, vals)
		}
	}
	return out, nil
}

func nanMeanAt(vals []float64, idx []int) float64 {
	sum, n := 0.0, 0
	for _, i := range idx {
		if v := vals[i]; !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func dropMissingTarget(f *dataset.Frame) *dataset.Frame {
	pm := f.Column(dataset.ColPM25)
	keep := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if !math.IsNaN(pm[i]) {
			keep = append(keep, i)
		}
	}
	if len(keep) == f.Len() {
		return f
	}
	return f.Select(keep)
}

func dayOf(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func rowSeq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
