package features

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// The lag/rolling vocabulary is a fixed contract per frequency, shared by
// training and the recursive forecast loop. Not configurable per call.
var (
	hourlyLags    = []int{1, 2, 6, 12}
	hourlyWindows = []int{3, 6, 12, 24}
	hourlyFuncs   = []string{"mean", "std", "median", "skew"}

	dailyLags    = []int{1, 2, 3, 7}
	dailyWindows = []int{2, 3, 7}
	dailyFuncs   = []string{"mean", "std", "max", "min"}
)

func LagSteps(freq types.Frequency) []int {
	if freq == types.FrequencyDaily {
		return dailyLags
	}
	return hourlyLags
}

func RollWindows(freq types.Frequency) []int {
	if freq == types.FrequencyDaily {
		return dailyWindows
	}
	return hourlyWindows
}

func RollFuncs(freq types.Frequency) []string {
	if freq == types.FrequencyDaily {
		return dailyFuncs
	}
	return hourlyFuncs
}

// MaxWindow is the largest rolling window; seed series shorter than this
// produce NaN rolling features on early recursion steps.
func MaxWindow(freq types.Frequency) int {
	ws := RollWindows(freq)
	return ws[len(ws)-1]
}

func freqUnit(freq types.Frequency) string {
	if freq == types.FrequencyDaily {
		return "day"
	}
	return "hour"
}

func LagColumn(k int, freq types.Frequency) string {
	return fmt.Sprintf("pm2_5_last_%d_%s", k, freqUnit(freq))
}

func RollColumn(fn string, window int, freq types.Frequency) string {
	return fmt.Sprintf("pm2_5_%s_%d_%s", fn, window, freqUnit(freq))
}

// LagAndRolling appends the frequency's lag and rolling-aggregate columns,
// computed per group over strictly-prior rows: lag k reads the value k rows
// back, and every rolling window is shifted one step back before aggregation
// so the current row never enters its own statistic. Rows without a full,
// fully-observed window get NaN.
func LagAndRolling(f *dataset.Frame, target string, freq types.Frequency, groupBy []string) error {
	if f.Len() == 0 {
		return types.ErrEmptyInput
	}
	if err := f.Require(target, dataset.ColTimestamp, dataset.ColDeviceID); err != nil {
		return err
	}
	if freq != types.FrequencyHourly && freq != types.FrequencyDaily {
		return types.ErrUnsupportedFrequency
	}

	_, groups := f.GroupBy(groupBy)
	vals := f.Column(target)

	for _, k := range LagSteps(freq) {
		col := nanColumn(f.Len())
		for _, idx := range groups {
			for p, i := range idx {
				if p >= k {
					col[i] = vals[idx[p-k]]
				}
			}
		}
		f.SetColumn(LagColumn(k, freq), col)
	}

	for _, w := range RollWindows(freq) {
		for _, fn := range RollFuncs(freq) {
			col := nanColumn(f.Len())
			for _, idx := range groups {
				for p, i := range idx {
					// one-step lookback: window covers positions p-w .. p-1
					if p < w {
						continue
					}
					window := make([]float64, 0, w)
					for q := p - w; q < p; q++ {
						window = append(window, vals[idx[q]])
					}
					col[i] = RollAgg(fn, window)
				}
			}
			f.SetColumn(RollColumn(fn, w, freq), col)
		}
	}
	return nil
}

// RollAgg aggregates a full window. Any NaN in the window poisons the result,
// matching the full-window semantics of the training data.
func RollAgg(fn string, window []float64) float64 {
	for _, v := range window {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	switch fn {
	case "mean":
		return stat.Mean(window, nil)
	case "std":
		return stat.StdDev(window, nil)
	case "median":
		return median(window)
	case "skew":
		if len(window) < 3 {
			return math.NaN()
		}
		return stat.Skew(window, nil)
	case "max":
		m := window[0]
		for _, v := range window[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case "min":
		m := window[0]
		for _, v := range window[1:] {
			if v < m {
				m = v
			}
		}
		return m
	default:
		return math.NaN()
	}
}

func median(window []float64) float64 {
	s := make([]float64, len(window))
	copy(s, window)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
