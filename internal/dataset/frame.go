// Package dataset holds the in-memory column table the feature pipeline
// operates on. Identifier columns (device, site, timestamp) are typed;
// everything numeric lives in named float64 columns whose order is preserved,
// since trained models consume feature vectors by column position.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ssenyonjo/aircast/pkg/types"
)

const (
	ColDeviceID  = "device_id"
	ColSiteID    = "site_id"
	ColTimestamp = "timestamp"
	ColPM25      = "pm2_5"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
)

type Frame struct {
	DeviceID  []string
	SiteID    []string
	Timestamp []time.Time

	cols []string
	data map[string][]float64
}

func NewFrame() *Frame {
	return &Frame{data: make(map[string][]float64)}
}

// FromObservations builds a frame with the standard warehouse columns.
func FromObservations(obs []types.Observation) *Frame {
	f := NewFrame()
	pm := make([]float64, len(obs))
	lat := make([]float64, len(obs))
	lon := make([]float64, len(obs))
	for i, o := range obs {
		f.DeviceID = append(f.DeviceID, o.DeviceID)
		f.SiteID = append(f.SiteID, o.SiteID)
		f.Timestamp = append(f.Timestamp, o.Timestamp)
		pm[i] = o.PM25
		lat[i] = o.Latitude
		lon[i] = o.Longitude
	}
	f.SetColumn(ColPM25, pm)
	f.SetColumn(ColLatitude, lat)
	f.SetColumn(ColLongitude, lon)
	return f
}

func (f *Frame) Len() int { return len(f.Timestamp) }

// Columns returns the numeric column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// SetColumn adds or replaces a numeric column. A new column is appended to
// the column order; replacing keeps the original position.
func (f *Frame) SetColumn(name string, vals []float64) {
	if _, ok := f.data[name]; !ok {
		f.cols = append(f.cols, name)
	}
	f.data[name] = vals
}

func (f *Frame) Column(name string) []float64 {
	return f.data[name]
}

func (f *Frame) Value(name string, i int) float64 {
	col, ok := f.data[name]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

func (f *Frame) SetValue(name string, i int, v float64) {
	f.data[name][i] = v
}

func (f *Frame) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
		delete(f.data, n)
	}
	kept := f.cols[:0]
	for _, c := range f.cols {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
}

// Require returns a SchemaError naming every absent column. The identifier
// columns are checked against their typed slices.
func (f *Frame) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		switch n {
		case ColDeviceID:
			if f.DeviceID == nil {
				missing = append(missing, n)
			}
		case ColSiteID:
			if f.SiteID == nil {
				missing = append(missing, n)
			}
		case ColTimestamp:
			if f.Timestamp == nil {
				missing = append(missing, n)
			}
		default:
			if !f.HasColumn(n) {
				missing = append(missing, n)
			}
		}
	}
	if len(missing) > 0 {
		return &types.SchemaError{Missing: missing}
	}
	return nil
}

// AppendRow appends one row; numeric columns absent from vals get NaN.
func (f *Frame) AppendRow(device, site string, ts time.Time, vals map[string]float64) {
	f.DeviceID = append(f.DeviceID, device)
	f.SiteID = append(f.SiteID, site)
	f.Timestamp = append(f.Timestamp, ts)
	for _, c := range f.cols {
		v, ok := vals[c]
		if !ok {
			v = math.NaN()
		}
		f.data[c] = append(f.data[c], v)
	}
}

// CopyRow duplicates row i at the end of the frame.
func (f *Frame) CopyRow(i int) {
	f.DeviceID = append(f.DeviceID, f.DeviceID[i])
	f.SiteID = append(f.SiteID, f.SiteID[i])
	f.Timestamp = append(f.Timestamp, f.Timestamp[i])
	for _, c := range f.cols {
		f.data[c] = append(f.data[c], f.data[c][i])
	}
}

// Select copies the given rows, in order, into a new frame with the same
// column layout.
func (f *Frame) Select(indices []int) *Frame {
	out := NewFrame()
	out.DeviceID = make([]string, 0, len(indices))
	out.SiteID = make([]string, 0, len(indices))
	out.Timestamp = make([]time.Time, 0, len(indices))
	for _, c := range f.cols {
		out.cols = append(out.cols, c)
		out.data[c] = make([]float64, 0, len(indices))
	}
	for _, i := range indices {
		out.DeviceID = append(out.DeviceID, f.DeviceID[i])
		out.SiteID = append(out.SiteID, f.SiteID[i])
		out.Timestamp = append(out.Timestamp, f.Timestamp[i])
		for _, c := range f.cols {
			out.data[c] = append(out.data[c], f.data[c][i])
		}
	}
	return out
}

// Append concatenates other onto f. Both frames must share the same columns.
func (f *Frame) Append(other *Frame) error {
	if other.Len() == 0 {
		return nil
	}
	if f.Len() == 0 && len(f.cols) == 0 {
		*f = *other.Select(seq(other.Len()))
		return nil
	}
	if len(f.cols) != len(other.cols) {
		return fmt.Errorf("frame column mismatch: %d vs %d", len(f.cols), len(other.cols))
	}
	for _, c := range f.cols {
		if !other.HasColumn(c) {
			return fmt.Errorf("frame column mismatch: missing %q", c)
		}
	}
	f.DeviceID = append(f.DeviceID, other.DeviceID...)
	f.SiteID = append(f.SiteID, other.SiteID...)
	f.Timestamp = append(f.Timestamp, other.Timestamp...)
	for _, c := range f.cols {
		f.data[c] = append(f.data[c], other.data[c]...)
	}
	return nil
}

// GroupKey renders the grouping key for row i over the given key columns
// (device_id and/or site_id).
func (f *Frame) GroupKey(i int, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch k {
		case ColDeviceID:
			parts = append(parts, f.DeviceID[i])
		case ColSiteID:
			parts = append(parts, f.SiteID[i])
		}
	}
	return strings.Join(parts, "\x1f")
}

// GroupBy returns row indices per group, groups ordered by first appearance
// and indices in row order.
func (f *Frame) GroupBy(keys []string) ([]string, map[string][]int) {
	groups := make(map[string][]int)
	var order []string
	for i := 0; i < f.Len(); i++ {
		k := f.GroupKey(i, keys)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	return order, groups
}

// SortByTimestamp stable-sorts all rows by timestamp so that per-group index
// slices come out time-ordered.
func (f *Frame) SortByTimestamp() {
	idx := seq(f.Len())
	sort.SliceStable(idx, func(a, b int) bool {
		return f.Timestamp[idx[a]].Before(f.Timestamp[idx[b]])
	})
	*f = *f.Select(idx)
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
