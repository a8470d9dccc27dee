// Package training turns a feature table into a registered forecast model:
// temporal split per device, hyperparameter search with pruning, final refit,
// registry save.
package training

import (
	"fmt"
	"time"

	"github.com/ssenyonjo/aircast/internal/dataset"
)

const (
	trainMonthCount      = 8
	validationMonthCount = 1
)

// Partitions are the global train/validation/test tables, concatenated across
// devices. Any of validation/test may be empty when devices are short-lived.
type Partitions struct {
	Train      *dataset.Frame
	Validation *dataset.Frame
	Test       *dataset.Frame
}

// Split partitions each device's distinct calendar months, in first-seen
// order, into train (first 8), validation (next 1) and test (the rest), then
// concatenates across devices. Devices with fewer than 9 distinct months get
// empty validation and/or test partitions; devices with no rows contribute
// nothing. Rows with an empty device id are discarded.
func Split(f *dataset.Frame) (*Partitions, error) {
	p := &Partitions{
		Train:      dataset.NewFrame(),
		Validation: dataset.NewFrame(),
		Test:       dataset.NewFrame(),
	}

	order, groups := f.GroupBy([]string{dataset.ColDeviceID})
	for _, device := range order {
		if device == "" {
			continue
		}
		idx := groups[device]

		var monthOrder []time.Month
		seen := make(map[time.Month]bool)
		for _, i := range idx {
			m := f.Timestamp[i].UTC().Month()
			if !seen[m] {
				seen[m] = true
				monthOrder = append(monthOrder, m)
			}
		}

		rank := make(map[time.Month]int, len(monthOrder))
		for r, m := range monthOrder {
			rank[m] = r
		}

		var train, val, test []int
		for _, i := range idx {
			switch r := rank[f.Timestamp[i].UTC().Month()]; {
			case r < trainMonthCount:
				train = append(train, i)
			case r < trainMonthCount+validationMonthCount:
				val = append(val, i)
			default:
				test = append(test, i)
			}
		}

		if err := p.Train.Append(f.Select(train)); err != nil {
			return nil, fmt.Errorf("failed to append train rows for device %s: %w", device, err)
		}
		if err := p.Validation.Append(f.Select(val)); err != nil {
			return nil, fmt.Errorf("failed to append validation rows for device %s: %w", device, err)
		}
		if err := p.Test.Append(f.Select(test)); err != nil {
			return nil, fmt.Errorf("failed to append test rows for device %s: %w", device, err)
		}
	}
	return p, nil
}
