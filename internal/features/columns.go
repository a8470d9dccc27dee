package features

import "github.com/ssenyonjo/aircast/internal/dataset"

// Identifier, target and raw-location columns never enter the model; it sees
// engineered features only.
var excludedModelColumns = map[string]bool{
	dataset.ColPM25:      true,
	dataset.ColLatitude:  true,
	dataset.ColLongitude: true,
}

// ModelColumns returns the model input columns of a feature table in frame
// column order. Training freezes this order into the artifact; inference
// must reproduce it exactly.
func ModelColumns(f *dataset.Frame) []string {
	var names []string
	for _, c := range f.Columns() {
		if !excludedModelColumns[c] {
			names = append(names, c)
		}
	}
	return names
}
