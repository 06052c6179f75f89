package entities

import (
	"fmt"
	"github.com/pkg/errors"
	"math"
)

const (
	ColumnSepalLength = "sepal length (cm)"
	ColumnSepalWidth  = "sepal width (cm)"
	ColumnPetalLength = "petal length (cm)"
	ColumnPetalWidth  = "petal width (cm)"
)

// Columns is the fixed feature order the model was trained on.
var Columns = []string{ColumnSepalLength, ColumnSepalWidth, ColumnPetalLength, ColumnPetalWidth}

type Range struct {
	Min, Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var FeatureRanges = map[string]Range{
	ColumnSepalLength: {Min: 4.3, Max: 7.9},
	ColumnSepalWidth:  {Min: 2.0, Max: 4.4},
	ColumnPetalLength: {Min: 1.0, Max: 6.9},
	ColumnPetalWidth:  {Min: 0.1, Max: 2.5},
}

var ErrInvalidMeasurement = errors.New("invalid measurement")

type MeasurementRecord struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

func (m MeasurementRecord) Columns() []string {
	return append([]string(nil), Columns...)
}

func (m MeasurementRecord) Row() []float64 {
	return []float64{m.SepalLength, m.SepalWidth, m.PetalLength, m.PetalWidth}
}

// Validate checks every value is finite and inside its form range.
func (m MeasurementRecord) Validate() error {
	for i, v := range m.Row() {
		column := Columns[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrap(ErrInvalidMeasurement, fmt.Sprintf("%s is not a number", column))
		}

		r := FeatureRanges[column]
		if !r.Contains(v) {
			return errors.Wrap(
				ErrInvalidMeasurement,
				fmt.Sprintf("%s must be between %.1f and %.1f, got %g", column, r.Min, r.Max, v),
			)
		}
	}

	return nil
}
