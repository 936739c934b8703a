package frame

import (
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const sampleRows = 3

type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Summary describes a numeric column. Std is nil below two values.
type Summary struct {
	Count int      `json:"count"`
	Mean  float64  `json:"mean"`
	Std   *float64 `json:"std"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
}

// Info is the structural overview the chart model reads before writing code.
type Info struct {
	Columns            []string                              `json:"columns"`
	Dtypes             *orderedmap.OrderedMap[string, string] `json:"dtypes"`
	Shape              Shape                                 `json:"shape"`
	SampleData         []Record                              `json:"sample_data"`
	NumericColumns     []string                              `json:"numeric_columns"`
	CategoricalColumns []string                              `json:"categorical_columns"`
	Summary            map[string]Summary                    `json:"summary,omitempty"`
}

func (f *Frame) Info() *Info {
	info := &Info{
		Columns:            f.Columns(),
		Dtypes:             orderedmap.New[string, string](len(f.columns)),
		Shape:              Shape{Rows: f.rows, Columns: len(f.columns)},
		SampleData:         f.Head(sampleRows),
		NumericColumns:     []string{},
		CategoricalColumns: []string{},
	}

	for _, c := range f.columns {
		dtype := f.dtypes[c]
		info.Dtypes.Set(c, dtype)
		switch dtype {
		case Int64, Float64:
			info.NumericColumns = append(info.NumericColumns, c)
			if s, ok := summarize(f.values[c]); ok {
				if info.Summary == nil {
					info.Summary = map[string]Summary{}
				}
				info.Summary[c] = s
			}
		case Object:
			info.CategoricalColumns = append(info.CategoricalColumns, c)
		}
	}
	return info
}

func summarize(values []any) (Summary, bool) {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if x, ok := toFloat(v); ok {
			xs = append(xs, x)
		}
	}
	if len(xs) == 0 {
		return Summary{}, false
	}

	s := Summary{
		Count: len(xs),
		Mean:  stat.Mean(xs, nil),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
	}
	if len(xs) > 1 {
		if std := stat.StdDev(xs, nil); !math.IsNaN(std) {
			s.Std = &std
		}
	}
	return s, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
