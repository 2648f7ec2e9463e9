package accumulators

import (
	"math"

	"github.com/go-sif/sifacc"
)

// IntMax returns a MergeStrategy which keeps the largest int64 Value seen
func IntMax() sifacc.MergeStrategy {
	return intExtremum{name: "IntMax", zero: math.MinInt64, keep: func(x, y int64) bool { return x >= y }}
}

// IntMin returns a MergeStrategy which keeps the smallest int64 Value seen
func IntMin() sifacc.MergeStrategy {
	return intExtremum{name: "IntMin", zero: math.MaxInt64, keep: func(x, y int64) bool { return x <= y }}
}

type intExtremum struct {
	name string
	zero int64
	keep func(x, y int64) bool // true if x should be kept over y
}

func (s intExtremum) Name() string    { return s.name }
func (intExtremum) Kind() sifacc.Kind { return sifacc.KindInt64 }

func (s intExtremum) Zero(sample sifacc.Value) sifacc.Value {
	return sifacc.Int64(s.zero)
}

func (s intExtremum) Merge(a, b sifacc.Value) (sifacc.Value, error) {
	x, y, err := int64Operands(s, a, b)
	if err != nil {
		return sifacc.Value{}, err
	}
	if s.keep(x, y) {
		return a, nil
	}
	return b, nil
}
