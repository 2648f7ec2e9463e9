package accumulators

import (
	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/errors"
)

// IntSum returns a MergeStrategy which adds int64 Values.
// Addition uses Go's two's-complement semantics, so a sum which overflows
// wraps around rather than saturating or failing. Wrapping addition is still
// associative and commutative, so the driver-side result does not depend on
// the order of updates even when intermediate sums overflow.
func IntSum() sifacc.MergeStrategy {
	return intSum{}
}

type intSum struct{}

func (intSum) Name() string      { return "IntSum" }
func (intSum) Kind() sifacc.Kind { return sifacc.KindInt64 }

func (intSum) Zero(sample sifacc.Value) sifacc.Value {
	return sifacc.Int64(0)
}

func (s intSum) Merge(a, b sifacc.Value) (sifacc.Value, error) {
	x, y, err := int64Operands(s, a, b)
	if err != nil {
		return sifacc.Value{}, err
	}
	return sifacc.Int64(x + y), nil
}

// FloatSum returns a MergeStrategy which adds float64 Values.
// IEEE-754 addition rounds, so sums of many terms are associative only up to
// rounding error; callers that need exact results should accumulate integers.
// Overflow produces +Inf/-Inf.
func FloatSum() sifacc.MergeStrategy {
	return floatSum{}
}

type floatSum struct{}

func (floatSum) Name() string      { return "FloatSum" }
func (floatSum) Kind() sifacc.Kind { return sifacc.KindFloat64 }

func (floatSum) Zero(sample sifacc.Value) sifacc.Value {
	return sifacc.Float64(0)
}

func (s floatSum) Merge(a, b sifacc.Value) (sifacc.Value, error) {
	x, ok := a.AsFloat64()
	if !ok {
		return sifacc.Value{}, mismatch(s, a)
	}
	y, ok := b.AsFloat64()
	if !ok {
		return sifacc.Value{}, mismatch(s, b)
	}
	return sifacc.Float64(x + y), nil
}

func int64Operands(s sifacc.MergeStrategy, a, b sifacc.Value) (int64, int64, error) {
	x, ok := a.AsInt64()
	if !ok {
		return 0, 0, mismatch(s, a)
	}
	y, ok := b.AsInt64()
	if !ok {
		return 0, 0, mismatch(s, b)
	}
	return x, y, nil
}

func mismatch(s sifacc.MergeStrategy, v sifacc.Value) error {
	return errors.KindMismatchError{
		Strategy: s.Name(),
		Expected: s.Kind().String(),
		Actual:   v.Kind().String(),
	}
}
