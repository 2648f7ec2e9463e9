package accumulators

import (
	"github.com/go-sif/sifacc"
)

// Concat returns a MergeStrategy which concatenates string Values.
// Concatenation is associative but not commutative: the result reflects the
// order in which updates arrive at the driver.
func Concat() sifacc.MergeStrategy {
	return concat{}
}

type concat struct{}

func (concat) Name() string      { return "Concat" }
func (concat) Kind() sifacc.Kind { return sifacc.KindString }

func (concat) Zero(sample sifacc.Value) sifacc.Value {
	return sifacc.String("")
}

func (s concat) Merge(a, b sifacc.Value) (sifacc.Value, error) {
	x, ok := a.AsString()
	if !ok {
		return sifacc.Value{}, mismatch(s, a)
	}
	y, ok := b.AsString()
	if !ok {
		return sifacc.Value{}, mismatch(s, b)
	}
	return sifacc.String(x + y), nil
}

// Append returns a MergeStrategy which appends list Values.
// Like Concat, the result reflects arrival order.
func Append() sifacc.MergeStrategy {
	return appendList{}
}

type appendList struct{}

func (appendList) Name() string      { return "Append" }
func (appendList) Kind() sifacc.Kind { return sifacc.KindList }

func (appendList) Zero(sample sifacc.Value) sifacc.Value {
	return sifacc.List()
}

func (s appendList) Merge(a, b sifacc.Value) (sifacc.Value, error) {
	x, ok := a.AsList()
	if !ok {
		return sifacc.Value{}, mismatch(s, a)
	}
	y, ok := b.AsList()
	if !ok {
		return sifacc.Value{}, mismatch(s, b)
	}
	return sifacc.List(append(x, y...)...), nil
}
