package accumulators

import (
	"github.com/go-sif/sifacc"
)

// ForKind returns the default MergeStrategy for a Kind of Value, or nil for KindInvalid.
// The driver uses it to construct accumulators for updates which reference an id it
// never registered.
func ForKind(kind sifacc.Kind) sifacc.MergeStrategy {
	switch kind {
	case sifacc.KindInt64:
		return IntSum()
	case sifacc.KindFloat64:
		return FloatSum()
	case sifacc.KindString:
		return Concat()
	case sifacc.KindList:
		return Append()
	default:
		return nil
	}
}

// ZeroOf returns the additive identity for the Kind of sample
func ZeroOf(sample sifacc.Value) sifacc.Value {
	strategy := ForKind(sample.Kind())
	if strategy == nil {
		return sifacc.Value{}
	}
	return strategy.Zero(sample)
}
