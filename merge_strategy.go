package sifacc

// A MergeStrategy combines Values of a single Kind. Merge must be associative and
// should be commutative, so that the order in which workers report their updates
// does not change the value observed by the driver. Strategies which are only
// associative (e.g. string concatenation) are deterministic only when updates
// travel over a single ordered connection.
type MergeStrategy interface {
	Name() string                    // Name identifies this strategy in logs and errors
	Kind() Kind                      // Kind is the Kind of Value this strategy merges
	Zero(sample Value) Value         // Zero returns the identity element for values like sample
	Merge(a, b Value) (Value, error) // Merge combines two Values, failing if either has the wrong Kind
}
