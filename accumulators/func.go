package accumulators

import (
	"fmt"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/internal/util"
)

// Func returns a user-supplied MergeStrategy. merge must be associative and
// should be commutative; it is only ever invoked with Values of the given kind.
// zero may be nil, in which case the identity is derived from the sample Value
// passed to Zero via ZeroOf.
func Func(name string, kind sifacc.Kind, zero func(sample sifacc.Value) sifacc.Value, merge func(a, b sifacc.Value) (sifacc.Value, error)) sifacc.MergeStrategy {
	if zero == nil {
		zero = ZeroOf
	}
	return &funcStrategy{name: name, kind: kind, zero: zero, merge: merge}
}

type funcStrategy struct {
	name  string
	kind  sifacc.Kind
	zero  func(sample sifacc.Value) sifacc.Value
	merge func(a, b sifacc.Value) (sifacc.Value, error)
}

func (s *funcStrategy) Name() string      { return s.name }
func (s *funcStrategy) Kind() sifacc.Kind { return s.kind }

func (s *funcStrategy) Zero(sample sifacc.Value) sifacc.Value {
	return s.zero(sample)
}

func (s *funcStrategy) Merge(a, b sifacc.Value) (result sifacc.Value, err error) {
	if a.Kind() != s.kind {
		return sifacc.Value{}, mismatch(s, a)
	}
	if b.Kind() != s.kind {
		return sifacc.Value{}, mismatch(s, b)
	}
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("%s merge panic: %w\n%s", s.name, anErr, util.Trace(1))
			} else {
				err = fmt.Errorf("%s merge panic: %v\n%s", s.name, r, util.Trace(1))
			}
		}
	}()
	result, err = s.merge(a, b)
	if err == nil && result.Kind() != s.kind {
		err = mismatch(s, result)
	}
	return
}
