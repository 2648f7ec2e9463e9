package sifacc

import (
	"sync"

	"github.com/go-sif/sifacc/errors"
)

// Role describes whether an Accumulator is authoritative (Driver) or a task-local
// partial result (Worker)
type Role uint8

const (
	// Driver indicates the single authoritative instance of an Accumulator
	Driver Role = iota + 1
	// Worker indicates a write-only, task-local instance of an Accumulator
	Worker
)

// String returns a textual representation of this Role
func (r Role) String() string {
	switch r {
	case Driver:
		return "driver"
	case Worker:
		return "worker"
	default:
		return "unknown"
	}
}

// An Accumulator is a shared, mergeable value. Workers add to their own
// task-local copy and ship the result to the driver, where it is merged
// into the authoritative copy using the same MergeStrategy. Only the
// driver copy may be read.
type Accumulator struct {
	id       int32
	role     Role
	strategy MergeStrategy
	lock     sync.Mutex
	value    Value
}

// NewDriverAccumulator creates the authoritative instance of an Accumulator
func NewDriverAccumulator(id int32, initial Value, strategy MergeStrategy) (*Accumulator, error) {
	if initial.Kind() != strategy.Kind() {
		return nil, errors.KindMismatchError{
			Strategy: strategy.Name(),
			Expected: strategy.Kind().String(),
			Actual:   initial.Kind().String(),
		}
	}
	return &Accumulator{id: id, role: Driver, strategy: strategy, value: initial}, nil
}

// NewWorkerAccumulator creates a task-local instance of an Accumulator, starting
// from the identity element of its MergeStrategy
func NewWorkerAccumulator(id int32, sample Value, strategy MergeStrategy) *Accumulator {
	return &Accumulator{id: id, role: Worker, strategy: strategy, value: strategy.Zero(sample)}
}

// ID returns the id of this Accumulator
func (a *Accumulator) ID() int32 {
	return a.id
}

// Role returns the Role of this Accumulator
func (a *Accumulator) Role() Role {
	return a.role
}

// Strategy returns the MergeStrategy of this Accumulator
func (a *Accumulator) Strategy() MergeStrategy {
	return a.strategy
}

// Add merges a term into this Accumulator
func (a *Accumulator) Add(term Value) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	merged, err := a.strategy.Merge(a.value, term)
	if err != nil {
		return errors.MergeError{ID: a.id, Err: err}
	}
	a.value = merged
	return nil
}

// Read returns the current value of this Accumulator. Only driver-role
// Accumulators may be read.
func (a *Accumulator) Read() (Value, error) {
	if a.role != Driver {
		return Value{}, errors.RoleViolationError{ID: a.id}
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.value, nil
}

// partial returns the local value of a worker-role Accumulator, for shipping to the driver
func (a *Accumulator) partial() Value {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.value
}

// Handle is the portion of an Accumulator which is embedded in task closures
// and shipped to workers
type Handle struct {
	ID       int32
	Initial  Value
	Strategy MergeStrategy
}

// Update is a partial value destined for the driver copy of an Accumulator
type Update struct {
	ID    int32
	Value Value
}
