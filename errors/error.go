package errors

import (
	"fmt"
)

// RoleViolationError occurs when the value of a worker-role Accumulator is read
type RoleViolationError struct{ ID int32 }

// Error returns a textual representation of this RoleViolationError
func (e RoleViolationError) Error() string {
	return fmt.Sprintf("Accumulator %d is a worker-local accumulator and cannot be read", e.ID)
}

// DuplicateIDError occurs when an Accumulator is registered under an id which is already in use
type DuplicateIDError struct{ ID int32 }

// Error returns a textual representation of this DuplicateIDError
func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("Accumulator %d is already registered", e.ID)
}

// NotFoundError occurs when an Accumulator id is not present in a Registry
type NotFoundError struct{ ID int32 }

// Error returns a textual representation of this NotFoundError
func (e NotFoundError) Error() string {
	return fmt.Sprintf("Accumulator %d is not registered", e.ID)
}

// MergeError occurs when a partial value cannot be merged into an Accumulator
type MergeError struct {
	ID  int32
	Err error
}

// Error returns a textual representation of this MergeError
func (e MergeError) Error() string {
	return fmt.Sprintf("Unable to merge update into accumulator %d: %v", e.ID, e.Err)
}

// Unwrap returns the cause of this MergeError
func (e MergeError) Unwrap() error {
	return e.Err
}

// TransportError occurs when reading or writing an update stream fails
type TransportError struct {
	Op  string
	Err error
}

// Error returns a textual representation of this TransportError
func (e TransportError) Error() string {
	return fmt.Sprintf("Accumulator transport failed during %s: %v", e.Op, e.Err)
}

// Unwrap returns the cause of this TransportError
func (e TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError occurs when an update batch is malformed
type ProtocolError struct{ Reason string }

// Error returns a textual representation of this ProtocolError
func (e ProtocolError) Error() string {
	return fmt.Sprintf("Malformed update batch: %s", e.Reason)
}

// KindMismatchError occurs when a merge strategy receives a value of the wrong kind
type KindMismatchError struct {
	Strategy string
	Expected string
	Actual   string
}

// Error returns a textual representation of this KindMismatchError
func (e KindMismatchError) Error() string {
	return fmt.Sprintf("%s merge expects %s values, got %s", e.Strategy, e.Expected, e.Actual)
}

// RegistryClosedError occurs when a Registry is used after it has been closed
type RegistryClosedError struct{}

// Error returns a textual representation of this RegistryClosedError
func (e RegistryClosedError) Error() string {
	return "Accumulator registry is closed"
}

// ServerStateError occurs when a lifecycle method is invoked on a server in the wrong state
type ServerStateError struct{ State string }

// Error returns a textual representation of this ServerStateError
func (e ServerStateError) Error() string {
	return fmt.Sprintf("Accumulator server cannot be started from state %s", e.State)
}
