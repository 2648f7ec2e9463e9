package sifacc

import (
	"fmt"
	"sync"

	uuid "github.com/gofrs/uuid"
)

// TaskContext is the worker-side view of Accumulators during the execution of a
// single task. A new TaskContext is created for each task and passed to it
// explicitly; it must not be shared between tasks. When the task completes, its
// Updates are shipped to the driver.
type TaskContext struct {
	id    string
	lock  sync.Mutex
	accs  map[int32]*Accumulator
	order []int32 // ids, in order of first use
}

// NewTaskContext creates an empty TaskContext
func NewTaskContext() (*TaskContext, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task context id: %w", err)
	}
	return &TaskContext{id: id.String(), accs: make(map[int32]*Accumulator)}, nil
}

// ID returns the unique id of this TaskContext
func (tc *TaskContext) ID() string {
	return tc.id
}

// Accumulator returns the task-local Accumulator for a Handle, creating it from
// the Handle's MergeStrategy if this is its first use within the task
func (tc *TaskContext) Accumulator(h Handle) *Accumulator {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	acc, ok := tc.accs[h.ID]
	if !ok {
		acc = NewWorkerAccumulator(h.ID, h.Initial, h.Strategy)
		tc.accs[h.ID] = acc
		tc.order = append(tc.order, h.ID)
	}
	return acc
}

// Add merges a term into the task-local Accumulator for a Handle
func (tc *TaskContext) Add(h Handle, term Value) error {
	return tc.Accumulator(h).Add(term)
}

// Updates returns the partial values of all Accumulators used by this task, in order of first use
func (tc *TaskContext) Updates() []Update {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	updates := make([]Update, len(tc.order))
	for i, id := range tc.order {
		updates[i] = Update{ID: id, Value: tc.accs[id].partial()}
	}
	return updates
}

// Reset discards all task-local Accumulators, preparing this TaskContext for a new task
func (tc *TaskContext) Reset() {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	tc.accs = make(map[int32]*Accumulator)
	tc.order = nil
}
