package registry

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/accumulators"
	"github.com/go-sif/sifacc/errors"
	"github.com/go-sif/sifacc/internal/metrics"
	"github.com/go-sif/sifacc/logging"
	"go.uber.org/zap"
)

// Registry maps accumulator ids to the driver copy of each Accumulator.
// All operations take a single registry-wide lock, so a lookup-or-create for
// an id can never race with another for the same id. Accumulator values are
// additionally guarded by their own lock, always acquired after this one.
type Registry struct {
	lock   sync.Mutex
	accs   map[int32]*sifacc.Accumulator
	nextID int32
	closed bool
	log    *zap.Logger
}

// New creates an empty Registry. log may be nil.
func New(log *zap.Logger) *Registry {
	return &Registry{
		accs: make(map[int32]*sifacc.Accumulator),
		log:  logging.OrNop(log),
	}
}

// Create registers a new driver Accumulator under a fresh id, returning the
// Handle which should be shipped to workers
func (r *Registry) Create(initial sifacc.Value, strategy sifacc.MergeStrategy) (sifacc.Handle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return sifacc.Handle{}, errors.RegistryClosedError{}
	}
	id, err := r.allocateID()
	if err != nil {
		return sifacc.Handle{}, err
	}
	acc, err := sifacc.NewDriverAccumulator(id, initial, strategy)
	if err != nil {
		return sifacc.Handle{}, err
	}
	r.insert(acc)
	return sifacc.Handle{ID: id, Initial: initial, Strategy: strategy}, nil
}

// Register inserts a driver Accumulator under its own id. It fails with a
// DuplicateIDError if the id is already in use, leaving the existing
// Accumulator untouched.
func (r *Registry) Register(acc *sifacc.Accumulator) error {
	if acc.Role() != sifacc.Driver {
		return errors.RoleViolationError{ID: acc.ID()}
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return errors.RegistryClosedError{}
	}
	if _, exists := r.accs[acc.ID()]; exists {
		return errors.DuplicateIDError{ID: acc.ID()}
	}
	r.insert(acc)
	return nil
}

// Lookup returns the driver Accumulator for an id
func (r *Registry) Lookup(id int32) (*sifacc.Accumulator, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil, errors.RegistryClosedError{}
	}
	acc, ok := r.accs[id]
	if !ok {
		return nil, errors.NotFoundError{ID: id}
	}
	return acc, nil
}

// Read returns the current value of the driver Accumulator for an id
func (r *Registry) Read(id int32) (sifacc.Value, error) {
	acc, err := r.Lookup(id)
	if err != nil {
		return sifacc.Value{}, err
	}
	return acc.Read()
}

// MergeUpdate merges a partial value into the driver Accumulator for an id.
// If no Accumulator is registered under the id, one is created from the
// default strategy for the partial value's Kind and seeded with it.
func (r *Registry) MergeUpdate(id int32, partial sifacc.Value) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.mergeLocked(id, partial)
}

// MergeBatch merges a sequence of updates in order. The Kind of every update is
// checked against its target before anything is merged, so a batch containing a
// mismatched update is rejected as a whole.
func (r *Registry) MergeBatch(batch []sifacc.Update) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return errors.RegistryClosedError{}
	}
	kinds := make(map[int32]sifacc.Kind)
	for _, u := range batch {
		expected, ok := kinds[u.ID]
		if !ok {
			if acc, exists := r.accs[u.ID]; exists {
				expected = acc.Strategy().Kind()
			} else {
				expected = u.Value.Kind()
			}
			kinds[u.ID] = expected
		}
		if u.Value.Kind() != expected {
			return errors.MergeError{ID: u.ID, Err: errors.KindMismatchError{
				Strategy: "batch",
				Expected: expected.String(),
				Actual:   u.Value.Kind().String(),
			}}
		}
	}
	for _, u := range batch {
		if err := r.mergeLocked(u.ID, u.Value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) mergeLocked(id int32, partial sifacc.Value) error {
	if r.closed {
		return errors.RegistryClosedError{}
	}
	acc, ok := r.accs[id]
	if ok {
		if err := acc.Add(partial); err != nil {
			return err
		}
		metrics.UpdatesTotal.WithLabelValues(partial.Kind().String()).Inc()
		return nil
	}
	strategy := accumulators.ForKind(partial.Kind())
	if strategy == nil {
		return errors.MergeError{ID: id, Err: fmt.Errorf("no merge strategy for %s values", partial.Kind())}
	}
	acc, err := sifacc.NewDriverAccumulator(id, partial, strategy)
	if err != nil {
		return errors.MergeError{ID: id, Err: err}
	}
	r.insert(acc)
	metrics.UnregisteredUpdatesTotal.Inc()
	metrics.UpdatesTotal.WithLabelValues(partial.Kind().String()).Inc()
	r.log.Warn("Received update for unregistered accumulator; registering it",
		zap.Int32("accumulator_id", id),
		zap.String("kind", partial.Kind().String()),
		zap.String("strategy", strategy.Name()),
	)
	return nil
}

// Len returns the number of registered Accumulators
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.accs)
}

// IDs returns the ids of all registered Accumulators, in ascending order
func (r *Registry) IDs() []int32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	ids := make([]int32, 0, len(r.accs))
	for id := range r.accs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close discards all Accumulators. Subsequent operations fail with a RegistryClosedError.
func (r *Registry) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil
	}
	metrics.AccumulatorsRegistered.Sub(float64(len(r.accs)))
	r.accs = nil
	r.closed = true
	return nil
}

func (r *Registry) insert(acc *sifacc.Accumulator) {
	r.accs[acc.ID()] = acc
	metrics.AccumulatorsRegistered.Inc()
}

// allocateID finds the next unused id. Ids created by update recovery are skipped.
func (r *Registry) allocateID() (int32, error) {
	for n := 0; n < len(r.accs)+1; n++ {
		id := r.nextID
		if r.nextID == math.MaxInt32 {
			r.nextID = 0
		} else {
			r.nextID++
		}
		if _, exists := r.accs[id]; !exists {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no accumulator ids are available")
}
