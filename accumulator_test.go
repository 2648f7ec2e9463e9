package sifacc_test

import (
	goerrors "errors"
	"testing"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/accumulators"
	"github.com/go-sif/sifacc/errors"
	"github.com/stretchr/testify/require"
)

func TestDriverAccumulatorReadAfterMerges(t *testing.T) {
	acc, err := sifacc.NewDriverAccumulator(1, sifacc.Int64(10), accumulators.IntSum())
	require.Nil(t, err)
	require.Equal(t, sifacc.Driver, acc.Role())
	expected := int64(10)
	for i := int64(1); i <= 5; i++ {
		require.Nil(t, acc.Add(sifacc.Int64(i)))
		expected += i
	}
	v, err := acc.Read()
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Int64(expected)))
}

func TestDriverAccumulatorRejectsMismatchedInitialValue(t *testing.T) {
	_, err := sifacc.NewDriverAccumulator(1, sifacc.String("x"), accumulators.IntSum())
	var kerr errors.KindMismatchError
	require.True(t, goerrors.As(err, &kerr))
}

func TestWorkerAccumulatorCannotBeRead(t *testing.T) {
	acc := sifacc.NewWorkerAccumulator(3, sifacc.Int64(10), accumulators.IntSum())
	require.Equal(t, sifacc.Worker, acc.Role())
	require.Nil(t, acc.Add(sifacc.Int64(4)))
	_, err := acc.Read()
	var rerr errors.RoleViolationError
	require.True(t, goerrors.As(err, &rerr))
	require.EqualValues(t, 3, rerr.ID)
}

func TestAddWithWrongKindFails(t *testing.T) {
	acc, err := sifacc.NewDriverAccumulator(2, sifacc.Int64(0), accumulators.IntSum())
	require.Nil(t, err)
	err = acc.Add(sifacc.String("nope"))
	var merr errors.MergeError
	require.True(t, goerrors.As(err, &merr))
	require.EqualValues(t, 2, merr.ID)
	v, err := acc.Read()
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Int64(0)))
}

func TestTaskContext(t *testing.T) {
	tc, err := sifacc.NewTaskContext()
	require.Nil(t, err)
	require.NotEmpty(t, tc.ID())

	sum := sifacc.Handle{ID: 7, Initial: sifacc.Int64(100), Strategy: accumulators.IntSum()}
	words := sifacc.Handle{ID: 2, Initial: sifacc.String("seed"), Strategy: accumulators.Concat()}
	require.Nil(t, tc.Add(sum, sifacc.Int64(1)))
	require.Nil(t, tc.Add(words, sifacc.String("a")))
	require.Nil(t, tc.Add(sum, sifacc.Int64(2)))
	require.Nil(t, tc.Add(words, sifacc.String("b")))
	require.Equal(t, sifacc.Worker, tc.Accumulator(sum).Role())

	// worker accumulators start from zero, not from the driver's initial value
	updates := tc.Updates()
	require.Len(t, updates, 2)
	require.EqualValues(t, 7, updates[0].ID)
	require.True(t, updates[0].Value.Equal(sifacc.Int64(3)))
	require.EqualValues(t, 2, updates[1].ID)
	require.True(t, updates[1].Value.Equal(sifacc.String("ab")))

	tc.Reset()
	require.Empty(t, tc.Updates())
}

func TestTaskContextsAreIndependent(t *testing.T) {
	h := sifacc.Handle{ID: 1, Initial: sifacc.Int64(0), Strategy: accumulators.IntSum()}
	a, err := sifacc.NewTaskContext()
	require.Nil(t, err)
	b, err := sifacc.NewTaskContext()
	require.Nil(t, err)
	require.NotEqual(t, a.ID(), b.ID())
	require.Nil(t, a.Add(h, sifacc.Int64(5)))
	require.Nil(t, b.Add(h, sifacc.Int64(9)))
	require.True(t, a.Updates()[0].Value.Equal(sifacc.Int64(5)))
	require.True(t, b.Updates()[0].Value.Equal(sifacc.Int64(9)))
}
