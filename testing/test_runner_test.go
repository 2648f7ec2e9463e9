package testing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/accumulators"
	"github.com/go-sif/sifacc/registry"
	siftest "github.com/go-sif/sifacc/testing"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLocalRunTasks(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := registry.New(nil)
	defer reg.Close()
	count, err := reg.Create(sifacc.Int64(0), accumulators.IntSum())
	require.Nil(t, err)
	total, err := reg.Create(sifacc.Float64(0), accumulators.FloatSum())
	require.Nil(t, err)
	largest, err := reg.Create(sifacc.Int64(-1), accumulators.IntMax())
	require.Nil(t, err)

	numTasks := 16
	err = siftest.LocalRunTasks(context.Background(), reg, numTasks, func(ctx context.Context, taskIndex int, tc *sifacc.TaskContext) error {
		for i := 0; i < 100; i++ {
			if err := tc.Add(count, sifacc.Int64(1)); err != nil {
				return err
			}
			if err := tc.Add(largest, sifacc.Int64(int64(taskIndex*100+i))); err != nil {
				return err
			}
		}
		return tc.Add(total, sifacc.Float64(0.5))
	}, &siftest.LocalRunOptions{Concurrency: 4})
	require.Nil(t, err)

	v, err := reg.Read(count.ID)
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Int64(int64(numTasks*100))))
	v, err = reg.Read(total.ID)
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Float64(float64(numTasks)*0.5)))
	v, err = reg.Read(largest.ID)
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Int64(int64(numTasks*100-1))))
}

func TestLocalRunTasksReportsTaskFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := registry.New(nil)
	defer reg.Close()
	err := siftest.LocalRunTasks(context.Background(), reg, 4, func(ctx context.Context, taskIndex int, tc *sifacc.TaskContext) error {
		if taskIndex == 2 {
			return fmt.Errorf("task exploded")
		}
		return nil
	}, nil)
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "task exploded")
}
