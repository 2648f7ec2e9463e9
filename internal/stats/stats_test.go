package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceStatistics(t *testing.T) {
	ss := &ServiceStatistics{}
	// nothing is recorded before Start
	ss.RecordBatch(time.Now(), 3)
	require.Zero(t, ss.GetNumBatchesMerged())
	require.Zero(t, ss.GetRuntime())

	ss.Start()
	for i := 0; i < 7; i++ {
		ss.RecordBatch(time.Now().Add(-10*time.Millisecond), 2)
	}
	require.EqualValues(t, 7, ss.GetNumBatchesMerged())
	require.EqualValues(t, 14, ss.GetNumUpdatesMerged())
	require.GreaterOrEqual(t, ss.GetRecentBatchProcessingTime(), 10*time.Millisecond)
	require.False(t, ss.GetStartTime().IsZero())

	ss.Finish()
	runtime := ss.GetRuntime()
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, runtime, ss.GetRuntime())
}
