package stats

import (
	"sync"
	"time"
)

const statisticRollingWindows = 5

// ServiceStatistics contains statistics about a running accumulator synchronization service
type ServiceStatistics struct {
	lock                    sync.Mutex
	started                 bool
	finished                bool
	startTime               time.Time
	totalRuntime            time.Duration
	batchesMerged           int64
	updatesMerged           int64
	recentBatchRuntimes     []time.Duration // for rolling average of recent batch merge times
	recentBatchRuntimesHead int
	recentBatchCount        int
}

// Start triggers statistics tracking, if it hasn't been started already
func (ss *ServiceStatistics) Start() {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if !ss.started {
		ss.started = true
		ss.startTime = time.Now()
		ss.recentBatchRuntimes = make([]time.Duration, statisticRollingWindows)
	}
}

// Finish completes statistics tracking
func (ss *ServiceStatistics) Finish() {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.started && !ss.finished {
		ss.finished = true
		ss.totalRuntime = time.Since(ss.startTime)
	}
}

// RecordBatch tracks a merged batch of numUpdates updates, which began merging at start
func (ss *ServiceStatistics) RecordBatch(start time.Time, numUpdates int) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if !ss.started {
		return
	}
	ss.recentBatchRuntimes[ss.recentBatchRuntimesHead] = time.Since(start)
	ss.recentBatchRuntimesHead = (ss.recentBatchRuntimesHead + 1) % len(ss.recentBatchRuntimes)
	if ss.recentBatchCount < len(ss.recentBatchRuntimes) {
		ss.recentBatchCount++
	}
	ss.batchesMerged++
	ss.updatesMerged += int64(numUpdates)
}

// GetStartTime returns the time at which the service began listening
func (ss *ServiceStatistics) GetStartTime() time.Time {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	return ss.startTime
}

// GetRuntime returns the running time of the service
func (ss *ServiceStatistics) GetRuntime() time.Duration {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if !ss.started {
		return 0
	}
	if ss.finished {
		return ss.totalRuntime
	}
	return time.Since(ss.startTime)
}

// GetNumBatchesMerged returns the number of update batches which have been merged and acknowledged
func (ss *ServiceStatistics) GetNumBatchesMerged() int64 {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	return ss.batchesMerged
}

// GetNumUpdatesMerged returns the number of individual updates which have been merged
func (ss *ServiceStatistics) GetNumUpdatesMerged() int64 {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	return ss.updatesMerged
}

// GetRecentBatchProcessingTime returns a rolling average of the time taken to merge a batch
func (ss *ServiceStatistics) GetRecentBatchProcessingTime() time.Duration {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.recentBatchCount == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ss.recentBatchRuntimes {
		total += d
	}
	return total / time.Duration(ss.recentBatchCount)
}
