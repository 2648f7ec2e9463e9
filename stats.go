package sifacc

import "time"

// ServiceStatistics facilitates the retrieval of statistics about a running accumulator synchronization service
type ServiceStatistics interface {
	// GetStartTime returns the time at which the service began listening
	GetStartTime() time.Time
	// GetRuntime returns the running time of the service
	GetRuntime() time.Duration
	// GetNumBatchesMerged returns the number of update batches which have been merged and acknowledged
	GetNumBatchesMerged() int64
	// GetNumUpdatesMerged returns the number of individual updates which have been merged
	GetNumUpdatesMerged() int64
	// GetRecentBatchProcessingTime returns a rolling average of the time taken to merge a batch
	GetRecentBatchProcessingTime() time.Duration
}
