package buffer

import "sync/atomic"

// Statistics tracks ring buffer activity. All counters are atomic and
// safe for concurrent readers.
type Statistics struct {
	writes atomic.Int64
	reads  atomic.Int64
	drops  atomic.Int64
	size   atomic.Int64
}

// NewStatistics creates a zeroed statistics block.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Write records one write.
func (s *Statistics) Write() { s.writes.Add(1) }

// Read records one read.
func (s *Statistics) Read() { s.reads.Add(1) }

// Drop records one overflow eviction.
func (s *Statistics) Drop() { s.drops.Add(1) }

// UpdateSize records the current buffered item count.
func (s *Statistics) UpdateSize(n int64) { s.size.Store(n) }

// Writes returns the total number of writes.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the total number of reads.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Drops returns the total number of overflow evictions.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// Size returns the last recorded buffered item count.
func (s *Statistics) Size() int64 { return s.size.Load() }
