// Package statsred implements the statistics reducer (C8): fixed-width
// per-worker counters that are element-wise summed at session end,
// mirroring the teacher's own stats-reduction idiom in its cluster
// housekeeping code (repeated gather-then-sum over small fixed structs).
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package statsred

import "go.uber.org/atomic"

// Counters accumulates one worker's session statistics. All fields are
// atomic so a worker's goroutine pool (worker.Pool) can increment them
// concurrently without an external lock.
type Counters struct {
	FilesSeen       atomic.Int64
	FilesFailed     atomic.Int64
	RecordsRead     atomic.Int64
	RecordsFiltered atomic.Int64
	RecordsMatched  atomic.Int64
	BytesRead       atomic.Int64
}

// Snapshot is the wire/JSON-friendly plain-value form of Counters, sent
// to the coordinator as a JSON TagControl frame (Client.SendJSON) and
// merged with Reduce.
type Snapshot struct {
	FilesSeen       int64 `json:"files_seen"`
	FilesFailed     int64 `json:"files_failed"`
	RecordsRead     int64 `json:"records_read"`
	RecordsFiltered int64 `json:"records_filtered"`
	RecordsMatched  int64 `json:"records_matched"`
	BytesRead       int64 `json:"bytes_read"`
}

// Snapshot reads all counters into a plain struct.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		FilesSeen:       c.FilesSeen.Load(),
		FilesFailed:     c.FilesFailed.Load(),
		RecordsRead:     c.RecordsRead.Load(),
		RecordsFiltered: c.RecordsFiltered.Load(),
		RecordsMatched:  c.RecordsMatched.Load(),
		BytesRead:       c.BytesRead.Load(),
	}
}

// Reduce element-wise sums snapshots from every worker; arrival order
// doesn't matter since addition is commutative and associative.
func Reduce(snapshots []Snapshot) Snapshot {
	var total Snapshot
	for _, s := range snapshots {
		total.FilesSeen += s.FilesSeen
		total.FilesFailed += s.FilesFailed
		total.RecordsRead += s.RecordsRead
		total.RecordsFiltered += s.RecordsFiltered
		total.RecordsMatched += s.RecordsMatched
		total.BytesRead += s.BytesRead
	}
	return total
}
