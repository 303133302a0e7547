// Package transport implements the coordinator↔worker wire protocol: a
// typed broadcast/gather/send/recv layer (C1) over persistent TCP
// connections, length-prefixed record framing (C2), and the double-
// buffered non-blocking receive loop (C3) described in spec §4.1–§4.3.
//
// Style note: this package intentionally plays the same role the
// teacher's transport package does (a persistent streaming pipe per peer,
// with a send-queue/completion-queue goroutine pair and a stream
// collector for idle teardown) — see DESIGN.md for the file-by-file
// grounding.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package transport

// Tag identifies which logical channel a point-to-point message belongs
// to (spec §4.1). Ordering is only guaranteed within a (sender, receiver,
// tag) triple; fdq's single-connection-per-worker design happens to give
// a stronger guarantee (full FIFO across all tags from one worker), which
// satisfies but does not violate the weaker spec requirement.
type Tag uint8

const (
	TagControl Tag = iota // broadcast/gather/barrier envelopes (not itemized in §4.1's tag list)
	TagData
	TagProgress
	TagTput1
	TagTput2
	TagTput3
	TagStats
)

func (t Tag) String() string {
	switch t {
	case TagControl:
		return "CONTROL"
	case TagData:
		return "DATA"
	case TagProgress:
		return "PROGRESS"
	case TagTput1:
		return "TPUT1"
	case TagTput2:
		return "TPUT2"
	case TagTput3:
		return "TPUT3"
	case TagStats:
		return "STATS"
	default:
		return "UNKNOWN"
	}
}
