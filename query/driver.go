// Package query implements the coordinator-side query mode drivers (C6,
// spec §4.6): list, sort, aggr (plain and TPUT), and meta. Each driver runs
// on the coordinator only, after the SessionContext broadcast, and consumes
// the DATA stream from every active worker via transport.Receiver.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package query

import (
	"github.com/CESNET/fdq/aggtable"
	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/transport"
)

// Run dispatches to the mode-specific driver named by ctx.Mode and returns
// the final result rows in print order (empty for meta). ranks is the
// sorted set of active worker ranks (spec §4.6's "(W) -> ErrorCode").
func Run(ctx cmn.SessionContext, hub *transport.Hub, ranks []int, onProgress func(rank int)) ([]flowrec.Record, error) {
	switch ctx.Mode {
	case cmn.ModeList:
		return RunList(hub, ranks, ctx.Fields, ctx.N, onProgress)
	case cmn.ModeSort:
		return RunSort(hub, ranks, ctx.Fields, ctx.N, ctx.SortDesc, onProgress)
	case cmn.ModeAggr:
		if ctx.UseTput && ctx.N > 0 {
			return RunAggrTput(hub, ranks, ctx.Fields, ctx.N, ctx.SortDesc, onProgress)
		}
		return RunAggrPlain(hub, ranks, ctx.Fields, ctx.N, onProgress)
	case cmn.ModeMeta:
		return RunMeta(hub, ranks, onProgress)
	default:
		return nil, cmn.NewError(cmn.BadArgument, nil, "unknown mode %q", ctx.Mode)
	}
}

// RunList receives the DATA stream from every worker and reports at most n
// records in coordinator-observed arrival order (spec §4.6 "list": n=0
// means unbounded). The short-circuit still drains every worker's stream
// to unblock senders once the limit is reached.
func RunList(hub *transport.Hub, ranks []int, fs flowrec.FieldSet, n int, onProgress func(rank int)) ([]flowrec.Record, error) {
	var out []flowrec.Record
	rc := transport.NewReceiver(hub, ranks)
	limit := func() bool { return n > 0 && len(out) >= n }
	err := rc.Run(transport.TagData, func(_ int, payload []byte) {
		transport.Unpack(payload, func(rec []byte) {
			if n > 0 && len(out) >= n {
				return
			}
			cp := make(flowrec.Record, len(rec))
			copy(cp, rec)
			out = append(out, cp)
		})
	}, limit, onProgress)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunSort mirrors the worker's local table: if n==0 workers never sorted,
// so records are inserted field-wise into a coordinator-side sorted table;
// if n>0 workers already sent sorted, truncated streams and raw inserts
// are enough (spec §4.6 "sort").
func RunSort(hub *transport.Hub, ranks []int, fs flowrec.FieldSet, n int, sortDesc bool, onProgress func(rank int)) ([]flowrec.Record, error) {
	mode := aggtable.SortedAsc
	if sortDesc {
		mode = aggtable.SortedDesc
	}
	table := aggtable.New(fs, mode)
	rc := transport.NewReceiver(hub, ranks)
	var insert func(rank int, payload []byte)
	if n == 0 {
		insert = func(_ int, payload []byte) {
			transport.Unpack(payload, func(rec []byte) { table.Write(flowrec.Record(rec)) })
		}
	} else {
		insert = func(_ int, payload []byte) {
			transport.Unpack(payload, func(rec []byte) { table.WriteRaw(rec) })
		}
	}
	if err := rc.Run(transport.TagData, insert, nil, onProgress); err != nil {
		return nil, err
	}
	out := table.Cursor()
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// RunAggrPlain receives every worker's fully-aggregated records into one
// coordinator-side table (associative merge; order-independent) and prints
// up to n rows (spec §4.6 "aggr (plain)").
func RunAggrPlain(hub *transport.Hub, ranks []int, fs flowrec.FieldSet, n int, onProgress func(rank int)) ([]flowrec.Record, error) {
	table := aggtable.New(fs, aggtable.Insertion)
	rc := transport.NewReceiver(hub, ranks)
	err := rc.Run(transport.TagData, func(_ int, payload []byte) {
		transport.Unpack(payload, func(rec []byte) { table.WriteRaw(rec) })
	}, nil, onProgress)
	if err != nil {
		return nil, err
	}
	out := table.Cursor()
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// RunMeta sends back no rows: meta-mode workers never emit a data record.
// It still has to run the same PROGRESS-draining receive loop every other
// mode runs (spec §4.6 "meta": "progress loop only; no data receives"),
// because workers keep reporting per-file progress while they walk and
// filter, and the coordinator must consume those frames as they arrive
// rather than let them queue up until the barrier (spec §5, §8). Workers
// signal "done" with an empty DATA terminator (no payload ever precedes
// it), so the existing Receiver plumbing applies unchanged; onData is
// never actually invoked.
func RunMeta(hub *transport.Hub, ranks []int, onProgress func(rank int)) ([]flowrec.Record, error) {
	rc := transport.NewReceiver(hub, ranks)
	if err := rc.Run(transport.TagData, func(int, []byte) {}, nil, onProgress); err != nil {
		return nil, err
	}
	return nil, nil
}
