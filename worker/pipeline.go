package worker

import (
	"github.com/golang/glog"

	"github.com/CESNET/fdq/aggtable"
	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/filterexpr"
	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/fswalk"
	"github.com/CESNET/fdq/query"
	"github.com/CESNET/fdq/statsred"
	"github.com/CESNET/fdq/transport"
)

// fileCountReport is the worker→coordinator gather payload announcing how
// many files this rank will read (spec §6 wire table "file-count").
type fileCountReport struct {
	Rank  int   `json:"rank"`
	Count int64 `json:"count"`
}

const defaultConcurrency = 4

// Run executes the full worker pipeline (C4) for one session: file
// enumeration, filtering, local aggregation, and mode-specific egress. rank
// is this worker's 1-based rank; client is its connection to the
// coordinator; inbox is the channel its Conn's reader goroutine delivers
// frames to (needed directly, not just via client, for the TPUT control-
// message wait in query.TputWorker). The returned Snapshot is the caller's
// responsibility to send, after the session barrier (spec §4.8 step 6:
// statistics are reduced only after the barrier, not interleaved with the
// still-active DATA receive loop on the coordinator side).
func Run(ctx cmn.SessionContext, rank int, client *transport.Client, inbox <-chan transport.Msg) (statsred.Snapshot, error) {
	if err := ctx.Fields.Validate(); err != nil {
		return statsred.Snapshot{}, cmn.NewError(cmn.BadArgument, err, "invalid field set")
	}
	filter, err := filterexpr.Compile(ctx.Filter)
	if err != nil {
		return statsred.Snapshot{}, err // already a *cmn.Error with code BadFilter
	}

	files, err := fswalk.Expand(ctx.PathSpec, fswalk.TimeRange{Start: ctx.TimeStart, End: ctx.TimeEnd}, ctx.Rotation)
	if err != nil {
		return statsred.Snapshot{}, err
	}
	local := fswalk.PartitionRoundRobin(files, rank-1, ctx.WorldSize-1)

	if err := client.SendJSON(fileCountReport{Rank: rank, Count: int64(len(local))}); err != nil {
		return statsred.Snapshot{}, err
	}

	mode := localTableMode(ctx)
	table := aggtable.New(ctx.Fields, mode)
	schema := table.Schema()
	counters := &statsred.Counters{}

	pool := NewPool(defaultConcurrency)
	pool.Run(local, func(path string) error {
		n, rerr := ReadFile(path, schema, func(rec flowrec.Record) error {
			counters.RecordsRead.Add(1)
			if !filter.Match(schema, rec) {
				counters.RecordsFiltered.Add(1)
				return nil
			}
			counters.RecordsMatched.Add(1)
			table.Write(rec)
			return nil
		})
		counters.BytesRead.Add(n * int64(schema.Size()))
		counters.FilesSeen.Add(1)
		if rerr != nil {
			counters.FilesFailed.Add(1)
			glog.Warningf("rank %d: reading %q: %v", rank, path, rerr)
		}
		if serr := client.Send(transport.TagProgress, nil); serr != nil {
			return serr
		}
		return nil
	}, func(path string, err error) {
		glog.Warningf("rank %d: %q: %v", rank, path, err)
	})

	if err := egress(ctx, client, inbox, table); err != nil {
		return statsred.Snapshot{}, err
	}

	return counters.Snapshot(), nil
}

// localTableMode picks the local aggregation table's traversal order: a
// pre-sort is only needed when this worker must ship records in sorted
// order itself (sort mode with a record limit, or aggr+TPUT, which both
// rely on "top of the local table" semantics — spec §4.4, §4.7).
func localTableMode(ctx cmn.SessionContext) aggtable.SortMode {
	needsSort := (ctx.Mode == cmn.ModeSort && ctx.N > 0) || (ctx.Mode == cmn.ModeAggr && ctx.UseTput && ctx.N > 0)
	if !needsSort {
		return aggtable.Insertion
	}
	if ctx.SortDesc {
		return aggtable.SortedDesc
	}
	return aggtable.SortedAsc
}

// egress runs the mode-specific data-plane send described in spec §4.4.
func egress(ctx cmn.SessionContext, client *transport.Client, inbox <-chan transport.Msg, table *aggtable.Table) error {
	switch ctx.Mode {
	case cmn.ModeMeta:
		// No data records, ever (spec: "meta: send no data records"), but
		// the coordinator's Receiver still waits on this rank's DATA
		// terminator to know the progress loop is done, so send just that.
		return client.Send(transport.TagData, nil)
	case cmn.ModeList:
		return sendAll(client, table, 0)
	case cmn.ModeSort:
		limit := 0
		if ctx.N > 0 {
			limit = ctx.N
		}
		return sendAll(client, table, limit)
	case cmn.ModeAggr:
		if ctx.UseTput && ctx.N > 0 {
			return query.TputWorker(client, inbox, table, ctx.Fields, ctx.N)
		}
		return sendAll(client, table, 0)
	default:
		return cmn.NewError(cmn.BadArgument, nil, "unknown mode %q", ctx.Mode)
	}
}

// sendAll packs every record from table's cursor (up to limit if non-zero)
// into DATA frames and sends the terminator.
func sendAll(client *transport.Client, table *aggtable.Table, limit int) error {
	recs := table.Cursor()
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	packer := transport.NewPacker(transport.BufSize, func(buf []byte) error {
		return client.Send(transport.TagData, buf)
	})
	for _, r := range recs {
		if err := packer.Append(r); err != nil {
			return err
		}
	}
	return packer.Terminate()
}
