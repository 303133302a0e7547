package session

import (
	"os"

	"github.com/golang/glog"

	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/progress"
	"github.com/CESNET/fdq/query"
	"github.com/CESNET/fdq/statsred"
	"github.com/CESNET/fdq/transport"
	"github.com/CESNET/fdq/worker"
)

// Result is what a completed session produced, handed back to the cli
// package for rendering.
type Result struct {
	Rows  []flowrec.Record
	Stats statsred.Snapshot
}

// fileCountReport mirrors the worker package's gather payload; duplicated
// here (rather than exported from worker) because only the JSON shape,
// not any worker-internal behavior, crosses the package boundary.
type fileCountReport struct {
	Rank  int   `json:"rank"`
	Count int64 `json:"count"`
}

// Run executes the full session lifecycle (C9, spec §4.8) for one rank:
// coordinator (rank 0) listens, broadcasts, dispatches a query driver, and
// reduces statistics; every other rank dials, runs the worker pipeline,
// and reports its statistics.
func Run(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rank == 0 {
		return runCoordinator(cfg)
	}
	return nil, runWorker(cfg)
}

func ranks(worldSize int) []int {
	out := make([]int, 0, worldSize-1)
	for r := 1; r < worldSize; r++ {
		out = append(out, r)
	}
	return out
}

func runCoordinator(cfg Config) (*Result, error) {
	ctx := cfg.SessionContext()
	glog.V(1).Infof("coordinator: %s", cfg)

	hub := transport.NewHub(cfg.WorldSize, cfg.Compress)
	if err := hub.Listen(cfg.Listen); err != nil {
		return nil, err
	}
	defer hub.Close()

	if err := hub.Broadcast(ctx); err != nil {
		return nil, cmn.NewError(cmn.Transport, err, "broadcasting session context")
	}

	wranks := ranks(cfg.WorldSize)

	progType, err := progress.ParseType(cfg.Progress)
	if err != nil {
		return nil, cmn.NewError(cmn.BadArgument, err, "parsing progress type")
	}
	bar := progress.New(progType, progressDest(cfg.ProgressDest), len(wranks))

	sums := make([]int64, len(wranks))
	var pendingProgress []int
	if err := hub.Gather(func(rank int, payload []byte) error {
		var r fileCountReport
		if err := decodeJSON(payload, &r); err != nil {
			return cmn.NewError(cmn.ProtocolError, err, "decoding file-count report from rank %d", rank)
		}
		if idx := rank - 1; idx >= 0 && idx < len(sums) {
			sums[idx] = r.Count
		}
		return nil
	}, func(msg transport.Msg) {
		if msg.Tag == transport.TagProgress {
			pendingProgress = append(pendingProgress, msg.Rank)
		}
	}); err != nil {
		return nil, err
	}
	bar.Init(sums)
	for _, rank := range pendingProgress {
		bar.Report(rank)
	}

	rows, err := query.Run(ctx, hub, wranks, func(rank int) { bar.Report(rank) })
	if err != nil {
		return nil, err
	}
	bar.Finish()

	if err := hub.Barrier(); err != nil {
		return nil, cmn.NewError(cmn.Transport, err, "closing barrier")
	}

	var snapshots []statsred.Snapshot
	if err := hub.Gather(func(rank int, payload []byte) error {
		var s statsred.Snapshot
		if err := decodeJSON(payload, &s); err != nil {
			return cmn.NewError(cmn.ProtocolError, err, "decoding stats from rank %d", rank)
		}
		snapshots = append(snapshots, s)
		return nil
	}, nil); err != nil {
		return nil, err
	}

	return &Result{Rows: rows, Stats: statsred.Reduce(snapshots)}, nil
}

func runWorker(cfg Config) error {
	glog.V(1).Infof("worker: %s", cfg)

	// Unbuffered for the same reason as Hub.inbox: Conn's double-buffered
	// read loop (Conn.Run) only reuses a landing buffer two frames later, so the
	// channel it hands frames to must not let it race ahead of whichever
	// single consumer (recvBroadcast, query.TputWorker) is draining it.
	inbox := make(chan transport.Msg)
	client, err := transport.Dial(cfg.Connect, cfg.Rank, cfg.WorldSize, cfg.Compress, inbox)
	if err != nil {
		return cmn.NewError(cmn.Transport, err, "dialing coordinator at %s", cfg.Connect)
	}
	defer client.Close()

	var ctx cmn.SessionContext
	if err := recvBroadcast(inbox, &ctx); err != nil {
		return err
	}

	snapshot, runErr := worker.Run(ctx, cfg.Rank, client, inbox)

	if err := client.Ready(); err != nil {
		return cmn.NewError(cmn.Transport, err, "sending barrier ready")
	}
	if err := recvBroadcast(inbox, new(struct {
		Phase string `json:"phase"`
	})); err != nil {
		return err
	}

	if err := client.SendJSON(snapshot); err != nil {
		return cmn.NewError(cmn.Transport, err, "sending statistics snapshot")
	}

	return runErr
}

// recvBroadcast blocks for the coordinator's next TagControl frame and
// decodes it into v (used for both the initial SessionContext broadcast
// and the closing barrier's "go" message).
func recvBroadcast(inbox <-chan transport.Msg, v interface{}) error {
	for msg := range inbox {
		if msg.Tag != transport.TagControl {
			continue
		}
		return decodeJSON(msg.Payload, v)
	}
	return cmn.NewError(cmn.ProtocolError, nil, "connection closed waiting for broadcast")
}

func progressDest(dest string) *os.File {
	switch dest {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			glog.Warningf("opening progress destination %q: %v, falling back to stderr", dest, err)
			return os.Stderr
		}
		return f
	}
}
