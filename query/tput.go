package query

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/CESNET/fdq/aggtable"
	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// thresholdMsg is the phase-2 broadcast: one u64 (spec §4.7, §6 wire table
// "tput-2-thr").
type thresholdMsg struct {
	Threshold uint64 `json:"threshold"`
}

// candidateSetMsg is the phase-3 broadcast: the exact key set the
// coordinator currently holds after phase 2 (spec §6 "tput-3-bcast").
type candidateSetMsg struct {
	Keys [][]byte `json:"keys"`
}

// packSorted frames every record from table's sorted cursor, truncated to
// limit records if limit > 0.
func packSorted(table *aggtable.Table, limit int) []byte {
	recs := table.Cursor()
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	var buf []byte
	for _, r := range recs {
		buf = flowrec.PutLenPrefixed(buf, r)
	}
	return buf
}

func sendFramedAndTerminate(client *transport.Client, tag transport.Tag, buf []byte) error {
	if len(buf) > 0 {
		if err := client.Send(tag, buf); err != nil {
			return err
		}
	}
	return client.Send(tag, nil)
}

// TputWorker is the worker-side participant in the three-phase TPUT
// protocol (spec §4.7), run instead of plain aggr egress when the session
// selects aggr+N>0+use-tput. local is the worker's complete local
// aggregation table (built during the file-read phase); fs supplies the
// sort field, and local's SortMode carries the query direction.
func TputWorker(client *transport.Client, inbox <-chan transport.Msg, local *aggtable.Table, fs flowrec.FieldSet, n int) error {
	schema := local.Schema()
	sortCol, ok := fs.SortField()
	if !ok {
		return cmn.NewError(cmn.BadArgument, nil, "tput requires a sort field")
	}
	// local's Cursor order (set by its SortMode at construction, spec §4.7
	// "sorts by the sort field in the query direction") already reflects
	// the session's query direction, so phase 1's top-N is just its prefix.

	// Phase 1: send local top-N.
	if err := sendFramedAndTerminate(client, transport.TagTput1, packSorted(local, n)); err != nil {
		return err
	}

	// Phase 2: await threshold broadcast, then stream every record >= it.
	var thr thresholdMsg
	if err := recvControl(inbox, &thr); err != nil {
		return err
	}
	var phase2 []byte
	for _, rec := range local.Cursor() {
		v, err := rec.GetUint64(schema, sortCol.Field)
		if err != nil || v < thr.Threshold {
			continue
		}
		phase2 = flowrec.PutLenPrefixed(phase2, rec)
	}
	if err := sendFramedAndTerminate(client, transport.TagTput2, phase2); err != nil {
		return err
	}

	// Phase 3: await the candidate key set, reply with exact per-worker
	// values for every match.
	var cand candidateSetMsg
	if err := recvControl(inbox, &cand); err != nil {
		return err
	}
	var phase3 []byte
	for _, key := range cand.Keys {
		rec := local.Get(key)
		if rec == nil {
			continue // this worker holds no contribution for this key
		}
		phase3 = flowrec.PutLenPrefixed(phase3, rec)
	}
	return sendFramedAndTerminate(client, transport.TagTput3, phase3)
}

// recvControl blocks for the next TagControl frame on inbox and decodes it
// into v.
func recvControl(inbox <-chan transport.Msg, v interface{}) error {
	for msg := range inbox {
		if msg.Tag != transport.TagControl {
			continue
		}
		if err := json.Unmarshal(msg.Payload, v); err != nil {
			return cmn.NewError(cmn.ProtocolError, err, "decoding tput control message")
		}
		return nil
	}
	return cmn.NewError(cmn.ProtocolError, nil, "connection closed waiting for tput control message")
}

// RunAggrTput is the coordinator-side driver for the three-phase TPUT
// protocol (spec §4.7), run when mode is aggr, N>0 and use-tput is set.
// ranks is the sorted list of active worker ranks.
func RunAggrTput(hub *transport.Hub, ranks []int, fs flowrec.FieldSet, n int, sortDesc bool, onProgress func(rank int)) ([]flowrec.Record, error) {
	sortCol, ok := fs.SortField()
	if !ok {
		return nil, cmn.NewError(cmn.BadArgument, nil, "tput requires a sort field")
	}
	mode := aggtable.SortedAsc
	if sortDesc {
		mode = aggtable.SortedDesc
	}

	// Phase 1: candidate exchange.
	phase1 := aggtable.New(fs, mode)
	rc := transport.NewReceiver(hub, ranks)
	if err := rc.Run(transport.TagTput1, func(_ int, payload []byte) {
		transport.Unpack(payload, func(rec []byte) { phase1.WriteRaw(rec) })
	}, nil, onProgress); err != nil {
		return nil, err
	}

	tau1 := phase1Bottom(phase1, sortCol.Field, n)
	threshold := uint64(0)
	if len(ranks) > 0 {
		threshold = (tau1 + uint64(len(ranks)) - 1) / uint64(len(ranks)) // ceil(tau1/W)
	}

	// Phase 2: threshold prune.
	if err := hub.Broadcast(thresholdMsg{Threshold: threshold}); err != nil {
		return nil, err
	}
	phase2 := aggtable.New(fs, mode)
	rc.Reset(ranks)
	if err := rc.Run(transport.TagTput2, func(_ int, payload []byte) {
		transport.Unpack(payload, func(rec []byte) { phase2.WriteRaw(rec) })
	}, nil, onProgress); err != nil {
		return nil, err
	}

	// Phase 3: verification.
	candidates := phase2.Cursor()
	schema := phase2.Schema()
	keys := make([][]byte, len(candidates))
	for i, rec := range candidates {
		keys[i] = rec.KeyBytes(schema, fs)
	}
	if err := hub.Broadcast(candidateSetMsg{Keys: keys}); err != nil {
		return nil, err
	}
	phase3 := aggtable.New(fs, mode)
	rc.Reset(ranks)
	if err := rc.Run(transport.TagTput3, func(_ int, payload []byte) {
		transport.Unpack(payload, func(rec []byte) { phase3.WriteRaw(rec) })
	}, nil, onProgress); err != nil {
		return nil, err
	}

	out := phase3.Cursor() // already in query-direction sorted order via mode
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// phase1Bottom computes τ₁ (spec §4.7): the sort-field value of the Nth
// record in table's sorted order, or the last record's value if fewer than
// N are present, or zero if the table is empty.
func phase1Bottom(table *aggtable.Table, sortField flowrec.FieldID, n int) uint64 {
	recs := table.Cursor()
	if len(recs) == 0 {
		return 0
	}
	idx := n - 1
	if idx < 0 || idx >= len(recs) {
		idx = len(recs) - 1
	}
	v, _ := recs[idx].GetUint64(table.Schema(), sortField)
	return v
}
