package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sort"
	"sync"

	"github.com/golang/glog"
	jsoniter "github.com/json-iterator/go"

	"github.com/CESNET/fdq/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// handshake is the first control message a worker sends after dialing.
type handshake struct {
	Rank      int `json:"rank"`
	WorldSize int `json:"world_size"`
}

// Hub is the coordinator's view of the cluster: one Conn per worker rank,
// plus the shared inbox every Conn's reader goroutine feeds (spec §4.1's
// "wait-any" fan-in). It owns Broadcast/Gather/Barrier — the collective
// operations a single-threaded coordinator loop drives.
//
// inbox is unbuffered on purpose. A Conn's read loop (Conn.Run) reuses its
// landing buffer two frames later (spec §4.3's double buffer), so a frame's
// payload must be fully handed off to recvMsg's single caller before
// Conn.Run can be more than one frame ahead of it. Any buffering here
// would let a fast reader race past the buffer it just handed off and
// overwrite it while the caller was still holding the old reference
// unconsumed — see Conn.landingBuffer.
type Hub struct {
	worldSize int
	compress  bool

	mu    sync.RWMutex
	conns map[int]*Conn

	inbox chan Msg

	pendingMu sync.Mutex
	pending   []Msg
}

// NewHub creates a coordinator hub for a cluster of worldSize processes
// (including rank 0, the coordinator itself, which never has a Conn).
func NewHub(worldSize int, compress bool) *Hub {
	return &Hub{
		worldSize: worldSize,
		compress:  compress,
		conns:     make(map[int]*Conn),
		inbox:     make(chan Msg),
	}
}

// Listen accepts worldSize-1 worker connections on addr, blocking until
// all have completed their handshake. Each accepted Conn's reader loop is
// started in its own goroutine.
func (h *Hub) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return cmn.NewError(cmn.Transport, err, "listening on %s", addr)
	}
	defer ln.Close()

	want := h.worldSize - 1
	for got := 0; got < want; got++ {
		nc, err := ln.Accept()
		if err != nil {
			return cmn.NewError(cmn.Transport, err, "accepting worker connection")
		}
		hs, err := readHandshake(nc)
		if err != nil {
			nc.Close()
			return err
		}
		if hs.WorldSize != h.worldSize {
			nc.Close()
			return cmn.NewError(cmn.ProtocolError, nil,
				"worker rank %d reports world size %d, coordinator expects %d",
				hs.Rank, hs.WorldSize, h.worldSize)
		}

		c := NewConn(nc, hs.Rank, h.compress, h.inbox)
		h.mu.Lock()
		h.conns[hs.Rank] = c
		h.mu.Unlock()
		go func() {
			if err := c.Run(); err != nil {
				glog.Errorf("connection to rank %d terminated: %v", hs.Rank, err)
			}
		}()
	}
	return nil
}

func readHandshake(nc net.Conn) (handshake, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(nc, lenBuf[:]); err != nil {
		return handshake{}, cmn.NewError(cmn.Transport, err, "reading handshake length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(nc, buf); err != nil {
		return handshake{}, cmn.NewError(cmn.Transport, err, "reading handshake body")
	}
	var hs handshake
	if err := json.Unmarshal(buf, &hs); err != nil {
		return handshake{}, cmn.NewError(cmn.ProtocolError, err, "decoding handshake")
	}
	return hs, nil
}

func writeHandshake(nc net.Conn, hs handshake) error {
	buf, err := json.Marshal(hs)
	if err != nil {
		return cmn.NewError(cmn.Internal, err, "marshalling handshake")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf)))
	if _, err := nc.Write(lenBuf[:]); err != nil {
		return cmn.NewError(cmn.Transport, err, "writing handshake length")
	}
	if _, err := nc.Write(buf); err != nil {
		return cmn.NewError(cmn.Transport, err, "writing handshake body")
	}
	return nil
}

// stash puts back frames that arrived ahead of the phase expecting them —
// e.g. a fast worker's barrier-ready message racing a slower worker's
// still-active DATA stream. They go to the front of the pending queue, in
// the order given, ahead of anything still waiting there, and recvMsg
// checks that queue first. Receiver.Run uses this so it never loses a
// frame that arrived during its loop; Gather does not stash, it hands
// non-control frames to its onOther callback or drops them.
func (h *Hub) stash(msgs []Msg) {
	if len(msgs) == 0 {
		return
	}
	h.pendingMu.Lock()
	h.pending = append(msgs, h.pending...)
	h.pendingMu.Unlock()
}

// recvMsg returns the oldest stashed frame if any, else blocks on the
// shared inbox.
func (h *Hub) recvMsg() Msg {
	h.pendingMu.Lock()
	if len(h.pending) > 0 {
		msg := h.pending[0]
		h.pending = h.pending[1:]
		h.pendingMu.Unlock()
		return msg
	}
	h.pendingMu.Unlock()
	return <-h.inbox
}

// ranks returns the sorted worker ranks currently connected (1..worldSize-1).
func (h *Hub) ranks() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int, 0, len(h.conns))
	for r := range h.conns {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

func (h *Hub) conn(rank int) *Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[rank]
}

// Broadcast JSON-encodes v and sends it as a TagControl frame to every
// worker.
func (h *Hub) Broadcast(v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return cmn.NewError(cmn.Internal, err, "marshalling broadcast payload")
	}
	for _, r := range h.ranks() {
		if err := h.conn(r).Send(TagControl, buf); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers one tagged frame to a single worker.
func (h *Hub) Send(rank int, tag Tag, payload []byte) error {
	c := h.conn(rank)
	if c == nil {
		return cmn.NewError(cmn.Internal, nil, "no connection to rank %d", rank)
	}
	return c.Send(tag, payload)
}

// Gather collects exactly one TagControl frame from each worker and
// json-decodes it via decode, returning once every rank has reported.
// A frame tagged anything other than TagControl can legitimately arrive
// interleaved on the shared inbox (e.g. a fast worker's first PROGRESS
// report racing a slow worker's file-count gather); onOther receives
// those instead of treating them as a protocol violation. onOther may be
// nil to drop them.
func (h *Hub) Gather(decode func(rank int, payload []byte) error, onOther func(msg Msg)) error {
	remaining := map[int]bool{}
	for _, r := range h.ranks() {
		remaining[r] = true
	}
	for len(remaining) > 0 {
		msg := h.recvMsg()
		if msg.Tag != TagControl {
			if onOther != nil {
				onOther(msg)
			}
			continue
		}
		if !remaining[msg.Rank] {
			continue
		}
		if err := decode(msg.Rank, msg.Payload); err != nil {
			return err
		}
		delete(remaining, msg.Rank)
	}
	return nil
}

// Barrier is a two-phase rendezvous: gather a "ready" control message from
// every worker, then broadcast a "go" control message once all have
// arrived (spec §4.1).
func (h *Hub) Barrier() error {
	type marker struct {
		Phase string `json:"phase"`
	}
	if err := h.Gather(func(rank int, payload []byte) error {
		var m marker
		if err := json.Unmarshal(payload, &m); err != nil {
			return cmn.NewError(cmn.ProtocolError, err, "decoding barrier ready from rank %d", rank)
		}
		if m.Phase != "ready" {
			return cmn.NewError(cmn.ProtocolError, nil, "rank %d sent phase %q, want \"ready\"", rank, m.Phase)
		}
		return nil
	}, nil); err != nil {
		return err
	}
	return h.Broadcast(marker{Phase: "go"})
}

// Close closes every worker connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.Close()
	}
}
