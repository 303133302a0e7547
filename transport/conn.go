package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/CESNET/fdq/cmn"
	"github.com/pierrec/lz4/v4"
)

// Msg is one inbound frame delivered to a receive loop: the peer it came
// from, its tag, and its payload. Rank is the coordinator's view of which
// worker sent it (always 0, the coordinator, from a worker's point of
// view). A zero-length Payload on TagData/TagProgress/TagTput* is the
// per-stream terminator (spec §4.2/§4.3).
type Msg struct {
	Rank    int
	Tag     Tag
	Payload []byte
}

// Conn is one persistent, bidirectional TCP connection between the
// coordinator and one worker. It implements the double-buffered receive
// described in spec §4.3 and §8: exactly two reusable landing buffers are
// alternated by Run, so a frame's buffer is only reused by the
// frame two positions later. That reuse is safe only if the consumer has
// finished with buffer k before frame k+2 overwrites it, which is why
// inbox (see Hub) must be unbuffered: Run's send blocks until the
// consumer's own loop comes back around to receive again, and a
// sequential consumer only does that once it has finished processing
// the previous frame. A buffered inbox would let Run's send complete
// (and the next read start) the instant a slot in the channel is free,
// with no guarantee the consumer had actually finished with the frame
// occupying that slot.
type Conn struct {
	nc       net.Conn
	rank     int // peer rank, from the coordinator's point of view
	compress bool

	sendMu sync.Mutex

	bufs [2][]byte
	idx  int

	inbox chan<- Msg
	done  chan struct{}
	once  sync.Once
	err   error
	errMu sync.Mutex
}

// NewConn wraps nc; frames read off the wire are pushed onto inbox tagged
// with rank. Call Run to start the read loop (normally in its own
// goroutine); Send may be called concurrently with Run from any goroutine.
func NewConn(nc net.Conn, rank int, compress bool, inbox chan<- Msg) *Conn {
	c := &Conn{
		nc:       nc,
		rank:     rank,
		compress: compress,
		inbox:    inbox,
		done:     make(chan struct{}),
	}
	c.bufs[0] = make([]byte, 0, BufSize)
	c.bufs[1] = make([]byte, 0, BufSize)
	return c
}

// Send writes one tagged frame to the peer: [1-byte tag][1-byte flags]
// [4-byte BE uncompressed length][4-byte BE wire length][payload], the
// payload optionally lz4-compressed (flags == 1). Safe for concurrent use.
func (c *Conn) Send(tag Tag, payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	out := payload
	flags := byte(0)
	if c.compress && len(payload) > 0 {
		compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
		var compressor lz4.Compressor
		n, err := compressor.CompressBlock(payload, compressed)
		if err == nil && n > 0 && n < len(payload) {
			out = compressed[:n]
			flags = 1
		}
	}
	return c.writeFrame(tag, flags, out, len(payload))
}

func (c *Conn) writeFrame(tag Tag, flags byte, out []byte, rawLen int) error {
	var hdr [10]byte
	hdr[0] = byte(tag)
	hdr[1] = flags
	binary.BigEndian.PutUint32(hdr[2:6], uint32(rawLen))
	binary.BigEndian.PutUint32(hdr[6:10], uint32(len(out)))
	if _, err := c.nc.Write(hdr[:]); err != nil {
		return cmn.NewError(cmn.Transport, err, "writing frame header to rank %d", c.rank)
	}
	if len(out) == 0 {
		return nil
	}
	if _, err := c.nc.Write(out); err != nil {
		return cmn.NewError(cmn.Transport, err, "writing frame payload to rank %d", c.rank)
	}
	return nil
}

// Run reads frames until the connection is closed or a protocol error
// occurs, delivering each to the inbox channel supplied at construction.
// It returns the terminating error (nil on a clean peer-initiated close).
func (c *Conn) Run() error {
	defer close(c.done)
	for {
		tag, flags, rawLen, wireLen, err := c.readHeader()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return c.fail(cmn.NewError(cmn.Transport, err, "reading frame header from rank %d", c.rank))
		}

		buf := c.landingBuffer(wireLen)
		if wireLen > 0 {
			if _, err := io.ReadFull(c.nc, buf); err != nil {
				return c.fail(cmn.NewError(cmn.Transport, err, "reading frame payload from rank %d", c.rank))
			}
		}

		payload := buf
		if flags == 1 {
			payload = make([]byte, rawLen)
			n, err := lz4.UncompressBlock(buf, payload)
			if err != nil || n != rawLen {
				return c.fail(cmn.NewError(cmn.Transport, err, "decompressing frame from rank %d", c.rank))
			}
		}

		select {
		case c.inbox <- Msg{Rank: c.rank, Tag: tag, Payload: payload}:
		case <-c.done:
			return nil
		}
	}
}

func (c *Conn) readHeader() (tag Tag, flags byte, rawLen, wireLen int, err error) {
	var hdr [10]byte
	if _, err = io.ReadFull(c.nc, hdr[:]); err != nil {
		return
	}
	tag = Tag(hdr[0])
	flags = hdr[1]
	rawLen = int(binary.BigEndian.Uint32(hdr[2:6]))
	wireLen = int(binary.BigEndian.Uint32(hdr[6:10]))
	return
}

// landingBuffer returns the next alternating buffer, grown if this frame
// is larger than its current capacity. This is the ping-pong step of the
// double-buffered receiver: c.idx flips on every call, so the buffer
// returned here is never the one most recently handed to the inbox.
func (c *Conn) landingBuffer(n int) []byte {
	c.idx = 1 - c.idx
	buf := c.bufs[c.idx]
	if cap(buf) < n {
		buf = make([]byte, n)
		c.bufs[c.idx] = buf
	}
	return buf[:n]
}

func (c *Conn) fail(err error) error {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
	return err
}

// Err returns the error that terminated Run, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the underlying connection; safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() { err = c.nc.Close() })
	return err
}

// Done returns a channel closed once Run has returned.
func (c *Conn) Done() <-chan struct{} { return c.done }

func dialTimeout(addr string) (net.Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, cmn.NewError(cmn.Transport, err, "dialing coordinator at %s", addr)
	}
	return nc, nil
}
