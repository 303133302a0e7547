package transport

import "encoding/binary"

// BufSize is XCHG_BUFF_SIZE: the fixed capacity of one flush buffer (spec
// §4.2). Exported so callers can size their own scratch buffers
// identically to what the Packer produces.
const BufSize = 64 * 1024

// Packer accumulates records into fixed-capacity buffers, flushing a
// buffer (via the provided sink) whenever the next record wouldn't fit,
// exactly as spec §4.2 describes.
type Packer struct {
	bufSize int
	buf     []byte
	sink    func(buf []byte) error
}

// NewPacker creates a Packer that flushes full buffers of size bufSize to
// sink. sink receives the buffer's live prefix only (len, not cap).
func NewPacker(bufSize int, sink func(buf []byte) error) *Packer {
	return &Packer{bufSize: bufSize, buf: make([]byte, 0, bufSize), sink: sink}
}

// Append adds one length-prefixed record to the current buffer, flushing
// first if it wouldn't fit.
func (p *Packer) Append(rec []byte) error {
	need := 4 + len(rec)
	if len(p.buf)+need > p.bufSize {
		if err := p.Flush(); err != nil {
			return err
		}
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(rec)))
	p.buf = append(p.buf, lenBuf[:]...)
	p.buf = append(p.buf, rec...)
	return nil
}

// Flush sends the current buffer (if non-empty) to sink and resets it.
func (p *Packer) Flush() error {
	if len(p.buf) == 0 {
		return nil
	}
	buf := p.buf
	p.buf = make([]byte, 0, p.bufSize)
	return p.sink(buf)
}

// Terminate flushes any pending data and then sends the zero-length
// terminator buffer that marks the end of this worker's stream.
func (p *Packer) Terminate() error {
	if err := p.Flush(); err != nil {
		return err
	}
	return p.sink(nil)
}

// Unpack walks buf from offset 0, invoking cb with each record payload in
// order. It stops cleanly at the first offset where a complete length
// prefix would not fit in the remainder — per spec §4.2, record payloads
// are never split across buffers, so reaching end-of-buffer exactly after
// the last record is the only valid termination.
func Unpack(buf []byte, cb func(rec []byte)) {
	off := 0
	for off+4 <= len(buf) {
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+n > len(buf) {
			// malformed: a length prefix claims more than the remaining
			// buffer holds. Per spec this cannot happen for a conforming
			// sender; stop rather than read out of bounds.
			return
		}
		cb(buf[off : off+n])
		off += n
	}
}
