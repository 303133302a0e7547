package cmn

import (
	"sync"

	"github.com/dustin/go-humanize"
)

// StopCh is a once-closeable signal channel, the teacher's idiom for
// "close() is the event" (transport.Stream.lastCh/stopCh, xaction/demand's
// idle ticker).
type StopCh struct {
	ch   chan struct{}
	once sync.Once
}

func NewStopCh() *StopCh {
	return &StopCh{ch: make(chan struct{})}
}

// Close is idempotent: repeated calls never panic.
func (s *StopCh) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Listen returns the channel to select on; it reads as closed once Close
// has been called.
func (s *StopCh) Listen() <-chan struct{} { return s.ch }

// B2S formats a byte count as a human-readable IEC string (e.g. "1.0 KiB").
func B2S(b int64) string {
	return humanize.IBytes(uint64(b))
}
