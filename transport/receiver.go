package transport

// Receiver implements the coordinator's double-buffered wait-any receive
// loop (C3, spec §4.3): it reads the Hub's fan-in inbox through
// Hub.recvMsg, dispatching each frame either to onProgress (tag
// TagProgress, any source) or onData (the tag passed to Run), until every
// worker has sent its zero-length terminator on that tag.
type Receiver struct {
	hub    *Hub
	active map[int]bool
}

// NewReceiver creates a Receiver tracking the given worker ranks as active
// (i.e. expected to eventually send a zero-length terminator).
func NewReceiver(hub *Hub, ranks []int) *Receiver {
	active := make(map[int]bool, len(ranks))
	for _, r := range ranks {
		active[r] = true
	}
	return &Receiver{hub: hub, active: active}
}

// Reset re-arms the Receiver for another phase against the same rank set
// (TPUT's phase 1 -> 2 -> 3 reuses one Receiver across three tags).
func (rc *Receiver) Reset(ranks []int) {
	rc.active = make(map[int]bool, len(ranks))
	for _, r := range ranks {
		rc.active[r] = true
	}
}

// Run drains frames tagged `tag` (data) and TagProgress (side-channel)
// until every active worker's zero-length terminator has been seen.
//
// onData is called for every non-empty payload until limit (if non-nil)
// returns true after one of those calls (the record-limit short-circuit,
// spec §4.3); after that, remaining buffers are still read off the channel
// (so senders are never blocked) but are not passed to onData again.
func (rc *Receiver) Run(tag Tag, onData func(rank int, payload []byte), limit func() bool, onProgress func(rank int)) error {
	shortCircuited := false
	var deferred []Msg
	for len(rc.active) > 0 {
		msg := rc.hub.recvMsg()
		switch {
		case msg.Tag == TagProgress:
			if onProgress != nil {
				onProgress(msg.Rank)
			}
		case msg.Tag == tag:
			if len(msg.Payload) == 0 {
				delete(rc.active, msg.Rank)
				continue
			}
			if shortCircuited {
				continue
			}
			onData(msg.Rank, msg.Payload)
			if limit != nil && limit() {
				shortCircuited = true
			}
		default:
			// A frame meant for a different phase (e.g. a fast worker's
			// barrier-ready message racing a slower worker's still-active
			// DATA stream) — keep a copy (its Conn reuses the payload's
			// buffer two frames later) and hand it back to the hub once this
			// loop ends, so the phase that actually expects it picks it up
			// via Hub.recvMsg instead of losing it. Stashing it right away
			// would make the next recvMsg return it to this loop again.
			msg.Payload = append([]byte(nil), msg.Payload...)
			deferred = append(deferred, msg)
		}
	}
	rc.hub.stash(deferred)
	return nil
}
