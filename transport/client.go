package transport

import (
	"github.com/golang/glog"

	"github.com/CESNET/fdq/cmn"
)

// Client is a worker's single connection to the coordinator. Unlike the
// coordinator's Hub, which fans in from many workers, a worker only ever
// talks to rank 0, so Client wraps exactly one Conn.
type Client struct {
	conn *Conn
}

// Dial connects to the coordinator at addr, performs the rank/world-size
// handshake, and starts the read loop delivering frames to inbox.
func Dial(addr string, rank, worldSize int, compress bool, inbox chan Msg) (*Client, error) {
	nc, err := dialTimeout(addr)
	if err != nil {
		return nil, err
	}
	if err := writeHandshake(nc, handshake{Rank: rank, WorldSize: worldSize}); err != nil {
		nc.Close()
		return nil, err
	}
	conn := NewConn(nc, 0, compress, inbox)
	go func() {
		if err := conn.Run(); err != nil {
			glog.Errorf("connection to coordinator terminated: %v", err)
		}
	}()
	return &Client{conn: conn}, nil
}

// Send delivers one tagged frame to the coordinator.
func (c *Client) Send(tag Tag, payload []byte) error { return c.conn.Send(tag, payload) }

// SendJSON marshals v and sends it as a TagControl frame.
func (c *Client) SendJSON(v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return cmn.NewError(cmn.Internal, err, "marshalling control payload")
	}
	return c.conn.Send(TagControl, buf)
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Ready sends the "ready" half of a Barrier rendezvous.
func (c *Client) Ready() error {
	return c.SendJSON(struct {
		Phase string `json:"phase"`
	}{Phase: "ready"})
}
