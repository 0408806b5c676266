package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michaelhil/open-neon-go/errors"
)

// Dialer opens push channels. Split from HTTP so tests can count and
// fake channel opens without touching the request path.
type Dialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

type websocketDialer struct {
	dialer *websocket.Dialer
}

func newWebsocketDialer(handshakeTimeout time.Duration) *websocketDialer {
	return &websocketDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *websocketDialer) Dial(ctx context.Context, url string) (Channel, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Connection(errors.CodeConnectionFailed,
			"open push channel "+url, err)
	}

	ch := &websocketChannel{
		conn:     conn,
		messages: make(chan []byte, 32),
		done:     make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// websocketChannel adapts one gorilla connection to the Channel
// contract: frames delivered in receipt order, terminal cause after
// the message channel closes.
type websocketChannel struct {
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{} // closed once, by Close

	mu        sync.Mutex
	err       error
	closed    bool
	closeOnce sync.Once
}

func (c *websocketChannel) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			// A locally requested close or a clean remote close is
			// not a failure.
			if !c.closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway) {
				c.err = err
			}
			c.mu.Unlock()
			return
		}
		// The consumer may stop draining before closing the channel;
		// a blocked handover must not outlive Close.
		select {
		case c.messages <- data:
		case <-c.done:
			return
		}
	}
}

func (c *websocketChannel) Messages() <-chan []byte {
	return c.messages
}

func (c *websocketChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *websocketChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)

		// Best-effort close handshake, then drop the connection. The
		// read loop exits on the next ReadMessage error.
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()
	})
	return nil
}
