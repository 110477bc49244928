package cluster

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a single writer goroutine so that
// frames sent by multiple callers are still delivered to the peer in the
// order Send was called, and a Recv loop for the other direction. Outbound
// frames are buffered; Send blocks once the buffer is full rather than
// silently dropping a frame, which is what makes delivery at-least-once
// under backpressure instead of best-effort.
type Conn struct {
	PeerID string

	ws     *websocket.Conn
	outbox chan Frame
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	closeErr error
}

const outboxDepth = 256

// NewConn starts the writer goroutine for ws and returns a ready Conn;
// Close stops it.
func NewConn(peerID string, ws *websocket.Conn) *Conn {
	c := &Conn{
		PeerID: peerID,
		ws:     ws,
		outbox: make(chan Frame, outboxDepth),
		done:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) writeLoop() {
	for {
		select {
		case frame, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.ws.WriteJSON(frame); err != nil {
				c.fail(fmt.Errorf("cluster: write frame: %w", err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.closeErr == nil {
		c.closeErr = err
	}
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// Send enqueues a frame for delivery, blocking if the outbox is full.
// Returns an error if the connection has already failed or closed.
func (c *Conn) Send(frame Frame) error {
	select {
	case <-c.done:
		return c.Err()
	default:
	}
	select {
	case c.outbox <- frame:
		return nil
	case <-c.done:
		return c.Err()
	}
}

// Recv reads the next inbound frame. It blocks until one arrives or the
// connection closes.
func (c *Conn) Recv() (Frame, error) {
	var frame Frame
	if err := c.ws.ReadJSON(&frame); err != nil {
		if err == websocket.ErrCloseSent || isNetClose(err) {
			return Frame{}, errClosed
		}
		return Frame{}, fmt.Errorf("cluster: read frame: %w", err)
	}
	return frame, nil
}

var errClosed = fmt.Errorf("cluster: connection closed")

func isNetClose(err error) bool {
	_, ok := err.(*websocket.CloseError)
	return ok
}

// Err returns the error that caused the connection to stop accepting
// writes, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return errClosed
}

// Close stops the writer goroutine and closes the underlying socket.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.ws.Close()
}

// Done is closed once the connection has stopped (failed or explicitly
// closed).
func (c *Conn) Done() <-chan struct{} { return c.done }
