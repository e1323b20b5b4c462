package websocket

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"

	"github.com/getmockd/kbase/internal/id"
)

// Connection is one subscribed client.
type Connection struct {
	id          string
	conn        *ws.Conn
	remoteAddr  string
	connectedAt time.Time
	sent        atomic.Int64

	// pending holds at most one undelivered state. offer replaces it.
	pending chan []byte
	offerMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

func newConnection(wsConn *ws.Conn, r *http.Request) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:          id.Prefixed("ws"),
		conn:        wsConn,
		connectedAt: time.Now(),
		pending:     make(chan []byte, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
	if r != nil {
		c.remoteAddr = r.RemoteAddr
	}
	return c
}

// ID returns the connection ID.
func (c *Connection) ID() string { return c.id }

// MessagesSent returns how many states were written to the client.
func (c *Connection) MessagesSent() int64 { return c.sent.Load() }

// offer queues data, discarding any state the client has not received yet.
func (c *Connection) offer(data []byte) {
	c.offerMu.Lock()
	defer c.offerMu.Unlock()
	select {
	case <-c.pending:
	default:
	}
	c.pending <- data
}

// writeLoop delivers queued states until the connection closes.
func (c *Connection) writeLoop(writeTimeout time.Duration) error {
	// CloseRead discards client frames and cancels readCtx once the peer
	// goes away.
	readCtx := c.conn.CloseRead(c.ctx)
	for {
		select {
		case <-readCtx.Done():
			return nil
		case data := <-c.pending:
			wctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
			c.sent.Add(1)
		}
	}
}

// Close closes the connection with the given status and reason.
func (c *Connection) Close(code ws.StatusCode, reason string) error {
	if c.closed.Swap(true) {
		return ErrConnectionClosed
	}
	c.cancel()
	return c.conn.Close(code, reason)
}
