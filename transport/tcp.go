// Package transport provides concrete rsocket.Conn implementations:
// a plain TCP adapter and a WebSocket adapter built on
// github.com/gorilla/websocket.
package transport

import (
	"net"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"go.cryptoscope.co/rsocket/frame"
)

// recvBufferSize is how many decoded frames the read loop can get
// ahead of the responder's dispatch loop before it blocks.
const recvBufferSize = 64

// TCPConn adapts a net.Conn into an rsocket.Conn: one goroutine reads
// length-prefixed frames off the wire into recv, another drains send
// and writes them out. Framing and transport-level concerns stop
// here; the responder only ever sees *frame.Frame values.
type TCPConn struct {
	conn net.Conn
	pool *frame.Pool
	log  log.Logger

	recv chan *frame.Frame
	send chan *frame.Frame

	closeOnce sync.Once
	closing   chan struct{}
}

// NewTCPConn wraps conn and immediately starts its read and write
// loops. pool supplies the buffers ReadFrame draws frame bodies from;
// logger may be nil.
func NewTCPConn(conn net.Conn, pool *frame.Pool, logger log.Logger) *TCPConn {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &TCPConn{
		conn:    conn,
		pool:    pool,
		log:     logger,
		recv:    make(chan *frame.Frame, recvBufferSize),
		send:    make(chan *frame.Frame, recvBufferSize),
		closing: make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *TCPConn) Receive() <-chan *frame.Frame { return c.recv }
func (c *TCPConn) Send() chan<- *frame.Frame    { return c.send }
func (c *TCPConn) OnClose() <-chan struct{}     { return c.closing }

// Dispose closes the underlying connection, which unblocks whichever
// loop is parked in a Read or Write and lets it exit.
func (c *TCPConn) Dispose() {
	c.closeOnce.Do(func() {
		close(c.closing)
		if err := c.conn.Close(); err != nil {
			level.Debug(c.log).Log("event", "tcp conn close", "err", err)
		}
	})
}

func (c *TCPConn) readLoop() {
	defer close(c.recv)
	for {
		f, err := frame.ReadFrame(c.conn, c.pool)
		if err != nil {
			level.Debug(c.log).Log("event", "tcp read loop exiting", "err", err)
			c.Dispose()
			return
		}
		select {
		case c.recv <- f:
		case <-c.closing:
			return
		}
	}
}

func (c *TCPConn) writeLoop() {
	for {
		select {
		case f, ok := <-c.send:
			if !ok {
				return
			}
			if err := frame.WriteFrame(c.conn, f.Bytes()); err != nil {
				level.Debug(c.log).Log("event", "tcp write loop exiting", "err", err)
				c.Dispose()
				return
			}
		case <-c.closing:
			return
		}
	}
}
