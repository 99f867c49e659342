package transport

import (
	"bytes"
	"io"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"go.cryptoscope.co/rsocket/frame"
)

// wsReadWriter adapts a *websocket.Conn into an io.ReadWriter of
// opaque bytes, so the same length-prefixed frame.ReadFrame /
// frame.WriteFrame pair used over TCP also works over WebSocket: each
// RSocket frame (length prefix included) travels as one binary
// message.
type wsReadWriter struct {
	conn *websocket.Conn

	readMu sync.Mutex
	r      io.Reader
}

func (w *wsReadWriter) Read(p []byte) (int, error) {
	w.readMu.Lock()
	defer w.readMu.Unlock()
	return w.read(p)
}

// read assumes readMu is held. Each WebSocket message boundary marks
// the end of one NextReader; io.EOF there just means "get the next
// message", not end of stream.
func (w *wsReadWriter) read(p []byte) (int, error) {
	if w.r == nil {
		if err := w.renewReader(); err != nil {
			return 0, err
		}
	}
	n, err := w.r.Read(p)
	if err == io.EOF {
		w.r = nil
		if err := w.renewReader(); err != nil {
			return 0, err
		}
		return w.read(p)
	}
	return n, err
}

func (w *wsReadWriter) renewReader() error {
	mt, r, err := w.conn.NextReader()
	if err != nil {
		return errors.Wrap(err, "rsocket: websocket NextReader failed")
	}
	if mt != websocket.BinaryMessage {
		return errors.Errorf("rsocket: websocket: got non-binary message type %d", mt)
	}
	w.r = r
	return nil
}

func (w *wsReadWriter) Write(p []byte) (int, error) {
	wc, err := w.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return 0, errors.Wrap(err, "rsocket: websocket NextWriter failed")
	}
	n, err := io.Copy(wc, bytes.NewReader(p))
	if err != nil {
		return int(n), errors.Wrap(err, "rsocket: websocket write failed")
	}
	return int(n), wc.Close()
}

// WSConn adapts a *websocket.Conn into an rsocket.Conn, using the same
// read-loop/write-loop shape as TCPConn over a wsReadWriter instead of
// a raw net.Conn.
type WSConn struct {
	rw   *wsReadWriter
	conn *websocket.Conn
	pool *frame.Pool
	log  log.Logger

	recv chan *frame.Frame
	send chan *frame.Frame

	closeOnce sync.Once
	closing   chan struct{}
}

// NewWSConn wraps conn and immediately starts its read and write
// loops. pool supplies the buffers ReadFrame draws frame bodies from;
// logger may be nil.
func NewWSConn(conn *websocket.Conn, pool *frame.Pool, logger log.Logger) *WSConn {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &WSConn{
		rw:      &wsReadWriter{conn: conn},
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

func (c *WSConn) Receive() <-chan *frame.Frame { return c.recv }
func (c *WSConn) Send() chan<- *frame.Frame    { return c.send }
func (c *WSConn) OnClose() <-chan struct{}     { return c.closing }

func (c *WSConn) Dispose() {
	c.closeOnce.Do(func() {
		close(c.closing)
		if err := c.conn.Close(); err != nil {
			level.Debug(c.log).Log("event", "websocket conn close", "err", err)
		}
	})
}

func (c *WSConn) readLoop() {
	defer close(c.recv)
	for {
		f, err := frame.ReadFrame(c.rw, c.pool)
		if err != nil {
			level.Debug(c.log).Log("event", "websocket read loop exiting", "err", err)
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

func (c *WSConn) writeLoop() {
	for {
		select {
		case f, ok := <-c.send:
			if !ok {
				return
			}
			if err := frame.WriteFrame(c.rw, f.Bytes()); err != nil {
				level.Debug(c.log).Log("event", "websocket write loop exiting", "err", err)
				c.Dispose()
				return
			}
		case <-c.closing:
			return
		}
	}
}
