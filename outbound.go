package rsocket

import (
	"sync"

	"go.cryptoscope.co/rsocket/frame"
)

// outboundQueue is a single unbounded multi-producer single-consumer
// queue: any number of producers (the dispatch loop, per-stream sender
// pumps, the keep-alive coordinator) push encoded frames; one pump
// goroutine is the sole consumer writing them to the transport.
//
// muxrpc gets away with writing straight to its Packer under a single
// write mutex because every Pour call there is already synchronous
// with the caller; here a REQUEST_STREAM's sender pump must never
// block waiting for the transport directly behind a slow peer, so
// pushes buffer in memory instead.
type outboundQueue struct {
	mu      sync.Mutex
	buf     []*frame.Frame
	wake    chan struct{}
	closed  bool
	closeCh chan struct{}
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// push enqueues f. A no-op once the queue has been disposed.
func (q *outboundQueue) push(f *frame.Frame) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, f)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain removes and returns everything currently queued.
func (q *outboundQueue) drain() []*frame.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil
	}
	out := q.buf
	q.buf = nil
	return out
}

// dispose marks the queue closed; further pushes are discarded.
func (q *outboundQueue) dispose() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.closeCh)
}

// pump is the queue's sole consumer: it drains into send until
// dispose is called, then hands every frame still queued to send
// without blocking and exits. A frame that send cannot take at once
// during that final flush is dropped.
func (q *outboundQueue) pump(send chan<- *frame.Frame) {
	for {
		batch := q.drain()
		for i, f := range batch {
			select {
			case send <- f:
			case <-q.closeCh:
				for _, f := range append(batch[i:], q.drain()...) {
					select {
					case send <- f:
					default:
					}
				}
				return
			}
		}

		select {
		case <-q.wake:
		case <-q.closeCh:
			for _, f := range q.drain() {
				select {
				case send <- f:
				default:
				}
			}
			return
		}
	}
}
