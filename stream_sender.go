package rsocket

import (
	"context"
	"math"
	"sync"

	"go.cryptoscope.co/rsocket/frame"
	"go.cryptoscope.co/rsocket/streams"
)

// unboundedCredit is the saturation point at which accumulated credit
// is treated as unbounded: the sender stops bookkeeping individual
// units and just keeps pulling.
const unboundedCredit = math.MaxInt32

// streamSender drives one REQUEST_STREAM or REQUEST_CHANNEL
// interaction's outbound half: it pulls payloads from a
// streams.Source under explicit credit and turns each one into an
// outbound NEXT frame, terminating with COMPLETE or ERROR.
//
// This is a credit-counter substitute for a reactive-streams
// Subscription, used in place of a full Publisher/Subscriber
// dependency.
type streamSender struct {
	streamID uint32
	src      streams.Source
	resp     *Responder

	mu        sync.Mutex
	credit    int64
	unbounded bool
	wake      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func newStreamSender(resp *Responder, streamID uint32, src streams.Source, initialCredit uint32) *streamSender {
	ctx, cancel := context.WithCancel(context.Background())
	s := &streamSender{
		streamID: streamID,
		src:      src,
		resp:     resp,
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.RequestN(initialCredit)
	return s
}

// RequestN adds n units of credit, saturating to unbounded at
// unboundedCredit, and implements the sender interface for inbound
// REQUEST_N frames.
func (s *streamSender) RequestN(n uint32) {
	s.mu.Lock()
	if !s.unbounded {
		s.credit += int64(n)
		if s.credit >= unboundedCredit {
			s.unbounded = true
		}
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cancel stops the pump and cancels the upstream Source's context,
// implementing the sender interface for inbound CANCEL frames and for
// the termination sweep.
func (s *streamSender) Cancel() {
	s.cancel()
}

// takeCredit reports whether the pump may pull one more item, and
// consumes one unit of credit if it does (a no-op once unbounded).
func (s *streamSender) takeCredit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unbounded {
		return true
	}
	if s.credit > 0 {
		s.credit--
		return true
	}
	return false
}

// run pulls from src until it ends, is cancelled, or errors, encoding
// each item as an outbound NEXT frame and, for the reason it stopped,
// a matching COMPLETE or ERROR — then deregisters itself. Call in its
// own goroutine.
func (s *streamSender) run() {
	defer s.resp.registry.removeSender(s.streamID)

	for {
		if !s.takeCredit() {
			select {
			case <-s.wake:
				continue
			case <-s.ctx.Done():
				return
			}
		}

		v, err := s.src.Next(s.ctx)
		if streams.IsEOS(err) {
			s.resp.enqueueComplete(s.streamID)
			return
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return // cancelled, not a real upstream error
			}
			s.resp.enqueueError(s.streamID, frame.ErrorCodeApplicationError, err)
			return
		}

		payload, ok := v.(Payload)
		if !ok {
			s.resp.enqueueError(s.streamID, frame.ErrorCodeApplicationError, errUnexpectedStreamValue)
			return
		}
		s.resp.enqueueNext(s.streamID, payload)
	}
}

var errUnexpectedStreamValue = &ApplicationError{Message: "stream source yielded a non-Payload value"}
