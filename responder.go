package rsocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/hashicorp/go-multierror"

	"go.cryptoscope.co/rsocket/frame"
	ierrors "go.cryptoscope.co/rsocket/internal/errors"
)

// connState is the connection's lifecycle state machine.
type connState int32

const (
	stateOpen connState = iota
	stateTerminating
	stateClosed
)

// channelBufferSize is how deep a REQUEST_CHANNEL's inbound pipe
// buffers before Pour blocks the dispatch loop.
const channelBufferSize = 64

// Responder drives the responder side of every RSocket interaction
// model over one connection: inbound dispatch by stream id and frame
// type, the credit-based backpressure bridge to the handler, and the
// termination sweep on connection loss. It is the Go shape of
// RSocketResponder plus the muxrpc rpc type's Serve loop, generalized
// from muxrpc's four call kinds to RSocket's five interactions.
type Responder struct {
	conn    Conn
	handler Handler
	pool    *frame.Pool
	logger  log.Logger

	registry      *registry
	outbound      *outboundQueue
	backgroundCtx context.Context
	keepalive     *KeepaliveCoordinator

	state       int32 // connState, accessed via atomic
	disposeOnce sync.Once

	// errorConsumer receives errors that have no natural subscriber:
	// fire-and-forget and metadata-push handler failures, and sweep
	// cleanup failures.
	errorConsumer func(error)
}

// NewResponder builds a Responder driving conn with handler. logger
// may be nil, in which case it defaults to a no-op logger.
func NewResponder(conn Conn, handler Handler, pool *frame.Pool, logger log.Logger) *Responder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	r := &Responder{
		conn:          conn,
		handler:       handler,
		pool:          pool,
		logger:        logger,
		registry:      newRegistry(),
		outbound:      newOutboundQueue(),
		backgroundCtx: context.Background(),
		errorConsumer: func(err error) { level.Debug(logger).Log("msg", "unhandled interaction error", "err", err) },
	}
	atomic.StoreInt32(&r.state, int32(stateOpen))
	return r
}

// Serve runs the dispatch loop until conn closes or ctx is cancelled.
// It always returns after the termination sweep has completed.
func (r *Responder) Serve(ctx context.Context) {
	go r.outbound.pump(r.conn.Send())

	for {
		select {
		case f, ok := <-r.conn.Receive():
			if !ok {
				r.terminate(errConnectionClosed)
				return
			}
			r.dispatch(f)
		case <-r.conn.OnClose():
			r.terminate(errConnectionClosed)
			return
		case <-ctx.Done():
			r.terminate(ctx.Err())
			return
		}
	}
}

var errConnectionClosed = &ConnectionError{Message: "closed channel"}

func (r *Responder) dispatch(f *frame.Frame) {
	defer r.releaseFrame(f)

	wt := f.WireType()
	streamID := f.StreamID()

	switch wt {
	case frame.TypeRequestFNF:
		r.handleFireAndForget(streamID, f)
	case frame.TypeRequestResponse:
		r.handleRequestResponse(streamID, f)
	case frame.TypeRequestStream:
		r.handleRequestStream(streamID, f)
	case frame.TypeRequestChannel:
		r.handleRequestChannel(streamID, f)
	case frame.TypeRequestN:
		r.handleRequestN(streamID, f)
	case frame.TypeCancel:
		r.handleCancel(streamID)
	case frame.TypePayload:
		r.handlePayload(streamID, f)
	case frame.TypeError:
		r.handleError(streamID, f)
	case frame.TypeMetadataPush:
		r.handleMetadataPush(f)
	case frame.TypeKeepalive:
		if r.keepalive != nil {
			r.keepalive.HandleKeepalive(f.Bytes())
		}
	case frame.TypeSetup:
		r.fatal(frame.ErrorCodeConnectionError, "SETUP frame received post setup")
	case frame.TypeLease:
		r.fatal(frame.ErrorCodeConnectionError, "LEASE frame received on responder side")
	default:
		level.Debug(r.logger).Log("msg", "discarding unrecognized frame", "type", wt.String())
	}
}

func (r *Responder) releaseFrame(f *frame.Frame) {
	if r.pool != nil {
		r.pool.Put(f.Bytes())
	}
}

// payloadOf copies a frame's metadata/data out of the pooled buffer
// into a standalone Payload the handler can keep past dispatch.
func payloadOf(f *frame.Frame) Payload {
	return NewPayload(cloneBytes(f.Data()), cloneBytes(f.Metadata()))
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// handleFireAndForget does not register anything under streamID in
// the registry; there is no completion or error to route back to the
// peer for this interaction type, so there is nothing for a sender
// entry to key.
func (r *Responder) handleFireAndForget(streamID uint32, f *frame.Frame) {
	payload := payloadOf(f)
	go func() {
		if err := r.handler.FireAndForget(r.backgroundCtx, payload); err != nil {
			r.errorConsumer(err)
		}
	}()
}

func (r *Responder) handleRequestResponse(streamID uint32, f *frame.Frame) {
	payload := payloadOf(f)
	go func() {
		resp, err := r.handler.RequestResponse(r.backgroundCtx, payload)
		if err != nil {
			r.enqueueError(streamID, frame.ErrorCodeApplicationError, err)
			return
		}
		if resp == nil {
			r.enqueueComplete(streamID)
			return
		}
		r.enqueueNextComplete(streamID, resp)
	}()
}

func (r *Responder) handleRequestStream(streamID uint32, f *frame.Frame) {
	payload := payloadOf(f)
	initialN := frame.InitialRequestN(f.Bytes())
	go func() {
		src, err := r.handler.RequestStream(r.backgroundCtx, payload)
		if err != nil {
			r.enqueueError(streamID, frame.ErrorCodeApplicationError, err)
			return
		}
		sender := newStreamSender(r, streamID, src, initialN)
		r.registry.putSender(streamID, sender)
		go sender.run()
	}()
}

func (r *Responder) handleRequestChannel(streamID uint32, f *frame.Frame) {
	bootstrap := payloadOf(f)
	initialN := frame.InitialRequestN(f.Bytes())

	recv, inbound := newChannelReceiver(r, streamID, channelBufferSize)
	r.registry.putReceiver(streamID, recv)
	// The bootstrap payload is delivered into the inbound stream before
	// the handler observes it as a publisher, and is also passed to the
	// handler as a separate argument, so it appears both as the
	// handler's bootstrap parameter and as the first value read off
	// inbound.
	recv.Next(bootstrap)

	go func() {
		out, err := r.handler.RequestChannel(r.backgroundCtx, bootstrap, inbound)
		if err != nil {
			r.registry.removeReceiver(streamID)
			r.enqueueError(streamID, frame.ErrorCodeApplicationError, err)
			return
		}
		sender := newStreamSender(r, streamID, out, initialN)
		r.registry.putSender(streamID, sender)
		go sender.run()
	}()
}

func (r *Responder) handleRequestN(streamID uint32, f *frame.Frame) {
	s, ok := r.registry.getSender(streamID)
	if !ok {
		return
	}
	s.RequestN(frame.RequestN(f.Bytes()))
}

func (r *Responder) handleCancel(streamID uint32) {
	s, ok := r.registry.removeSender(streamID)
	if !ok {
		return
	}
	s.Cancel()
}

func (r *Responder) handlePayload(streamID uint32, f *frame.Frame) {
	lt, err := f.LogicalType()
	if err != nil {
		r.fatal(frame.ErrorCodeConnectionError, err.Error())
		return
	}

	recv, ok := r.registry.getReceiver(streamID)
	if !ok {
		// The peer may have raced a CANCEL; unknown stream ids on
		// NEXT/COMPLETE are silently ignored.
		return
	}

	switch lt {
	case frame.TypeNext:
		recv.Next(payloadOf(f))
	case frame.TypeComplete:
		r.registry.removeReceiver(streamID)
		recv.Complete()
	case frame.TypeNextComplete:
		recv.Next(payloadOf(f))
		r.registry.removeReceiver(streamID)
		recv.Complete()
	}
}

func (r *Responder) handleError(streamID uint32, f *frame.Frame) {
	recv, ok := r.registry.removeReceiver(streamID)
	if !ok {
		return
	}
	recv.Fail(&ApplicationError{StreamID: streamID, Message: string(frame.ErrorMessage(f.Bytes()))})
}

func (r *Responder) handleMetadataPush(f *frame.Frame) {
	payload := payloadOf(f)
	go func() {
		if err := r.handler.MetadataPush(r.backgroundCtx, payload); err != nil {
			r.errorConsumer(err)
		}
	}()
}

// fatal reports a connection-level protocol violation: emit ERROR on
// stream 0 and dispose the connection.
func (r *Responder) fatal(code frame.ErrorCode, message string) {
	r.enqueueError(0, code, &ConnectionError{Code: code, Message: message})
	r.terminate(&ConnectionError{Code: code, Message: message})
}

func (r *Responder) enqueueNext(streamID uint32, p Payload) {
	buf, err := frame.EncodeNext(nil, streamID, p.Metadata(), p.Data())
	r.enqueue(buf, err)
}

func (r *Responder) enqueueComplete(streamID uint32) {
	buf, err := frame.EncodeComplete(nil, streamID)
	r.enqueue(buf, err)
}

func (r *Responder) enqueueNextComplete(streamID uint32, p Payload) {
	buf, err := frame.EncodeNextComplete(nil, streamID, p.Metadata(), p.Data())
	r.enqueue(buf, err)
}

func (r *Responder) enqueueCancel(streamID uint32) {
	buf, err := frame.EncodeCancel(nil, streamID)
	r.enqueue(buf, err)
}

func (r *Responder) enqueueRequestN(streamID uint32, n uint32) {
	buf, err := frame.EncodeRequestN(nil, streamID, n)
	r.enqueue(buf, err)
}

// NewKeepalive builds a KeepaliveCoordinator wired to this
// responder's outbound queue and attaches it; its timer is stopped
// during the termination sweep. Pass resumable=true for the
// Resumable variant.
func (r *Responder) NewKeepalive(interval, timeoutAfter time.Duration, onTimeout func(), resumable bool) *KeepaliveCoordinator {
	var k *KeepaliveCoordinator
	if resumable {
		k = NewResumableKeepaliveCoordinator(interval, timeoutAfter, onTimeout, r.enqueueKeepalive)
	} else {
		k = NewKeepaliveCoordinator(interval, timeoutAfter, onTimeout, r.enqueueKeepalive)
	}
	r.keepalive = k
	return k
}

func (r *Responder) enqueueKeepalive(respond bool, data []byte) {
	buf, err := frame.EncodeKeepalive(nil, respond, data)
	r.enqueue(buf, err)
}

func (r *Responder) enqueueError(streamID uint32, code frame.ErrorCode, cause error) {
	buf, err := frame.EncodeError(nil, streamID, code, []byte(cause.Error()))
	r.enqueue(buf, err)
}

// enqueue pushes a freshly encoded frame onto the outbound queue. A
// buffer that fails to encode (e.g. FrameTooLargeError) is reported to
// the error consumer instead of being queued — released rather than
// silently dropped.
func (r *Responder) enqueue(buf []byte, err error) {
	if err != nil {
		r.errorConsumer(err)
		return
	}
	r.outbound.push(frame.View(buf))
}

// terminate runs the termination sweep at most once: it fails every
// receiver, cancels every sender, disposes the handler and the
// outbound queue, and transitions the connection to CLOSED.
func (r *Responder) terminate(cause error) {
	r.disposeOnce.Do(func() {
		atomic.StoreInt32(&r.state, int32(stateTerminating))
		if cause == nil {
			cause = errConnectionClosed
		}

		senders, receivers := r.registry.sweep()

		var result error
		for _, rc := range receivers {
			func() {
				defer func() {
					if p := recover(); p != nil {
						result = multierror.Append(result, ierrors.Errorf("panic failing receiver: %v", p))
					}
				}()
				rc.Fail(cause)
			}()
		}
		for _, s := range senders {
			s.Cancel()
		}

		if r.keepalive != nil {
			r.keepalive.Stop()
		}
		r.handler.Dispose()
		r.outbound.dispose()
		r.conn.Dispose()

		atomic.StoreInt32(&r.state, int32(stateClosed))
		if result != nil {
			level.Warn(r.logger).Log("msg", "errors during termination sweep", "err", result)
			r.errorConsumer(result)
		}
	})
}

// State reports the connection's current lifecycle state.
func (r *Responder) State() connState {
	return connState(atomic.LoadInt32(&r.state))
}
