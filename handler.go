package rsocket

import (
	"context"

	"go.cryptoscope.co/rsocket/streams"
)

// Handler is the contract the responder multiplexer dispatches
// inbound interactions to. It is the RSocket-vocabulary analogue of
// muxrpc.Handler (HandleCall/HandleConnect), generalized from
// muxrpc's four call types (async/source/sink/duplex) to RSocket's
// five: fire-and-forget, request/response, request/stream,
// request/channel and metadata-push.
//
// The responder calls each interaction method on a goroutine of its
// own, so a method that blocks does not stall dispatch of other
// frames. An error a method returns is surfaced as the corresponding
// interaction's error; a panic is not recovered.
type Handler interface {
	// FireAndForget handles a REQUEST_FNF payload. Any error is routed
	// to the error sink, never to the wire.
	FireAndForget(ctx context.Context, payload Payload) error

	// RequestResponse handles a REQUEST_RESPONSE payload and returns at
	// most one response payload.
	RequestResponse(ctx context.Context, payload Payload) (Payload, error)

	// RequestStream handles a REQUEST_STREAM payload, returning a
	// Source the responder drains under the stream's credit.
	RequestStream(ctx context.Context, payload Payload) (streams.Source, error)

	// RequestChannel handles a REQUEST_CHANNEL interaction. bootstrap is
	// the first payload the peer sent, already delivered into inbound
	// (see the bootstrap-payload duplication note in the design docs);
	// inbound is the stream of payloads from the peer, bootstrap first.
	// Calling inbound.RequestN grants the peer that much more inbound
	// credit; calling inbound.Cancel tells the peer to stop sending. The
	// returned Source is drained the same way RequestStream's is.
	RequestChannel(ctx context.Context, bootstrap Payload, inbound *streams.CancellableSource) (streams.Source, error)

	// MetadataPush handles a connection-level METADATA_PUSH frame. Any
	// error is routed to the error sink, never to the wire.
	MetadataPush(ctx context.Context, payload Payload) error

	// Dispose releases any resources the handler owns. Called once,
	// during the termination sweep.
	Dispose()

	// OnClose returns a channel that closes once the handler considers
	// itself done, independent of connection lifecycle.
	OnClose() <-chan struct{}
}

// HandlerFuncs is a Handler built from individual function fields,
// for tests and small demos that don't want a full type. A nil field
// behaves as a no-op success (empty completion / empty stream).
type HandlerFuncs struct {
	FireAndForgetFunc   func(ctx context.Context, payload Payload) error
	RequestResponseFunc func(ctx context.Context, payload Payload) (Payload, error)
	RequestStreamFunc   func(ctx context.Context, payload Payload) (streams.Source, error)
	RequestChannelFunc  func(ctx context.Context, bootstrap Payload, inbound *streams.CancellableSource) (streams.Source, error)
	MetadataPushFunc    func(ctx context.Context, payload Payload) error
	DisposeFunc         func()
	closed              chan struct{}
}

func (h *HandlerFuncs) FireAndForget(ctx context.Context, payload Payload) error {
	if h.FireAndForgetFunc == nil {
		return nil
	}
	return h.FireAndForgetFunc(ctx, payload)
}

func (h *HandlerFuncs) RequestResponse(ctx context.Context, payload Payload) (Payload, error) {
	if h.RequestResponseFunc == nil {
		return nil, nil
	}
	return h.RequestResponseFunc(ctx, payload)
}

func (h *HandlerFuncs) RequestStream(ctx context.Context, payload Payload) (streams.Source, error) {
	if h.RequestStreamFunc == nil {
		src, sink := streams.NewPipe(0)
		sink.Close()
		return src, nil
	}
	return h.RequestStreamFunc(ctx, payload)
}

func (h *HandlerFuncs) RequestChannel(ctx context.Context, bootstrap Payload, inbound *streams.CancellableSource) (streams.Source, error) {
	if h.RequestChannelFunc == nil {
		src, sink := streams.NewPipe(0)
		sink.Close()
		return src, nil
	}
	return h.RequestChannelFunc(ctx, bootstrap, inbound)
}

func (h *HandlerFuncs) MetadataPush(ctx context.Context, payload Payload) error {
	if h.MetadataPushFunc == nil {
		return nil
	}
	return h.MetadataPushFunc(ctx, payload)
}

func (h *HandlerFuncs) Dispose() {
	if h.DisposeFunc != nil {
		h.DisposeFunc()
	}
	if h.closed != nil {
		close(h.closed)
	}
}

func (h *HandlerFuncs) OnClose() <-chan struct{} {
	if h.closed == nil {
		h.closed = make(chan struct{})
	}
	return h.closed
}
