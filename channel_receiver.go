package rsocket

import (
	"go.cryptoscope.co/rsocket/streams"
)

// channelReceiver is the inbound half of a REQUEST_CHANNEL
// interaction: a single-subscriber sink that the responder feeds
// decoded NEXT/COMPLETE/ERROR payloads into, and that the local
// consumer (inside the handler) pulls from via the
// streams.CancellableSource it's handed.
//
// Cancelling that source emits an outbound CANCEL frame for the
// stream; calling its RequestN grants the peer more inbound credit via
// an outbound REQUEST_N frame. The sink only holds a handle to enqueue
// on the outbound queue, never ownership of it, which is what breaks
// the cyclic ownership between the receiver and the queue it feeds.
type channelReceiver struct {
	streamID uint32
	resp     *Responder
	sink     streams.Sink
	sub      *streams.Subscription
}

func newChannelReceiver(resp *Responder, streamID uint32, bufferSize int) (*channelReceiver, *streams.CancellableSource) {
	src, sink := streams.NewPipe(bufferSize)
	sub := streams.NewSubscription()

	cr := &channelReceiver{streamID: streamID, resp: resp, sink: sink}
	sub.OnCancel(func() {
		resp.registry.removeReceiver(streamID)
		resp.enqueueCancel(streamID)
	})
	sub.OnRequestN(func(n uint32) {
		resp.enqueueRequestN(streamID, n)
	})

	return cr, &streams.CancellableSource{Source: src, Sub: sub}
}

func (cr *channelReceiver) Next(p Payload) {
	cr.sink.Pour(cr.resp.backgroundCtx, p)
}

func (cr *channelReceiver) Complete() {
	cr.sink.Close()
}

func (cr *channelReceiver) Fail(err error) {
	if ec, ok := cr.sink.(streams.ErrorCloser); ok {
		ec.CloseWithError(err)
		return
	}
	cr.sink.Close()
}
