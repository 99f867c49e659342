package rsocket

import "go.cryptoscope.co/rsocket/frame"

// Conn is the duplex frame-channel contract the responder consumes:
// the same level of abstraction as muxrpc.Packer but carrying
// *frame.Frame values instead of *codec.Packet, and split into
// channels instead of a Source/Sink pair so the responder's select
// loop can read both directions and OnClose without an extra
// goroutine per direction.
//
// The core never reaches below this: framing, transport encryption
// and connection setup are all the concrete Conn implementation's
// job (see transport/tcp.go, transport/websocket.go), not the
// responder's.
type Conn interface {
	// Receive is the channel of frames decoded off the wire. It closes
	// when the transport is exhausted or fails.
	Receive() <-chan *frame.Frame

	// Send is the channel the responder writes outbound frames to.
	Send() chan<- *frame.Frame

	// OnClose closes once the connection has gone down, for any reason.
	OnClose() <-chan struct{}

	// Dispose tears the connection down immediately.
	Dispose()
}
