// Package rsocket implements the responder side of the RSocket
// protocol: stream multiplexing over a single duplex connection,
// credit-based backpressure for the four interaction models, and a
// keep-alive coordinator. The wire codec lives in the frame
// subpackage; the pull/push stream primitives handlers use live in
// streams.
package rsocket
