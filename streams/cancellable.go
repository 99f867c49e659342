package streams

// CancellableSource pairs a Source with the Subscription that governs
// it, so a handler pulling from a REQUEST_CHANNEL's inbound stream can
// also tell the responder it's done early, or grant the peer more
// inbound credit — the local-consumer half of muxrpc.Stream's combined
// Source+closeCh shape, generalized to also carry REQUEST_N.
type CancellableSource struct {
	Source
	Sub *Subscription
}

// Cancel signals the responder that this side no longer wants any
// more inbound items; the responder translates it into an outbound
// CANCEL frame for the stream.
func (c *CancellableSource) Cancel() {
	c.Sub.Cancel()
}

// RequestN grants n additional units of inbound credit; the responder
// translates it into an outbound REQUEST_N frame for the stream.
func (c *CancellableSource) RequestN(n uint32) {
	c.Sub.RequestN(n)
}
