package rsocket

// Interceptor wraps a Handler to produce another Handler, the same
// chain-of-responsibility shape as muxrpc.HandlerWrapper. The
// multiplexer is built against a Handler and never knows whether it
// is talking to the bare handler or a chain of interceptors around
// it.
type Interceptor func(Handler) Handler

// ApplyInterceptors wraps h with each interceptor in order: the first
// interceptor in the list ends up outermost. muxrpc.ApplyHandlerWrappers
// wraps front-to-back, which leaves its first wrapper innermost; this
// walks the list back-to-front instead so first-added is the one that
// sees every call first.
func ApplyInterceptors(h Handler, interceptors ...Interceptor) Handler {
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}
