package rsocket

import "sync"

// sender is the responder's handle on a stream's upstream producer:
// whatever is feeding items toward the wire for that stream id.
// CANCEL and termination both route through Cancel.
type sender interface {
	// RequestN forwards additional credit to the producer.
	RequestN(n uint32)
	// Cancel tells the producer to stop and releases its resources.
	Cancel()
}

// receiver is the responder's handle on a stream's inbound sink:
// wherever decoded NEXT/COMPLETE/ERROR payloads for that stream id get
// delivered. Used for REQUEST_CHANNEL's inbound half.
type receiver interface {
	Next(payload Payload)
	Complete()
	Fail(err error)
}

// registry is the paired stream_id -> sender / stream_id -> receiver
// mapping: two plain maps, each behind its own mutex, with removal
// suppressed during a termination sweep — the same shape as
// muxrpc.rpc's reqs map plus rLock, doubled for the two independent
// directions an RSocket stream can have.
type registry struct {
	sendersMu sync.Mutex
	senders   map[uint32]sender

	receiversMu sync.Mutex
	receivers   map[uint32]receiver

	// sweeping suppresses individual removals while a termination sweep
	// holds the lock across an iteration and clears the map itself.
	sweeping bool
}

func newRegistry() *registry {
	return &registry{
		senders:   make(map[uint32]sender),
		receivers: make(map[uint32]receiver),
	}
}

func (r *registry) putSender(streamID uint32, s sender) {
	r.sendersMu.Lock()
	defer r.sendersMu.Unlock()
	r.senders[streamID] = s
}

func (r *registry) getSender(streamID uint32) (sender, bool) {
	r.sendersMu.Lock()
	defer r.sendersMu.Unlock()
	s, ok := r.senders[streamID]
	return s, ok
}

func (r *registry) removeSender(streamID uint32) (sender, bool) {
	r.sendersMu.Lock()
	defer r.sendersMu.Unlock()
	if r.sweeping {
		return nil, false
	}
	s, ok := r.senders[streamID]
	if ok {
		delete(r.senders, streamID)
	}
	return s, ok
}

func (r *registry) putReceiver(streamID uint32, rc receiver) {
	r.receiversMu.Lock()
	defer r.receiversMu.Unlock()
	r.receivers[streamID] = rc
}

func (r *registry) getReceiver(streamID uint32) (receiver, bool) {
	r.receiversMu.Lock()
	defer r.receiversMu.Unlock()
	rc, ok := r.receivers[streamID]
	return rc, ok
}

func (r *registry) removeReceiver(streamID uint32) (receiver, bool) {
	r.receiversMu.Lock()
	defer r.receiversMu.Unlock()
	if r.sweeping {
		return nil, false
	}
	rc, ok := r.receivers[streamID]
	if ok {
		delete(r.receivers, streamID)
	}
	return rc, ok
}

// sweep marks the registry as sweeping (suppressing further
// individual removals), snapshots both maps, clears them, and returns
// the snapshots for the caller to fail/cancel outside the locks.
func (r *registry) sweep() (senders []sender, receivers []receiver) {
	r.sendersMu.Lock()
	r.sweeping = true
	senders = make([]sender, 0, len(r.senders))
	for _, s := range r.senders {
		senders = append(senders, s)
	}
	r.senders = make(map[uint32]sender)
	r.sendersMu.Unlock()

	r.receiversMu.Lock()
	r.sweeping = true
	receivers = make([]receiver, 0, len(r.receivers))
	for _, rc := range r.receivers {
		receivers = append(receivers, rc)
	}
	r.receivers = make(map[uint32]receiver)
	r.receiversMu.Unlock()

	return senders, receivers
}
