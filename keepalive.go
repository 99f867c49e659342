package rsocket

import (
	"sync"
	"time"

	"go.cryptoscope.co/rsocket/frame"
)

// KeepaliveCoordinator enforces connection liveness with periodic
// KEEPALIVE frames. It is built on time.Ticker guarded by a mutex for
// start/stop, with a Default and a Resumable variant selected by
// which constructor builds it.
type KeepaliveCoordinator struct {
	mu sync.Mutex

	interval     time.Duration
	timeoutAfter time.Duration
	onTimeout    func()
	enqueue      func(respond bool, data []byte)

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	lastFrameTime time.Time
	running       bool

	// resumable is true for the Resumable variant. No method reads it:
	// both variants run the same timer logic, Pause and Resume are Stop
	// and Start for either, and what a timeout does is whatever the
	// caller's onTimeout does.
	resumable bool
}

// NewKeepaliveCoordinator builds the Default variant: timeout disposes
// the connection by calling onTimeout once.
func NewKeepaliveCoordinator(interval, timeoutAfter time.Duration, onTimeout func(), enqueue func(respond bool, data []byte)) *KeepaliveCoordinator {
	return &KeepaliveCoordinator{
		interval:     interval,
		timeoutAfter: timeoutAfter,
		onTimeout:    onTimeout,
		enqueue:      enqueue,
		stopCh:       make(chan struct{}),
	}
}

// NewResumableKeepaliveCoordinator builds the Resumable variant: Pause
// and Resume mirror ResumableKeepAliveHandler's onDisconnect/onResume
// wiring, so the timer only runs while the transport is actually up.
func NewResumableKeepaliveCoordinator(interval, timeoutAfter time.Duration, onTimeout func(), enqueue func(respond bool, data []byte)) *KeepaliveCoordinator {
	k := NewKeepaliveCoordinator(interval, timeoutAfter, onTimeout, enqueue)
	k.resumable = true
	return k
}

// Start arms the timer. Safe to call once per Start/Stop cycle.
func (k *KeepaliveCoordinator) Start() {
	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return
	}
	k.running = true
	k.lastFrameTime = timeNow()
	k.ticker = time.NewTicker(k.interval)
	k.stopCh = make(chan struct{})
	ticker := k.ticker
	stopCh := k.stopCh
	k.mu.Unlock()

	k.wg.Add(1)
	go k.run(ticker, stopCh)
}

// Stop disarms the timer. In the Resumable variant this is what
// "pause on disconnect" calls.
func (k *KeepaliveCoordinator) Stop() {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	k.running = false
	k.ticker.Stop()
	close(k.stopCh)
	k.mu.Unlock()
	k.wg.Wait()
}

// Pause is Stop under the name the Resumable variant's disconnect
// notification uses.
func (k *KeepaliveCoordinator) Pause() { k.Stop() }

// Resume is Start under the name the Resumable variant's reconnect
// notification uses.
func (k *KeepaliveCoordinator) Resume() { k.Start() }

func (k *KeepaliveCoordinator) run(ticker *time.Ticker, stopCh chan struct{}) {
	defer k.wg.Done()
	for {
		select {
		case <-ticker.C:
			if k.tick() {
				return
			}
		case <-stopCh:
			return
		}
	}
}

// tick takes the keepalive action for one timer firing and reports
// whether the coordinator disarmed itself. On timeout it stops its own
// ticker and clears running before invoking onTimeout, so the action
// is delivered exactly once rather than on every subsequent tick.
func (k *KeepaliveCoordinator) tick() bool {
	k.mu.Lock()
	elapsed := timeNow().Sub(k.lastFrameTime)
	if elapsed >= k.timeoutAfter {
		k.running = false
		k.ticker.Stop()
		k.mu.Unlock()
		if k.onTimeout != nil {
			k.onTimeout()
		}
		return true
	}
	k.mu.Unlock()

	k.enqueue(true, nil)
	return false
}

// OnFrameReceived refreshes liveness. The responder reaches it only
// through HandleKeepalive, so only inbound KEEPALIVE frames count;
// other traffic does not refresh it.
func (k *KeepaliveCoordinator) OnFrameReceived() {
	k.mu.Lock()
	k.lastFrameTime = timeNow()
	k.mu.Unlock()
}

// HandleKeepalive processes one inbound KEEPALIVE frame: refreshes
// liveness and, if the respond flag is set, echoes the data back with
// respond cleared.
func (k *KeepaliveCoordinator) HandleKeepalive(buf []byte) {
	k.OnFrameReceived()
	if frame.KeepaliveRespond(buf) {
		k.enqueue(false, frame.KeepaliveData(buf))
	}
}

// timeNow is a seam so tests can avoid sleeping through a real
// interval; production code always uses time.Now.
var timeNow = time.Now
