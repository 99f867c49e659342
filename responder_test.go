package rsocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.cryptoscope.co/rsocket/frame"
	"go.cryptoscope.co/rsocket/streams"
)

type fakeConn struct {
	recv     chan *frame.Frame
	send     chan *frame.Frame
	closeCh  chan struct{}
	disposed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		recv:    make(chan *frame.Frame, 16),
		send:    make(chan *frame.Frame, 16),
		closeCh: make(chan struct{}),
	}
}

func (c *fakeConn) Receive() <-chan *frame.Frame { return c.recv }
func (c *fakeConn) Send() chan<- *frame.Frame    { return c.send }
func (c *fakeConn) OnClose() <-chan struct{}     { return c.closeCh }
func (c *fakeConn) Dispose() {
	c.disposed = true
	select {
	case <-c.closeCh:
	default:
		close(c.closeCh)
	}
}

func newTestResponder(handler Handler) (*Responder, *fakeConn) {
	conn := newFakeConn()
	r := NewResponder(conn, handler, frame.NewPool(4), nil)
	go r.outbound.pump(conn.send)
	return r, conn
}

func recvFrame(t *testing.T, conn *fakeConn) *frame.Frame {
	t.Helper()
	select {
	case f := <-conn.send:
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, conn *fakeConn) {
	t.Helper()
	select {
	case f := <-conn.send:
		t.Fatalf("expected no outbound frame, got %s", f.WireType())
	case <-time.After(50 * time.Millisecond):
	}
}

// Scenario 1: request-response happy path.
func TestScenarioRequestResponseHappyPath(t *testing.T) {
	h := &HandlerFuncs{
		RequestResponseFunc: func(ctx context.Context, p Payload) (Payload, error) {
			assert.Equal(t, []byte("m"), p.Metadata())
			assert.Equal(t, []byte("d"), p.Data())
			return NewPayload([]byte("D"), []byte("M")), nil
		},
	}
	r, conn := newTestResponder(h)

	buf, err := frame.EncodeRequestResponse(nil, 1, []byte("m"), []byte("d"))
	require.NoError(t, err)
	r.dispatch(frame.View(buf))

	out := recvFrame(t, conn)
	assert.Equal(t, uint32(1), out.StreamID())
	lt, err := out.LogicalType()
	require.NoError(t, err)
	assert.Equal(t, frame.TypeNextComplete, lt)
	assert.Equal(t, []byte("M"), out.Metadata())
	assert.Equal(t, []byte("D"), out.Data())

	_, ok := r.registry.getSender(1)
	assert.False(t, ok)
}

// Scenario 2: request-response empty completion.
func TestScenarioRequestResponseEmptyCompletion(t *testing.T) {
	h := &HandlerFuncs{
		RequestResponseFunc: func(ctx context.Context, p Payload) (Payload, error) {
			return nil, nil
		},
	}
	r, conn := newTestResponder(h)

	buf, err := frame.EncodeRequestResponse(nil, 3, nil, nil)
	require.NoError(t, err)
	r.dispatch(frame.View(buf))

	out := recvFrame(t, conn)
	assert.Equal(t, uint32(3), out.StreamID())
	lt, err := out.LogicalType()
	require.NoError(t, err)
	assert.Equal(t, frame.TypeComplete, lt)
	assert.Empty(t, out.Metadata())
	assert.Empty(t, out.Data())
}

// Scenario 3: request-stream with credit.
func TestScenarioRequestStreamWithCredit(t *testing.T) {
	src, sink := streams.NewPipe(8)
	sink.Pour(context.Background(), NewPayload([]byte("a"), nil))
	sink.Pour(context.Background(), NewPayload([]byte("b"), nil))
	sink.Pour(context.Background(), NewPayload([]byte("c"), nil))
	sink.Close()

	h := &HandlerFuncs{
		RequestStreamFunc: func(ctx context.Context, p Payload) (streams.Source, error) {
			return src, nil
		},
	}
	r, conn := newTestResponder(h)

	buf, err := frame.EncodeRequestStream(nil, 5, 2, nil, []byte("p"))
	require.NoError(t, err)
	r.dispatch(frame.View(buf))

	first := recvFrame(t, conn)
	assert.Equal(t, []byte("a"), first.Data())
	second := recvFrame(t, conn)
	assert.Equal(t, []byte("b"), second.Data())

	assertNoFrame(t, conn)

	rnBuf, err := frame.EncodeRequestN(nil, 5, 10)
	require.NoError(t, err)
	r.dispatch(frame.View(rnBuf))

	third := recvFrame(t, conn)
	assert.Equal(t, []byte("c"), third.Data())

	fourth := recvFrame(t, conn)
	lt, err := fourth.LogicalType()
	require.NoError(t, err)
	assert.Equal(t, frame.TypeComplete, lt)
}

// Scenario 4: channel cancel from consumer.
func TestScenarioChannelCancelFromConsumer(t *testing.T) {
	gotBootstrap := make(chan Payload, 1)

	h := &HandlerFuncs{
		RequestChannelFunc: func(ctx context.Context, bootstrap Payload, inbound *streams.CancellableSource) (streams.Source, error) {
			v, err := inbound.Next(ctx)
			require.NoError(t, err)
			gotBootstrap <- v.(Payload)
			inbound.Cancel()

			out, outSink := streams.NewPipe(0)
			outSink.Close()
			return out, nil
		},
	}
	r, conn := newTestResponder(h)

	buf, err := frame.EncodeRequestChannel(nil, 7, int32ToUint32Max(), nil, []byte("p0"))
	require.NoError(t, err)
	r.dispatch(frame.View(buf))

	select {
	case p := <-gotBootstrap:
		assert.Equal(t, []byte("p0"), p.Data())
	case <-time.After(time.Second):
		t.Fatal("handler never observed the bootstrap payload")
	}

	out := recvFrame(t, conn)
	assert.Equal(t, frame.TypeCancel, out.WireType())
	assert.Equal(t, uint32(7), out.StreamID())

	_, ok := r.registry.getReceiver(7)
	assert.False(t, ok)

	next, err := frame.EncodeNext(nil, 7, nil, []byte("late"))
	require.NoError(t, err)
	assert.NotPanics(t, func() { r.dispatch(frame.View(next)) })
}

func int32ToUint32Max() uint32 { return 1<<31 - 1 }

// Scenario 5: SETUP after setup.
func TestScenarioSetupAfterSetup(t *testing.T) {
	h := &HandlerFuncs{}
	r, conn := newTestResponder(h)

	buf := make([]byte, 9+12)
	require.NoError(t, frame.EncodeHeader(buf[:9], 9, 0, frame.TypeSetup, 0))
	r.dispatch(frame.View(buf))

	out := recvFrame(t, conn)
	assert.Equal(t, frame.TypeError, out.WireType())
	assert.Equal(t, uint32(0), out.StreamID())
	assert.Contains(t, string(frame.ErrorMessage(out.Bytes())), "SETUP frame received post setup")

	require.Eventually(t, func() bool { return conn.disposed }, time.Second, 5*time.Millisecond)
	assert.Equal(t, stateClosed, r.State())
}

// Scenario 7: termination sweep.
func TestScenarioTerminationSweep(t *testing.T) {
	disposed := make(chan struct{})
	h := &HandlerFuncs{DisposeFunc: func() { close(disposed) }}
	r, conn := newTestResponder(h)

	s11, s15 := &fakeSender{}, &fakeSender{}
	rc13, rc15 := &fakeReceiver{}, &fakeReceiver{}
	r.registry.putSender(11, s11)
	r.registry.putReceiver(13, rc13)
	r.registry.putSender(15, s15)
	r.registry.putReceiver(15, rc15)

	r.terminate(nil)

	assert.True(t, s11.cancelled)
	assert.True(t, s15.cancelled)
	assert.Equal(t, errConnectionClosed, rc13.err)
	assert.Equal(t, errConnectionClosed, rc15.err)

	_, ok := r.registry.getSender(11)
	assert.False(t, ok)
	_, ok = r.registry.getReceiver(13)
	assert.False(t, ok)

	select {
	case <-disposed:
	case <-time.After(time.Second):
		t.Fatal("handler was never disposed")
	}
	assert.True(t, conn.disposed)
	assert.Equal(t, stateClosed, r.State())
}

func TestUnknownStreamIDsOnNextCompleteErrorCancelRequestNAreNoops(t *testing.T) {
	r, _ := newTestResponder(&HandlerFuncs{})

	next, _ := frame.EncodeNext(nil, 404, nil, []byte("x"))
	complete, _ := frame.EncodeComplete(nil, 404)
	errBuf, _ := frame.EncodeError(nil, 404, frame.ErrorCodeApplicationError, []byte("e"))
	cancel, _ := frame.EncodeCancel(nil, 404)
	requestN, _ := frame.EncodeRequestN(nil, 404, 1)

	assert.NotPanics(t, func() {
		r.dispatch(frame.View(next))
		r.dispatch(frame.View(complete))
		r.dispatch(frame.View(errBuf))
		r.dispatch(frame.View(cancel))
		r.dispatch(frame.View(requestN))
	})
}
