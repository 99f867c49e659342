package streams

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeDeliversInOrder(t *testing.T) {
	src, sink := NewPipe(4)
	ctx := context.Background()

	require.NoError(t, sink.Pour(ctx, "a"))
	require.NoError(t, sink.Pour(ctx, "b"))
	require.NoError(t, sink.Close())

	v, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = src.Next(ctx)
	assert.True(t, IsEOS(err))
}

func TestPipeCloseWithErrorPropagatesToReader(t *testing.T) {
	src, sink := NewPipe(1)
	ctx := context.Background()

	boom := assertableErr("boom")
	ec := sink.(ErrorCloser)
	require.NoError(t, ec.CloseWithError(boom))

	_, err := src.Next(ctx)
	assert.Equal(t, boom, err)
	assert.False(t, IsEOS(err))
}

func TestPipePourRespectsContextCancellation(t *testing.T) {
	src, sink := NewPipe(0)
	_ = src

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sink.Pour(ctx, "blocked forever without a reader")
	assert.Error(t, err)
}

func TestDrainPumpsUntilEOS(t *testing.T) {
	src, sink := NewPipe(4)
	dstSrc, dstSink := NewPipe(4)
	ctx := context.Background()

	go func() {
		sink.Pour(ctx, 1)
		sink.Pour(ctx, 2)
		sink.Close()
	}()

	require.NoError(t, Drain(ctx, dstSink, src))

	v, err := dstSrc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = dstSrc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	_, err = dstSrc.Next(ctx)
	assert.True(t, IsEOS(err))
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }
