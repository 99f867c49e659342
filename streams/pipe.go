package streams

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// NewPipe returns both ends of a buffered, in-memory stream: a Source
// to read from and a Sink to write to. bufferSize of 0 makes the pipe
// rendezvous (unbuffered).
func NewPipe(bufferSize int) (Source, Sink) {
	ch := make(chan interface{}, bufferSize)
	var closeLock sync.Mutex
	var closeErr error

	return &pipeSource{ch: ch, closeLock: &closeLock, closeErr: &closeErr},
		&pipeSink{ch: ch, closeLock: &closeLock, closeErr: &closeErr}
}

type pipeSource struct {
	ch        <-chan interface{}
	closeLock *sync.Mutex
	closeErr  *error
}

func (src *pipeSource) Next(ctx context.Context) (interface{}, error) {
	select {
	case v, ok := <-src.ch:
		if !ok {
			src.closeLock.Lock()
			err := *src.closeErr
			src.closeLock.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, EOS{}
		}
		return v, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "streams: pipe next cancelled")
	}
}

type pipeSink struct {
	ch        chan<- interface{}
	closeLock *sync.Mutex
	closeErr  *error
	closeOnce sync.Once
}

func (sink *pipeSink) Pour(ctx context.Context, v interface{}) error {
	sink.closeLock.Lock()
	err := *sink.closeErr
	sink.closeLock.Unlock()
	if err != nil {
		return err
	}

	select {
	case sink.ch <- v:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "streams: pipe pour cancelled")
	}
}

func (sink *pipeSink) Close() error {
	return sink.CloseWithError(EOS{})
}

func (sink *pipeSink) CloseWithError(err error) error {
	sink.closeOnce.Do(func() {
		sink.closeLock.Lock()
		*sink.closeErr = err
		sink.closeLock.Unlock()
		close(sink.ch)
	})
	return nil
}
