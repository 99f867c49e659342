// Package streams provides the reactive-streams substitute the
// responder uses to move payloads between a handler and a connection:
// a pull-based Source, a push-based Sink, and a buffered pipe
// connecting the two. It is deliberately payload-agnostic — it moves
// interface{} values, the same way luigi does — so it has no
// dependency on the rsocket package's Payload type.
package streams

import (
	"context"

	"github.com/pkg/errors"
)

// EOS marks normal end-of-stream: a Source's Next returns it once the
// underlying pipe has been closed without error.
type EOS struct{}

func (EOS) Error() string { return "end of stream" }

// IsEOS reports whether err is (or wraps) EOS.
func IsEOS(err error) bool {
	err = errors.Cause(err)
	_, ok := err.(EOS)
	return ok
}

// Source is a pull-based stream of values. Next blocks until a value
// is available, ctx is done, or the stream ends — in which case it
// returns EOS.
type Source interface {
	Next(ctx context.Context) (interface{}, error)
}

// Sink is a push-based destination for stream values.
type Sink interface {
	Pour(ctx context.Context, v interface{}) error
	Close() error
}

// ErrorCloser is implemented by Sinks that can terminate a stream with
// a cause other than plain EOS.
type ErrorCloser interface {
	CloseWithError(err error) error
}

// Drain pumps every value from src into dst until src ends or either
// side errors.
func Drain(ctx context.Context, dst Sink, src Source) error {
	for {
		v, err := src.Next(ctx)
		if IsEOS(err) {
			return dst.Close()
		}
		if err != nil {
			if ec, ok := dst.(ErrorCloser); ok {
				return ec.CloseWithError(err)
			}
			return err
		}
		if err := dst.Pour(ctx, v); err != nil {
			return err
		}
	}
}
