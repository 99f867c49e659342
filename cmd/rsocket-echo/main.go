// rsocket-echo is a runnable demo of the responder core: it serves a
// minimal echo Handler over the TCP transport. It takes no part in
// protocol logic — it exists to give the core a runnable entry point.
package main

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"

	"go.cryptoscope.co/rsocket"
	"go.cryptoscope.co/rsocket/frame"
	"go.cryptoscope.co/rsocket/streams"
	"go.cryptoscope.co/rsocket/transport"
)

var logger log.Logger

func main() {
	logger = log.NewLogfmtLogger(os.Stderr)

	app := &cli.App{
		Name:  "rsocket-echo",
		Usage: "serve a minimal echo Handler over TCP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":7878", Usage: "address to listen on"},
			&cli.IntFlag{Name: "pool", Value: 256, Usage: "frame buffer pool capacity"},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		level.Error(logger).Log("event", "run failure", "err", err)
		os.Exit(1)
	}
}

func serve(ctx *cli.Context) error {
	addr := ctx.String("addr")
	pool := frame.NewPool(ctx.Int("pool"))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "rsocket-echo: failed to listen on %s", addr)
	}
	level.Info(logger).Log("event", "listening", "addr", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "rsocket-echo: accept failed")
		}
		go serveConn(conn, pool)
	}
}

func serveConn(conn net.Conn, pool *frame.Pool) {
	remote := conn.RemoteAddr()
	level.Info(logger).Log("event", "connection accepted", "remote", remote)

	tc := transport.NewTCPConn(conn, pool, logger)
	r := rsocket.NewResponder(tc, &echoHandler{}, pool, logger)
	r.NewKeepalive(defaultKeepaliveInterval, defaultKeepaliveTimeout, func() {
		level.Warn(logger).Log("event", "keepalive timeout", "remote", remote)
		tc.Dispose()
	}, false).Start()

	r.Serve(context.Background())
	level.Info(logger).Log("event", "connection closed", "remote", remote)
}

const (
	defaultKeepaliveInterval = 20 * time.Second
	defaultKeepaliveTimeout  = 90 * time.Second
)

// echoHandler answers every interaction by sending back exactly what
// it received.
type echoHandler struct{}

func (echoHandler) FireAndForget(ctx context.Context, payload rsocket.Payload) error {
	level.Debug(logger).Log("event", "fire-and-forget", "data", string(payload.Data()))
	return nil
}

func (echoHandler) RequestResponse(ctx context.Context, payload rsocket.Payload) (rsocket.Payload, error) {
	return rsocket.NewPayload(payload.Data(), payload.Metadata()), nil
}

func (echoHandler) RequestStream(ctx context.Context, payload rsocket.Payload) (streams.Source, error) {
	src, sink := streams.NewPipe(1)
	go func() {
		sink.Pour(ctx, rsocket.NewPayload(payload.Data(), payload.Metadata()))
		sink.Close()
	}()
	return src, nil
}

func (echoHandler) RequestChannel(ctx context.Context, bootstrap rsocket.Payload, inbound *streams.CancellableSource) (streams.Source, error) {
	out, sink := streams.NewPipe(16)
	go func() {
		if err := streams.Drain(ctx, sink, inbound); err != nil && !streams.IsEOS(err) {
			level.Debug(logger).Log("event", "channel echo aborted", "err", err)
		}
	}()
	return out, nil
}

func (echoHandler) MetadataPush(ctx context.Context, payload rsocket.Payload) error {
	level.Debug(logger).Log("event", "metadata push", "metadata", string(payload.Metadata()))
	return nil
}

func (echoHandler) Dispose() {}

func (echoHandler) OnClose() <-chan struct{} {
	return make(chan struct{})
}
