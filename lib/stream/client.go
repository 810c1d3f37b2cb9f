// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/taskscope/taskscope/lib/clock"
	"github.com/taskscope/taskscope/lib/state"
	"github.com/taskscope/taskscope/lib/wire"
)

// Connection phases reported by [Client.Phase]. The status bar renders
// these directly.
const (
	PhaseConnecting   = "connecting"
	PhaseConnected    = "connected"
	PhaseReconnecting = "reconnecting"
)

// Reconnection backoff after a stream disconnect. Doubles per failed
// attempt up to the cap; resets after a successful handshake.
const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// defaultReadTimeout bounds the silence between frames. The server
// sends heartbeats far more often than this, so hitting the deadline
// means the connection is dead even if TCP has not noticed.
const defaultReadTimeout = 10 * time.Second

// Options configures a [Client]. Target is required; zero values
// elsewhere select production defaults.
type Options struct {
	// Target is the host:port of the instrumented process.
	Target string

	// Aggregator receives decoded updates. Required.
	Aggregator *state.Aggregator

	// Clock drives the reconnect backoff. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives connection lifecycle diagnostics. Required.
	Logger *slog.Logger

	// DialTimeout bounds each connection attempt. Defaults to 5s.
	DialTimeout time.Duration

	// ReadTimeout bounds the gap between frames on an established
	// stream. Defaults to defaultReadTimeout.
	ReadTimeout time.Duration

	// BackoffInitial and BackoffMax override the reconnect backoff
	// range. Tests shrink these; production uses the defaults.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Client maintains a long-lived subscription to an instrumented
// process. A background goroutine dials the target, performs the
// subscribe handshake, and feeds update frames into the aggregator,
// reconnecting with exponential backoff when the stream drops.
//
// Every reconnection starts from a clean slate: the aggregator is
// reset and the server sends a complete snapshot in its first update,
// so the client never merges frames from two different connections.
//
// A stream failure before the first update ever arrives is fatal and
// is delivered on [Client.Fatal]; once an update has been applied,
// failures are recoverable and only surface as phase changes and log
// lines.
type Client struct {
	target      string
	aggregator  *state.Aggregator
	clock       clock.Clock
	logger      *slog.Logger
	dialTimeout time.Duration
	readTimeout time.Duration
	backoffLow  time.Duration
	backoffHigh time.Duration

	phase       atomic.Value // string
	gotUpdate   atomic.Bool
	firstUpdate chan struct{}
	fatal       chan error
	cancel      context.CancelFunc
	done        chan struct{}
}

// New starts a Client connecting to options.Target. The background
// goroutine begins dialing immediately; call [Client.Close] to shut it
// down.
func New(options Options) *Client {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.DialTimeout <= 0 {
		options.DialTimeout = 5 * time.Second
	}
	if options.ReadTimeout <= 0 {
		options.ReadTimeout = defaultReadTimeout
	}
	if options.BackoffInitial <= 0 {
		options.BackoffInitial = initialBackoff
	}
	if options.BackoffMax <= 0 {
		options.BackoffMax = maxBackoff
	}

	client := &Client{
		target:      options.Target,
		aggregator:  options.Aggregator,
		clock:       options.Clock,
		logger:      options.Logger,
		dialTimeout: options.DialTimeout,
		readTimeout: options.ReadTimeout,
		backoffLow:  options.BackoffInitial,
		backoffHigh: options.BackoffMax,
		firstUpdate: make(chan struct{}),
		fatal:       make(chan error, 1),
		done:        make(chan struct{}),
	}
	client.phase.Store(PhaseConnecting)

	ctx, cancel := context.WithCancel(context.Background())
	client.cancel = cancel
	go client.streamLoop(ctx)

	return client
}

// Phase returns the current connection phase: PhaseConnecting before
// the first successful handshake, PhaseConnected while a stream is
// live, PhaseReconnecting between a drop and the next handshake.
func (client *Client) Phase() string {
	return client.phase.Load().(string)
}

// Target returns the address the client connects to.
func (client *Client) Target() string { return client.target }

// FirstUpdate is closed once the first update frame has been applied
// to the aggregator. After it closes, stream failures are recoverable.
func (client *Client) FirstUpdate() <-chan struct{} { return client.firstUpdate }

// Fatal delivers the error that ended the stream before any update
// arrived. At most one error is ever sent; the client stops retrying
// after a fatal failure.
func (client *Client) Fatal() <-chan error { return client.fatal }

// Close stops the background goroutine and waits for it to exit. Safe
// to call multiple times.
func (client *Client) Close() {
	client.cancel()
	<-client.done
}

// streamLoop owns the connection lifecycle: dial, handshake, frame
// processing, backoff, repeat. Exits on context cancellation or on a
// fatal pre-first-update failure.
func (client *Client) streamLoop(ctx context.Context) {
	defer close(client.done)

	backoff := client.backoffLow
	for {
		connected, err := client.runStream(ctx)
		if ctx.Err() != nil {
			return
		}
		if !client.gotUpdate.Load() {
			client.fatal <- fmt.Errorf("connecting to %s: %w", client.target, err)
			return
		}
		if connected {
			backoff = client.backoffLow
		}

		client.phase.Store(PhaseReconnecting)
		client.logger.Warn("telemetry stream disconnected",
			"target", client.target,
			"error", err,
			"backoff", backoff,
		)

		// Drop all aggregated state. The next connection replays a
		// complete snapshot, so stale entities must not linger.
		client.aggregator.Reset()

		select {
		case <-ctx.Done():
			return
		case <-client.clock.After(backoff):
		}
		backoff = min(backoff*2, client.backoffHigh)
	}
}

// runStream performs one connect-subscribe-read cycle. The connected
// result reports whether the handshake completed, which resets the
// backoff even if the stream later failed.
func (client *Client) runStream(ctx context.Context) (connected bool, err error) {
	conn, err := net.DialTimeout("tcp", client.target, client.dialTimeout)
	if err != nil {
		return false, fmt.Errorf("dialing: %w", err)
	}
	defer conn.Close()

	// Cancellation unblocks the decoder's pending Read.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	wireClient, err := wire.Handshake(conn)
	if err != nil {
		return false, fmt.Errorf("subscribing: %w", err)
	}
	defer wireClient.Close()

	client.phase.Store(PhaseConnected)
	client.logger.Info("telemetry stream connected",
		"target", client.target,
		"compression", wireClient.Compression(),
	)

	return true, client.processFrames(conn, wireClient)
}

// processFrames reads frames until the stream ends. Heartbeats and
// updates both push the read deadline forward; a silent connection
// times out and triggers reconnection.
func (client *Client) processFrames(conn net.Conn, wireClient *wire.ClientConn) error {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(client.readTimeout)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}
		frame, err := wireClient.ReadFrame()
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		switch frame.Type {
		case wire.FrameUpdate:
			if frame.Update == nil {
				return fmt.Errorf("update frame without a body")
			}
			client.aggregator.Apply(frame.Update)
			if client.gotUpdate.CompareAndSwap(false, true) {
				close(client.firstUpdate)
			}
		case wire.FrameHeartbeat:
			// Liveness only.
		case wire.FrameError:
			return fmt.Errorf("server error: %s", frame.Message)
		default:
			// Forward compatibility: ignore unknown frame types.
			client.logger.Debug("unknown telemetry frame type", "type", frame.Type)
		}
	}
}
