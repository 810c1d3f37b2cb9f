// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/taskscope/taskscope/lib/state"
	"github.com/taskscope/taskscope/lib/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testClient(t *testing.T, target string, aggregator *state.Aggregator) *Client {
	t.Helper()
	client := New(Options{
		Target:         target,
		Aggregator:     aggregator,
		Logger:         testLogger(),
		DialTimeout:    time.Second,
		ReadTimeout:    2 * time.Second,
		BackoffInitial: 5 * time.Millisecond,
		BackoffMax:     20 * time.Millisecond,
	})
	t.Cleanup(client.Close)
	return client
}

// waitFor polls condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func taskUpdate(id wire.TaskID, nowNanos int64) *wire.Update {
	return &wire.Update{
		NowNanos: nowNanos,
		Tasks: []wire.TaskRecord{{
			ID:    id,
			Name:  "worker",
			State: wire.TaskRunning,
		}},
	}
}

func TestClientAppliesUpdates(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		server, err := wire.Accept(conn, true)
		if err != nil {
			return
		}
		defer server.Close()
		server.WriteUpdate(taskUpdate(1, 1_000_000))
		server.WriteHeartbeat()
		// Hold the connection open until the test finishes.
		buffer := make([]byte, 1)
		conn.Read(buffer)
	}()

	aggregator := state.NewAggregator(state.RetainForever(), testLogger())
	client := testClient(t, listener.Addr().String(), aggregator)

	select {
	case <-client.FirstUpdate():
	case err := <-client.Fatal():
		t.Fatalf("fatal before first update: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("first update never arrived")
	}

	if _, ok := aggregator.Latest().Task(1); !ok {
		t.Fatal("task 1 missing after first update")
	}
	waitFor(t, "connected phase", func() bool { return client.Phase() == PhaseConnected })
}

func TestClientFatalWhenServerUnreachable(t *testing.T) {
	// Grab a port that nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	target := listener.Addr().String()
	listener.Close()

	aggregator := state.NewAggregator(state.RetainForever(), testLogger())
	client := testClient(t, target, aggregator)

	select {
	case err := <-client.Fatal():
		if err == nil {
			t.Fatal("fatal channel delivered nil")
		}
	case <-client.FirstUpdate():
		t.Fatal("received an update from a dead target")
	case <-time.After(5 * time.Second):
		t.Fatal("fatal error never delivered")
	}
}

func TestClientReconnectsWhenStreamGoesSilent(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	// The first connection serves one update and then falls silent
	// without closing, no heartbeats, nothing. The client must treat
	// the silence as a disconnect and resync on a fresh connection.
	go func() {
		first, err := listener.Accept()
		if err != nil {
			return
		}
		defer first.Close()
		if server, err := wire.Accept(first, false); err == nil {
			server.WriteUpdate(taskUpdate(1, 1_000_000))
		}

		second, err := listener.Accept()
		if err != nil {
			return
		}
		defer second.Close()
		server, err := wire.Accept(second, false)
		if err != nil {
			return
		}
		server.WriteUpdate(taskUpdate(2, 2_000_000))
		buffer := make([]byte, 1)
		second.Read(buffer)
	}()

	aggregator := state.NewAggregator(state.RetainForever(), testLogger())
	client := New(Options{
		Target:         listener.Addr().String(),
		Aggregator:     aggregator,
		Logger:         testLogger(),
		DialTimeout:    time.Second,
		ReadTimeout:    100 * time.Millisecond,
		BackoffInitial: 5 * time.Millisecond,
		BackoffMax:     20 * time.Millisecond,
	})
	t.Cleanup(client.Close)

	select {
	case <-client.FirstUpdate():
	case err := <-client.Fatal():
		t.Fatalf("fatal before first update: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("first update never arrived")
	}

	waitFor(t, "resync after the stream went silent", func() bool {
		_, ok := aggregator.Latest().Task(2)
		return ok
	})
	if _, ok := aggregator.Latest().Task(1); ok {
		t.Fatal("task 1 survived the silent-connection resync")
	}
	waitFor(t, "connected phase", func() bool { return client.Phase() == PhaseConnected })
}

func TestClientResyncsOnReconnect(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	// First connection serves task 1 then drops; the second serves
	// only task 2. The resync must erase task 1.
	go func() {
		first, err := listener.Accept()
		if err != nil {
			return
		}
		if server, err := wire.Accept(first, false); err == nil {
			server.WriteUpdate(taskUpdate(1, 1_000_000))
		}
		first.Close()

		second, err := listener.Accept()
		if err != nil {
			return
		}
		defer second.Close()
		server, err := wire.Accept(second, false)
		if err != nil {
			return
		}
		server.WriteUpdate(taskUpdate(2, 2_000_000))
		buffer := make([]byte, 1)
		second.Read(buffer)
	}()

	aggregator := state.NewAggregator(state.RetainForever(), testLogger())
	client := testClient(t, listener.Addr().String(), aggregator)

	<-client.FirstUpdate()

	waitFor(t, "task 2 after reconnect", func() bool {
		_, ok := aggregator.Latest().Task(2)
		return ok
	})
	if _, ok := aggregator.Latest().Task(1); ok {
		t.Fatal("task 1 survived the reconnect resync")
	}
	waitFor(t, "connected phase", func() bool { return client.Phase() == PhaseConnected })
}
