// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/taskscope/taskscope/lib/codec"
)

// encodeTo and decodeFrom are raw CBOR helpers for tests that need to
// speak the wire format by hand, bypassing ClientConn.
func encodeTo(w io.Writer, v any) error   { return codec.NewEncoder(w).Encode(v) }
func decodeFrom(r io.Reader, v any) error { return codec.NewDecoder(r).Decode(v) }

// runHandshake connects a ServerConn and ClientConn over an in-memory
// pipe and returns both ends. The server's handshake runs in a
// goroutine because net.Pipe is synchronous.
func runHandshake(t *testing.T, allowZstd bool) (*ServerConn, *ClientConn) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	t.Cleanup(func() {
		clientEnd.Close()
		serverEnd.Close()
	})

	serverResult := make(chan *ServerConn, 1)
	serverErr := make(chan error, 1)
	go func() {
		server, err := Accept(serverEnd, allowZstd)
		if err != nil {
			serverErr <- err
			return
		}
		serverResult <- server
	}()

	client, err := Handshake(clientEnd)
	if err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	t.Cleanup(client.Close)

	select {
	case server := <-serverResult:
		return server, client
	case err := <-serverErr:
		t.Fatalf("server handshake: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("handshake timed out")
	}
	return nil, nil
}

func TestHandshakeNegotiatesZstd(t *testing.T) {
	server, client := runHandshake(t, true)
	if got := server.Compression(); got != CompressionZstd {
		t.Fatalf("server compression = %q, want %q", got, CompressionZstd)
	}
	if got := client.Compression(); got != CompressionZstd {
		t.Fatalf("client compression = %q, want %q", got, CompressionZstd)
	}
}

func TestHandshakeFallsBackToNone(t *testing.T) {
	server, client := runHandshake(t, false)
	if got := server.Compression(); got != CompressionNone {
		t.Fatalf("server compression = %q, want %q", got, CompressionNone)
	}
	if got := client.Compression(); got != CompressionNone {
		t.Fatalf("client compression = %q, want %q", got, CompressionNone)
	}
}

// streamRoundTrip sends a realistic frame sequence through a connected
// pair and verifies the client sees it intact and in order.
func streamRoundTrip(t *testing.T, allowZstd bool) {
	t.Helper()
	server, client := runHandshake(t, allowZstd)

	update := &Update{
		NowNanos: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC).UnixNano(),
		Tasks: []TaskRecord{{
			ID:        TaskID(7),
			Name:      "connection-handler",
			Kind:      "task",
			Location:  Location{File: "src/server.rs", Line: 142},
			State:     TaskRunning,
			Polls:     1903,
			Busy:      450 * time.Millisecond,
			Scheduled: 12 * time.Millisecond,
			Wakes:     211,
			SelfWakes: 3,
		}},
		Resources: []ResourceRecord{{
			ID:           ResourceID(4),
			ConcreteType: "Semaphore",
			Kind:         "sync",
			Attributes:   []Attribute{{Name: "permits", Value: uint64(16)}},
		}},
		Ops: []AsyncOpRecord{{
			ID:       OpID(31),
			Task:     TaskID(7),
			Resource: ResourceID(4),
			Source:   "Semaphore::acquire",
			State:    OpPending,
		}},
		DroppedTasks: []TaskID{3},
	}

	writeDone := make(chan error, 1)
	go func() {
		if err := server.WriteUpdate(update); err != nil {
			writeDone <- err
			return
		}
		writeDone <- server.WriteHeartbeat()
	}()

	frame, err := client.ReadFrame()
	if err != nil {
		t.Fatalf("reading update frame: %v", err)
	}
	if frame.Type != FrameUpdate || frame.Update == nil {
		t.Fatalf("frame = %+v, want update frame with payload", frame)
	}
	got := frame.Update
	if got.NowNanos != update.NowNanos {
		t.Errorf("NowNanos = %d, want %d", got.NowNanos, update.NowNanos)
	}
	if len(got.Tasks) != 1 || got.Tasks[0] != update.Tasks[0] {
		t.Errorf("Tasks = %+v, want %+v", got.Tasks, update.Tasks)
	}
	if len(got.Ops) != 1 || got.Ops[0] != update.Ops[0] {
		t.Errorf("Ops = %+v, want %+v", got.Ops, update.Ops)
	}
	if len(got.DroppedTasks) != 1 || got.DroppedTasks[0] != TaskID(3) {
		t.Errorf("DroppedTasks = %v, want [3]", got.DroppedTasks)
	}

	heartbeat, err := client.ReadFrame()
	if err != nil {
		t.Fatalf("reading heartbeat frame: %v", err)
	}
	if heartbeat.Type != FrameHeartbeat {
		t.Fatalf("second frame type = %q, want heartbeat", heartbeat.Type)
	}

	if err := <-writeDone; err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func TestStreamRoundTrip(t *testing.T)     { streamRoundTrip(t, false) }
func TestStreamRoundTripZstd(t *testing.T) { streamRoundTrip(t, true) }

func TestAcceptRejectsUnknownProtocol(t *testing.T) {
	clientEnd, serverEnd := net.Pipe()
	defer clientEnd.Close()
	defer serverEnd.Close()

	acceptErr := make(chan error, 1)
	go func() {
		_, err := Accept(serverEnd, true)
		acceptErr <- err
	}()

	// Speak a future protocol version by hand.
	type rawRequest struct {
		Protocol int `cbor:"protocol"`
	}
	if err := encodeTo(clientEnd, rawRequest{Protocol: 99}); err != nil {
		t.Fatalf("sending request: %v", err)
	}

	var errorFrame Frame
	if err := decodeFrom(clientEnd, &errorFrame); err != nil {
		t.Fatalf("reading error frame: %v", err)
	}
	if errorFrame.Type != FrameError {
		t.Fatalf("frame type = %q, want error", errorFrame.Type)
	}
	if err := <-acceptErr; err == nil {
		t.Fatal("Accept succeeded for unsupported protocol version")
	}
}

func TestLocationString(t *testing.T) {
	cases := []struct {
		location Location
		want     string
	}{
		{Location{}, ""},
		{Location{File: "src/main.rs"}, "src/main.rs"},
		{Location{File: "src/main.rs", Line: 10}, "src/main.rs:10"},
	}
	for _, testCase := range cases {
		if got := testCase.location.String(); got != testCase.want {
			t.Errorf("%+v.String() = %q, want %q", testCase.location, got, testCase.want)
		}
	}
}
