// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// ProtocolVersion is the telemetry stream protocol version. The client
// sends it in the subscribe request; a server that cannot speak it
// responds with an error frame.
const ProtocolVersion = 1

// Frame type constants for the telemetry stream. After the subscribe
// handshake, the server sends a sequence of CBOR-encoded frames; the
// Type field selects which of the optional fields are meaningful.
const (
	// FrameHello is the server's handshake response: protocol version
	// and the negotiated compression codec. Sent exactly once, before
	// any other frame, always uncompressed.
	FrameHello = "hello"

	// FrameUpdate carries an Update. The first update after hello is a
	// complete snapshot of all live entities; later updates are deltas.
	FrameUpdate = "update"

	// FrameHeartbeat is sent when no update is pending, so the client
	// can distinguish an idle server from a dead connection.
	FrameHeartbeat = "heartbeat"

	// FrameError reports a server-side failure. The connection is
	// closed after an error frame.
	FrameError = "error"
)

// Compression codec names for handshake negotiation. These are
// protocol constants; renaming them breaks older clients.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// SubscribeRequest is the client's handshake, sent as the first CBOR
// value on a new connection. Accept lists the compression codecs the
// client can decode, in preference order; servers that recognize none
// of them fall back to CompressionNone.
type SubscribeRequest struct {
	Protocol int      `cbor:"protocol"`
	Accept   []string `cbor:"accept,omitempty"`
}

// Frame is one server-to-client message on the telemetry stream.
type Frame struct {
	Type string `cbor:"type"`

	// Hello fields.
	Protocol    int    `cbor:"protocol,omitempty"`
	Compression string `cbor:"compression,omitempty"`

	// Update carries the payload of a FrameUpdate when no compression
	// was negotiated.
	Update *Update `cbor:"update,omitempty"`

	// Payload carries the zstd-compressed CBOR encoding of an Update
	// when the handshake negotiated zstd. Exactly one of Update and
	// Payload is set on an update frame; ClientConn.ReadFrame hides
	// the difference from consumers.
	Payload []byte `cbor:"payload,omitempty"`

	// Message describes the failure for FrameError.
	Message string `cbor:"message,omitempty"`
}
