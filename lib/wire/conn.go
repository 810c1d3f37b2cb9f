// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/zstd"

	"github.com/taskscope/taskscope/lib/codec"
)

// ClientConn wraps the client side of a telemetry stream: it performs
// the subscribe handshake on a raw connection, decodes frames, and
// transparently decompresses update payloads when the server
// negotiated zstd.
//
// ClientConn does not own the underlying connection; the caller closes
// it. Not safe for concurrent use.
type ClientConn struct {
	decoder     *codec.Decoder
	zstdDecoder *zstd.Decoder
	compression string
}

// Handshake sends a subscribe request over conn offering zstd, reads
// the server's hello frame, and returns a ClientConn ready to read
// frames. Fails if the server speaks a different protocol version or
// negotiates a codec the client did not offer.
func Handshake(conn io.ReadWriter) (*ClientConn, error) {
	request := SubscribeRequest{
		Protocol: ProtocolVersion,
		Accept:   []string{CompressionZstd, CompressionNone},
	}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("sending subscribe request: %w", err)
	}

	decoder := codec.NewDecoder(conn)
	var hello Frame
	if err := decoder.Decode(&hello); err != nil {
		return nil, fmt.Errorf("reading hello frame: %w", err)
	}
	switch hello.Type {
	case FrameHello:
	case FrameError:
		return nil, fmt.Errorf("server rejected subscription: %s", hello.Message)
	default:
		return nil, fmt.Errorf("expected hello frame, got %q", hello.Type)
	}
	if hello.Protocol != ProtocolVersion {
		return nil, fmt.Errorf("server speaks protocol %d, client speaks %d",
			hello.Protocol, ProtocolVersion)
	}

	client := &ClientConn{decoder: decoder, compression: hello.Compression}
	switch hello.Compression {
	case CompressionNone, "":
	case CompressionZstd:
		zstdDecoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("initializing zstd decoder: %w", err)
		}
		client.zstdDecoder = zstdDecoder
	default:
		return nil, fmt.Errorf("server negotiated unknown compression %q", hello.Compression)
	}
	return client, nil
}

// Compression returns the codec negotiated in the handshake.
func (client *ClientConn) Compression() string { return client.compression }

// ReadFrame reads the next frame from the stream, decompressing the
// update payload if the handshake negotiated zstd. Returns io.EOF (or
// a wrapped transport error) when the connection ends.
func (client *ClientConn) ReadFrame() (Frame, error) {
	var frame Frame
	if err := client.decoder.Decode(&frame); err != nil {
		return Frame{}, err
	}
	if len(frame.Payload) > 0 {
		if client.zstdDecoder == nil {
			return Frame{}, fmt.Errorf("%s frame has compressed payload but no codec was negotiated", frame.Type)
		}
		raw, err := client.zstdDecoder.DecodeAll(frame.Payload, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("decompressing %s frame: %w", frame.Type, err)
		}
		var update Update
		if err := codec.Unmarshal(raw, &update); err != nil {
			return Frame{}, fmt.Errorf("decoding %s payload: %w", frame.Type, err)
		}
		frame.Update = &update
		frame.Payload = nil
	}
	return frame, nil
}

// Close releases the decompressor, if any. The underlying connection
// is the caller's to close.
func (client *ClientConn) Close() {
	if client.zstdDecoder != nil {
		client.zstdDecoder.Close()
	}
}

// ServerConn wraps the server side of a telemetry stream: it reads the
// client's subscribe request, answers with a hello frame, and then
// encodes frames with the negotiated compression. Used by the mock
// instrumentation and by tests; a real instrumented process implements
// the same contract.
//
// Not safe for concurrent use.
type ServerConn struct {
	encoder     *codec.Encoder
	zstdEncoder *zstd.Encoder
	compression string
}

// Accept reads the subscribe request from conn, negotiates compression
// (zstd when offered and allowZstd is set, none otherwise), writes the
// hello frame, and returns a ServerConn ready to send frames.
func Accept(conn io.ReadWriter, allowZstd bool) (*ServerConn, error) {
	var request SubscribeRequest
	if err := codec.NewDecoder(conn).Decode(&request); err != nil {
		return nil, fmt.Errorf("reading subscribe request: %w", err)
	}
	encoder := codec.NewEncoder(conn)
	if request.Protocol != ProtocolVersion {
		// Tell the client why before hanging up.
		message := fmt.Sprintf("unsupported protocol version %d", request.Protocol)
		_ = encoder.Encode(Frame{Type: FrameError, Message: message})
		return nil, fmt.Errorf("client requested %s", message)
	}

	compression := CompressionNone
	if allowZstd && slices.Contains(request.Accept, CompressionZstd) {
		compression = CompressionZstd
	}

	hello := Frame{Type: FrameHello, Protocol: ProtocolVersion, Compression: compression}
	if err := encoder.Encode(hello); err != nil {
		return nil, fmt.Errorf("writing hello frame: %w", err)
	}

	server := &ServerConn{encoder: encoder, compression: compression}
	if compression == CompressionZstd {
		zstdEncoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("initializing zstd encoder: %w", err)
		}
		server.zstdEncoder = zstdEncoder
	}
	return server, nil
}

// Compression returns the codec negotiated in the handshake.
func (server *ServerConn) Compression() string { return server.compression }

// WriteUpdate sends an update frame, compressing the payload when
// zstd was negotiated.
func (server *ServerConn) WriteUpdate(update *Update) error {
	frame := Frame{Type: FrameUpdate}
	if server.zstdEncoder != nil {
		raw, err := codec.Marshal(update)
		if err != nil {
			return fmt.Errorf("encoding update payload: %w", err)
		}
		frame.Payload = server.zstdEncoder.EncodeAll(raw, nil)
	} else {
		frame.Update = update
	}
	if err := server.encoder.Encode(frame); err != nil {
		return fmt.Errorf("writing update frame: %w", err)
	}
	return nil
}

// WriteHeartbeat sends a heartbeat frame.
func (server *ServerConn) WriteHeartbeat() error {
	if err := server.encoder.Encode(Frame{Type: FrameHeartbeat}); err != nil {
		return fmt.Errorf("writing heartbeat frame: %w", err)
	}
	return nil
}

// WriteError sends an error frame. The server closes the connection
// after calling this.
func (server *ServerConn) WriteError(message string) error {
	if err := server.encoder.Encode(Frame{Type: FrameError, Message: message}); err != nil {
		return fmt.Errorf("writing error frame: %w", err)
	}
	return nil
}

// Close releases the compressor, if any. The underlying connection is
// the caller's to close.
func (server *ServerConn) Close() error {
	if server.zstdEncoder != nil {
		return server.zstdEncoder.Close()
	}
	return nil
}
