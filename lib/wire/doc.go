// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the telemetry stream contract between an
// instrumented process and the taskscope console.
//
// The stream is CBOR over a connection-oriented transport (TCP by
// default). The client opens the connection and sends a
// [SubscribeRequest]; the server answers with a hello [Frame] carrying
// the negotiated compression codec, then streams update, heartbeat,
// and error frames for the life of the connection. When zstd is
// negotiated, each update frame carries its payload as an
// independently compressed CBOR blob; the frame stream itself stays
// plain CBOR so a single decoder owns the connection.
//
// An [Update] carries complete records: every field is present and
// counters are cumulative totals, so consumers merge records by
// replacement rather than accumulation. The first update on a new
// connection is a full snapshot of all live entities; the console
// resets its state on reconnect and relies on that snapshot rather
// than attempting to patch across the gap.
//
// [ClientConn] and [ServerConn] implement the two ends of the
// handshake and framing. The console uses ClientConn; ServerConn
// exists for the mock instrumentation binary and for tests.
package wire
