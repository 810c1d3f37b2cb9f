// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream maintains the live telemetry subscription to an
// instrumented process and feeds decoded updates into a
// state.Aggregator.
//
// The client owns the full connection lifecycle: dial, subscribe
// handshake, frame processing, and exponential backoff reconnection.
// State from different connections never mixes; the aggregator is
// reset on every disconnect and each new connection begins with a
// complete snapshot from the server.
package stream
