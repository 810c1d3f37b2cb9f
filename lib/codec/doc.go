// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec centralizes taskscope's CBOR configuration. All wire
// encoding goes through this package so the encoder options (Core
// Deterministic Encoding, string-keyed map defaults) are set in
// exactly one place.
package codec
