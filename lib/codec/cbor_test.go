// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestDeterministicEncoding(t *testing.T) {
	// Maps with the same contents must encode to identical bytes
	// regardless of insertion order.
	first, err := Marshal(map[string]int{"busy": 1, "polls": 2, "wakes": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(map[string]int{"wakes": 3, "polls": 2, "busy": 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same map encoded differently:\n%x\n%x", first, second)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	type wide struct {
		Name  string `cbor:"name"`
		Extra int    `cbor:"extra"`
	}
	type narrow struct {
		Name string `cbor:"name"`
	}

	data, err := Marshal(wide{Name: "timer-worker", Extra: 42})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got narrow
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if got.Name != "timer-worker" {
		t.Fatalf("Name = %q, want %q", got.Name, "timer-worker")
	}
}

func TestAnyTargetDecodesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"capacity": uint64(128)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got any
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	asMap, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", got)
	}
	if asMap["capacity"] != uint64(128) {
		t.Fatalf("capacity = %v, want 128", asMap["capacity"])
	}
}
