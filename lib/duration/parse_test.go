// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package duration

import (
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
	}{
		{"5s", 5 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"250us", 250 * time.Microsecond},
		{"250µs", 250 * time.Microsecond},
		{"42ns", 42 * time.Nanosecond},
		{"10m", 10 * time.Minute},
		{"2min", 2 * time.Minute},
		{"3h", 3 * time.Hour},
		{"1d", Day},
		{"2days", 2 * Day},
		{"1w", Week},
		{"1month", Month},
		{"2years", 2 * Year},
		{"5days 2min 2s", 5*Day + 2*time.Minute + 2*time.Second},
		{"1h 30m", 90 * time.Minute},
		{"  6s  ", 6 * time.Second},
		{"1Day", Day}, // units are case-insensitive
	}
	for _, testCase := range cases {
		got, err := Parse(testCase.input)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", testCase.input, err)
			continue
		}
		if got != testCase.want {
			t.Errorf("Parse(%q) = %v, want %v", testCase.input, got, testCase.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		input string
		token string // expected to appear in the error message
	}{
		{"", ""},
		{"   ", ""},
		{"5", "5"},
		{"seconds", "seconds"},
		{"5parsecs", "5parsecs"},
		{"-3s", "-3s"},
		{"1.5s", "1.5s"}, // fractional values are not in the grammar
		{"2s 9xx", "9xx"},
	}
	for _, testCase := range cases {
		_, err := Parse(testCase.input)
		if err == nil {
			t.Errorf("Parse(%q): expected error, got nil", testCase.input)
			continue
		}
		if testCase.token != "" && !strings.Contains(err.Error(), testCase.token) {
			t.Errorf("Parse(%q) error %q does not name offending token %q",
				testCase.input, err, testCase.token)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		d     time.Duration
		ascii bool
		want  string
	}{
		{750 * time.Nanosecond, false, "750ns"},
		{12300 * time.Nanosecond, false, "12.3µs"},
		{12300 * time.Nanosecond, true, "12.3us"},
		{45600 * time.Microsecond, false, "45.6ms"},
		{12340 * time.Millisecond, false, "12.34s"},
		{5*time.Minute + 32*time.Second, false, "5m32s"},
		{2*time.Hour + 5*time.Minute, false, "2h5m"},
		{3*Day + 4*time.Hour, false, "3d4h"},
		{-time.Second, false, "0ns"},
	}
	for _, testCase := range cases {
		got := Format(testCase.d, testCase.ascii)
		if got != testCase.want {
			t.Errorf("Format(%v, ascii=%v) = %q, want %q",
				testCase.d, testCase.ascii, got, testCase.want)
		}
	}
}
