// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ConfigError is a configuration problem detected before any
// connection attempt: an unparseable duration string, an invalid
// target address, a broken config file. It is always fatal and is
// reported with the offending value so the user can fix it.
type ConfigError struct {
	message string
	hint    string
}

// Config creates a ConfigError with a formatted message. The %w verb
// is supported.
func Config(format string, args ...any) *ConfigError {
	return &ConfigError{message: fmt.Errorf(format, args...).Error()}
}

// WithHint attaches a one-line suggestion printed under the error.
func (e *ConfigError) WithHint(hint string) *ConfigError {
	e.hint = hint
	return e
}

func (e *ConfigError) Error() string {
	if e.hint != "" {
		return e.message + "\n  hint: " + e.hint
	}
	return e.message
}
