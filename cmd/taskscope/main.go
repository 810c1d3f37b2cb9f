// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// taskscope is a terminal debugger for asynchronous programs. It
// connects to an instrumented process, aggregates its telemetry
// stream into live task and resource tables, and renders them as an
// interactive TUI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/taskscope/taskscope/lib/cli"
	"github.com/taskscope/taskscope/lib/duration"
	"github.com/taskscope/taskscope/lib/scopeui"
	"github.com/taskscope/taskscope/lib/state"
	"github.com/taskscope/taskscope/lib/stream"
	"github.com/taskscope/taskscope/lib/version"
)

// defaultTarget is where instrumented processes serve telemetry
// unless told otherwise.
const defaultTarget = "127.0.0.1:6669"

// defaultRetain keeps completed entities visible long enough to read
// their final counters before they age out.
const defaultRetain = "6s"

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		retainFlag   string
		asciiOnly    bool
		palette      string
		noColor      []string
		logOutput    string
		logLevelFlag string
		configPath   string
	)

	flagSet := pflag.NewFlagSet("taskscope", pflag.ContinueOnError)
	flagSet.StringVar(&retainFlag, "retain", defaultRetain, "how long to keep completed entities (duration such as '5days 2min 2s', or 'none')")
	flagSet.BoolVar(&asciiOnly, "ascii-only", false, "render with ASCII characters only")
	flagSet.StringVar(&palette, "palette", scopeui.PaletteANSI256, "color palette: ansi256 or ansi8")
	flagSet.StringSliceVar(&noColor, "no-color", nil, "disable color categories: all, state, duration, warning, selection, chrome")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to the status bar)")
	flagSet.StringVar(&logLevelFlag, "log-level", "warn", "minimum level for status bar diagnostics: debug, info, warn, error")
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file (flags override file values)")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing so it works regardless of
	// other arguments.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("taskscope")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	target := defaultTarget
	if configPath != "" {
		config, err := loadConfigFile(configPath)
		if err != nil {
			return cli.Config("cannot load config file: %w", err)
		}
		if config.Target != "" {
			target = config.Target
		}
		if config.Retain != "" && !flagSet.Changed("retain") {
			retainFlag = config.Retain
		}
		if !flagSet.Changed("ascii-only") {
			asciiOnly = config.ASCIIOnly
		}
		if config.Palette != "" && !flagSet.Changed("palette") {
			palette = config.Palette
		}
		if config.NoColor != nil && !flagSet.Changed("no-color") {
			noColor = config.NoColor
		}
		if config.LogLevel != "" && !flagSet.Changed("log-level") {
			logLevelFlag = config.LogLevel
		}
		if config.LogOutput != "" && !flagSet.Changed("log-output") {
			logOutput = config.LogOutput
		}
	}

	args := flagSet.Args()
	switch len(args) {
	case 0:
	case 1:
		target = args[0]
	default:
		return cli.Config("unexpected argument: %s", args[1])
	}
	if _, _, err := net.SplitHostPort(target); err != nil {
		return cli.Config("invalid target address %q: %w", target, err).
			WithHint("expected host:port, e.g. " + defaultTarget)
	}

	retention, err := parseRetention(retainFlag)
	if err != nil {
		return err
	}

	if palette != scopeui.PaletteANSI256 && palette != scopeui.PaletteANSI8 {
		return cli.Config("invalid --palette value %q: must be ansi256 or ansi8", palette)
	}
	validCategories := []string{
		scopeui.ColorsAll, scopeui.ColorsState, scopeui.ColorsDuration,
		scopeui.ColorsWarning, scopeui.ColorsSelection, scopeui.ColorsChrome,
	}
	for _, category := range noColor {
		if !slices.Contains(validCategories, category) {
			return cli.Config("invalid --no-color category %q: must be one of %s",
				category, strings.Join(validCategories, ", "))
		}
	}

	logLevel, err := parseLogLevel(logLevelFlag)
	if err != nil {
		return err
	}

	// All diagnostics route to the status bar (and optionally a file)
	// once the TUI owns the terminal; stderr would corrupt the
	// alt-screen display.
	tuiHandler := scopeui.NewTUILogHandler(logLevel)
	var backgroundLogger *slog.Logger
	if logOutput != "" {
		fileHandler, fileCloser, fileErr := openFileLogHandler(logOutput)
		if fileErr != nil {
			return cli.Config("cannot open log file %s: %w", logOutput, fileErr)
		}
		defer fileCloser()
		backgroundLogger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		backgroundLogger = slog.New(tuiHandler)
	}

	aggregator := state.NewAggregator(retention, backgroundLogger)
	client := stream.New(stream.Options{
		Target:     target,
		Aggregator: aggregator,
		Logger:     backgroundLogger,
	})
	defer client.Close()

	theme := scopeui.NewTheme(palette, asciiOnly, noColor)
	model := scopeui.NewModel(aggregator, client, theme)
	program := tea.NewProgram(model, tea.WithAltScreen())
	tuiHandler.SetProgram(program)

	// An unreachable target before the first update is fatal: tear
	// down the TUI and exit non-zero. After the first update,
	// disconnects are handled by the client's reconnect loop.
	fatal := make(chan error, 1)
	go func() {
		select {
		case err := <-client.Fatal():
			fatal <- err
			program.Quit()
		case <-client.FirstUpdate():
		}
	}()

	_, runErr := program.Run()
	select {
	case err := <-fatal:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return &cli.ExitError{Code: 2}
	default:
	}
	return runErr
}

// parseRetention turns the --retain flag into a retention policy. The
// literal "none" disables pruning entirely.
func parseRetention(value string) (state.RetentionPolicy, error) {
	if value == "none" {
		return state.RetainForever(), nil
	}
	horizon, err := duration.Parse(value)
	if err != nil {
		return state.RetentionPolicy{}, cli.Config("invalid --retain value: %w", err).
			WithHint("use a duration like '5days 2min 2s', or 'none' to keep everything")
	}
	policy, err := state.RetainFor(horizon)
	if err != nil {
		return state.RetentionPolicy{}, cli.Config("invalid --retain value: %w", err)
	}
	return policy, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, cli.Config("invalid --log-level value %q: must be debug, info, warn, or error", value)
	}
}

// openFileLogHandler creates a slog.JSONHandler that writes to the
// given file path. Returns the handler, a cleanup function to close
// the file, and any error. The file is created or truncated.
func openFileLogHandler(path string) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, func() { file.Close() }, nil
}

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `taskscope: terminal debugger for asynchronous programs.

Connects to an instrumented process and shows its tasks, the
resources they wait on, and where time goes: poll counts, busy and
idle durations, and wakeup behavior, live in a sortable table.

Usage:
  taskscope [flags] [target]

The target is the instrumented process's telemetry address and
defaults to %s.

Examples:
  # Connect to the default target
  taskscope

  # Connect to a remote process, keep completed tasks for a minute
  taskscope --retain '1m' 10.0.0.7:6669

  # Plain terminal: no colors beyond the 8 base ones, no Unicode
  taskscope --palette ansi8 --ascii-only

Flags:
`, defaultTarget)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
