// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// taskscope-mock is a synthetic instrumented process. It serves the
// taskscope telemetry protocol with a fabricated population of tasks,
// resources, and pending operations whose counters evolve over time,
// so the TUI can be exercised without a real instrumented program.
//
// Each subscriber gets a complete snapshot in its first update and
// deltas afterwards, the same contract a real instrumented process
// honors across reconnects.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/taskscope/taskscope/lib/cli"
	"github.com/taskscope/taskscope/lib/clock"
	"github.com/taskscope/taskscope/lib/version"
	"github.com/taskscope/taskscope/lib/wire"
)

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
		listenAddress string
		taskCount     int
		interval      time.Duration
		seed          uint64
		allowZstd     bool
	)

	flagSet := pflag.NewFlagSet("taskscope-mock", pflag.ContinueOnError)
	flagSet.StringVar(&listenAddress, "listen", "127.0.0.1:6669", "address to serve telemetry on")
	flagSet.IntVar(&taskCount, "tasks", 12, "size of the simulated task population")
	flagSet.DurationVar(&interval, "interval", 500*time.Millisecond, "time between telemetry updates")
	flagSet.Uint64Var(&seed, "seed", 1, "random seed for the simulation")
	flagSet.BoolVar(&allowZstd, "zstd", true, "offer zstd compression to subscribers")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("taskscope-mock")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if taskCount < 1 {
		return cli.Config("invalid --tasks value %d: must be at least 1", taskCount)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := cli.NewCommandLogger(slog.LevelInfo)

	listener, err := net.Listen("tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenAddress, err)
	}
	defer listener.Close()

	simulator := newSimulator(taskCount, seed, clock.Real(), logger)
	go simulator.tickLoop(ctx, interval)

	logger.Info("mock instrumentation serving",
		"address", listener.Addr().String(),
		"tasks", taskCount,
		"interval", interval,
	)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go serveSubscriber(ctx, conn, simulator, allowZstd, logger)
	}
}

// heartbeatInterval bounds the silence between frames so subscribers
// can detect a dead connection.
const heartbeatInterval = time.Second

// serveSubscriber handles one telemetry subscription: handshake, full
// snapshot, then deltas and heartbeats until the connection or the
// process ends.
func serveSubscriber(ctx context.Context, conn net.Conn, simulator *simulator, allowZstd bool, logger *slog.Logger) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	server, err := wire.Accept(conn, allowZstd)
	if err != nil {
		logger.Warn("subscription handshake failed", "remote", remote, "error", err)
		return
	}
	defer server.Close()

	snapshot, updates, cancel := simulator.subscribe()
	defer cancel()

	if err := server.WriteUpdate(snapshot); err != nil {
		logger.Warn("subscriber dropped", "remote", remote, "error", err)
		return
	}
	logger.Info("subscriber connected", "remote", remote, "compression", server.Compression())

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if err := server.WriteUpdate(update); err != nil {
				logger.Info("subscriber disconnected", "remote", remote, "error", err)
				return
			}
		case <-heartbeat.C:
			if err := server.WriteHeartbeat(); err != nil {
				logger.Info("subscriber disconnected", "remote", remote, "error", err)
				return
			}
		}
	}
}

// Simulation vocabulary. Names and locations are fabricated but
// plausible so the TUI demo reads naturally.
var (
	taskNames = []string{
		"accept-loop", "request-worker", "flush-batcher", "cache-sweeper",
		"metrics-pump", "retry-driver", "index-builder", "gc-scanner",
	}
	resourceTypes = []struct {
		concreteType string
		kind         string
		source       string
	}{
		{"Mutex", "sync", "Mutex::lock"},
		{"Semaphore", "sync", "Semaphore::acquire"},
		{"Channel", "channel", "Channel::recv"},
		{"TcpStream", "io", "TcpStream::read"},
		{"Timer", "timer", "Timer::wait"},
	}
	codeFiles = []string{
		"app/server.go", "app/worker.go", "app/batch.go", "app/cache.go", "app/net.go",
	}
)

// simulator owns the fabricated entity population. A single tick loop
// mutates it; subscriber bookkeeping is the only shared state.
type simulator struct {
	clock  clock.Clock
	logger *slog.Logger
	random *rand.Rand

	nextTask     wire.TaskID
	nextResource wire.ResourceID
	nextOp       wire.OpID

	tasks     map[wire.TaskID]*wire.TaskRecord
	resources map[wire.ResourceID]*wire.ResourceRecord
	ops       map[wire.OpID]*wire.AsyncOpRecord

	mu          sync.Mutex
	subscribers map[chan *wire.Update]struct{}
}

func newSimulator(taskCount int, seed uint64, timeSource clock.Clock, logger *slog.Logger) *simulator {
	simulator := &simulator{
		clock:       timeSource,
		logger:      logger,
		random:      rand.New(rand.NewPCG(seed, seed)),
		tasks:       make(map[wire.TaskID]*wire.TaskRecord),
		resources:   make(map[wire.ResourceID]*wire.ResourceRecord),
		ops:         make(map[wire.OpID]*wire.AsyncOpRecord),
		subscribers: make(map[chan *wire.Update]struct{}),
	}

	for index := range len(resourceTypes) {
		simulator.spawnResource(index)
	}
	for range taskCount {
		simulator.spawnTask()
	}
	return simulator
}

func (simulator *simulator) spawnTask() *wire.TaskRecord {
	simulator.nextTask++
	id := simulator.nextTask
	task := &wire.TaskRecord{
		ID:    id,
		Name:  taskNames[int(id)%len(taskNames)],
		Kind:  "task",
		State: wire.TaskRunning,
		Location: wire.Location{
			File: codeFiles[simulator.random.IntN(len(codeFiles))],
			Line: uint32(10 + simulator.random.IntN(400)),
		},
	}
	simulator.tasks[id] = task
	return task
}

func (simulator *simulator) spawnResource(typeIndex int) *wire.ResourceRecord {
	simulator.nextResource++
	id := simulator.nextResource
	info := resourceTypes[typeIndex%len(resourceTypes)]
	resource := &wire.ResourceRecord{
		ID:           id,
		ConcreteType: info.concreteType,
		Kind:         info.kind,
		Location: wire.Location{
			File: codeFiles[simulator.random.IntN(len(codeFiles))],
			Line: uint32(10 + simulator.random.IntN(400)),
		},
	}
	simulator.resources[id] = resource
	return resource
}

func (simulator *simulator) spawnOp(task wire.TaskID, resource wire.ResourceID) *wire.AsyncOpRecord {
	simulator.nextOp++
	id := simulator.nextOp
	var source string
	for index, info := range resourceTypes {
		if wire.ResourceID(index+1) == resource {
			source = info.source
		}
	}
	op := &wire.AsyncOpRecord{
		ID:       id,
		Task:     task,
		Resource: resource,
		Source:   source,
		State:    wire.OpPending,
	}
	simulator.ops[id] = op
	return op
}

// subscribe registers a new subscriber and returns its initial full
// snapshot, the delta channel, and a cancel function. The channel is
// buffered; a subscriber that falls behind loses deltas, which is
// safe because counters are cumulative.
func (simulator *simulator) subscribe() (*wire.Update, chan *wire.Update, func()) {
	simulator.mu.Lock()
	defer simulator.mu.Unlock()

	snapshot := &wire.Update{NowNanos: simulator.clock.Now().UnixNano()}
	for _, task := range simulator.tasks {
		snapshot.Tasks = append(snapshot.Tasks, *task)
	}
	for _, resource := range simulator.resources {
		snapshot.Resources = append(snapshot.Resources, *resource)
	}
	for _, op := range simulator.ops {
		snapshot.Ops = append(snapshot.Ops, *op)
	}

	updates := make(chan *wire.Update, 8)
	simulator.subscribers[updates] = struct{}{}
	cancel := func() {
		simulator.mu.Lock()
		defer simulator.mu.Unlock()
		delete(simulator.subscribers, updates)
	}
	return snapshot, updates, cancel
}

// tickLoop advances the simulation at the configured cadence until
// the context is cancelled.
func (simulator *simulator) tickLoop(ctx context.Context, interval time.Duration) {
	ticker := simulator.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			simulator.tick(interval)
		}
	}
}

// tick mutates the population and fans the resulting delta update out
// to all subscribers.
func (simulator *simulator) tick(interval time.Duration) {
	simulator.mu.Lock()
	defer simulator.mu.Unlock()

	update := &wire.Update{NowNanos: simulator.clock.Now().UnixNano()}

	for _, task := range simulator.tasks {
		simulator.advanceTask(task, interval)
		update.Tasks = append(update.Tasks, *task)
	}

	// Retire roughly one task in twenty per tick and spawn a
	// replacement, so completions age through the retention horizon.
	for id, task := range simulator.tasks {
		if simulator.random.IntN(20) != 0 {
			continue
		}
		task.State = wire.TaskCompleted
		update.Tasks = append(update.Tasks, *task)
		update.DroppedTasks = append(update.DroppedTasks, id)
		delete(simulator.tasks, id)

		for opID, op := range simulator.ops {
			if op.Task == id {
				update.DroppedOps = append(update.DroppedOps, opID)
				delete(simulator.ops, opID)
			}
		}

		replacement := simulator.spawnTask()
		update.Tasks = append(update.Tasks, *replacement)
	}

	// Channel depth wobbles to exercise resource attributes.
	for _, resource := range simulator.resources {
		if resource.Kind != "channel" {
			continue
		}
		resource.Attributes = []wire.Attribute{
			{Name: "queued", Value: int64(simulator.random.IntN(64)), Unit: "messages"},
		}
		update.Resources = append(update.Resources, *resource)
	}

	// Keep a couple of pending ops per resource in flight.
	for _, op := range simulator.ops {
		if simulator.random.IntN(4) == 0 {
			op.State = wire.OpReady
			update.Ops = append(update.Ops, *op)
		}
	}
	if len(simulator.ops) < 2*len(simulator.resources) {
		task := simulator.randomTaskID()
		resource := wire.ResourceID(1 + simulator.random.IntN(len(simulator.resources)))
		update.Ops = append(update.Ops, *simulator.spawnOp(task, resource))
	}

	for updates := range simulator.subscribers {
		select {
		case updates <- update:
		default:
			// Slow subscriber; it catches up from later cumulative
			// counters.
		}
	}
}

// advanceTask evolves one task's cumulative counters by a tick. Task 1
// is the designated self-waker so the TUI's warning path has
// something to show.
func (simulator *simulator) advanceTask(task *wire.TaskRecord, interval time.Duration) {
	polls := uint64(1 + simulator.random.IntN(12))
	task.Polls += polls

	busyShare := simulator.random.Float64() * 0.6
	task.Busy += time.Duration(busyShare * float64(interval))
	task.Scheduled += time.Duration(simulator.random.Float64() * 0.1 * float64(interval))

	wakes := polls / 2
	task.Wakes += wakes
	if task.ID == 1 {
		task.SelfWakes += wakes
	} else if wakes > 0 {
		task.SelfWakes += uint64(simulator.random.IntN(int(wakes + 1))) / 2
	}

	if simulator.random.IntN(3) == 0 {
		if task.State == wire.TaskRunning {
			task.State = wire.TaskIdle
		} else {
			task.State = wire.TaskRunning
		}
	}
}

func (simulator *simulator) randomTaskID() wire.TaskID {
	for id := range simulator.tasks {
		return id
	}
	return 0
}
