// Package messaging provides the actor-spawning substrate the runtime
// controller uses to bring up workers and runtime services: one goroutine
// per actor, a Handle to join it and recover its terminal error, matching
// the lifecycle shape of a worker pool without the task-queue semantics.
package messaging

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/ysingh7/lava/internal/runtimemetrics"
)

// Handle is returned by BuildActor and lets the caller wait for the actor
// to exit and inspect whether it panicked.
type Handle struct {
	label string
	done  chan struct{}

	mu  sync.Mutex
	err error
}

// Join blocks until the actor's goroutine has returned.
func (h *Handle) Join() {
	<-h.done
}

// Err returns the panic captured from the actor, if any. Only meaningful
// after Join has returned.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Label identifies the actor for logging.
func (h *Handle) Label() string { return h.label }

// Infrastructure owns the set of actors spawned for one runtime instance.
// It is not restartable: once Stop has joined every actor, a fresh
// Infrastructure must be created for the next Initialize.
type Infrastructure struct {
	mu      sync.Mutex
	actors  []*Handle
	started bool
	metrics *runtimemetrics.Collector
}

// New returns an empty Infrastructure. metrics may be nil; its Record*
// methods are nil-receiver-safe, matching how the rest of the runtime
// threads an optional Collector through.
func New(metrics *runtimemetrics.Collector) *Infrastructure {
	return &Infrastructure{metrics: metrics}
}

// Start marks the infrastructure as accepting actors. Spec-wise this
// mirrors the controller arming the messaging layer before it starts
// spawning process and service actors.
func (m *Infrastructure) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

// BuildActor spawns entry on its own goroutine under label, recovering any
// panic into the returned Handle instead of crashing the process. This is
// the one place in the runtime that turns an arbitrary worker or service
// panic into an ordinary error value the controller can react to.
func (m *Infrastructure) BuildActor(label string, entry func()) *Handle {
	h := &Handle{label: label, done: make(chan struct{})}

	m.mu.Lock()
	m.actors = append(m.actors, h)
	m.mu.Unlock()

	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				h.mu.Lock()
				h.err = fmt.Errorf("actor %q panicked: %v\n%s", label, r, debug.Stack())
				h.mu.Unlock()
				m.metrics.RecordActorPanic()
			}
		}()
		entry()
	}()

	return h
}

// Actors returns a snapshot of every actor spawned so far.
func (m *Infrastructure) Actors() []*Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Handle, len(m.actors))
	copy(out, m.actors)
	return out
}

// Stop joins every actor. It does not itself ask any actor to exit; the
// caller (the runtime controller) is responsible for sending STOP down
// each actor's command channel before calling Stop, same as closing the
// channels a worker pool's goroutines select on.
func (m *Infrastructure) Stop() error {
	for _, h := range m.Actors() {
		h.Join()
	}
	return nil
}
