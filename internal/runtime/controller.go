// Package runtime implements the top-level controller the rest of this
// module's callers (the CLI, the admin RPC surface, tests) drive: it wires
// a compiled Executable into actors and channels, and exposes the
// Initialize/Start/Pause/Stop/Wait/GetVar/SetVar lifecycle described in
// SPEC_FULL.md section 4.4, grounded on the teacher's controller.go
// initialized/started/running/reqPaused/reqStop flag machine.
package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ysingh7/lava/internal/chanio"
	"github.com/ysingh7/lava/internal/executable"
	"github.com/ysingh7/lava/internal/messaging"
	"github.com/ysingh7/lava/internal/procmodel"
	"github.com/ysingh7/lava/internal/runsvc"
	"github.com/ysingh7/lava/internal/runtimemetrics"
	"github.com/ysingh7/lava/pkg/token"
)

const defaultChannelCapacity = 8

// Controller is the runtime's single entry point: one per compiled
// Executable, never restarted once stopped.
type Controller struct {
	mu  sync.Mutex
	exe *executable.Executable

	infra *messaging.Infrastructure

	runtimeToService map[int]*chanio.SendPort
	serviceToRuntime map[int]*chanio.RecvPort
	serviceOrder     []int
	serviceProtocol  map[int]executable.Protocol

	initialized bool
	started     bool
	running     bool
	reqPaused   bool
	reqStop     bool
	errored     bool

	logger  *slog.Logger
	metrics *runtimemetrics.Collector
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics attaches a runtimemetrics.Collector; every runtime service
// actor records through it.
func WithMetrics(m *runtimemetrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController builds a Controller for exe. It does not spawn anything
// until Initialize is called.
func NewController(exe *executable.Executable, opts ...Option) *Controller {
	c := &Controller{
		exe:    exe,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "runtime")
	return c
}

// Initialize validates exe, spawns every worker and runtime-service actor,
// and arms the controller-facing channels. It must be called exactly once
// before Start.
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return fmt.Errorf("%w: Initialize called twice", ErrUsage)
	}
	if len(c.exe.NodeConfigs) != 1 || !c.exe.NodeConfigs[0].HeadNode {
		return fmt.Errorf("%w: exactly one head NodeConfig is required", ErrConfiguration)
	}
	if len(c.exe.ServiceBuilders) == 0 {
		return fmt.Errorf("%w: no runtime services in executable", ErrConfiguration)
	}

	c.infra = messaging.New(c.metrics)
	if err := c.infra.Start(); err != nil {
		return fmt.Errorf("starting messaging infrastructure: %w", err)
	}

	serviceSendToWorkers := map[int]map[int]*chanio.SendPort{}
	serviceRecvFromWorkers := map[int]map[int]*chanio.RecvPort{}
	workerRecvFromService := map[int]*chanio.RecvPort{}
	workerSendToService := map[int]*chanio.SendPort{}
	runtimeToService := map[int]*chanio.SendPort{}
	serviceToRuntime := map[int]*chanio.RecvPort{}
	serviceRecvFromController := map[int]*chanio.RecvPort{}
	serviceSendToController := map[int]*chanio.SendPort{}

	for _, scb := range c.exe.SyncChannelBuilders {
		capacity := scb.Capacity
		if capacity == 0 {
			capacity = defaultChannelCapacity
		}
		send, recv := chanio.NewChannel(scb.Name, capacity)
		switch scb.Kind {
		case executable.SyncRuntimeToService:
			runtimeToService[scb.ServiceID] = send
			serviceRecvFromController[scb.ServiceID] = recv
		case executable.SyncServiceToRuntime:
			serviceSendToController[scb.ServiceID] = send
			serviceToRuntime[scb.ServiceID] = recv
		case executable.SyncServiceToWorker:
			if serviceSendToWorkers[scb.ServiceID] == nil {
				serviceSendToWorkers[scb.ServiceID] = map[int]*chanio.SendPort{}
			}
			serviceSendToWorkers[scb.ServiceID][scb.WorkerID] = send
			workerRecvFromService[scb.WorkerID] = recv
		case executable.SyncWorkerToService:
			workerSendToService[scb.WorkerID] = send
			if serviceRecvFromWorkers[scb.ServiceID] == nil {
				serviceRecvFromWorkers[scb.ServiceID] = map[int]*chanio.RecvPort{}
			}
			serviceRecvFromWorkers[scb.ServiceID][scb.WorkerID] = recv
		}
	}

	peerOut := map[int]map[string]*chanio.SendPort{}
	peerIn := map[int]map[string]*chanio.RecvPort{}
	for _, cb := range c.exe.ChannelBuilders {
		capacity := cb.Capacity
		if capacity == 0 {
			capacity = defaultChannelCapacity
		}
		send, recv := chanio.NewChannel(cb.Name, capacity)
		if peerOut[cb.SrcWorkerID] == nil {
			peerOut[cb.SrcWorkerID] = map[string]*chanio.SendPort{}
		}
		peerOut[cb.SrcWorkerID][cb.Name] = send
		if peerIn[cb.DstWorkerID] == nil {
			peerIn[cb.DstWorkerID] = map[string]*chanio.RecvPort{}
		}
		peerIn[cb.DstWorkerID][cb.Name] = recv
	}

	for _, flavorMap := range c.exe.WorkerBuilders {
		for id, wb := range flavorMap {
			wb := wb
			ports := &procmodel.Ports{
				FromService: workerRecvFromService[wb.ID],
				ToService:   workerSendToService[wb.ID],
				PeersOut:    peerOut[wb.ID],
				PeersIn:     peerIn[wb.ID],
			}
			if ports.FromService == nil || ports.ToService == nil {
				return fmt.Errorf("%w: worker %d missing a service channel pair", ErrConfiguration, id)
			}
			worker := wb.New()
			label := fmt.Sprintf("worker-%d", id)
			c.infra.BuildActor(label, func() { worker.Run(ports) })
		}
	}

	serviceProtocol := map[int]executable.Protocol{}
	var serviceOrder []int
	for sid, sb := range c.exe.ServiceBuilders {
		sb := sb
		serviceOrder = append(serviceOrder, sid)
		serviceProtocol[sid] = sb.Protocol

		base := runsvc.Base{
			ID:             sid,
			FromController: serviceRecvFromController[sid],
			ToController:   serviceSendToController[sid],
			Logger:         c.logger,
			Metrics:        c.metrics,
		}
		if base.FromController == nil || base.ToController == nil {
			return fmt.Errorf("%w: service %d missing a controller channel pair", ErrConfiguration, sid)
		}
		for _, wid := range sb.WorkerIDs {
			toW := serviceSendToWorkers[sid][wid]
			fromW := serviceRecvFromWorkers[sid][wid]
			if toW == nil || fromW == nil {
				return fmt.Errorf("%w: service %d missing channel pair to worker %d", ErrConfiguration, sid, wid)
			}
			base.ToWorkers = append(base.ToWorkers, toW)
			base.FromWorkers = append(base.FromWorkers, fromW)
			base.WorkerIDs = append(base.WorkerIDs, wid)
		}

		var driver runsvc.Driver
		switch sb.Protocol {
		case executable.ProtocolPhased:
			driver = runsvc.NewPhased(base)
		case executable.ProtocolAsync:
			driver = runsvc.NewAsync(base)
		default:
			return fmt.Errorf("%w: service %d has unknown protocol %v", ErrConfiguration, sid, sb.Protocol)
		}
		label := fmt.Sprintf("service-%d", sid)
		c.infra.BuildActor(label, driver.Start)
	}
	sort.Ints(serviceOrder)

	for _, sid := range serviceOrder {
		runtimeToService[sid].Start()
		serviceToRuntime[sid].Start()
	}

	c.runtimeToService = runtimeToService
	c.serviceToRuntime = serviceToRuntime
	c.serviceOrder = serviceOrder
	c.serviceProtocol = serviceProtocol
	c.initialized = true

	if c.metrics != nil {
		c.metrics.SetActiveWorkers(len(c.infra.Actors()) - len(serviceOrder))
	}

	return nil
}

// Status reports the controller's current lifecycle flags, for an admin
// surface to expose without reaching into internal state.
func (c *Controller) Status() (initialized, started, running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized, c.started, c.running
}

// Start issues rc to every runtime service. For a blocking, stepped
// condition it does not return until the run completes (or is paused/
// stopped mid-flight); otherwise it returns immediately and the caller
// must eventually call Wait.
func (c *Controller) Start(rc RunCondition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}
	if c.running {
		return fmt.Errorf("%w: a run is already in progress", ErrUsage)
	}

	c.started = true
	c.running = true
	steps := rc.stepWord()
	for _, sid := range c.serviceOrder {
		if err := c.runtimeToService[sid].Send(steps); err != nil {
			return fmt.Errorf("sending run condition to service %d: %w", sid, err)
		}
	}

	if rc.continuous || !rc.blocking {
		return nil
	}
	return c.waitLocked()
}

// Wait blocks until the in-flight run completes, folding in an automatic
// Pause or Stop if any runtime service requested one.
func (c *Controller) Wait() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitLocked()
}

func (c *Controller) waitLocked() error {
	if !c.running {
		return nil
	}

	var errCount int
	for _, sid := range c.serviceOrder {
		resp, err := c.serviceToRuntime[sid].Recv()
		if err != nil {
			return fmt.Errorf("%w: waiting on service %d: %v", ErrProtocol, sid, err)
		}
		switch resp {
		case token.RespReqPause:
			c.reqPaused = true
		case token.RespReqStop:
			c.reqStop = true
		case token.RespDone:
		case token.RespError:
			c.errored = true
			errCount++
		default:
			return fmt.Errorf("%w: service %d sent unexpected response %v", ErrProtocol, sid, resp)
		}
	}

	c.running = false

	switch {
	case c.reqPaused:
		c.reqPaused = false
		return c.pauseLocked()
	case c.reqStop:
		c.reqStop = false
		return c.stopLocked()
	case c.errored:
		return fmt.Errorf("runtime: %d service(s) reported an error", errCount)
	}
	return nil
}

// Pause requests every runtime service pause at its next safe point and
// waits for acknowledgement.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseLocked()
}

func (c *Controller) pauseLocked() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if !c.running {
		return nil
	}
	for _, sid := range c.serviceOrder {
		if err := c.runtimeToService[sid].Send(token.CmdPause); err != nil {
			return err
		}
	}
	for _, sid := range c.serviceOrder {
		resp, err := c.serviceToRuntime[sid].Recv()
		if err != nil {
			return fmt.Errorf("%w: pausing service %d: %v", ErrProtocol, sid, err)
		}
		if resp != token.RespPaused {
			return fmt.Errorf("%w: service %d replied %v to PAUSE", ErrProtocol, sid, resp)
		}
	}
	c.running = false
	if c.metrics != nil {
		c.metrics.RecordPause()
	}
	return nil
}

// Stop tears down every runtime service and worker and joins all actors.
// A Controller is not usable after Stop returns. If Start has never been
// called, Stop returns nil without sending STOP or stopping the messaging
// infrastructure, so the actors spawned by Initialize keep running.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	if !c.started {
		return nil
	}
	defer func() {
		if c.infra != nil {
			_ = c.infra.Stop()
		}
		c.started = false
		c.running = false
	}()

	var protoErr error
	for _, sid := range c.serviceOrder {
		if err := c.runtimeToService[sid].Send(token.CmdStop); err != nil {
			protoErr = err
		}
	}
	for _, sid := range c.serviceOrder {
		resp, err := c.serviceToRuntime[sid].Recv()
		if err != nil {
			protoErr = err
			continue
		}
		if resp != token.RespTerminated {
			protoErr = fmt.Errorf("%w: service %d replied %v to STOP", ErrProtocol, sid, resp)
		}
	}
	for _, sid := range c.serviceOrder {
		c.runtimeToService[sid].Join()
		c.serviceToRuntime[sid].Join()
	}
	if c.metrics != nil {
		c.metrics.RecordStop()
	}
	return protoErr
}

// Close stops the runtime if it is still started; it is safe to call
// unconditionally from a defer, the Go idiom standing in for Python's
// destructor-triggers-stop pattern.
func (c *Controller) Close() error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}
	return c.Stop()
}

// GetVar reads the current value of the variable identified by varID. If
// idx is non-nil it selects a flat subset of the variable's elements;
// otherwise the whole variable is returned.
func (c *Controller) GetVar(varID int, idx []int) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if !c.started {
		return nil, fmt.Errorf("%w: GetVar before Start()", ErrNotStarted)
	}
	ev, ok := c.exe.LookupVar(varID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown var id %d", ErrUsage, varID)
	}
	if c.serviceProtocol[ev.ServiceID] == executable.ProtocolAsync {
		return nil, fmt.Errorf("%w: GetVar is unsupported on an async service", ErrUsage)
	}

	send := c.runtimeToService[ev.ServiceID]
	recv := c.serviceToRuntime[ev.ServiceID]

	if err := sendAll(send, token.CmdGetData, token.Word(ev.WorkerID), token.Word(varID)); err != nil {
		return nil, err
	}
	n, err := recv.Recv()
	if err != nil {
		return nil, fmt.Errorf("%w: reading GetVar item count: %v", ErrProtocol, err)
	}
	out := make([]float64, 0, n)
	for i := token.Word(0); i < n; i++ {
		w, err := recv.Recv()
		if err != nil {
			return nil, fmt.Errorf("%w: reading GetVar item %d: %v", ErrProtocol, i, err)
		}
		out = append(out, token.WordToFloat64(w))
	}
	return selectIndices(out, idx), nil
}

// SetVar writes data into the variable identified by varID. SET_DATA is
// fire-and-forget: the runtime does not wait for the worker to apply it.
func (c *Controller) SetVar(varID int, data []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}
	if !c.started {
		return fmt.Errorf("%w: SetVar before Start()", ErrNotStarted)
	}
	ev, ok := c.exe.LookupVar(varID)
	if !ok {
		return fmt.Errorf("%w: unknown var id %d", ErrUsage, varID)
	}
	if c.serviceProtocol[ev.ServiceID] == executable.ProtocolAsync {
		return fmt.Errorf("%w: SetVar is unsupported on an async service", ErrUsage)
	}

	send := c.runtimeToService[ev.ServiceID]
	if err := sendAll(send, token.CmdSetData, token.Word(ev.WorkerID), token.Word(varID), token.Word(len(data))); err != nil {
		return err
	}
	for _, f := range data {
		if err := send.Send(token.Float64ToWord(f)); err != nil {
			return err
		}
	}
	return nil
}

func sendAll(p *chanio.SendPort, words ...token.Word) error {
	for _, w := range words {
		if err := p.Send(w); err != nil {
			return err
		}
	}
	return nil
}

func selectIndices(data []float64, idx []int) []float64 {
	if idx == nil {
		return data
	}
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = data[j]
	}
	return out
}
