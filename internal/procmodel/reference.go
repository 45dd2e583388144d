package procmodel

import (
	"log/slog"

	"github.com/ysingh7/lava/internal/executable"
	"github.com/ysingh7/lava/pkg/token"
)

// Variable is one piece of process state addressable by GetVar/SetVar.
type Variable struct {
	Shape executable.Shape
	Data  []float64
}

// VarStore is the set of variables one worker exposes, keyed by the
// VarDescriptor.ID the compiled Executable assigned them.
type VarStore struct {
	vars map[int]*Variable
}

// NewVarStore builds a store from a worker's variable descriptors, with
// every element initialized to zero.
func NewVarStore(descs []executable.VarDescriptor) *VarStore {
	vs := &VarStore{vars: make(map[int]*Variable, len(descs))}
	for _, d := range descs {
		vs.vars[d.ID] = &Variable{Shape: d.Shape, Data: make([]float64, d.Shape.Size())}
	}
	return vs
}

// Get returns the variable for id, or nil if unknown.
func (vs *VarStore) Get(id int) *Variable { return vs.vars[id] }

// UpdateFunc runs once per non-HOST phase the worker is driven through. It
// is the process model's actual computation; Reference is otherwise just
// protocol plumbing around whatever UpdateFunc does to vars.
//
// The return value lets the process request a management-phase escalation
// instead of the default PMStatusDone acknowledgement, mirroring how a real
// Lava ProcessModel can ask the runtime service for PRE_LRN_MGMT,
// POST_LRN_MGMT, LRN, PAUSE, or STOP by returning that token from its
// run_spk/run_mgmt hook. Return 0 (the zero Word) to just acknowledge the
// phase normally; any of PMReqPreLrnMgmt, PMReqPostLrnMgmt, PMReqLearning,
// PMReqPause, or PMReqStop requests the matching escalation instead.
type UpdateFunc func(phase token.Word, vars *VarStore) token.Word

// Reference is a worker that fully implements the process-model contract
// itself (it does not delegate phase interpretation to anything else),
// suitable for exercising the runtime service drivers end to end without a
// real compiled process library.
type Reference struct {
	id      int
	vars    *VarStore
	onPhase UpdateFunc
	logger  *slog.Logger
}

// NewReference builds a Reference worker. onPhase may be nil, in which case
// the worker acks every phase without mutating state.
func NewReference(id int, vars *VarStore, onPhase UpdateFunc, logger *slog.Logger) *Reference {
	if onPhase == nil {
		onPhase = func(token.Word, *VarStore) token.Word { return 0 }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reference{id: id, vars: vars, onPhase: onPhase, logger: logger.With("component", "procmodel", "worker", id)}
}

// Run implements Worker.
func (r *Reference) Run(ports *Ports) {
	ports.FromService.Start()
	ports.ToService.Start()

	currentPhase := token.PhaseHost

	for {
		cmd, err := ports.FromService.Recv()
		if err != nil {
			return
		}

		switch cmd {
		case token.CmdStop:
			_ = ports.ToService.Send(token.PMStatusTerminated)
			return

		case token.CmdPause:
			_ = ports.ToService.Send(token.PMStatusPaused)

		case token.CmdGetData:
			r.handleGet(ports, currentPhase)

		case token.CmdSetData:
			r.handleSet(ports, currentPhase)

		default:
			currentPhase = cmd
			if cmd == token.PhaseHost {
				continue
			}
			r.runPhase(ports, cmd)
		}
	}
}

func (r *Reference) runPhase(ports *Ports, phase token.Word) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("phase update panicked", "phase", phase, "recover", rec)
			_ = ports.ToService.Send(token.PMStatusError)
		}
	}()
	resp := r.onPhase(phase, r.vars)
	if resp == 0 {
		resp = token.PMStatusDone
	}
	_ = ports.ToService.Send(resp)
}

// handleGet expects one trailer word (the var id) from the service, then
// replies with an item count followed by that many data words. GET is only
// meaningful while the worker is idle at HOST; outside HOST the trailer is
// still drained so the channel cannot desync, and the reply is an item
// count of zero with no data words.
func (r *Reference) handleGet(ports *Ports, phase token.Word) {
	varID, err := ports.FromService.Recv()
	if err != nil {
		return
	}
	if phase != token.PhaseHost {
		r.logger.Warn("GET_DATA outside HOST phase, dropping", "phase", phase)
		_ = ports.ToService.Send(0)
		return
	}
	v := r.vars.Get(int(varID))
	if v == nil {
		_ = ports.ToService.Send(0)
		return
	}
	_ = ports.ToService.Send(token.Word(len(v.Data)))
	for _, f := range v.Data {
		_ = ports.ToService.Send(token.Float64ToWord(f))
	}
}

// handleSet expects [var id, item count, items...] and writes them into the
// addressed variable, again draining the full trailer even outside HOST so
// the channel stays in sync.
func (r *Reference) handleSet(ports *Ports, phase token.Word) {
	varID, err := ports.FromService.Recv()
	if err != nil {
		return
	}
	n, err := ports.FromService.Recv()
	if err != nil {
		return
	}
	items := make([]float64, 0, n)
	for i := token.Word(0); i < n; i++ {
		w, err := ports.FromService.Recv()
		if err != nil {
			return
		}
		items = append(items, token.WordToFloat64(w))
	}
	if phase != token.PhaseHost {
		r.logger.Warn("SET_DATA outside HOST phase, dropping", "phase", phase)
		return
	}
	v := r.vars.Get(int(varID))
	if v == nil {
		return
	}
	copy(v.Data, items)
}
