package runsvc

import (
	"log/slog"

	"github.com/ysingh7/lava/internal/chanio"
	"github.com/ysingh7/lava/pkg/token"
)

// Phased drives a fixed set of workers through one SPK phase per step, with
// PRE_MGMT, LRN and POST_MGMT phases inserted when a worker requests them and
// a HOST phase after the last step of each run, the Loihi-style protocol
// described in SPEC_FULL.md section 4.6.
type Phased struct {
	Base

	currentPhase token.Word
	reqPreMgmt   bool
	reqPostMgmt  bool
	reqLrn       bool
	reqPause     bool
	reqStop      bool
}

// NewPhased constructs a Phased driver over base.
func NewPhased(base Base) *Phased {
	return &Phased{Base: base, currentPhase: token.PhaseHost}
}

// Start arms every port then runs the driver loop until STOP or the
// controller-facing channel closes.
func (d *Phased) Start() {
	d.arm()
	d.run()
}

func (d *Phased) run() {
	sel := chanio.NewSelector()
	for {
		_, err := sel.Select([]chanio.SelectCase{{Port: d.FromController, Tag: "cmd"}})
		if err != nil {
			return
		}
		cmd, err := d.FromController.Recv()
		if err != nil {
			return
		}

		switch cmd {
		case token.CmdStop:
			d.handleStop()
			return
		case token.CmdPause:
			d.handlePause()
		case token.CmdGetData:
			d.handleGetSet(token.CmdGetData)
		case token.CmdSetData:
			d.handleGetSet(token.CmdSetData)
		default:
			if d.runSteps(cmd) {
				return
			}
		}
	}
}

// nextPhase decides the next phase token given whether this is the last
// step of the current run. STOP wins over PAUSE when both are latched
// simultaneously; every other precedence matches the Loihi driver.
func (d *Phased) nextPhase(isLastStep bool) token.Word {
	switch {
	case d.reqPreMgmt:
		d.reqPreMgmt = false
		return token.PhasePreMgmt
	case d.reqPostMgmt:
		d.reqPostMgmt = false
		return token.PhasePostMgmt
	case d.reqLrn:
		d.reqLrn = false
		return token.PhaseLrn
	case d.reqStop && d.reqPause:
		d.reqStop, d.reqPause = false, false
		return token.CmdStop
	case d.reqPause:
		d.reqPause = false
		return token.CmdPause
	case d.reqStop:
		d.reqStop = false
		return token.CmdStop
	case isLastStep:
		return token.PhaseHost
	default:
		return token.PhaseSPK
	}
}

// runSteps drives one RUN command to completion. It returns true if the
// driver must stop serving entirely (a controller STOP was honored, or a
// worker reported an error).
func (d *Phased) runSteps(stepCount token.Word) (terminated bool) {
	currStep := int64(0)
	d.currentPhase = token.PhaseHost
	paused := false

	for {
		isLast := currStep == int64(stepCount)
		d.currentPhase = d.nextPhase(isLast)

		if d.currentPhase == token.CmdStop {
			_ = d.ToController.Send(token.RespReqStop)
			return false
		}
		if d.currentPhase == token.CmdPause {
			_ = d.ToController.Send(token.RespReqPause)
			return false
		}
		if d.currentPhase == token.PhaseSPK {
			currStep++
		}

		d.notePhaseMetric(d.currentPhase)
		d.sendToWorkers(d.currentPhase)

		if d.currentPhase != token.PhaseHost {
			if d.collectWorkerResponses() {
				_ = d.ToController.Send(token.RespError)
				d.sendToWorkers(token.CmdStop)
				return true
			}
		}

		if d.FromController.Probe() {
			next, _ := d.FromController.Peek()
			if next == token.CmdStop {
				_, _ = d.FromController.Recv()
				d.handleStop()
				return true
			}
			if next == token.CmdPause {
				_, _ = d.FromController.Recv()
				d.handlePause()
				paused = true
				break
			}
		}

		if d.currentPhase == token.PhaseHost {
			break
		}
	}

	if paused {
		return false
	}
	if d.Metrics != nil {
		d.Metrics.RecordStepCompleted()
	}
	_ = d.ToController.Send(token.RespDone)
	return false
}

func (d *Phased) notePhaseMetric(phase token.Word) {
	if d.Metrics == nil {
		return
	}
	names := map[token.Word]string{
		token.PhaseSPK:      "spk",
		token.PhasePreMgmt:  "pre_mgmt",
		token.PhaseLrn:      "lrn",
		token.PhasePostMgmt: "post_mgmt",
		token.PhaseHost:     "host",
	}
	if name, ok := names[phase]; ok {
		d.Metrics.RecordPhase(name)
	}
}

// collectWorkerResponses waits for exactly one response from every worker,
// in fixed order (the phased protocol does not need fairness: every worker
// must answer before the cycle can advance). It returns true if any worker
// reported an error.
func (d *Phased) collectWorkerResponses() (errored bool) {
	for _, p := range d.FromWorkers {
		resp, err := p.Recv()
		if err != nil {
			errored = true
			continue
		}
		switch resp {
		case token.PMReqPreLrnMgmt:
			d.reqPreMgmt = true
		case token.PMReqPostLrnMgmt:
			d.reqPostMgmt = true
		case token.PMReqLearning:
			d.reqLrn = true
		case token.PMReqPause:
			d.reqPause = true
		case token.PMReqStop:
			d.reqStop = true
		case token.PMStatusError:
			errored = true
		}
	}
	return errored
}

func (d *Phased) handlePause() {
	d.sendToWorkers(token.CmdPause)
	for _, p := range d.FromWorkers {
		resp, err := p.Recv()
		if err != nil || resp != token.PMStatusPaused {
			d.log().Error("unexpected reply to PAUSE", "resp", resp, "err", err)
		}
	}
	_ = d.ToController.Send(token.RespPaused)
}

func (d *Phased) handleStop() {
	d.sendToWorkers(token.CmdStop)
	for _, p := range d.FromWorkers {
		resp, err := p.Recv()
		if err != nil || resp != token.PMStatusTerminated {
			d.log().Error("unexpected reply to STOP", "resp", resp, "err", err)
		}
	}
	_ = d.ToController.Send(token.RespTerminated)
	d.join()
}

// handleGetSet relays a Get/SetVar request, addressed by worker id, to the
// right worker and streams its reply (if any) back upstream. It is only
// reachable while the driver is idle between RUN commands, which is also
// the only time GET/SET are legal per the process-model contract.
func (d *Phased) handleGetSet(cmd token.Word) {
	workerID, err := d.FromController.Recv()
	if err != nil {
		return
	}
	varID, err := d.FromController.Recv()
	if err != nil {
		return
	}
	idx, ok := d.workerIndex(int(workerID))
	if !ok {
		d.log().Error("get/set addressed unknown worker", "worker", workerID)
		return
	}
	if d.Metrics != nil {
		d.Metrics.RecordGetSet()
	}

	toWorker := d.ToWorkers[idx]
	fromWorker := d.FromWorkers[idx]

	_ = toWorker.Send(cmd)
	_ = toWorker.Send(varID)

	if cmd == token.CmdGetData {
		n, err := fromWorker.Recv()
		if err != nil {
			return
		}
		_ = d.ToController.Send(n)
		for i := token.Word(0); i < n; i++ {
			w, err := fromWorker.Recv()
			if err != nil {
				return
			}
			_ = d.ToController.Send(w)
		}
		return
	}

	// SET_DATA: relay item count then payload, no reply expected.
	n, err := d.FromController.Recv()
	if err != nil {
		return
	}
	_ = toWorker.Send(n)
	for i := token.Word(0); i < n; i++ {
		w, err := d.FromController.Recv()
		if err != nil {
			return
		}
		_ = toWorker.Send(w)
	}
}

func (d *Phased) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
