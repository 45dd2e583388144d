package runsvc

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ysingh7/lava/internal/chanio"
	"github.com/ysingh7/lava/pkg/token"
)

// Async drives its workers with a single RUN command and lets each run
// freely until it reports back, rather than lock-stepping them through
// named phases. Unlike the phased driver this protocol does not support
// GetVar/SetVar, matching SPEC_FULL.md section 4.7.
//
// The collection loop below is a deliberate departure from a naive
// "block on every worker channel in turn" implementation: it selects
// across the controller channel and every still-pending worker channel
// together, so one slow or silent worker cannot stall the collection of
// responses that have already arrived. A worker that never responds still
// blocks the *cycle* from completing, but no longer blocks the driver from
// reacting to other workers' responses (or to STOP/PAUSE from the
// controller) while it waits.
type Async struct {
	Base

	pending  map[int]bool
	running  bool
	reqPause bool
	reqStop  bool
	errored  bool
}

// NewAsync constructs an Async driver over base.
func NewAsync(base Base) *Async {
	return &Async{Base: base}
}

// Start arms every port then runs the driver loop until STOP.
func (d *Async) Start() {
	d.arm()
	d.run()
}

func (d *Async) run() {
	sel := chanio.NewSelector()
	for {
		cases := []chanio.SelectCase{{Port: d.FromController, Tag: "cmd"}}
		if d.running {
			for i := range d.pending {
				if d.pending[i] {
					cases = append(cases, chanio.SelectCase{Port: d.FromWorkers[i], Tag: "w" + strconv.Itoa(i)})
				}
			}
		}

		tag, err := sel.Select(cases)
		if err != nil {
			return
		}

		if tag == "cmd" {
			if d.handleControllerCmd() {
				return
			}
			continue
		}

		idx, err := strconv.Atoi(strings.TrimPrefix(tag, "w"))
		if err != nil {
			continue
		}
		d.handleWorkerResponse(idx)
	}
}

// handleControllerCmd consumes one controller command. It returns true if
// the driver must stop serving entirely.
func (d *Async) handleControllerCmd() (terminated bool) {
	cmd, err := d.FromController.Recv()
	if err != nil {
		return true
	}
	switch cmd {
	case token.CmdStop:
		d.handleStop()
		return true
	case token.CmdPause:
		_ = d.ToController.Send(token.RespPaused)
	case token.CmdGetData, token.CmdSetData:
		d.log().Warn("GET_DATA/SET_DATA are unsupported on an async service, ignoring")
	default:
		d.sendToWorkers(token.CmdRun)
		d.running = true
		d.pending = make(map[int]bool, len(d.FromWorkers))
		for i := range d.FromWorkers {
			d.pending[i] = true
		}
		d.reqPause, d.reqStop, d.errored = false, false, false
	}
	return false
}

func (d *Async) handleWorkerResponse(idx int) {
	resp, err := d.FromWorkers[idx].Recv()
	if err != nil {
		d.errored = true
	} else {
		switch resp {
		case token.PMReqPause:
			d.reqPause = true
		case token.PMReqStop:
			d.reqStop = true
		case token.PMStatusError:
			d.errored = true
		}
	}
	delete(d.pending, idx)

	if len(d.pending) > 0 {
		return
	}

	d.running = false
	if d.Metrics != nil {
		d.Metrics.RecordStepCompleted()
	}
	switch {
	case d.errored:
		_ = d.ToController.Send(token.RespError)
	case d.reqStop:
		_ = d.ToController.Send(token.RespReqStop)
	case d.reqPause:
		_ = d.ToController.Send(token.RespReqPause)
	default:
		_ = d.ToController.Send(token.RespDone)
	}
}

func (d *Async) handleStop() {
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

func (d *Async) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
