// Package procmodel defines the contract every worker actor must honor on
// its service-facing channel pair, and ships one conforming implementation
// (Reference) that the demo network and the test suite build on.
package procmodel

import "github.com/ysingh7/lava/internal/chanio"

// Ports are the channels wired to one worker by the runtime controller.
// FromService/ToService carry the mandatory command/response protocol;
// PeersOut/PeersIn carry worker-to-worker data edges, present for data-model
// fidelity even though Reference does not yet use them.
type Ports struct {
	FromService *chanio.RecvPort
	ToService   *chanio.SendPort
	PeersOut    map[string]*chanio.SendPort
	PeersIn     map[string]*chanio.RecvPort
}

// Worker is the contract SPEC_FULL.md section 4.8 imposes on anything the
// controller can spawn as a worker actor: after Start, it must consume one
// command/phase token at a time from FromService and emit exactly one
// response per non-HOST phase, honoring STOP (-> PMStatusTerminated and
// return), PAUSE (-> PMStatusPaused, keep running), and GET_DATA/SET_DATA
// (serviced only while idle at the HOST phase).
type Worker interface {
	Run(ports *Ports)
}
