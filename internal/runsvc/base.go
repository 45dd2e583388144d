// Package runsvc implements the two runtime-service drivers that sit
// between the controller and a pool of worker actors: Phased (the
// Loihi-style SPK/management cycle) and Async (a looser run/respond loop).
// Both are single-goroutine cooperative loops built on chanio.Selector, the
// same shape the teacher's worker pool used for a single dispatch loop per
// goroutine.
package runsvc

import (
	"log/slog"

	"github.com/ysingh7/lava/internal/chanio"
	"github.com/ysingh7/lava/internal/runtimemetrics"
	"github.com/ysingh7/lava/pkg/token"
)

// Driver is implemented by Phased and Async; the controller spawns
// whichever one a ServiceBuilder's Protocol names.
type Driver interface {
	Start()
}

// Base holds the wiring common to both drivers: the controller-facing pair
// and the per-worker fan-out/fan-in pairs, in a fixed deterministic order.
// WorkerIDs holds the global process id owning ToWorkers[i]/FromWorkers[i];
// a worker's global id is not in general its position in these slices (a
// service's worker ids need not be contiguous or zero-based), so lookups by
// id must go through workerIndex rather than indexing directly.
type Base struct {
	ID             int
	FromController *chanio.RecvPort
	ToController   *chanio.SendPort
	ToWorkers      []*chanio.SendPort
	FromWorkers    []*chanio.RecvPort
	WorkerIDs      []int

	Logger  *slog.Logger
	Metrics *runtimemetrics.Collector
}

func (b *Base) arm() {
	b.FromController.Start()
	b.ToController.Start()
	for _, p := range b.ToWorkers {
		p.Start()
	}
	for _, p := range b.FromWorkers {
		p.Start()
	}
}

func (b *Base) sendToWorkers(w token.Word) {
	for _, p := range b.ToWorkers {
		_ = p.Send(w)
	}
}

// workerIndex returns the slice position of the worker with the given
// global process id, mirroring the original's
// `self.model_ids.index(model_id)` lookup in
// `_relay_to_runtime_data_given_model_id`/`_send_pm_req_given_model_id`.
func (b *Base) workerIndex(workerID int) (int, bool) {
	for i, id := range b.WorkerIDs {
		if id == workerID {
			return i, true
		}
	}
	return 0, false
}

func (b *Base) join() {
	b.FromController.Join()
	b.ToController.Join()
	for _, p := range b.ToWorkers {
		p.Join()
	}
	for _, p := range b.FromWorkers {
		p.Join()
	}
}
