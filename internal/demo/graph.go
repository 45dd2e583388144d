// Package demo assembles a small compiled Executable by hand, standing in
// for the compiler step this repository does not implement. It is used by
// the CLI, the admin RPC surface, and the test suite to exercise the
// runtime controller end to end without a real network description
// language.
package demo

import (
	"log/slog"

	"github.com/ysingh7/lava/internal/executable"
	"github.com/ysingh7/lava/internal/procmodel"
	"github.com/ysingh7/lava/pkg/token"
)

// Config describes the shape of the demo network to assemble.
type Config struct {
	// Workers is how many reference workers the single runtime service
	// fronts.
	Workers int
	// Protocol selects the phased or async driver for the one service.
	Protocol executable.Protocol
	// VarSize is the element count of the single exported variable on
	// each worker.
	VarSize int
	// OnPhase, if set, overrides every worker's phase callback. Tests use
	// this to exercise PMReq* escalation paths that the default
	// increment-on-SPK behavior never triggers.
	OnPhase procmodel.UpdateFunc
}

// DefaultConfig returns a small two-worker phased network, enough to
// exercise pause/stop/get/set without being trivial.
func DefaultConfig() Config {
	return Config{Workers: 2, Protocol: executable.ProtocolPhased, VarSize: 4}
}

// Build assembles cfg into an Executable. Every worker increments its
// exported variable's first element by one on every SPK phase, a minimal
// stand-in for a real process's spike update.
func Build(cfg Config, logger *slog.Logger) *executable.Executable {
	if logger == nil {
		logger = slog.Default()
	}

	const serviceID = 0
	var execVars []executable.VarDescriptor
	workerBuilders := map[int]*executable.WorkerBuilder{}
	var syncChannels []executable.SyncChannelBuilder
	var workerIDs []int

	syncChannels = append(syncChannels,
		executable.SyncChannelBuilder{
			Name: executable.KindName(executable.SyncRuntimeToService, serviceID, 0),
			Kind: executable.SyncRuntimeToService, ServiceID: serviceID,
		},
		executable.SyncChannelBuilder{
			Name: executable.KindName(executable.SyncServiceToRuntime, serviceID, 0),
			Kind: executable.SyncServiceToRuntime, ServiceID: serviceID,
		},
	)

	for wid := 0; wid < cfg.Workers; wid++ {
		varID := wid + 1
		desc := executable.VarDescriptor{
			ID: varID, Name: "count", Shape: executable.Shape{cfg.VarSize},
			WorkerID: wid, ServiceID: serviceID,
		}
		execVars = append(execVars, desc)
		workerIDs = append(workerIDs, wid)

		wid := wid
		workerBuilders[wid] = &executable.WorkerBuilder{
			ID: wid, ServiceID: serviceID, Vars: []executable.VarDescriptor{desc},
			New: func() procmodel.Worker {
				vars := procmodel.NewVarStore([]executable.VarDescriptor{desc})
				onPhase := cfg.OnPhase
				if onPhase == nil {
					onPhase = func(phase token.Word, vs *procmodel.VarStore) token.Word {
						if phase != token.PhaseSPK {
							return 0
						}
						v := vs.Get(varID)
						v.Data[0]++
						return 0
					}
				}
				return procmodel.NewReference(wid, vars, onPhase, logger)
			},
		}

		syncChannels = append(syncChannels,
			executable.SyncChannelBuilder{
				Name: executable.KindName(executable.SyncServiceToWorker, serviceID, wid),
				Kind: executable.SyncServiceToWorker, ServiceID: serviceID, WorkerID: wid,
			},
			executable.SyncChannelBuilder{
				Name: executable.KindName(executable.SyncWorkerToService, serviceID, wid),
				Kind: executable.SyncWorkerToService, ServiceID: serviceID, WorkerID: wid,
			},
		)
	}

	return &executable.Executable{
		NodeConfigs: []executable.NodeConfig{{HeadNode: true, ExecVars: execVars}},
		WorkerBuilders: map[executable.Flavor]map[int]*executable.WorkerBuilder{
			executable.FlavorHostInterpreted: workerBuilders,
		},
		ServiceBuilders: map[int]*executable.ServiceBuilder{
			serviceID: {ID: serviceID, Protocol: cfg.Protocol, WorkerIDs: workerIDs},
		},
		SyncChannelBuilders: syncChannels,
	}
}
