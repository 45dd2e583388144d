// Package executable holds the data model a compiled network is reduced to
// before the runtime controller wires it up: node configs, the three worker
// flavors, runtime-service builders, and the channel/sync-channel builders
// that describe every edge the controller must materialize. Producing an
// Executable (the compiler's job) is out of scope here; this package only
// describes the shape the controller consumes.
package executable

import (
	"fmt"

	"github.com/ysingh7/lava/internal/procmodel"
)

// Flavor distinguishes the three ways a worker's Run loop can be realized.
// Only FlavorHostInterpreted is implemented by the reference worker in this
// repository; the other two are retained so the data model matches what a
// real compiler would emit.
type Flavor int

const (
	FlavorHostInterpreted Flavor = iota
	FlavorNative
	FlavorAccelerator
)

func (f Flavor) String() string {
	switch f {
	case FlavorHostInterpreted:
		return "host-interpreted"
	case FlavorNative:
		return "native"
	case FlavorAccelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("flavor(%d)", int(f))
	}
}

// Protocol selects which runtime-service driver a ServiceBuilder spawns.
type Protocol int

const (
	ProtocolPhased Protocol = iota
	ProtocolAsync
)

// Shape is a tensor shape; Size is the flattened element count.
type Shape []int

// Size returns the product of the shape's dimensions, or 1 for a scalar
// (empty) shape.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// VarDescriptor locates one exposed variable: which worker owns it, which
// service fronts that worker, and its shape for reshaping Get/Set payloads.
type VarDescriptor struct {
	ID        int
	Name      string
	Shape     Shape
	WorkerID  int
	ServiceID int
}

// NodeConfig is one partition of the compiled network. This runtime only
// ever executes a single head node; NodeConfigs therefore always has length
// 1 with HeadNode set, but the field survives so the shape matches a
// multi-node compiled network.
type NodeConfig struct {
	HeadNode bool
	ExecVars []VarDescriptor
}

// WorkerBuilder captures enough information to spawn one worker actor: its
// runtime service affiliation and a factory that produces the Worker once
// its ports are wired.
type WorkerBuilder struct {
	ID        int
	ServiceID int
	Vars      []VarDescriptor
	New       func() procmodel.Worker
}

// ServiceBuilder describes one runtime service instance and the workers it
// fronts.
type ServiceBuilder struct {
	ID        int
	Protocol  Protocol
	WorkerIDs []int
}

// ChannelBuilder describes a worker-to-worker data edge. The reference
// worker in this repository does not yet exchange data with peers, but the
// wiring is still materialized by the controller so the data model matches
// a real compiled network.
type ChannelBuilder struct {
	Name        string
	SrcWorkerID int
	DstWorkerID int
	Capacity    int
}

// SyncChannelKind classifies a SyncChannelBuilder by which pair of
// endpoints it joins.
type SyncChannelKind int

const (
	SyncRuntimeToService SyncChannelKind = iota
	SyncServiceToRuntime
	SyncServiceToWorker
	SyncWorkerToService
)

// SyncChannelBuilder describes one control-plane edge: controller<->service
// or service<->worker. ServiceID is always meaningful; WorkerID only for
// the service<->worker kinds.
type SyncChannelBuilder struct {
	Name      string
	Kind      SyncChannelKind
	ServiceID int
	WorkerID  int
	Capacity  int
}

// Executable is the complete compiled-network description the runtime
// controller wires up in Initialize.
type Executable struct {
	NodeConfigs         []NodeConfig
	WorkerBuilders      map[Flavor]map[int]*WorkerBuilder
	ServiceBuilders     map[int]*ServiceBuilder
	ChannelBuilders     []ChannelBuilder
	SyncChannelBuilders []SyncChannelBuilder
}

// LookupVar scans every NodeConfig for the variable with the given id.
func (e *Executable) LookupVar(id int) (VarDescriptor, bool) {
	for _, nc := range e.NodeConfigs {
		for _, v := range nc.ExecVars {
			if v.ID == id {
				return v, true
			}
		}
	}
	return VarDescriptor{}, false
}

// WorkerBuilderByID returns the builder for workerID across all flavors.
func (e *Executable) WorkerBuilderByID(workerID int) (*WorkerBuilder, bool) {
	for _, flavorMap := range e.WorkerBuilders {
		if wb, ok := flavorMap[workerID]; ok {
			return wb, true
		}
	}
	return nil, false
}
