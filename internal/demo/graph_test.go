package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysingh7/lava/internal/executable"
)

func TestBuildProducesOneVarPerWorker(t *testing.T) {
	cfg := Config{Workers: 3, Protocol: executable.ProtocolPhased, VarSize: 2}
	exe := Build(cfg, nil)

	require.Len(t, exe.NodeConfigs, 1)
	assert.True(t, exe.NodeConfigs[0].HeadNode)
	assert.Len(t, exe.NodeConfigs[0].ExecVars, 3)

	workers := exe.WorkerBuilders[executable.FlavorHostInterpreted]
	require.Len(t, workers, 3)
	for wid, wb := range workers {
		assert.Equal(t, wid, wb.ID)
		require.Len(t, wb.Vars, 1)
		assert.Equal(t, 2, wb.Vars[0].Shape.Size())
	}

	svc, ok := exe.ServiceBuilders[0]
	require.True(t, ok)
	assert.Equal(t, executable.ProtocolPhased, svc.Protocol)
	assert.ElementsMatch(t, []int{0, 1, 2}, svc.WorkerIDs)
}

func TestBuildWiresSyncChannelsForEveryWorker(t *testing.T) {
	exe := Build(DefaultConfig(), nil)

	var toWorker, fromWorker, toService, fromService int
	for _, scb := range exe.SyncChannelBuilders {
		switch scb.Kind {
		case executable.SyncRuntimeToService:
			toService++
		case executable.SyncServiceToRuntime:
			fromService++
		case executable.SyncServiceToWorker:
			toWorker++
		case executable.SyncWorkerToService:
			fromWorker++
		}
	}

	assert.Equal(t, 1, toService)
	assert.Equal(t, 1, fromService)
	assert.Equal(t, DefaultConfig().Workers, toWorker)
	assert.Equal(t, DefaultConfig().Workers, fromWorker)
}
