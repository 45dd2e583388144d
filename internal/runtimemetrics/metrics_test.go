package runtimemetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	assert.NotNil(t, c.phasesTotal)
	assert.NotNil(t, c.stepsCompleted)
	assert.NotNil(t, c.activeWorkers)
	assert.NotNil(t, c.pendingGetSet)
	assert.NotNil(t, c.pauseTotal)
	assert.NotNil(t, c.stopTotal)
	assert.NotNil(t, c.actorPanicsTotal)

	// A CounterVec with no series is left out of Gather, so record one
	// phase to make all seven metrics visible.
	c.RecordPhase("spk")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)
}

func TestRecordMethodsIncrementCounters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordStepCompleted()
	c.RecordStepCompleted()
	assert.Equal(t, float64(2), counterValue(t, c.stepsCompleted))

	c.RecordPause()
	assert.Equal(t, float64(1), counterValue(t, c.pauseTotal))

	c.RecordStop()
	assert.Equal(t, float64(1), counterValue(t, c.stopTotal))

	c.RecordGetSet()
	assert.Equal(t, float64(1), counterValue(t, c.pendingGetSet))

	c.RecordActorPanic()
	assert.Equal(t, float64(1), counterValue(t, c.actorPanicsTotal))

	c.RecordPhase("spk")
	c.RecordPhase("spk")
	c.RecordPhase("lrn")
	assert.Equal(t, float64(2), counterValue(t, c.phasesTotal.WithLabelValues("spk")))
	assert.Equal(t, float64(1), counterValue(t, c.phasesTotal.WithLabelValues("lrn")))
}

func TestNilCollectorMethodsAreNoOps(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordPhase("spk")
		c.RecordStepCompleted()
		c.SetActiveWorkers(3)
		c.RecordGetSet()
		c.RecordPause()
		c.RecordStop()
		c.RecordActorPanic()
	})
}
