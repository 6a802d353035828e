package observability_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/observability"
)

func TestRecorder_CountsRunsAndConstraints(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	recorder := observability.NewRecorder(registry)

	recorder.ObserveRun("success")
	recorder.ObserveRun("error")
	recorder.ObserveConstraint("failure")
	recorder.ObserveQuery(nil, 5*time.Millisecond)
	recorder.ObserveQuery(errors.New("boom"), time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}

	for _, family := range families {
		var total float64
		for _, m := range family.GetMetric() {
			if m.GetCounter() != nil {
				total += m.GetCounter().GetValue()
			}
		}

		byName[family.GetName()] = total
	}

	assert.InDelta(t, 2.0, byName["veridata_runs_total"], 1e-9)
	assert.InDelta(t, 1.0, byName["veridata_constraint_outcomes_total"], 1e-9)
	assert.InDelta(t, 2.0, byName["veridata_backend_queries_total"], 1e-9)
}

func TestRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	var recorder *observability.Recorder

	assert.NotPanics(t, func() {
		recorder.ObserveRun("success")
		recorder.ObserveConstraint("success")
		recorder.ObserveQuery(nil, time.Millisecond)
	})
}
