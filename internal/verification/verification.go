// Package verification runs suites of checks against a relation and collects
// the outcome into an immutable result.
//
// The run builder gathers the analyzers required by every check, hands them
// to the analysis runner (which plans the minimal query set), evaluates the
// checks against the computed metrics and freezes everything into a Result.
// A builder can be run repeatedly; every call plans from the same declarative
// inputs and yields an independent result.
package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veridata/veridata/internal/analyzer"
	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/check"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/observability"
	"github.com/veridata/veridata/internal/runner"
	"github.com/veridata/veridata/internal/state"
)

// Result is the frozen outcome of one verification run.
type Result struct {
	// RunID uniquely identifies the run for persistence and logs.
	RunID string

	// Table is the verified relation.
	Table string

	// Status is the worst check outcome of the run.
	Status check.Status

	// Checks holds per-check results in registration order.
	Checks []check.Result

	// StartedAt and FinishedAt bound the run wall-clock time.
	StartedAt  time.Time
	FinishedAt time.Time

	metrics *metric.Table
	states  map[string]state.State
}

// Success reports whether every check passed.
func (r *Result) Success() bool {
	return r.Status == check.StatusSuccess
}

// Metrics returns every metric computed during the run.
func (r *Result) Metrics() *metric.Table {
	return r.metrics
}

// States returns the mergeable analyzer states of the run, keyed by analyzer
// identity, for persistence and incremental recomputation.
func (r *Result) States() map[string]state.State {
	states := make(map[string]state.State, len(r.states))
	for id, st := range r.states {
		states[id] = st
	}

	return states
}

// RunBuilder assembles one verification run.
type RunBuilder struct {
	backend  backend.Backend
	table    string
	checks   []*check.Check
	required []analyzer.Analyzer
	recorder *observability.Recorder
	logger   *slog.Logger
}

// OnTable starts a verification run against one relation of the backend.
func OnTable(be backend.Backend, table string) *RunBuilder {
	return &RunBuilder{
		backend: be,
		table:   table,
		logger:  slog.Default(),
	}
}

// AddCheck registers a check. Checks evaluate in registration order.
func (b *RunBuilder) AddCheck(c *check.Check) *RunBuilder {
	b.checks = append(b.checks, c)

	return b
}

// AddChecks registers several checks at once.
func (b *RunBuilder) AddChecks(checks ...*check.Check) *RunBuilder {
	b.checks = append(b.checks, checks...)

	return b
}

// AddRequiredAnalyzer forces computation of a statistic no check asks for,
// so its metric and state land in the result anyway.
func (b *RunBuilder) AddRequiredAnalyzer(a analyzer.Analyzer) *RunBuilder {
	b.required = append(b.required, a)

	return b
}

// WithRecorder attaches Prometheus instrumentation.
func (b *RunBuilder) WithRecorder(recorder *observability.Recorder) *RunBuilder {
	b.recorder = recorder

	return b
}

// WithLogger replaces the default structured logger.
func (b *RunBuilder) WithLogger(logger *slog.Logger) *RunBuilder {
	b.logger = logger

	return b
}

// Run executes the verification. It fails only when the relation itself is
// unusable; constraint failures and per-analyzer errors are reported inside
// the result.
func (b *RunBuilder) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()

	logger := b.logger.With("run_id", runID, "table", b.table)
	logger.Info("verification run starting", "checks", len(b.checks))

	analyzers := make([]analyzer.Analyzer, 0, len(b.required))
	analyzers = append(analyzers, b.required...)

	for _, c := range b.checks {
		analyzers = append(analyzers, c.Analyzers()...)
	}

	analysis, err := runner.Run(ctx, b.backend, b.table, analyzers)
	if err != nil {
		b.recorder.ObserveRun("aborted")
		logger.Error("verification run aborted", "error", err)

		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Table:     b.table,
		Status:    check.StatusSuccess,
		Checks:    make([]check.Result, 0, len(b.checks)),
		StartedAt: started,
		metrics:   analysis.MetricTable(),
		states:    analysis.States(),
	}

	for _, c := range b.checks {
		evaluated := c.Evaluate(analysis.MetricTable())
		result.Checks = append(result.Checks, evaluated)

		if evaluated.Status > result.Status {
			result.Status = evaluated.Status
		}

		for _, cons := range evaluated.Constraints {
			b.recorder.ObserveConstraint(cons.Status.String())

			if cons.Status != check.ConstraintSuccess {
				logger.Warn("constraint not satisfied",
					"check", c.Description(),
					"constraint", cons.Constraint,
					"status", cons.Status.String(),
					"message", cons.Message,
				)
			}
		}
	}

	result.FinishedAt = time.Now()

	b.recorder.ObserveRun(result.Status.String())
	logger.Info("verification run finished",
		"status", result.Status.String(),
		"metrics", analysis.MetricTable().Len(),
		"elapsed", result.FinishedAt.Sub(started),
	)

	return result, nil
}
