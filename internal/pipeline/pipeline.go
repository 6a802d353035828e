// Package pipeline wraps a data transformation with verification gates.
//
// A guard verifies the input relation before the transform runs and the
// output relation after it, so a bad batch is stopped before it propagates.
// The policy decides whether a failed gate aborts the pipeline or only logs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/check"
	"github.com/veridata/veridata/internal/verification"
)

// ErrInputRejected aborts a pipeline whose input failed verification.
var ErrInputRejected = errors.New("input data failed verification")

// ErrOutputRejected fails a pipeline whose output failed verification.
var ErrOutputRejected = errors.New("output data failed verification")

// Policy decides how a guard reacts to failed verification.
type Policy int

// Guard policies.
const (
	// PolicyFail aborts the pipeline on a failed gate.
	PolicyFail Policy = iota

	// PolicyWarn logs the failed gate and lets the pipeline continue.
	PolicyWarn
)

// Transform is the guarded data transformation. It reads the input relation
// and writes the output relation through the shared backend.
type Transform func(ctx context.Context) error

// Guard verifies a transform's input and output relations.
type Guard struct {
	backend backend.Backend
	logger  *slog.Logger
	policy  Policy

	inputTable   string
	inputChecks  []*check.Check
	outputTable  string
	outputChecks []*check.Check
}

// Option configures a guard.
type Option func(*Guard)

// WithPolicy sets the reaction to failed gates. Default is PolicyFail.
func WithPolicy(policy Policy) Option {
	return func(g *Guard) { g.policy = policy }
}

// WithLogger replaces the default structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithInputGate verifies the given relation before the transform runs.
func WithInputGate(table string, checks ...*check.Check) Option {
	return func(g *Guard) {
		g.inputTable = table
		g.inputChecks = checks
	}
}

// WithOutputGate verifies the given relation after the transform ran.
func WithOutputGate(table string, checks ...*check.Check) Option {
	return func(g *Guard) {
		g.outputTable = table
		g.outputChecks = checks
	}
}

// NewGuard creates a guard over the backend holding both relations.
func NewGuard(be backend.Backend, opts ...Option) *Guard {
	g := &Guard{
		backend: be,
		logger:  slog.Default(),
		policy:  PolicyFail,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Outcome collects the gate results of one guarded run. Input or Output is
// nil when the corresponding gate was not configured or not reached.
type Outcome struct {
	Input  *verification.Result
	Output *verification.Result
}

// Run verifies the input gate, executes the transform, then verifies the
// output gate. Under PolicyFail a failed gate stops the pipeline; under
// PolicyWarn it is logged and the pipeline continues.
func (g *Guard) Run(ctx context.Context, transform Transform) (*Outcome, error) {
	outcome := &Outcome{}

	if g.inputTable != "" {
		result, err := g.verify(ctx, g.inputTable, g.inputChecks)
		if err != nil {
			return outcome, err
		}

		outcome.Input = result

		if rejected := g.gate(result, ErrInputRejected); rejected != nil {
			return outcome, rejected
		}
	}

	if err := transform(ctx); err != nil {
		return outcome, fmt.Errorf("pipeline transform: %w", err)
	}

	if g.outputTable != "" {
		result, err := g.verify(ctx, g.outputTable, g.outputChecks)
		if err != nil {
			return outcome, err
		}

		outcome.Output = result

		if rejected := g.gate(result, ErrOutputRejected); rejected != nil {
			return outcome, rejected
		}
	}

	return outcome, nil
}

func (g *Guard) verify(ctx context.Context, table string, checks []*check.Check) (*verification.Result, error) {
	return verification.OnTable(g.backend, table).
		AddChecks(checks...).
		WithLogger(g.logger).
		Run(ctx)
}

func (g *Guard) gate(result *verification.Result, rejection error) error {
	if result.Success() {
		return nil
	}

	if g.policy == PolicyWarn {
		g.logger.Warn("verification gate failed, continuing per policy",
			"table", result.Table,
			"run_id", result.RunID,
			"status", result.Status.String(),
		)

		return nil
	}

	return fmt.Errorf("%w: table %s run %s", rejection, result.Table, result.RunID)
}
