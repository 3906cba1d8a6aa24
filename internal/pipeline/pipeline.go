// Package pipeline runs the fixed stage sequence as a small state machine.
// Stages execute strictly in order, one request at a time; the first failure
// aborts the run and partial artifacts are never treated as a valid result.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/stage"
	"github.com/hiresense/hiresense/internal/table"
)

// State is the orchestrator's lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateFailed    State = "failed"
	StateCompleted State = "completed"
)

// StageError wraps a stage failure with enough context to diagnose it without
// re-running the pipeline.
type StageError struct {
	Stage string
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline executes the stage sequence against one workspace.
type Pipeline struct {
	stages []stage.Stage
	deps   *stage.Deps
	state  State
}

// New returns a pipeline over the full fixed stage order.
func New(deps *stage.Deps) *Pipeline {
	return &Pipeline{stages: stage.All(), deps: deps, state: StateIdle}
}

// State reports the current lifecycle state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes every stage in order. Boundaries are validated before a stage
// runs (required columns present) and after it finishes (outputs written,
// column evolution append-only). The first error stops the run.
func (p *Pipeline) Run(ctx context.Context) error {
	p.state = StateRunning

	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return p.fail(s.Name(), err)
		}

		log := p.deps.Logger.With(zap.String("stage", s.Name()))
		log.Info("stage starting")

		inputs, err := p.validateInputs(s)
		if err != nil {
			return p.fail(s.Name(), err)
		}

		result, err := s.Run(ctx, p.deps)
		if err != nil {
			return p.fail(s.Name(), err)
		}

		if err := p.validateOutputs(s, inputs); err != nil {
			return p.fail(s.Name(), err)
		}

		log.Info("stage finished",
			zap.Int("rows_in", result.In),
			zap.Int("rows_out", result.Out),
		)
	}

	p.state = StateCompleted
	return nil
}

// validateInputs checks every boundary input before the stage body runs and
// returns the parsed input tables keyed by artifact for the post-run check.
func (p *Pipeline) validateInputs(s stage.Stage) (map[string]*table.Table, error) {
	inputs := make(map[string]*table.Table)

	for _, b := range s.Boundaries() {
		path := p.deps.WS.Path(b.Input)

		if b.Raw {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("raw input %q is unavailable: %w", b.Input, err)
			}
			continue
		}

		tbl, err := table.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading input %q: %w", b.Input, err)
		}
		contract := table.Contract{Artifact: b.Input, Requires: b.Requires, Produces: b.Produces}
		if err := contract.Validate(tbl); err != nil {
			return nil, err
		}
		inputs[b.Input] = tbl
	}
	return inputs, nil
}

// validateOutputs checks that every declared output exists and that tabular
// outputs evolved append-only from their inputs.
func (p *Pipeline) validateOutputs(s stage.Stage, inputs map[string]*table.Table) error {
	for _, b := range s.Boundaries() {
		if b.Output == "" {
			continue
		}

		out, err := table.ReadFile(p.deps.WS.Path(b.Output))
		if err != nil {
			return fmt.Errorf("reading output %q: %w", b.Output, err)
		}

		if b.Creates {
			missing := table.Contract{Artifact: b.Output, Requires: b.Produces}
			if err := missing.Validate(out); err != nil {
				return err
			}
			continue
		}

		in, ok := inputs[b.Input]
		if !ok {
			continue
		}
		if err := table.CheckEvolution(in, out, b.Produces, b.Output); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) fail(stageName string, err error) error {
	p.state = StateFailed
	p.deps.Logger.Error("pipeline aborted",
		zap.String("stage", stageName),
		zap.Error(err),
	)
	return &StageError{Stage: stageName, State: StateFailed, Err: err}
}
