package pipeline

import (
	"context"
	"fmt"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// Pipeline runs stages sequentially against a shared state.
type Pipeline struct {
	steps         []Stage
	maxIterations int
}

// NewPipeline creates a pipeline that stops after maxIterations stage runs.
func NewPipeline(maxIterations int, steps ...Stage) *Pipeline {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Pipeline{steps: steps, maxIterations: maxIterations}
}

// Execute runs all stages in order, stopping at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if state.invocations >= p.maxIterations {
			return domain.StageErrorf(domain.KindIterationLimitExceeded,
				"stopped before %s after %d stage invocations", step.ID(), state.invocations)
		}
		state.invocations++
		if err := runStage(ctx, step, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.ID(), err)
		}
	}
	return nil
}

func runStage(ctx context.Context, step Stage, state *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.StageErrorf(domain.KindUpstreamFailure, "stage %s panicked: %v", step.ID(), r)
		}
	}()
	return step.Execute(ctx, state)
}
