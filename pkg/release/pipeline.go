package release

import (
	"context"
	"fmt"
	"time"

	rcontext "github.com/lngkit/sparkrelease/pkg/context"
	"github.com/lngkit/sparkrelease/pkg/logger"
)

// Requirement is release state a step depends on.
type Requirement int

const (
	// NeedsIdentifier steps run only after the metadata step set Identifier.
	NeedsIdentifier Requirement = 1 << iota
	// NeedsOutput steps run only after the prepare step set OutputDir.
	NeedsOutput
)

// Step is one stage of the pipeline.
type Step struct {
	Name  string
	Needs Requirement
	Run   func(ctx context.Context, rc *Context) error
}

// Pipeline runs steps in order and stops at the first failure.
type Pipeline struct {
	steps []Step
	log   logger.Logger
}

// NewPipeline creates a pipeline over steps
func NewPipeline(log logger.Logger, steps ...Step) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{steps: steps, log: log}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes every step against rc. The returned error names the failed
// step and wraps its cause.
func (p *Pipeline) Run(ctx context.Context, rc *Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		if err := checkNeeds(step, rc); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}

		stageCtx := rcontext.WithStartTime(rcontext.WithStage(ctx, step.Name), time.Now())
		log := logger.WithContext(stageCtx, p.log)
		log.Debug("Stage started")

		if err := step.Run(stageCtx, rc); err != nil {
			log.Error("Stage failed", logger.WithField("error", err))
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		log.Debug("Stage finished")
	}
	return nil
}

func checkNeeds(step Step, rc *Context) error {
	if step.Needs&NeedsIdentifier != 0 && rc.Identifier == "" {
		return &ConfigError{Hint: "identifier has not been loaded"}
	}
	if step.Needs&NeedsOutput != 0 && rc.OutputDir == "" {
		return ErrOutputNotPrepared
	}
	return nil
}
