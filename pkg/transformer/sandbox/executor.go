package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
)

// Executor runs generated programs against a caller-owned session.
type Executor struct {
	vars   map[string]string
	logger *zap.Logger
}

// NewExecutor returns an Executor that substitutes vars into step arguments.
func NewExecutor(vars map[string]string, logger *zap.Logger) *Executor {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return &Executor{vars: copied, logger: logging.Named(logger, "sandbox")}
}

// Execute parses snippet, strips session acquisition, validates and runs each
// step in order. The first failing step stops execution.
func (e *Executor) Execute(ctx context.Context, session browser.Session, snippet string) error {
	prog, err := Parse(snippet)
	if err != nil {
		return err
	}
	if removed := prog.StripSessionAcquisition(); len(removed) > 0 {
		e.logger.Warn("removed session acquisition steps", zap.Strings("verbs", removed))
	}
	if err := prog.Validate(); err != nil {
		return err
	}
	if len(prog.Steps) == 0 {
		e.logger.Warn("program has no steps")
		return nil
	}

	for i, step := range prog.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		in, err := compile(step, e.vars)
		if err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalidProgram, i+1, step.Verb, err)
		}
		e.logger.Debug("run step", zap.Int("step", i+1), zap.String("verb", in.verb))
		if err := run(ctx, session, in); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, in.verb, err)
		}
	}
	return nil
}

func run(ctx context.Context, session browser.Session, in instruction) error {
	switch in.verb {
	case VerbNavigate:
		return session.Navigate(ctx, in.url)
	case VerbClick:
		return session.Click(ctx, in.locator)
	case VerbFill:
		return session.Fill(ctx, in.locator, in.text)
	case VerbPress:
		return session.Press(ctx, in.locator, in.text)
	case VerbWait:
		return session.Sleep(ctx, time.Duration(in.millis)*time.Millisecond)
	case VerbWaitFor:
		return session.WaitFor(ctx, in.locator)
	}
	return fmt.Errorf("unknown verb %q", in.verb)
}
