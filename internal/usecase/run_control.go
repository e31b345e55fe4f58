package usecase

import (
	"context"

	"github.com/hempies/catalogsync/internal/domain"
)

// RunControl carries the per-run pause/cancel checkpoint and progress sink.
// The zero value only honours context cancellation.
type RunControl struct {
	Checkpoint domain.Checkpoint
	Progress   domain.Progress
}

// wait is called at the top of every per-record loop body
func (c RunControl) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Checkpoint != nil {
		return c.Checkpoint.Wait(ctx)
	}
	return nil
}

func (c RunControl) operation(op string) {
	if c.Progress != nil {
		c.Progress.SetOperation(op)
	}
}

func (c RunControl) progress(processed, total int) {
	if c.Progress != nil {
		c.Progress.SetProgress(processed, total)
	}
}
