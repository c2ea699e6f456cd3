// Package pipeline advances a task through the conversion stages. The
// Simulator stands in for the real backend; a production deployment swaps
// in the backend client, which drives the same state machine.
package pipeline

import (
	"context"
	"fmt"

	"video-captioner/internal/domain"
	"video-captioner/internal/store"
)

// Runner drives one admitted task to a terminal state.
type Runner interface {
	Run(ctx context.Context, task domain.Task) error
}

// TaskUpdater is the mutation surface a runner needs on the task store.
type TaskUpdater interface {
	Update(id string, patch store.Patch)
}

// StageError is a stage-aware failure raised while a task advances.
type StageError struct {
	Stage   domain.TaskStatus
	Message string
	Err     error
}

// Error formats stage failures for logs and UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
