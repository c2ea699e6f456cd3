// Package upload gatekeeps raw file selections into the task store and
// drives admitted tasks through the conversion pipeline.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"video-captioner/internal/domain"
	"video-captioner/internal/jobs"
	"video-captioner/internal/log"
	"video-captioner/internal/pipeline"
	"video-captioner/internal/store"
)

// ErrRejected is returned when a single interactive submission fails
// validation; no task is created on this path.
var ErrRejected = errors.New("file rejected")

// Notifier surfaces transient user notifications that never touch task
// state.
type Notifier interface {
	Notify(level jobs.NoticeLevel, message string)
}

// nopNotifier discards notifications.
type nopNotifier struct{}

func (nopNotifier) Notify(jobs.NoticeLevel, string) {}

// Controller validates incoming files, registers them as tasks, and runs
// them through the pipeline.
type Controller struct {
	store    *store.Store
	notifier Notifier
	log      *logrus.Logger

	mu     sync.RWMutex
	runner pipeline.Runner
}

// NewController wires the controller to the task store and a pipeline
// runner. A nil notifier is allowed.
func NewController(s *store.Store, runner pipeline.Runner, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Controller{
		store:    s,
		runner:   runner,
		notifier: notifier,
		log:      log.GetLogger(),
	}
}

// SetRunner swaps the pipeline runner, e.g. after settings changed the
// backend URL. It does not affect runs already in flight.
func (c *Controller) SetRunner(runner pipeline.Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runner = runner
}

// currentRunner returns the runner for the next pipeline run.
func (c *Controller) currentRunner() pipeline.Runner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runner
}

// Admit validates one interactively submitted file and registers a task
// for it. Validation happens before any task exists: an invalid file
// yields a transient notification and no task is ever created.
func (c *Controller) Admit(file domain.FileInfo) (string, error) {
	if err := Validate(file); err != nil {
		c.log.WithField("file", file.Name).Warnf("rejected upload: %v", err)
		c.notifier.Notify(jobs.NoticeLevelError, err.Error())
		return "", fmt.Errorf("%w: %v", ErrRejected, err)
	}

	return c.store.Add(file), nil
}

// Process runs the task with the given id to a terminal state. Pipeline
// errors stop here: they are converted to a failed task and never
// propagated further.
func (c *Controller) Process(ctx context.Context, id string) error {
	task, ok := c.store.Get(id)
	if !ok {
		return fmt.Errorf("unknown task: %s", id)
	}

	if err := c.currentRunner().Run(ctx, task); err != nil {
		c.log.WithField("task", id).Errorf("pipeline failed: %v", err)
		c.failTask(id, err.Error(), "Processing failed")
		return nil
	}
	return nil
}

// SubmitFile admits one file and processes it synchronously.
func (c *Controller) SubmitFile(ctx context.Context, file domain.FileInfo) (string, error) {
	id, err := c.Admit(file)
	if err != nil {
		return "", err
	}
	return id, c.Process(ctx, id)
}

// SubmitBatch processes a folder-derived file list sequentially, one
// pipeline at a time; each file reaches a terminal state before the next
// one starts. Unlike the single path, a file that fails re-validation
// still gets a task, which is immediately marked failed with the
// validation message and never enters the pipeline.
func (c *Controller) SubmitBatch(ctx context.Context, files []domain.FileInfo) []string {
	ids := make([]string, 0, len(files))
	for _, file := range files {
		id := c.store.Add(file)
		ids = append(ids, id)

		if err := Validate(file); err != nil {
			c.log.WithField("file", file.Name).Warnf("batch file rejected: %v", err)
			c.failTask(id, err.Error(), "Validation failed")
			continue
		}

		_ = c.Process(ctx, id)
	}
	return ids
}

// failTask records a failure on the task, freezing its progress.
func (c *Controller) failTask(id, detail, message string) {
	c.store.Update(id, store.Patch{
		Status:  store.Ptr(domain.TaskStatusFailed),
		Message: store.Ptr(message),
		Error:   store.Ptr(detail),
	})
}
