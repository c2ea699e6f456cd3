package pipeline

import (
	"context"
	"fmt"
	"time"

	"video-captioner/internal/domain"
	"video-captioner/internal/store"
	"video-captioner/internal/subtitle"
)

// stage is one timed step of the simulated conversion pipeline.
type stage struct {
	status   domain.TaskStatus
	progress int
	delay    time.Duration
	message  string
}

// stages is the fixed forward path. Each entry holds the progress
// milestone and message published after its delay elapses.
var stages = []stage{
	{domain.TaskStatusProcessing, 20, 1 * time.Second, "Initializing processing"},
	{domain.TaskStatusExtracting, 40, 3 * time.Second, "Extracting audio"},
	{domain.TaskStatusTranscribing, 60, 5 * time.Second, "Generating subtitles"},
	{domain.TaskStatusCompleted, 100, 1 * time.Second, "Processing complete"},
}

// Simulator advances tasks through timed stages, mutating them via the
// task store. It models real processing latency without doing any work.
type Simulator struct {
	updater   TaskUpdater
	sleep     func(ctx context.Context, d time.Duration) error
	stageHook func(task domain.Task, status domain.TaskStatus) error
}

// NewSimulator constructs the production simulator.
func NewSimulator(updater TaskUpdater) *Simulator {
	return &Simulator{
		updater: updater,
		sleep:   sleepContext,
	}
}

// Run walks the task through every stage in order. The caller observes a
// terminal state when Run returns: completed on success, or an error that
// the upload controller converts to a failed task.
func (s *Simulator) Run(ctx context.Context, task domain.Task) error {
	for _, st := range stages {
		if err := s.sleep(ctx, st.delay); err != nil {
			return &StageError{Stage: st.status, Message: "processing interrupted", Err: err}
		}

		if s.stageHook != nil {
			if err := s.stageHook(task, st.status); err != nil {
				return &StageError{Stage: st.status, Message: err.Error(), Err: err}
			}
		}

		patch := store.Patch{
			Status:   store.Ptr(st.status),
			Progress: store.Ptr(st.progress),
			Message:  store.Ptr(st.message),
		}
		if st.status == domain.TaskStatusCompleted {
			patch.SubtitleContent = store.Ptr(sampleSubtitle(task.OriginalFilename))
			patch.SubtitlePath = store.Ptr("subtitles/" + task.ID + ".srt")
		}
		s.updater.Update(task.ID, patch)
	}

	return nil
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sampleSubtitle builds a well-formed SRT artifact for the simulated run.
func sampleSubtitle(filename string) string {
	return subtitle.Compose([]subtitle.Entry{
		{Index: 1, Start: 0, End: 3 * time.Second, Text: fmt.Sprintf("Subtitles for %s", filename)},
		{Index: 2, Start: 3 * time.Second, End: 7 * time.Second, Text: "This transcript was produced by the built-in simulator."},
		{Index: 3, Start: 7 * time.Second, End: 11 * time.Second, Text: "Configure a backend URL in settings for real transcription."},
	})
}

// NewSimulatorForTests constructs a simulator with injectable sleep and
// stage-failure behavior.
func NewSimulatorForTests(
	updater TaskUpdater,
	sleep func(ctx context.Context, d time.Duration) error,
	stageHook func(task domain.Task, status domain.TaskStatus) error,
) *Simulator {
	return &Simulator{
		updater:   updater,
		sleep:     sleep,
		stageHook: stageHook,
	}
}
