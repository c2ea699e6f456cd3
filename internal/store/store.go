// Package store holds the in-memory task registry, the single source of
// truth for all submitted conversion tasks.
package store

import (
	"sync"

	"github.com/google/uuid"

	"video-captioner/internal/domain"
)

// defaultMessage is the initial message for newly admitted tasks.
const defaultMessage = "Waiting to process"

// Patch holds optional field updates merged into an existing task.
type Patch struct {
	Status          *domain.TaskStatus
	Progress        *int
	Message         *string
	Error           *string
	SubtitleContent *string
	SubtitlePath    *string
}

// Ptr returns a pointer to v, for building sparse patches.
func Ptr[T any](v T) *T {
	return &v
}

// Store is the process-lifetime task registry. It preserves insertion
// order, tracks the current task by id, and enforces lifecycle invariants
// on every merge so no mutator can regress progress or leave a terminal
// state.
type Store struct {
	mu        sync.RWMutex
	tasks     map[string]*domain.Task
	order     []string
	currentID string
	notify    func(domain.Task)
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*domain.Task),
	}
}

// OnChange registers a single observer invoked with a snapshot after each
// task creation or mutation.
func (s *Store) OnChange(fn func(domain.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Add registers a new pending task for the given file, makes it the
// current task, and returns its id. Add always succeeds.
func (s *Store) Add(file domain.FileInfo) string {
	s.mu.Lock()

	task := &domain.Task{
		ID:               uuid.NewString(),
		OriginalFilename: file.Name,
		SourcePath:       file.Path,
		Status:           domain.TaskStatusPending,
		Progress:         0,
		Message:          defaultMessage,
	}
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)
	s.currentID = task.ID

	snapshot := *task
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	return snapshot.ID
}

// Update merges the patch into the task matching id. Unknown ids are
// silently ignored, a chosen leniency rather than a failure path. Status
// writes that violate the state machine are dropped, progress never
// decreases, and error/artifact fields only land alongside their
// corresponding terminal status.
func (s *Store) Update(id string, patch Patch) {
	s.mu.Lock()

	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}

	wasTerminal := task.Status.Terminal()
	if patch.Status != nil && *patch.Status != task.Status && isValidTransition(task.Status, *patch.Status) {
		task.Status = *patch.Status
	}
	// Progress is frozen once the task is terminal and on the failing patch.
	if patch.Progress != nil && !wasTerminal && task.Status != domain.TaskStatusFailed && *patch.Progress > task.Progress {
		task.Progress = *patch.Progress
	}
	if patch.Message != nil {
		task.Message = *patch.Message
	}
	if patch.Error != nil && task.Status == domain.TaskStatusFailed {
		task.Error = *patch.Error
	}
	if task.Status == domain.TaskStatusCompleted {
		if patch.SubtitleContent != nil {
			task.SubtitleContent = *patch.SubtitleContent
		}
		if patch.SubtitlePath != nil {
			task.SubtitlePath = *patch.SubtitlePath
		}
	}

	snapshot := *task
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// Remove deletes the task; if it was the current task the current-task
// reference becomes empty.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return
	}

	delete(s.tasks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.currentID == id {
		s.currentID = ""
	}
}

// Get returns a snapshot of the task matching id.
func (s *Store) Get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return *task, true
}

// List returns snapshots of all tasks in insertion order.
func (s *Store) List() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id])
	}
	return out
}

// Current resolves the current-task reference through the registry, so a
// removed task can never yield a dangling handle.
func (s *Store) Current() (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[s.currentID]
	if !ok {
		return domain.Task{}, false
	}
	return *task, true
}

// SetCurrent points the current-task reference at id. It reports whether
// the id was known; unknown ids leave the reference unchanged.
func (s *Store) SetCurrent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false
	}
	s.currentID = id
	return true
}

// Completed returns all completed tasks, recomputed on each read.
func (s *Store) Completed() []domain.Task {
	return s.filter(func(t *domain.Task) bool {
		return t.Status == domain.TaskStatusCompleted
	})
}

// Pending returns tasks that have not yet entered the extraction stages,
// status pending or processing, recomputed on each read.
func (s *Store) Pending() []domain.Task {
	return s.filter(func(t *domain.Task) bool {
		return t.Status == domain.TaskStatusPending || t.Status == domain.TaskStatusProcessing
	})
}

// filter returns insertion-ordered snapshots matching the predicate.
func (s *Store) filter(keep func(*domain.Task) bool) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Task
	for _, id := range s.order {
		if task := s.tasks[id]; keep(task) {
			out = append(out, *task)
		}
	}
	return out
}

// isValidTransition enforces the forward-only task state machine: the
// happy path advances one stage at a time, any non-terminal stage may fail,
// and terminal states are absorbing.
func isValidTransition(from, to domain.TaskStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == domain.TaskStatusFailed {
		return true
	}

	switch from {
	case domain.TaskStatusPending:
		return to == domain.TaskStatusProcessing
	case domain.TaskStatusProcessing:
		return to == domain.TaskStatusExtracting
	case domain.TaskStatusExtracting:
		return to == domain.TaskStatusTranscribing
	case domain.TaskStatusTranscribing:
		return to == domain.TaskStatusCompleted
	default:
		return false
	}
}
