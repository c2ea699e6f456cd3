// Package jobs carries task lifecycle events from the core to UI
// subscribers.
package jobs

import (
	"sync"
	"time"

	"video-captioner/internal/domain"
)

// EventType classifies messages emitted while tasks advance.
type EventType string

const (
	EventTypeTask   EventType = "task"
	EventTypeNotice EventType = "notice"
)

// NoticeLevel grades transient user notifications.
type NoticeLevel string

const (
	NoticeLevelInfo    NoticeLevel = "info"
	NoticeLevelWarning NoticeLevel = "warning"
	NoticeLevelError   NoticeLevel = "error"
)

// Event is a sequenced payload consumed by UI subscribers. Task events
// mirror a task snapshot; notice events carry transient notifications that
// never touch task state.
type Event struct {
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	TaskID    string            `json:"taskId,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	Status    domain.TaskStatus `json:"status,omitempty"`
	Progress  int               `json:"progress,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	Level     NoticeLevel       `json:"level,omitempty"`
}

// TaskEvent builds a task event from a store snapshot.
func TaskEvent(task domain.Task) Event {
	return Event{
		Type:     EventTypeTask,
		TaskID:   task.ID,
		Filename: task.OriginalFilename,
		Status:   task.Status,
		Progress: task.Progress,
		Message:  task.Message,
		Error:    task.Error,
	}
}

// NoticeEvent builds a transient notification event.
func NoticeEvent(level NoticeLevel, message string) Event {
	return Event{
		Type:    EventTypeNotice,
		Level:   level,
		Message: message,
	}
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
