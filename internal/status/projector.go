// Package status maps task state to presentation attributes for the UI.
package status

import "video-captioner/internal/domain"

// Presentation describes how one task status is rendered.
type Presentation struct {
	Label   string `json:"label"`
	Color   string `json:"color"`
	BarMode string `json:"barMode"`
}

// Project returns the presentation attributes for a status. It is a pure
// read-side mapping and never touches task state.
func Project(status domain.TaskStatus) Presentation {
	switch status {
	case domain.TaskStatusPending:
		return Presentation{Label: "waiting", Color: "default", BarMode: "active"}
	case domain.TaskStatusProcessing:
		return Presentation{Label: "processing", Color: "processing", BarMode: "active"}
	case domain.TaskStatusExtracting:
		return Presentation{Label: "extracting audio", Color: "processing", BarMode: "active"}
	case domain.TaskStatusTranscribing:
		return Presentation{Label: "generating subtitles", Color: "processing", BarMode: "active"}
	case domain.TaskStatusCompleted:
		return Presentation{Label: "done", Color: "success", BarMode: "success"}
	case domain.TaskStatusFailed:
		return Presentation{Label: "failed", Color: "error", BarMode: "exception"}
	default:
		return Presentation{Label: string(status), Color: "default", BarMode: "active"}
	}
}
