package domain

// TaskStatus tracks each lifecycle stage of a conversion task.
type TaskStatus string

const (
	TaskStatusPending      TaskStatus = "pending"
	TaskStatusProcessing   TaskStatus = "processing"
	TaskStatusExtracting   TaskStatus = "extracting"
	TaskStatusTranscribing TaskStatus = "transcribing"
	TaskStatusCompleted    TaskStatus = "completed"
	TaskStatusFailed       TaskStatus = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is one submitted video's conversion job and its tracked state.
type Task struct {
	ID               string     `json:"id"`
	OriginalFilename string     `json:"originalFilename"`
	SourcePath       string     `json:"sourcePath,omitempty"`
	Status           TaskStatus `json:"status"`
	Progress         int        `json:"progress"`
	Message          string     `json:"message"`
	Error            string     `json:"error,omitempty"`
	SubtitleContent  string     `json:"subtitleContent,omitempty"`
	SubtitlePath     string     `json:"subtitlePath,omitempty"`
}

// FileInfo describes a selected file before a task exists for it.
type FileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType,omitempty"`
}

// Settings contains user-selectable runtime configuration. An empty
// APIBaseURL selects the built-in pipeline simulator.
type Settings struct {
	OutputDir  string `json:"outputDir"`
	APIBaseURL string `json:"apiBaseUrl"`
	Language   string `json:"language"`
}
