package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"video-captioner/internal/backend"
	"video-captioner/internal/config"
	"video-captioner/internal/diagnostics"
	"video-captioner/internal/domain"
	"video-captioner/internal/jobs"
	"video-captioner/internal/pipeline"
	"video-captioner/internal/status"
	"video-captioner/internal/store"
	"video-captioner/internal/subtitle"
	"video-captioner/internal/upload"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Video files",
		Pattern:     "*.mp4;*.mov;*.avi;*.wmv",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var subtitleDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "SubRip subtitles",
		Pattern:     "*.srt",
	},
}

// TaskView pairs a task snapshot with its presentation attributes.
type TaskView struct {
	domain.Task
	Presentation status.Presentation `json:"presentation"`
}

// App wires settings, the task store, the upload controller, and UI
// runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Tasks       *store.Store
	Controller  *upload.Controller
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context

	writeFile    func(name string, data []byte, perm os.FileMode) error
	saveDialog   func(ctx context.Context, opts wailsruntime.SaveDialogOptions) (string, error)
	clipboardSet func(ctx context.Context, text string) error
	emit         func(ctx context.Context, eventName string, data ...interface{})
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	settingsStore := config.NewJSONStore(filepath.Join(homeDir, ".video-captioner", "settings.json"))
	settings, err := settingsStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	tasks := store.NewStore()
	app := &App{
		Settings:     settings,
		Store:        settingsStore,
		Tasks:        tasks,
		Diagnostics:  report,
		assets:       assets,
		checker:      checker,
		events:       jobs.NewEventBus(1000),
		writeFile:    os.WriteFile,
		saveDialog:   wailsruntime.SaveFileDialog,
		clipboardSet: wailsruntime.ClipboardSetText,
		emit:         wailsruntime.EventsEmit,
	}
	app.Controller = upload.NewController(tasks, app.runnerFor(settings), app)
	tasks.OnChange(app.publishTask)

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Video Captioner",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for dialogs and push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns environment checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	return a.Diagnostics, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, refreshes diagnostics,
// and reselects the pipeline runner for the configured backend.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	a.Controller.SetRunner(a.runnerFor(normalized))
	return normalized, nil
}

// PickVideoFile opens a native file dialog for video selection.
func (a *App) PickVideoFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select video file",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickVideoFolder opens a native directory picker for batch submissions.
func (a *App) PickVideoFolder() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select video folder",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for subtitle
// exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// SubmitVideo admits one interactively selected video and processes it in
// the background. An invalid file is rejected before any task exists.
func (a *App) SubmitVideo(path string) (domain.Task, error) {
	file, err := fileInfoFor(path)
	if err != nil {
		a.Notify(jobs.NoticeLevelError, fmt.Sprintf("Cannot read selected file: %v", err))
		return domain.Task{}, err
	}

	id, err := a.Controller.Admit(file)
	if err != nil {
		return domain.Task{}, err
	}

	task, _ := a.Tasks.Get(id)
	go func() {
		_ = a.Controller.Process(context.Background(), id)
	}()
	return task, nil
}

// ScanFolder walks a directory recursively and returns the admissible
// video files; inadmissible entries are silently excluded from the
// selectable set.
func (a *App) ScanFolder(dir string) ([]domain.FileInfo, error) {
	var files []domain.FileInfo
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, domain.FileInfo{
			Name:     entry.Name(),
			Path:     path,
			Size:     info.Size(),
			MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(entry.Name()))),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan folder: %w", err)
	}

	return upload.FilterAdmissible(files), nil
}

// StartBatch submits the selected files as a sequential batch and returns
// the number of files queued. Processing continues in the background, one
// task at a time.
func (a *App) StartBatch(paths []string) (int, error) {
	files := make([]domain.FileInfo, 0, len(paths))
	for _, path := range paths {
		file, err := fileInfoFor(path)
		if err != nil {
			return 0, err
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return 0, nil
	}

	go func() {
		a.Controller.SubmitBatch(context.Background(), files)
	}()
	return len(files), nil
}

// ListTasks returns all tasks in submission order.
func (a *App) ListTasks() []domain.Task {
	return a.Tasks.List()
}

// TaskViews returns all tasks with their presentation attributes for the
// history table.
func (a *App) TaskViews() []TaskView {
	tasks := a.Tasks.List()
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, TaskView{
			Task:         task,
			Presentation: status.Project(task.Status),
		})
	}
	return views
}

// CompletedTasks returns tasks holding a finished subtitle artifact.
func (a *App) CompletedTasks() []domain.Task {
	return a.Tasks.Completed()
}

// PendingTasks returns tasks waiting for or entering the pipeline.
func (a *App) PendingTasks() []domain.Task {
	return a.Tasks.Pending()
}

// CurrentTask returns the task highlighted for detail display, or nil.
func (a *App) CurrentTask() *TaskView {
	task, ok := a.Tasks.Current()
	if !ok {
		return nil
	}
	return &TaskView{Task: task, Presentation: status.Project(task.Status)}
}

// SelectTask points the current-task reference at the given id.
func (a *App) SelectTask(id string) error {
	if !a.Tasks.SetCurrent(id) {
		return fmt.Errorf("unknown task: %s", id)
	}
	return nil
}

// RemoveTask deletes a task from the history.
func (a *App) RemoveTask(id string) {
	a.Tasks.Remove(id)
}

// TaskEvents returns all events with sequence greater than sinceSeq.
func (a *App) TaskEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// SaveSubtitle exports a completed task's subtitle through a save dialog.
// The suggested name strips the video's final extension and appends .srt.
// It returns the written path, or "" when the user cancelled.
func (a *App) SaveSubtitle(taskID string) (string, error) {
	task, err := a.completedTask(taskID)
	if err != nil {
		return "", err
	}

	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	outputDir := a.Settings.OutputDir
	a.mu.Unlock()

	path, err := a.saveDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:            "Save subtitle",
		DefaultDirectory: outputDir,
		DefaultFilename:  subtitle.OutputFilename(task.OriginalFilename),
		Filters:          subtitleDialogFilter,
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil
	}

	if err := a.writeFile(path, []byte(task.SubtitleContent), 0o644); err != nil {
		a.Notify(jobs.NoticeLevelError, fmt.Sprintf("Saving subtitle failed: %v", err))
		return "", err
	}

	a.Notify(jobs.NoticeLevelInfo, "Subtitle saved: "+filepath.Base(path))
	return path, nil
}

// CopySubtitle copies a completed task's subtitle text to the clipboard.
// A clipboard failure surfaces as a notification and leaves the task
// untouched.
func (a *App) CopySubtitle(taskID string) error {
	task, err := a.completedTask(taskID)
	if err != nil {
		return err
	}

	ctx, err := a.runtimeContext()
	if err != nil {
		return err
	}

	if err := a.clipboardSet(ctx, task.SubtitleContent); err != nil {
		a.Notify(jobs.NoticeLevelError, fmt.Sprintf("Copy to clipboard failed: %v", err))
		return err
	}

	a.Notify(jobs.NoticeLevelInfo, "Subtitle copied to clipboard")
	return nil
}

// OpenOutputFolder opens the given path (or the configured output dir) in
// the platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// Notify publishes a transient notification event; it never touches task
// state.
func (a *App) Notify(level jobs.NoticeLevel, message string) {
	a.publishEvent(jobs.NoticeEvent(level, message))
}

// completedTask resolves a task that holds a finished subtitle artifact.
func (a *App) completedTask(taskID string) (domain.Task, error) {
	task, ok := a.Tasks.Get(taskID)
	if !ok {
		return domain.Task{}, fmt.Errorf("unknown task: %s", taskID)
	}
	if task.Status != domain.TaskStatusCompleted || task.SubtitleContent == "" {
		return domain.Task{}, fmt.Errorf("task %s has no subtitle artifact", taskID)
	}
	return task, nil
}

// runnerFor selects the pipeline implementation: the built-in simulator
// when no backend is configured, the HTTP client otherwise.
func (a *App) runnerFor(settings domain.Settings) pipeline.Runner {
	baseURL := strings.TrimSpace(settings.APIBaseURL)
	if baseURL == "" {
		return pipeline.NewSimulator(a.Tasks)
	}
	return backend.NewClient(baseURL, a.Tasks)
}

// publishTask relays one task snapshot to subscribers.
func (a *App) publishTask(task domain.Task) {
	a.publishEvent(jobs.TaskEvent(task))
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		a.emit(ctx, "task:event", published)
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// fileInfoFor builds a file descriptor for a path on disk.
func fileInfoFor(path string) (domain.FileInfo, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return domain.FileInfo{}, fmt.Errorf("file path is empty")
	}

	info, err := os.Stat(trimmed)
	if err != nil {
		return domain.FileInfo{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return domain.FileInfo{}, fmt.Errorf("path is a directory: %s", trimmed)
	}

	return domain.FileInfo{
		Name:     filepath.Base(trimmed),
		Path:     trimmed,
		Size:     info.Size(),
		MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(trimmed))),
	}, nil
}

// normalizeSettings trims user inputs and applies the default language.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.APIBaseURL = strings.TrimRight(strings.TrimSpace(settings.APIBaseURL), "/")
	settings.Language = strings.TrimSpace(settings.Language)
	if settings.Language == "" {
		settings.Language = "auto"
	}
	return settings
}

// openInFileManager launches the platform file explorer for the path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
