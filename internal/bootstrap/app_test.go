package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"video-captioner/internal/config"
	"video-captioner/internal/domain"
	"video-captioner/internal/jobs"
	"video-captioner/internal/store"
	"video-captioner/internal/upload"
)

// fakeRunner walks a task to completed with a fixed artifact.
type fakeRunner struct {
	tasks *store.Store
}

// Run advances the task through every stage without delays.
func (f *fakeRunner) Run(_ context.Context, task domain.Task) error {
	steps := []struct {
		status   domain.TaskStatus
		progress int
	}{
		{domain.TaskStatusProcessing, 20},
		{domain.TaskStatusExtracting, 40},
		{domain.TaskStatusTranscribing, 60},
	}
	for _, step := range steps {
		f.tasks.Update(task.ID, store.Patch{
			Status:   store.Ptr(step.status),
			Progress: store.Ptr(step.progress),
		})
	}
	f.tasks.Update(task.ID, store.Patch{
		Status:          store.Ptr(domain.TaskStatusCompleted),
		Progress:        store.Ptr(100),
		SubtitleContent: store.Ptr("1\n00:00:00,000 --> 00:00:02,000\nhi\n"),
		SubtitlePath:    store.Ptr("subtitles/" + task.ID + ".srt"),
	})
	return nil
}

// newTestApp builds an app with fakes and the runtime context bypassed.
func newTestApp(t *testing.T) *App {
	t.Helper()

	tasks := store.NewStore()
	app := &App{
		Settings:   domain.Settings{OutputDir: t.TempDir(), Language: "auto"},
		Store:      config.NewJSONStore(filepath.Join(t.TempDir(), "settings.json")),
		Tasks:      tasks,
		events:     jobs.NewEventBus(100),
		runtimeCtx: context.Background(),
		writeFile:  os.WriteFile,
		saveDialog: func(context.Context, wailsruntime.SaveDialogOptions) (string, error) {
			return "", nil
		},
		clipboardSet: func(context.Context, string) error { return nil },
		emit:         func(context.Context, string, ...interface{}) {},
	}
	app.Controller = upload.NewController(tasks, &fakeRunner{tasks: tasks}, app)
	tasks.OnChange(app.publishTask)
	return app
}

// mustWriteFile creates a file with content under a temp path.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// waitForStatus polls the store until the task reaches the wanted status.
func waitForStatus(t *testing.T, app *App, id string, want domain.TaskStatus) domain.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := app.Tasks.Get(id); ok && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := app.Tasks.Get(id)
	t.Fatalf("task %s status = %s, want %s", id, task.Status, want)
	return domain.Task{}
}

// TestSubmitVideoRunsToCompleted checks the interactive submission path.
func TestSubmitVideoRunsToCompleted(t *testing.T) {
	app := newTestApp(t)
	videoPath := filepath.Join(t.TempDir(), "demo.mp4")
	mustWriteFile(t, videoPath, "video-bytes")

	task, err := app.SubmitVideo(videoPath)
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	if task.Status != domain.TaskStatusPending {
		t.Fatalf("admitted status = %s, want pending", task.Status)
	}

	final := waitForStatus(t, app, task.ID, domain.TaskStatusCompleted)
	if final.SubtitleContent == "" {
		t.Fatal("expected subtitle artifact")
	}

	current := app.CurrentTask()
	if current == nil || current.ID != task.ID {
		t.Fatal("submitted task should be current")
	}
	if current.Presentation.Label != "done" {
		t.Fatalf("presentation label = %q, want done", current.Presentation.Label)
	}
}

// TestSubmitVideoRejectsInvalidWithoutTask checks the single-file policy
// end to end: no task, one rejection notice.
func TestSubmitVideoRejectsInvalidWithoutTask(t *testing.T) {
	app := newTestApp(t)
	exePath := filepath.Join(t.TempDir(), "clip.exe")
	mustWriteFile(t, exePath, "binary")

	_, err := app.SubmitVideo(exePath)
	if !errors.Is(err, upload.ErrRejected) {
		t.Fatalf("error = %v, want ErrRejected", err)
	}

	if tasks := app.ListTasks(); len(tasks) != 0 {
		t.Fatalf("tasks = %d, want 0", len(tasks))
	}

	notices := 0
	for _, event := range app.TaskEvents(0) {
		if event.Type == jobs.EventTypeNotice && event.Level == jobs.NoticeLevelError {
			notices++
		}
	}
	if notices != 1 {
		t.Fatalf("error notices = %d, want 1", notices)
	}
}

// TestScanFolderFiltersRecursively checks the batch selection prefilter.
func TestScanFolderFiltersRecursively(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mp4"), "x")
	mustWriteFile(t, filepath.Join(root, "nested", "b.MOV"), "x")
	mustWriteFile(t, filepath.Join(root, "nested", "notes.txt"), "x")
	mustWriteFile(t, filepath.Join(root, "empty.mp4"), "")

	app := newTestApp(t)
	files, err := app.ScanFolder(root)
	if err != nil {
		t.Fatalf("ScanFolder() error = %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("admissible files = %d, want 2: %+v", len(files), files)
	}
	for _, file := range files {
		if file.Name == "notes.txt" || file.Name == "empty.mp4" {
			t.Fatalf("inadmissible file selected: %s", file.Name)
		}
	}
}

// TestStartBatchProcessesAllFiles checks batch submission end to end.
func TestStartBatchProcessesAllFiles(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "a.mp4")
	second := filepath.Join(root, "b.mov")
	mustWriteFile(t, first, "x")
	mustWriteFile(t, second, "x")

	app := newTestApp(t)
	queued, err := app.StartBatch([]string{first, second})
	if err != nil {
		t.Fatalf("StartBatch() error = %v", err)
	}
	if queued != 2 {
		t.Fatalf("queued = %d, want 2", queued)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(app.CompletedTasks()) == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("completed = %d, want 2", len(app.CompletedTasks()))
}

// TestSaveSubtitleWritesArtifactWithDerivedName checks the download
// export operation.
func TestSaveSubtitleWritesArtifactWithDerivedName(t *testing.T) {
	app := newTestApp(t)
	videoPath := filepath.Join(t.TempDir(), "holiday.clip.mp4")
	mustWriteFile(t, videoPath, "video-bytes")

	task, err := app.SubmitVideo(videoPath)
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	final := waitForStatus(t, app, task.ID, domain.TaskStatusCompleted)

	outDir := t.TempDir()
	var suggestedName string
	app.saveDialog = func(_ context.Context, opts wailsruntime.SaveDialogOptions) (string, error) {
		suggestedName = opts.DefaultFilename
		return filepath.Join(outDir, opts.DefaultFilename), nil
	}

	written, err := app.SaveSubtitle(task.ID)
	if err != nil {
		t.Fatalf("SaveSubtitle() error = %v", err)
	}
	if suggestedName != "holiday.clip.srt" {
		t.Fatalf("suggested name = %q, want holiday.clip.srt", suggestedName)
	}

	content, err := os.ReadFile(written)
	if err != nil {
		t.Fatalf("read written subtitle: %v", err)
	}
	if string(content) != final.SubtitleContent {
		t.Fatal("written content differs from task artifact")
	}
}

// TestSaveSubtitleCancelledDialog checks user cancellation is not an
// error.
func TestSaveSubtitleCancelledDialog(t *testing.T) {
	app := newTestApp(t)
	videoPath := filepath.Join(t.TempDir(), "demo.mp4")
	mustWriteFile(t, videoPath, "video-bytes")

	task, _ := app.SubmitVideo(videoPath)
	waitForStatus(t, app, task.ID, domain.TaskStatusCompleted)

	app.saveDialog = func(context.Context, wailsruntime.SaveDialogOptions) (string, error) {
		return "", nil
	}

	written, err := app.SaveSubtitle(task.ID)
	if err != nil {
		t.Fatalf("SaveSubtitle() error = %v", err)
	}
	if written != "" {
		t.Fatalf("written = %q, want empty on cancel", written)
	}
}

// TestCopySubtitleClipboardFailureLeavesTaskUntouched checks the copy
// export error path.
func TestCopySubtitleClipboardFailureLeavesTaskUntouched(t *testing.T) {
	app := newTestApp(t)
	videoPath := filepath.Join(t.TempDir(), "demo.mp4")
	mustWriteFile(t, videoPath, "video-bytes")

	task, _ := app.SubmitVideo(videoPath)
	before := waitForStatus(t, app, task.ID, domain.TaskStatusCompleted)

	app.clipboardSet = func(context.Context, string) error {
		return errors.New("clipboard unavailable")
	}

	if err := app.CopySubtitle(task.ID); err == nil {
		t.Fatal("expected clipboard error")
	}

	after, _ := app.Tasks.Get(task.ID)
	if after != before {
		t.Fatalf("task mutated by failed copy: %+v", after)
	}

	found := false
	for _, event := range app.TaskEvents(0) {
		if event.Type == jobs.EventTypeNotice && event.Level == jobs.NoticeLevelError {
			found = true
		}
	}
	if !found {
		t.Fatal("expected error notice for clipboard failure")
	}
}

// TestCopySubtitleRequiresCompletedTask checks artifact gating.
func TestCopySubtitleRequiresCompletedTask(t *testing.T) {
	app := newTestApp(t)
	id := app.Tasks.Add(domain.FileInfo{Name: "demo.mp4", Size: 10})

	if err := app.CopySubtitle(id); err == nil {
		t.Fatal("expected error for task without artifact")
	}
}

// TestRemoveTaskClearsCurrentSelection checks current-reference behavior
// through the bindings.
func TestRemoveTaskClearsCurrentSelection(t *testing.T) {
	app := newTestApp(t)
	first := app.Tasks.Add(domain.FileInfo{Name: "a.mp4", Size: 10})
	second := app.Tasks.Add(domain.FileInfo{Name: "b.mov", Size: 10})

	if err := app.SelectTask(first); err != nil {
		t.Fatalf("SelectTask() error = %v", err)
	}
	app.RemoveTask(first)

	if current := app.CurrentTask(); current != nil {
		t.Fatalf("current = %+v, want nil after removing current task", current)
	}

	if err := app.SelectTask(second); err != nil {
		t.Fatalf("SelectTask() error = %v", err)
	}
	if current := app.CurrentTask(); current == nil || current.ID != second {
		t.Fatal("expected second task to become current")
	}
}
