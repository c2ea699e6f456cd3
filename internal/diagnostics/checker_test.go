package diagnostics

import (
	"errors"
	"os"
	"testing"

	"video-captioner/internal/domain"
)

func findItem(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %q missing from report", id)
	return domain.DiagnosticItem{}
}

// TestRunPassesWithWritableDirAndValidURL checks the all-green report.
func TestRunPassesWithWritableDirAndValidURL(t *testing.T) {
	checker := NewChecker()
	report := checker.Run(domain.Settings{
		OutputDir:  t.TempDir(),
		APIBaseURL: "http://localhost:5000",
	})

	if report.HasFailures {
		t.Fatalf("unexpected failures: %+v", report.Items)
	}
	if item := findItem(t, report, "output_dir"); item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("output_dir status = %s, want pass", item.Status)
	}
	if item := findItem(t, report, "backend_url"); item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("backend_url status = %s, want pass", item.Status)
	}
}

// TestRunWarnsWithoutBackendURL checks simulator mode is not a failure.
func TestRunWarnsWithoutBackendURL(t *testing.T) {
	checker := NewChecker()
	report := checker.Run(domain.Settings{OutputDir: t.TempDir()})

	if report.HasFailures {
		t.Fatalf("simulator mode must not fail diagnostics: %+v", report.Items)
	}
	if item := findItem(t, report, "backend_url"); item.Status != domain.DiagnosticStatusWarn {
		t.Fatalf("backend_url status = %s, want warn", item.Status)
	}
}

// TestRunFailsOnInvalidBackendURL checks URL validation.
func TestRunFailsOnInvalidBackendURL(t *testing.T) {
	checker := NewChecker()
	report := checker.Run(domain.Settings{
		OutputDir:  t.TempDir(),
		APIBaseURL: "not a url",
	})

	if !report.HasFailures {
		t.Fatal("expected failing report")
	}
	if item := findItem(t, report, "backend_url"); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("backend_url status = %s, want fail", item.Status)
	}
}

// TestRunFailsWhenOutputDirNotWritable checks the write probe.
func TestRunFailsWhenOutputDirNotWritable(t *testing.T) {
	checker := &Checker{
		mkdirAll: func(string, os.FileMode) error { return nil },
		createTemp: func(string, string) (*os.File, error) {
			return nil, errors.New("permission denied")
		},
		remove: os.Remove,
	}

	report := checker.Run(domain.Settings{OutputDir: "/somewhere"})
	if !report.HasFailures {
		t.Fatal("expected failing report")
	}
	if item := findItem(t, report, "output_dir"); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("output_dir status = %s, want fail", item.Status)
	}
}

// TestRunFailsWhenOutputDirMissingFromSettings checks the empty-dir case.
func TestRunFailsWhenOutputDirMissingFromSettings(t *testing.T) {
	checker := NewChecker()
	report := checker.Run(domain.Settings{APIBaseURL: "http://localhost:5000"})

	if !report.HasFailures {
		t.Fatal("expected failing report")
	}
}
