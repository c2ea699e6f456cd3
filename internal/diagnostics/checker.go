// Package diagnostics runs startup environment checks for the UI.
package diagnostics

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-captioner/internal/domain"
)

// Checker validates the export directory and backend configuration.
type Checker struct {
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkOutputDir(settings.OutputDir),
		c.checkBackendURL(settings.APIBaseURL),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkOutputDir verifies the subtitle export directory is writable,
// creating it when absent.
func (c *Checker) checkOutputDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Subtitle output directory",
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is not configured"
		item.Hint = "Pick an output directory in settings."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %v", err)
		return item
	}

	probe, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %v", err)
		return item
	}
	probePath := probe.Name()
	_ = probe.Close()
	_ = c.remove(probePath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable: %s", filepath.Clean(dir))
	return item
}

// checkBackendURL validates the configured service URL. An empty URL is a
// warning, not a failure: the app runs against the built-in simulator.
func (c *Checker) checkBackendURL(raw string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend_url",
		Name: "Conversion service",
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "No backend configured; using the built-in pipeline simulator"
		item.Hint = "Set the service URL in settings to run real conversions."
		return item
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Invalid service URL: %s", trimmed)
		item.Hint = "Use an absolute http(s) URL, e.g. http://localhost:5000."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Configured: %s", trimmed)
	return item
}
