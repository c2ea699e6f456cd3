package config

import (
	"os"
	"path/filepath"

	"video-captioner/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
// APIBaseURL stays empty so the app starts against the built-in pipeline
// simulator until a backend is configured.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputDir:  filepath.Join(homeDir, "Documents", "Subtitles"),
		APIBaseURL: "",
		Language:   "auto",
	}
}
