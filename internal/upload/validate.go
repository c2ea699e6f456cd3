package upload

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"video-captioner/internal/domain"
)

// MaxFileSize is the hard per-file ceiling, 500 MiB.
const MaxFileSize = 500 * 1024 * 1024

// allowedExtensions is the admissible video extension set, lower-cased.
var allowedExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
	".wmv": {},
}

// allowedMIMETypes mirrors the extension set. Either signal is sufficient;
// a mismatched MIME type does not reject a file whose extension matches.
var allowedMIMETypes = map[string]struct{}{
	"video/mp4":       {},
	"video/quicktime": {},
	"video/x-msvideo": {},
	"video/x-ms-wmv":  {},
}

// Validate applies the admission rule to one file: a known extension or a
// known MIME type, a non-empty payload, and the size ceiling.
func Validate(file domain.FileInfo) error {
	if strings.TrimSpace(file.Name) == "" {
		return fmt.Errorf("file name is empty")
	}
	if file.Size == 0 {
		return fmt.Errorf("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	_, extOK := allowedExtensions[ext]
	_, mimeOK := allowedMIMETypes[file.MIMEType]
	if !extOK && !mimeOK {
		return fmt.Errorf("unsupported video format %q, supported formats: %s", ext, supportedList())
	}

	if file.Size > MaxFileSize {
		return fmt.Errorf("file size exceeds the %d MiB limit", MaxFileSize/(1024*1024))
	}
	return nil
}

// FilterAdmissible returns the files that pass validation, in input order.
// This is the selection-step prefilter for folder submissions; invalid
// files are silently excluded from the selectable set.
func FilterAdmissible(files []domain.FileInfo) []domain.FileInfo {
	var out []domain.FileInfo
	for _, file := range files {
		if Validate(file) == nil {
			out = append(out, file)
		}
	}
	return out
}

// supportedList renders the extension set for error messages.
func supportedList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
