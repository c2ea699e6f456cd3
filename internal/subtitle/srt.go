// Package subtitle builds and names SubRip (SRT) artifacts.
package subtitle

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Entry is a single subtitle block: index, time bounds, caption text.
type Entry struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Compose renders entries as SRT: blocks separated by a blank line, each
// block an index line, a timecode line, and one or more caption lines.
func Compose(entries []Entry) string {
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n", entry.Index)
		fmt.Fprintf(&b, "%s --> %s\n", Timestamp(entry.Start), Timestamp(entry.End))
		b.WriteString(entry.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Timestamp formats a duration as an SRT timecode, HH:MM:SS,mmm.
func Timestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// OutputFilename derives the subtitle download name from the submitted
// video name by stripping the final extension only: "a.b.mov" -> "a.b.srt".
func OutputFilename(originalFilename string) string {
	base := filepath.Base(originalFilename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		name = "subtitle"
	}
	return name + ".srt"
}
