package model

import (
	"fmt"
	"strings"
	"time"
)

// Request holds the validated, immutable parameters of one submission
type Request struct {
	URL          string  // normalized source URL
	Quality      Quality // resolution ladder selector
	MergeFormat  string  // target container for merged video ("mp4", "mkv", "" = auto)
	AudioFormat  string  // extraction codec for audio-only jobs (e.g. "m4a")
	UserAgent    string  // resolved User-Agent header, "" for the tool default
	FilenameStem string  // custom output filename stem, "" for auto
	Compress     bool    // re-encode the finished video before delivery
}

// DownloadJob represents a single download job and its transient file
type DownloadJob struct {
	ID           string
	Request      Request
	Status       JobStatus
	Progress     float64   // 0.0 to 1.0
	Percent      int       // 0 to 100
	Speed        string    // human readable speed (e.g., "1.2MB/s")
	ETASec       int       // ETA in seconds, -1 if unknown
	LastError    string    // last error message if any
	ReportedFile string    // path last reported by the external tool's progress
	OutputPath   string    // path to the finished file
	VideoID      string    // media id reported by the external tool
	Title        string    // media title
	FileSize     int64     // finished file size in bytes
	StartedAt    time.Time // when the job was accepted
	FinishedAt   time.Time // when the job finished
	Delivered    bool      // file was served to the user at least once
	Reclaimed    bool      // file was deleted by cleanup or post-delivery
}

// Ready returns true when the job's file can be served
func (j *DownloadJob) Ready() bool {
	return j.Status == JobStatusCompleted && j.OutputPath != "" && !j.Reclaimed
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (j *DownloadJob) GetETAString() string {
	if j.ETASec <= 0 {
		return "—"
	}

	hours := j.ETASec / 3600
	minutes := (j.ETASec % 3600) / 60
	seconds := j.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (j *DownloadJob) GetDisplayTitle() string {
	// First priority: media title (non-URL)
	if j.Title != "" && !strings.HasPrefix(j.Title, "http") {
		return j.Title
	}

	// Second priority: filename from OutputPath
	if j.OutputPath != "" {
		parts := strings.FieldsFunc(j.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return j.Request.URL
}
