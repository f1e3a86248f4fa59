package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Extensions of in-flight artifacts that must never be served
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp"}
)

// Clock skew allowed when matching files against the job start time
const (
	ModTimeSkew = 5 * time.Second
)

// videoIDPattern matches the trailing "[id]" marker the output template
// appends to every filename.
var videoIDPattern = regexp.MustCompile(`\[([^\[\]]+)\]\.[^.\[\]]+$`)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// ExtractVideoID pulls the media id out of a filename produced by the
// "%(title)s [%(id)s].%(ext)s" output template. Returns "" when the
// filename carries no id marker.
func ExtractVideoID(path string) string {
	m := videoIDPattern.FindStringSubmatch(filepath.Base(path))
	if len(m) == 2 {
		return m[1]
	}
	return ""
}

// ResolveFinalFile locates the finished artifact of a download after the
// external tool and its postprocessors are done. Postprocessing may change
// the extension the progress hook last reported, so resolution is layered:
//
//  1. a file in dir carrying the "[videoID]" marker (newest wins),
//  2. the reported path itself, then the reported path with each candidate
//     extension substituted,
//  3. the newest file in dir modified after the job started.
//
// In-flight artifacts (.part, .ytdl) are never matched.
func ResolveFinalFile(dir, videoID, reportedPath string, startedAt time.Time, extCandidates []string) (string, error) {
	if p := findByVideoID(dir, videoID); p != "" {
		return p, nil
	}

	if reportedPath != "" {
		candidates := []string{reportedPath}
		ext := filepath.Ext(reportedPath)
		base := strings.TrimSuffix(reportedPath, ext)
		for _, cand := range extCandidates {
			cand = strings.TrimPrefix(strings.TrimSpace(cand), ".")
			if cand == "" {
				continue
			}
			candidates = append(candidates, base+"."+cand)
		}
		for _, c := range candidates {
			if isServableFile(c) {
				return c, nil
			}
		}
	}

	if p := findNewestAfter(dir, startedAt.Add(-ModTimeSkew)); p != "" {
		return p, nil
	}

	return "", fmt.Errorf("no output file found in %s", dir)
}

// findByVideoID returns the newest servable file in dir whose name carries
// the "[videoID]" marker, or "" when there is none.
func findByVideoID(dir, videoID string) string {
	if videoID == "" {
		return ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	marker := "[" + videoID + "]"
	var best string
	var bestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), marker) {
			continue
		}
		if isSkippedArtifact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}

// findNewestAfter returns the newest servable file in dir modified at or
// after cutoff, or "" when there is none.
func findNewestAfter(dir string, cutoff time.Time) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var best string
	var bestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || isSkippedArtifact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}

// RemovePartialFiles deletes in-flight artifacts (.part, .ytdl) left behind
// by a cancelled or failed download. When videoID is non-empty only artifacts
// carrying its marker are removed; otherwise all in-flight artifacts in dir
// are. Returns the number of files removed.
func RemovePartialFiles(dir, videoID string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	marker := ""
	if videoID != "" {
		marker = "[" + videoID + "]"
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isSkippedArtifact(entry.Name()) {
			continue
		}
		if marker != "" && !strings.Contains(entry.Name(), marker) {
			continue
		}
		if os.Remove(filepath.Join(dir, entry.Name())) == nil {
			removed++
		}
	}
	return removed
}

func isServableFile(path string) bool {
	if isSkippedArtifact(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isSkippedArtifact(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
