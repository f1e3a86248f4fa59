package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("failed to set mtime on %s: %v", name, err)
		}
	}
	return path
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"with id marker", "/tmp/dl/Some Video [dQw4w9WgXcQ].mp4", "dQw4w9WgXcQ"},
		{"audio extension", "Track [abc_123].m4a", "abc_123"},
		{"no marker", "/tmp/dl/video.mp4", ""},
		{"brackets mid-name only", "clip [draft] final.mp4", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVideoID(tt.path); got != tt.expected {
				t.Errorf("ExtractVideoID(%q) = %q, expected %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestResolveFinalFile_ByVideoID(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, dir, "Other Video [zzz].mp4", now.Add(-time.Minute))
	want := writeFile(t, dir, "Some Video [abc123].mp4", now)
	writeFile(t, dir, "Some Video [abc123].mp4.part", now)

	got, err := ResolveFinalFile(dir, "abc123", "", now.Add(-time.Minute), nil)
	if err != nil {
		t.Fatalf("ResolveFinalFile returned error: %v", err)
	}
	if got != want {
		t.Errorf("ResolveFinalFile = %q, expected %q", got, want)
	}
}

func TestResolveFinalFile_ReportedPathWithChangedExtension(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	// Audio extraction replaced the reported .webm with .m4a.
	want := writeFile(t, dir, "track.m4a", now)
	reported := filepath.Join(dir, "track.webm")

	got, err := ResolveFinalFile(dir, "", reported, now, []string{"m4a", "mp3"})
	if err != nil {
		t.Fatalf("ResolveFinalFile returned error: %v", err)
	}
	if got != want {
		t.Errorf("ResolveFinalFile = %q, expected %q", got, want)
	}
}

func TestResolveFinalFile_NewestAfterStart(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, dir, "old-download.mp4", now.Add(-time.Hour))
	want := writeFile(t, dir, "fresh-download.mp4", now)

	got, err := ResolveFinalFile(dir, "", "", now.Add(-time.Second), nil)
	if err != nil {
		t.Fatalf("ResolveFinalFile returned error: %v", err)
	}
	if got != want {
		t.Errorf("ResolveFinalFile = %q, expected %q", got, want)
	}
}

func TestResolveFinalFile_NothingFound(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, dir, "stale.mp4", now.Add(-time.Hour))
	writeFile(t, dir, "inflight.mp4.part", now)

	if _, err := ResolveFinalFile(dir, "abc", "", now.Add(-time.Second), nil); err == nil {
		t.Error("ResolveFinalFile should fail when only stale or in-flight files exist")
	}
}

func TestCreateDirectoryIfNotExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")

	if err := CreateDirectoryIfNotExists(dir); err != nil {
		t.Fatalf("CreateDirectoryIfNotExists returned error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory was not created: %v", err)
	}

	// Second call on an existing directory is a no-op.
	if err := CreateDirectoryIfNotExists(dir); err != nil {
		t.Errorf("CreateDirectoryIfNotExists on existing dir returned error: %v", err)
	}
}
