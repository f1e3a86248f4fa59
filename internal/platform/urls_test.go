package platform

import (
	"errors"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "youtu.be short link",
			input:    "https://youtu.be/dQw4w9WgXcQ",
			expected: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:     "youtu.be with query",
			input:    "https://youtu.be/dQw4w9WgXcQ?t=42",
			expected: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:     "shorts URL",
			input:    "https://www.youtube.com/shorts/abc123DEF45",
			expected: "https://www.youtube.com/watch?v=abc123DEF45",
		},
		{
			name:     "watch URL keeps only v param",
			input:    "https://www.youtube.com/watch?v=abc123DEF45&list=PL123&index=2",
			expected: "https://www.youtube.com/watch?v=abc123DEF45",
		},
		{
			name:     "watch URL without v passes through",
			input:    "https://www.youtube.com/watch",
			expected: "https://www.youtube.com/watch",
		},
		{
			name:     "non-YouTube URL passes through",
			input:    "https://vimeo.com/123456",
			expected: "https://vimeo.com/123456",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  https://vimeo.com/123456  ",
			expected: "https://vimeo.com/123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no scheme", "www.youtube.com/watch?v=abc"},
		{"unsupported scheme", "ftp://example.com/file"},
		{"scheme without host", "https://"},
		{"garbage", "ht tp://%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeURL(tt.input)
			if err == nil {
				t.Fatalf("NormalizeURL(%q) should have been rejected", tt.input)
			}
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("error should wrap ErrInvalidURL, got %v", err)
			}
		})
	}
}

func TestIsYouTubeURL(t *testing.T) {
	if !IsYouTubeURL("https://www.youtube.com/watch?v=abc") {
		t.Error("youtube.com should be detected")
	}
	if !IsYouTubeURL("https://youtu.be/abc") {
		t.Error("youtu.be should be detected")
	}
	if IsYouTubeURL("https://vimeo.com/123") {
		t.Error("vimeo should not be detected as YouTube")
	}
}
