package model

// Quality is the user-chosen target resolution, identified by the same
// numeric selectors the submission form uses ("1" = 8K down to
// "10" = audio only).
type Quality string

const (
	Quality8K        Quality = "1"
	Quality4K        Quality = "2"
	Quality1440p     Quality = "3"
	Quality1080p     Quality = "4"
	Quality720p      Quality = "5"
	Quality480p      Quality = "6"
	Quality360p      Quality = "7"
	Quality240p      Quality = "8"
	Quality144p      Quality = "9"
	QualityAudioOnly Quality = "10"
)

// DefaultQuality is used when the selector is missing or unknown
const DefaultQuality = Quality1080p

// formatSelectors maps each quality to a yt-dlp format selector.
// Video selections prefer best video capped at the target height plus best
// audio, falling back to the best combined format at that height.
var formatSelectors = map[Quality]string{
	Quality8K:        "bv*[height<=4320]+ba/b[height<=4320]",
	Quality4K:        "bv*[height<=2160]+ba/b[height<=2160]",
	Quality1440p:     "bv*[height<=1440]+ba/b[height<=1440]",
	Quality1080p:     "bv*[height<=1080]+ba/b[height<=1080]",
	Quality720p:      "bv*[height<=720]+ba/b[height<=720]",
	Quality480p:      "bv*[height<=480]+ba/b[height<=480]",
	Quality360p:      "bv*[height<=360]+ba/b[height<=360]",
	Quality240p:      "bv*[height<=240]+ba/b[height<=240]",
	Quality144p:      "bv*[height<=144]+ba/b[height<=144]",
	QualityAudioOnly: "ba/b",
}

// FormatSelector returns the yt-dlp format selector for the quality.
// Unknown selectors fall back to the default quality.
func (q Quality) FormatSelector() string {
	if sel, ok := formatSelectors[q]; ok {
		return sel
	}
	return formatSelectors[DefaultQuality]
}

// IsAudioOnly returns true for the audio-only selection
func (q Quality) IsAudioOnly() bool {
	return q == QualityAudioOnly
}

// IsValid returns true if the selector is one of the supported steps
func (q Quality) IsValid() bool {
	_, ok := formatSelectors[q]
	return ok
}

// Normalize returns the quality itself when supported, or the default
func (q Quality) Normalize() Quality {
	if q.IsValid() {
		return q
	}
	return DefaultQuality
}
