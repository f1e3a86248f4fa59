package compress

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Ethica-Project/EthicaDL/internal/logging"
)

// FFmpeg constants for compression settings
const (
	// Video codec settings
	VideoCodec  = "libx264"
	VideoPreset = "medium"
	VideoCRF    = "23"

	// Audio codec settings
	AudioCodec   = "aac"
	AudioBitrate = "128k"

	// Container flags
	FastStartFlag = "+faststart"

	// Output suffix
	CompressedSuffix = "-compressed"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
	OutputExtensionMP4  = ".mp4"
)

// Service re-encodes finished downloads into smaller mp4 files before
// they are handed to delivery.
type Service struct {
	ffmpegDir string // optional directory holding ffmpeg/ffprobe
	logger    logging.Logger
}

// NewService creates a new compression service. ffmpegDir may be empty when
// the binaries are on PATH.
func NewService(ffmpegDir string, logger logging.Logger) *Service {
	return &Service{ffmpegDir: ffmpegDir, logger: logger}
}

// Recompress re-encodes inputPath into a sibling mp4 and returns its path.
// onProgress, if non-nil, receives values in [0,1] as encoding advances.
// The partial output is removed on error or cancellation.
func (s *Service) Recompress(ctx context.Context, inputPath string, onProgress func(float64)) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file does not exist: %w", err)
	}

	duration, err := s.getVideoDuration(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to probe input duration: %w", err)
	}

	outputPath := GenerateOutputPath(inputPath)
	args := BuildFFmpegArgs(inputPath, outputPath)
	cmd := exec.CommandContext(ctx, s.binary(FFmpegCommand), args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.monitorProgress(stderr, duration, onProgress)

	if err := cmd.Wait(); err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %w", err)
	}

	s.logger.Info(ctx, "recompressed file", "input", inputPath, "output", outputPath)
	return outputPath, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c:v", VideoCodec,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-movflags", FastStartFlag,
		"-progress", ProgressPipeTarget,
		"-nostats",
		outputPath,
	}
}

// GenerateOutputPath generates the output path for the compressed file
func GenerateOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	baseName := strings.TrimSuffix(inputPath, ext)
	return baseName + CompressedSuffix + OutputExtensionMP4
}

// getVideoDuration gets the duration of a video file using ffprobe
func (s *Service) getVideoDuration(filePath string) (float64, error) {
	cmd := exec.Command(s.binary(FFprobeCommand), "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// monitorProgress reads ffmpeg "-progress" output until the pipe closes
func (s *Service) monitorProgress(stderr io.ReadCloser, totalDuration float64, onProgress func(float64)) {
	defer stderr.Close()
	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Progress lines look like: out_time_us=123456
		if !strings.HasPrefix(line, ProgressTimePrefix) {
			continue
		}
		timeStr := strings.TrimPrefix(line, ProgressTimePrefix)
		timeMicroseconds, err := strconv.ParseInt(timeStr, 10, 64)
		if err != nil {
			continue
		}

		if totalDuration > 0 && onProgress != nil {
			progress := (float64(timeMicroseconds) / 1e6) / totalDuration
			if progress > 1.0 {
				progress = 1.0
			}
			onProgress(progress)
		}
	}
}

func (s *Service) binary(name string) string {
	if s.ffmpegDir == "" {
		return name
	}
	return filepath.Join(s.ffmpegDir, name)
}
