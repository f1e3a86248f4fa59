package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/Ethica-Project/EthicaDL/internal/compress"
	"github.com/Ethica-Project/EthicaDL/internal/logging"
	"github.com/Ethica-Project/EthicaDL/internal/model"
	"github.com/Ethica-Project/EthicaDL/internal/platform"
)

// Sentinel errors surfaced to the API layer
var (
	ErrJobNotFound  = errors.New("job not found")
	ErrDuplicateURL = errors.New("a job for this URL is already active")
	ErrJobNotActive = errors.New("job is not active")
)

const (
	// DefaultOutputTemplate names files so the media id survives
	// postprocessing; the title is capped to keep paths sane.
	DefaultOutputTemplate = "%(title).200B [%(id)s].%(ext)s"

	// DefaultAudioFormat is used when an audio-only job names no codec
	DefaultAudioFormat = "m4a"

	progressInterval = 500 * time.Millisecond
	stopPollInterval = 100 * time.Millisecond

	maxRetries   = 1
	retryBackoff = 2 * time.Second

	jobIDPrefix = "job-"
)

// Options configures the job service
type Options struct {
	DownloadDir       string
	MaxParallel       int
	InactivityTimeout time.Duration
	FFmpegPath        string
}

// Service owns the in-memory job table and runs the external downloading
// tool for each accepted request, at most MaxParallel at a time.
type Service struct {
	jobs              map[string]*model.DownloadJob
	jobsMutex         sync.RWMutex
	maxParallel       int
	activeCount       int
	downloadDir       string
	inactivityTimeout time.Duration
	ffmpegPath        string
	recompressor      compress.Recompressor
	logger            logging.Logger
}

// NewService creates a new job service
func NewService(opts Options, rc compress.Recompressor, logger logging.Logger) *Service {
	return &Service{
		jobs:              make(map[string]*model.DownloadJob),
		maxParallel:       opts.MaxParallel,
		downloadDir:       opts.DownloadDir,
		inactivityTimeout: opts.InactivityTimeout,
		ffmpegPath:        opts.FFmpegPath,
		recompressor:      rc,
		logger:            logger,
	}
}

// Submit accepts a validated request and queues a download job for it
func (s *Service) Submit(req model.Request) (*model.DownloadJob, error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	// One active job per URL
	for _, job := range s.jobs {
		if job.Request.URL == req.URL && !job.Status.IsFinished() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateURL, req.URL)
		}
	}

	job := &model.DownloadJob{
		ID:        generateJobID(),
		Request:   req,
		Status:    model.JobStatusPending,
		Progress:  0.0,
		Percent:   0,
		ETASec:    -1,
		StartedAt: time.Now(),
	}

	s.jobs[job.ID] = job

	// Reserve the slot before the goroutine exists, so concurrent submits
	// can never both observe a free slot.
	if s.activeCount < s.maxParallel {
		s.activeCount++
		job.Status = model.JobStatusStarting
		go s.startJob(job)
	}

	return job, nil
}

// Snapshot returns a copy of a job by ID
func (s *Service) Snapshot(id string) (model.DownloadJob, bool) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return model.DownloadJob{}, false
	}
	return *job, true
}

// Snapshots returns copies of all jobs
func (s *Service) Snapshots() []model.DownloadJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]model.DownloadJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// Stop requests cancellation of a running job
func (s *Service) Stop(id string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if job.Status == model.JobStatusPending {
		// Never started; finish it directly.
		job.Status = model.JobStatusStopped
		job.FinishedAt = time.Now()
		return nil
	}

	if !job.Status.IsActive() {
		return fmt.Errorf("%w: %s is %s", ErrJobNotActive, id, job.Status)
	}

	// The job goroutine observes this transition and cancels the tool.
	job.Status = model.JobStatusStopping
	return nil
}

// MarkDelivered records that the job's file was served in full
func (s *Service) MarkDelivered(id string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	if job, exists := s.jobs[id]; exists {
		job.Delivered = true
	}
}

// ReclaimFile deletes the job's file from temporary storage and marks the
// job reclaimed. Missing files are not an error: the janitor may have been
// there first.
func (s *Service) ReclaimFile(id string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.OutputPath == "" || job.Reclaimed {
		return nil
	}

	if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", job.OutputPath, err)
	}
	job.Reclaimed = true
	return nil
}

// MarkFileReclaimed records that cleanup removed the given file, so the job
// stops advertising it as ready.
func (s *Service) MarkFileReclaimed(path string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	for _, job := range s.jobs {
		if job.OutputPath == path {
			job.Reclaimed = true
		}
	}
}

// PruneFinished drops finished job records older than cutoff whose files are
// gone, and returns how many were removed.
func (s *Service) PruneFinished(cutoff time.Time) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	pruned := 0
	for id, job := range s.jobs {
		if !job.Status.IsFinished() || job.FinishedAt.After(cutoff) {
			continue
		}
		if job.Status == model.JobStatusCompleted && !job.Reclaimed {
			continue
		}
		delete(s.jobs, id)
		pruned++
	}
	return pruned
}

// startJob runs the external tool for one job. The caller has already
// reserved a slot and moved the job to Starting under the lock.
func (s *Service) startJob(job *model.DownloadJob) {
	ctx := context.Background()

	defer func() {
		s.jobsMutex.Lock()
		s.activeCount--
		s.jobsMutex.Unlock()

		s.startNextPendingJob()
	}()

	log := s.logger.With("job_id", job.ID)

	s.jobsMutex.Lock()
	if job.Status != model.JobStatusStarting {
		// A stop request beat the goroutine to the job.
		job.Status = model.JobStatusStopped
		job.FinishedAt = time.Now()
		s.jobsMutex.Unlock()
		return
	}
	job.Status = model.JobStatusDownloading
	s.jobsMutex.Unlock()

	// Context the tool runs under: cancellable by Stop, aborted by the
	// inactivity watchdog.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runCtx, wd := newWatchdog(runCtx, s.inactivityTimeout)
	defer wd.Cancel()

	// Monitor for stop requests
	go func() {
		for {
			s.jobsMutex.RLock()
			status := job.Status
			s.jobsMutex.RUnlock()

			if status == model.JobStatusStopping {
				cancel()
				return
			}
			if status.IsFinished() {
				return
			}
			time.Sleep(stopPollInterval)
		}
	}()

	dl := s.buildCommand(job.Request)
	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		wd.Kick()
		s.updateJobProgress(job, &update)
	})

	result, err := s.downloadWithRetry(runCtx, dl, job)

	if err != nil {
		s.finishWithError(job, runCtx, err, log)
		return
	}

	finalPath, resolveErr := s.resolveOutput(job, result)

	s.jobsMutex.Lock()
	if resolveErr != nil {
		job.Status = model.JobStatusError
		job.LastError = resolveErr.Error()
		job.FinishedAt = time.Now()
		s.jobsMutex.Unlock()
		log.Error(ctx, "download finished but no output file found", "err", resolveErr)
		return
	}
	job.OutputPath = finalPath
	compressRequested := job.Request.Compress && !job.Request.Quality.IsAudioOnly()
	if compressRequested {
		job.Status = model.JobStatusProcessing
	}
	s.jobsMutex.Unlock()

	if compressRequested {
		if out, cerr := s.recompressor.Recompress(runCtx, finalPath, func(p float64) {
			wd.Kick()
			s.jobsMutex.Lock()
			job.Progress = p
			job.Percent = int(p * 100)
			s.jobsMutex.Unlock()
		}); cerr != nil {
			// Keep the uncompressed file; the download itself succeeded.
			log.Warn(ctx, "recompression failed, serving original file", "err", cerr)
		} else {
			os.Remove(finalPath)
			finalPath = out
		}
	}

	s.jobsMutex.Lock()
	job.Status = model.JobStatusCompleted
	job.Progress = 1.0
	job.Percent = 100
	job.ETASec = -1
	job.OutputPath = finalPath
	if info, err := os.Stat(finalPath); err == nil {
		job.FileSize = info.Size()
	}
	job.FinishedAt = time.Now()
	s.jobsMutex.Unlock()

	log.Info(ctx, "download completed", "file", finalPath)
}

// toolOptions is the slice of the tool's option builder that configuring a
// request touches, so tests can record what a request turns into.
type toolOptions interface {
	NoPlaylist() *ytdlp.Command
	ForceOverwrites() *ytdlp.Command
	RestrictFilenames() *ytdlp.Command
	Format(sel string) *ytdlp.Command
	Output(template string) *ytdlp.Command
	FFmpegLocation(path string) *ytdlp.Command
	AddHeaders(header string) *ytdlp.Command
	ConcurrentFragments(n int) *ytdlp.Command
	ExtractAudio() *ytdlp.Command
	AudioFormat(format string) *ytdlp.Command
	MergeOutputFormat(format string) *ytdlp.Command
}

// buildCommand translates a request into a configured tool invocation
func (s *Service) buildCommand(req model.Request) *ytdlp.Command {
	dl := ytdlp.New()
	s.configureCommand(dl, req)
	return dl
}

// configureCommand applies a request's options to the tool builder
func (s *Service) configureCommand(dl toolOptions, req model.Request) {
	dl.NoPlaylist()
	dl.ForceOverwrites()
	dl.RestrictFilenames()
	dl.Format(req.Quality.FormatSelector())
	dl.Output(s.outputTemplate(req))

	if s.ffmpegPath != "" {
		dl.FFmpegLocation(s.ffmpegPath)
	}

	if req.UserAgent != "" {
		dl.AddHeaders("User-Agent:" + req.UserAgent)
	}

	// Reduce 403 responses on YouTube: send a Referer and fetch fragments
	// sequentially.
	if platform.IsYouTubeURL(req.URL) {
		dl.AddHeaders("Referer:https://www.youtube.com")
		dl.ConcurrentFragments(1)
	}

	if req.Quality.IsAudioOnly() {
		dl.ExtractAudio()
		dl.AudioFormat(s.audioFormat(req))
	} else if req.MergeFormat != "" && req.MergeFormat != "auto" {
		dl.MergeOutputFormat(req.MergeFormat)
	}
}

// outputTemplate builds the output path template for a request. A custom
// stem overrides the default; a stem without an extension lets the tool
// choose one, and a stem already containing template fields is used as-is.
func (s *Service) outputTemplate(req model.Request) string {
	name := strings.TrimSpace(req.FilenameStem)
	switch {
	case name == "":
		name = DefaultOutputTemplate
	case strings.Contains(name, "%(") && strings.Contains(name, ")s"):
		// Already a template.
	case !strings.Contains(filepath.Base(name), "."):
		name += ".%(ext)s"
	}
	return filepath.Join(s.downloadDir, name)
}

func (s *Service) audioFormat(req model.Request) string {
	if req.AudioFormat != "" {
		return req.AudioFormat
	}
	return DefaultAudioFormat
}

// extCandidates lists extensions the postprocessors may have produced, in
// preference order, for final-file resolution.
func (s *Service) extCandidates(req model.Request) []string {
	if req.Quality.IsAudioOnly() {
		return []string{s.audioFormat(req)}
	}
	cands := []string{}
	if req.MergeFormat != "" && req.MergeFormat != "auto" {
		cands = append(cands, req.MergeFormat)
	}
	return append(cands, "mp4", "mkv", "webm")
}

// downloadWithRetry attempts download with retry logic
func (s *Service) downloadWithRetry(ctx context.Context, dl *ytdlp.Command, job *model.DownloadJob) (*ytdlp.Result, error) {
	var lastErr error
	var result *ytdlp.Result

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			s.logger.Info(ctx, "retrying download", "job_id", job.ID, "attempt", attempt+1)
		}

		res, err := dl.Run(ctx, job.Request.URL)
		if err == nil {
			return res, nil
		}

		lastErr = err
		result = res // keep last result even if there was an error
		s.logger.Warn(ctx, "download attempt failed", "job_id", job.ID, "attempt", attempt+1, "err", err)

		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	return result, lastErr
}

// finishWithError records the terminal state of a failed or cancelled job
// and removes whatever in-flight artifacts it left behind.
func (s *Service) finishWithError(job *model.DownloadJob, runCtx context.Context, err error, log logging.Logger) {
	s.jobsMutex.Lock()
	videoID := platform.ExtractVideoID(job.ReportedFile)
	switch {
	case errors.Is(context.Cause(runCtx), os.ErrDeadlineExceeded):
		job.Status = model.JobStatusError
		job.LastError = fmt.Sprintf("download stalled: no progress within %s", s.inactivityTimeout)
	case runCtx.Err() != nil:
		job.Status = model.JobStatusStopped
	default:
		job.Status = model.JobStatusError
		job.LastError = err.Error()
	}
	job.VideoID = videoID
	job.FinishedAt = time.Now()
	status := job.Status
	s.jobsMutex.Unlock()

	if n := platform.RemovePartialFiles(s.downloadDir, videoID); n > 0 {
		log.Info(context.Background(), "removed partial files", "count", n)
	}
	log.Info(context.Background(), "download did not complete", "status", status, "err", err)
}

// resolveOutput determines the final artifact path once the tool reports
// success, and fills in the media metadata it extracted.
func (s *Service) resolveOutput(job *model.DownloadJob, result *ytdlp.Result) (string, error) {
	s.jobsMutex.RLock()
	reported := job.ReportedFile
	s.jobsMutex.RUnlock()

	if result != nil {
		if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 {
			if info[0].Filename != nil && *info[0].Filename != "" {
				reported = *info[0].Filename
			}
			if info[0].Title != nil {
				s.jobsMutex.Lock()
				job.Title = *info[0].Title
				s.jobsMutex.Unlock()
			}
		}
	}

	videoID := platform.ExtractVideoID(reported)
	s.jobsMutex.Lock()
	job.VideoID = videoID
	startedAt := job.StartedAt
	req := job.Request
	s.jobsMutex.Unlock()

	return platform.ResolveFinalFile(s.downloadDir, videoID, reported, startedAt, s.extCandidates(req))
}

// updateJobProgress updates job progress from a tool progress report
func (s *Service) updateJobProgress(job *model.DownloadJob, update *ytdlp.ProgressUpdate) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if update.TotalBytes > 0 {
		percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
		job.Percent = int(percent)
		job.Progress = percent / 100.0
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started)
		if elapsed.Seconds() > 0 {
			bytesPerSecond := float64(update.DownloadedBytes) / elapsed.Seconds()
			job.Speed = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
		}
	}

	if eta := update.ETA(); eta > 0 {
		job.ETASec = int(eta.Seconds())
	}

	if update.Filename != "" {
		job.ReportedFile = update.Filename
	}

	if update.Info != nil && update.Info.Title != nil && *update.Info.Title != "" && job.Title == "" {
		job.Title = *update.Info.Title
	}
}

// startNextPendingJob starts the next pending job if we have capacity
func (s *Service) startNextPendingJob() {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if s.activeCount >= s.maxParallel {
		return
	}

	for _, job := range s.jobs {
		if job.Status == model.JobStatusPending {
			s.activeCount++
			job.Status = model.JobStatusStarting
			go s.startJob(job)
			return
		}
	}
}

// generateJobID generates a unique job ID using UUID v7 so ids sort by time
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(jobIDPrefix+"%d", time.Now().UnixNano())
	}
	return jobIDPrefix + id.String()
}
