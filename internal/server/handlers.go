package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Ethica-Project/EthicaDL/internal/download"
	"github.com/Ethica-Project/EthicaDL/internal/model"
	"github.com/Ethica-Project/EthicaDL/internal/platform"
)

// submitRequest is the JSON body of POST /api/download, field names
// matching the submission form.
type submitRequest struct {
	URL            string `json:"url"`
	Resolution     string `json:"resolution"`
	Merge          string `json:"merge"`
	AudioFmt       string `json:"audioFmt"`
	UAChoice       string `json:"uaChoice"`
	UACustom       string `json:"uaCustom"`
	FilenameChoice string `json:"filenameChoice"`
	FilenameCustom string `json:"filenameCustom"`
	Compress       bool   `json:"compress"`
}

// statusResponse is the JSON body of GET /api/status/{id}
type statusResponse struct {
	ID       string  `json:"id"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	ETA      string  `json:"eta,omitempty"`
	Speed    string  `json:"speed,omitempty"`
	Title    string  `json:"title,omitempty"`
	Ready    bool    `json:"ready"`
	Error    string  `json:"error,omitempty"`
}

const defaultMergeFormat = "mp4"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	// Reject bad URLs before any job or storage artifact exists.
	normalized, err := platform.NormalizeURL(body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := model.Request{
		URL:         normalized,
		Quality:     model.Quality(body.Resolution).Normalize(),
		MergeFormat: body.Merge,
		AudioFormat: body.AudioFmt,
		UserAgent:   download.ResolveUserAgent(body.UAChoice, body.UACustom),
		Compress:    body.Compress,
	}
	if req.MergeFormat == "" {
		req.MergeFormat = defaultMergeFormat
	}
	if body.FilenameChoice == "custom" {
		req.FilenameStem = body.FilenameCustom
	}

	job, err := s.jobs.Submit(req)
	if err != nil {
		if errors.Is(err, download.ErrDuplicateURL) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info(r.Context(), "job accepted", "job_id", job.ID, "url", normalized, "quality", req.Quality)
	writeJSON(w, http.StatusCreated, map[string]string{"job_id": job.ID})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch err := s.jobs.Stop(id); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "state": model.JobStatusStopping.String()})
	case errors.Is(err, download.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, download.ErrJobNotActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, exists := s.jobs.Snapshot(r.PathValue("id"))
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := statusResponse{
		ID:       job.ID,
		State:    job.Status.String(),
		Progress: float64(job.Percent),
		Speed:    job.Speed,
		Title:    job.Title,
		Ready:    job.Ready(),
		Error:    job.LastError,
	}
	if job.ETASec > 0 {
		resp.ETA = job.GetETAString()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	job, exists := s.jobs.Snapshot(r.PathValue("id"))
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if job.Reclaimed {
		writeError(w, http.StatusGone, "file no longer available")
		return
	}
	if !job.Ready() {
		writeError(w, http.StatusConflict, "file not ready")
		return
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil {
		// The janitor may have reclaimed the file between sweeps of the
		// job table.
		writeError(w, http.StatusGone, "file missing")
		return
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
		w.WriteHeader(http.StatusOK)
		return
	}

	f, err := os.Open(job.OutputPath)
	if err != nil {
		writeError(w, http.StatusGone, "file missing")
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.OutputPath)))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, throttledReader(f, s.cfg.RateLimitBPS))
	if err != nil || n != info.Size() {
		s.logger.Warn(r.Context(), "delivery interrupted", "job_id", job.ID, "sent", n, "err", err)
		return
	}

	s.jobs.MarkDelivered(job.ID)
	if s.cfg.DeleteAfterDelivery {
		if err := s.jobs.ReclaimFile(job.ID); err != nil {
			s.logger.Error(r.Context(), "post-delivery cleanup failed", "job_id", job.ID, "err", err)
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
