package download

import (
	"time"

	"github.com/Ethica-Project/EthicaDL/internal/model"
)

// Downloader defines the interface the HTTP layer uses to drive jobs.
type Downloader interface {
	// Submit queues a download job for a validated request
	Submit(req model.Request) (*model.DownloadJob, error)

	// Snapshot returns a copy of a job's current state
	Snapshot(id string) (model.DownloadJob, bool)

	// Snapshots returns copies of all jobs
	Snapshots() []model.DownloadJob

	// Stop cancels a pending or running job
	Stop(id string) error

	// MarkDelivered records a completed one-time delivery
	MarkDelivered(id string)

	// ReclaimFile deletes the job's file from temporary storage
	ReclaimFile(id string) error
}

// JobPruner is the slice of the service the cleanup janitor needs.
type JobPruner interface {
	// MarkFileReclaimed records that cleanup removed the given file
	MarkFileReclaimed(path string)

	// PruneFinished drops stale finished job records
	PruneFinished(cutoff time.Time) int
}
