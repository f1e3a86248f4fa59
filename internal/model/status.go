package model

// JobStatus represents the status of a download job
type JobStatus string

const (
	// JobStatusPending means the job is queued but not started
	JobStatusPending JobStatus = "pending"

	// JobStatusStarting means the job is in the process of starting
	JobStatusStarting JobStatus = "starting"

	// JobStatusDownloading means the download is in progress
	JobStatusDownloading JobStatus = "downloading"

	// JobStatusProcessing means the download finished and the file is being
	// post-processed (merge, audio extraction, or re-encode)
	JobStatusProcessing JobStatus = "processing"

	// JobStatusStopping means the job is in the process of stopping
	JobStatusStopping JobStatus = "stopping"

	// JobStatusStopped means the job was cancelled by the user
	JobStatusStopped JobStatus = "stopped"

	// JobStatusCompleted means the job finished and the file is ready
	JobStatusCompleted JobStatus = "completed"

	// JobStatusError means the job failed with an error
	JobStatusError JobStatus = "error"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsActive returns true if the job is in an active state
func (js JobStatus) IsActive() bool {
	return js == JobStatusStarting || js == JobStatusDownloading || js == JobStatusProcessing || js == JobStatusStopping
}

// IsFinished returns true if the job is in a finished state (completed, stopped, or error)
func (js JobStatus) IsFinished() bool {
	return js == JobStatusCompleted || js == JobStatusStopped || js == JobStatusError
}
