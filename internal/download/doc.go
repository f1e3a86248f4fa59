package download

// Package download implements the core download pipeline built on top of
// yt-dlp (via github.com/lrstanley/go-ytdlp). It manages the in-memory job
// table, concurrency limits, progress propagation, the inactivity watchdog,
// and resolution of the final artifact.
