package server

import (
	"io"

	"github.com/juju/ratelimit"
)

// throttledReader caps delivery bandwidth at bps bytes per second using a
// token bucket. A non-positive bps disables the cap.
func throttledReader(r io.Reader, bps int64) io.Reader {
	if bps <= 0 {
		return r
	}
	bucket := ratelimit.NewBucketWithRate(float64(bps), bps)
	return ratelimit.Reader(r, bucket)
}
