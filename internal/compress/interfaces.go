package compress

import "context"

// Recompressor defines the interface for the compression service.
type Recompressor interface {
	Recompress(ctx context.Context, inputPath string, onProgress func(float64)) (string, error)
}
