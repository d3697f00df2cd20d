// Package source provides frame-oriented audio inputs for the visualizer.
// A Source yields fixed-size mono frames of float64 samples in [-1, 1].
package source

import "context"

// Source yields successive audio frames. Read blocks until a full frame is
// available, the stream ends (io.EOF), or the context is canceled. The
// returned slice is only valid until the next Read.
type Source interface {
	SampleRate() int
	FrameSize() int
	Read(ctx context.Context) ([]float64, error)
}
