// Package capture implements the packet-source side of the streamid
// pipeline: subprocess adapters over tshark and tcpdump, and CDN-hostname
// BPF filter construction.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/afylking/streamid/internal/segmenter"
)

// ErrSourceExited is wrapped by CaptureError when the underlying capture
// subprocess exits unexpectedly.
var ErrSourceExited = errors.New("capture: packet source exited")

// CaptureError reports a packet-source failure, after the restart-once
// policy has been exhausted.
type CaptureError struct {
	Backend string
	Err     error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture: %s: %v", e.Backend, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Source produces packet tuples in timestamp order until ctx is cancelled
// or the underlying process exits. emit is called synchronously from
// Run's goroutine; callers that need concurrency must handle that
// themselves (the pipeline's ingest goroutine calls emit directly into the
// segmenter).
type Source interface {
	Run(ctx context.Context, emit func(segmenter.Packet)) error
	Name() string
}

// Factory builds a fresh Source instance, used by WithRestart to create a
// replacement process after the first one dies.
type Factory func() Source

// WithRestart wraps factory so that if the produced Source's Run returns
// an error, one replacement Source is started before giving up and
// returning a *CaptureError. This matches the error-handling contract: a
// single restart attempt, then a fatal error.
func WithRestart(ctx context.Context, factory Factory, emit func(segmenter.Packet)) error {
	src := factory()
	err := src.Run(ctx, emit)
	if err == nil || ctx.Err() != nil {
		return err
	}

	src = factory()
	err = src.Run(ctx, emit)
	if err == nil || ctx.Err() != nil {
		return err
	}

	return &CaptureError{Backend: src.Name(), Err: fmt.Errorf("%w: %v", ErrSourceExited, err)}
}
