package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// MinFreeDiskBytes is the preflight disk-space floor.
const MinFreeDiskBytes = 500 * 1024 * 1024 // 500MB

// FreeBytes reports the free disk space available at path. Exported so
// internal/doctor can run the same check standalone.
func FreeBytes(path string) (uint64, error) {
	return freeBytes(path)
}

// ErrNoLoopbackDevice is returned by Preflight when no loopback audio
// device could be detected; this failure is fatal and aborts startup
// before any pipeline stage is spawned.
var ErrNoLoopbackDevice = errors.New("no loopback audio device found")

// LivenessProber checks whether the LM server is reachable.
type LivenessProber interface {
	Alive(ctx context.Context) bool
}

// LoopbackDetector checks for the presence of a loopback audio device.
type LoopbackDetector interface {
	Detect(ctx context.Context) error
}

// PreflightResult carries the non-fatal warnings collected during
// Preflight, for the caller to log.
type PreflightResult struct {
	LMDown       bool
	LowDiskSpace bool
	FreeBytes    uint64
}

// Preflight runs the three startup checks concurrently: LM liveness, free
// disk space at outputDir, and loopback device presence. A missing
// loopback device is fatal and returned as an error; low disk space and an
// unreachable LM are reported as warnings in the result, with the LM-down
// state pre-latched onto monitor.
func Preflight(ctx context.Context, lm LivenessProber, loopback LoopbackDetector, outputDir string, monitor *Monitor) (PreflightResult, error) {
	var result PreflightResult
	var loopbackErr error

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		probeCtx, cancel := context.WithTimeout(gctx, 3*time.Second)
		defer cancel()
		result.LMDown = !lm.Alive(probeCtx)
		return nil
	})

	g.Go(func() error {
		free, err := freeBytes(outputDir)
		if err != nil {
			// Disk-space probing itself failing is treated as a warning,
			// not a fatal preflight error: the underlying filesystem call
			// may not be supported in every deployment environment.
			result.LowDiskSpace = true
			return nil
		}
		result.FreeBytes = free
		result.LowDiskSpace = free < MinFreeDiskBytes
		return nil
	})

	g.Go(func() error {
		loopbackErr = loopback.Detect(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return result, err
	}

	if loopbackErr != nil {
		return result, fmt.Errorf("%w: %v", ErrNoLoopbackDevice, loopbackErr)
	}

	if result.LMDown {
		monitor.SetLMDown(true)
	}

	return result, nil
}
