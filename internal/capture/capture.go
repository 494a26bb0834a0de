// Package capture runs the ffmpeg subprocess that records fixed-length WAV
// chunks from the detected loopback device, optionally hands each chunk to
// a VAD segmenter, and enqueues the result for transcription.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meetloop/meetloop/internal/audio"
	"github.com/meetloop/meetloop/internal/ffmpeg"
	"github.com/meetloop/meetloop/internal/health"
	"github.com/meetloop/meetloop/internal/vad"
)

const (
	maxAttempts  = 3
	backoffStep  = 300 * time.Millisecond
	minTimeout   = 8 * time.Second
	timeoutExtra = 4 * time.Second
)

// Chunk is a recorded (and possibly VAD-segmented) WAV ready for
// transcription.
type Chunk struct {
	Path       string
	CapturedAt time.Time
	// Range is set when the chunk was extracted from a larger recording by
	// VAD segmentation; zero value means the whole recording.
	Range *vad.Range
}

// Executor runs ffmpeg and captures stderr, matching
// internal/ffmpeg.Executor's shape so a fake can be injected in tests.
type Executor interface {
	RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error)
	RunGraceful(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error
}

type defaultExecutor struct{}

func (defaultExecutor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return ffmpeg.RunOutput(ctx, ffmpegPath, args)
}

func (defaultExecutor) RunGraceful(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error {
	return ffmpeg.RunGraceful(ctx, ffmpegPath, args, timeout)
}

// Extractor extracts a sub-range of a WAV into its own file.
type Extractor interface {
	Extract(ctx context.Context, wavPath string, r vad.Range) (string, error)
}

// Stage runs the capture loop.
type Stage struct {
	ffmpegPath string
	device     *audio.Device
	outputDir  string
	chunkSecs  int

	exec      Executor
	segmenter vad.Segmenter
	extractor Extractor
	monitor   *health.Monitor

	outQueue chan<- Chunk

	paused func() bool
	now    func() time.Time
}

// Option configures a Stage.
type Option func(*Stage)

// WithSegmenter sets the VAD segmenter. A nil segmenter means VAD is
// disabled: the whole recorded WAV is enqueued unchanged.
func WithSegmenter(s vad.Segmenter, extractor Extractor) Option {
	return func(st *Stage) {
		st.segmenter = s
		st.extractor = extractor
	}
}

// WithPaused sets the pause-check function, polled once per loop
// iteration; only the capture stage observes pause.
func WithPaused(paused func() bool) Option {
	return func(s *Stage) { s.paused = paused }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Stage) { s.now = now }
}

// WithExecutor overrides the ffmpeg executor (for testing).
func WithExecutor(e Executor) Option {
	return func(s *Stage) { s.exec = e }
}

// New creates a capture Stage recording from device into outputDir in
// chunkSecs-long WAVs, enqueuing results on outQueue.
func New(ffmpegPath string, device *audio.Device, outputDir string, chunkSecs int, monitor *health.Monitor, outQueue chan<- Chunk, opts ...Option) *Stage {
	s := &Stage{
		ffmpegPath: ffmpegPath,
		device:     device,
		outputDir:  outputDir,
		chunkSecs:  chunkSecs,
		exec:       defaultExecutor{},
		monitor:    monitor,
		outQueue:   outQueue,
		paused:     func() bool { return false },
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops recording chunks until ctx is cancelled. A single bad
// recording never stops the stage: failures are handled by the health
// policy, which decides how long to sleep before the next attempt.
func (s *Stage) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.paused() {
			if sleepOrDone(ctx, 200*time.Millisecond) {
				return
			}
			continue
		}

		wavPath, err := s.recordOnce(ctx)
		if err != nil {
			verdict := s.monitor.OnCaptureError()
			if sleepOrDone(ctx, verdictDelay(verdict)) {
				return
			}
			continue
		}
		s.monitor.OnCaptureSuccess()

		s.segmentAndEnqueue(ctx, wavPath)
	}
}

func verdictDelay(v health.Verdict) time.Duration {
	switch v {
	case health.VerdictBackoff:
		return 3 * time.Second
	case health.VerdictSkip:
		return 5 * time.Second
	default:
		return 1 * time.Second
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// recordOnce runs ffmpeg with up to maxAttempts tries and linear backoff,
// returning the path to the recorded WAV on success.
func (s *Stage) recordOnce(ctx context.Context) (string, error) {
	out := filepath.Join(s.outputDir, fmt.Sprintf("chunk-%d.wav", s.now().UnixNano()))
	args := s.buildArgs(out)
	timeout := s.chunkTimeout()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		// The per-attempt deadline is the hard recording timeout: when it
		// fires, RunGraceful asks ffmpeg to quit and kills it if it lingers.
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := s.exec.RunGraceful(attemptCtx, s.ffmpegPath, args, timeout)
		if err == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: recording exceeded %v", ffmpeg.ErrTimeout, timeout)
		}
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if sleepOrDone(ctx, time.Duration(attempt)*backoffStep) {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("ffmpeg capture failed after %d attempts: %w", maxAttempts, lastErr)
}

func (s *Stage) chunkTimeout() time.Duration {
	t := time.Duration(s.chunkSecs)*time.Second + timeoutExtra
	if t < minTimeout {
		return minTimeout
	}
	return t
}

func (s *Stage) buildArgs(out string) []string {
	args := []string{"-y", "-nostdin", "-loglevel", "error", "-f", s.device.Format, "-i", s.device.Name,
		"-t", fmt.Sprintf("%d", s.chunkSecs), "-ar", "16000", "-ac", "1", out}
	return args
}

// segmentAndEnqueue applies VAD (if configured) to wavPath and enqueues
// the resulting chunk(s), blocking on outQueue for backpressure.
func (s *Stage) segmentAndEnqueue(ctx context.Context, wavPath string) {
	if s.segmenter == nil {
		s.enqueue(ctx, Chunk{Path: wavPath, CapturedAt: s.now()})
		return
	}

	ranges, err := s.segmenter.Segment(ctx, wavPath)
	if err != nil || len(ranges) == 0 {
		_ = os.Remove(wavPath)
		return
	}

	for _, r := range ranges {
		segPath, err := s.extractor.Extract(ctx, wavPath, r)
		if err != nil {
			continue
		}
		rCopy := r
		s.enqueue(ctx, Chunk{Path: segPath, CapturedAt: s.now(), Range: &rCopy})
	}
	_ = os.Remove(wavPath)
}

func (s *Stage) enqueue(ctx context.Context, c Chunk) {
	select {
	case s.outQueue <- c:
	case <-ctx.Done():
	}
}
