// Package minutesstage maintains a rolling Markdown summary of the
// translated conversation, ticking on a fixed interval and windowing the
// translation buffer by sequence number rather than position so eviction
// never corrupts the summary.
package minutesstage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetloop/meetloop/internal/buffer"
)

// tickSlice bounds how long a single sleep iteration waits before
// rechecking the stop signal, keeping shutdown latency low even with a
// long SummaryEverySeconds interval.
const tickSlice = 10 * time.Second

// Summarizer produces a Markdown summary from a transcript block, given
// the previous summary (empty string on the first call).
type Summarizer interface {
	Summarize(ctx context.Context, block string) (string, error)
	SummarizeRolling(ctx context.Context, previousSummary, block string) (string, error)
}

// UINotifier is notified whenever the rolling summary changes.
type UINotifier interface {
	OnMinutesUpdated(summary string)
}

type noopNotifier struct{}

func (noopNotifier) OnMinutesUpdated(string) {}

// Stage runs the rolling-minutes tick loop.
type Stage struct {
	buf            *buffer.Ring
	summarizer     Summarizer
	outputDir      string
	every          time.Duration
	window         time.Duration
	ui             UINotifier

	now func() time.Time

	lastSeenSeq    uint64
	lastSummary    string
}

// Option configures a Stage.
type Option func(*Stage)

// WithUINotifier sets the UI notification sink.
func WithUINotifier(ui UINotifier) Option {
	return func(s *Stage) { s.ui = ui }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Stage) { s.now = now }
}

// New creates a Stage. every is SUMMARY_EVERY_SECONDS, window is
// MINUTES_WINDOW (<= 0 disables the time filter).
func New(buf *buffer.Ring, summarizer Summarizer, outputDir string, every, window time.Duration, opts ...Option) *Stage {
	s := &Stage{
		buf:        buf,
		summarizer: summarizer,
		outputDir:  outputDir,
		every:      every,
		window:     window,
		ui:         noopNotifier{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled, sleeping in tickSlice-sized slices so
// the stop signal is observed promptly.
func (s *Stage) Run(ctx context.Context) {
	lastAttempt := s.now()
	for {
		if err := sleepSlices(ctx, s.every-s.now().Sub(lastAttempt)); err != nil {
			return
		}
		lastAttempt = s.now()
		s.tick(ctx)
	}
}

func sleepSlices(ctx context.Context, remaining time.Duration) error {
	for remaining > 0 {
		slice := tickSlice
		if remaining < slice {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		remaining -= slice
	}
	return nil
}

// tick performs one summarization attempt; kept as its own method so tests
// can drive it directly without waiting on the real clock.
func (s *Stage) tick(ctx context.Context) {
	var minUnix int64
	if s.window > 0 {
		minUnix = s.now().Add(-s.window).Unix()
	}

	entries, maxSeq := s.buf.Since(s.lastSeenSeq, minUnix)
	if len(entries) == 0 {
		return
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line
	}
	block := strings.Join(lines, "\n")
	if strings.TrimSpace(block) == "" {
		return
	}

	var summary string
	var err error
	if s.lastSummary == "" {
		summary, err = s.summarizer.Summarize(ctx, block)
	} else {
		summary, err = s.summarizer.SummarizeRolling(ctx, s.lastSummary, block)
	}
	if err != nil {
		return
	}

	s.lastSummary = summary
	s.lastSeenSeq = maxSeq

	if err := s.writeArtifacts(summary); err != nil {
		return
	}
	s.ui.OnMinutesUpdated(summary)
}

func (s *Stage) writeArtifacts(summary string) error {
	header := fmt.Sprintf("# Rolling Minutes (updated %s)\n\n", s.now().Format("2006-01-02 15:04:05"))
	md := header + summary

	if err := os.WriteFile(filepath.Join(s.outputDir, "rolling_minutes.md"), []byte(md), 0644); err != nil { // #nosec G306
		return err
	}
	return os.WriteFile(filepath.Join(s.outputDir, "rolling_minutes.txt"), []byte(summary), 0644) // #nosec G306
}

// Reset clears the rolling-minutes watermark and last summary, used by the
// pipeline's reset operation. It does not touch the buffer, which is reset
// independently.
func (s *Stage) Reset() {
	s.lastSeenSeq = 0
	s.lastSummary = ""
}
