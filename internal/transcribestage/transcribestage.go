// Package transcribestage converts queued audio chunks into transcript
// items: invoking the STT engine, filtering hallucinated idle-audio
// output, and appending to the append-only transcript log.
package transcribestage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetloop/meetloop/internal/capture"
	"github.com/meetloop/meetloop/internal/health"
)

const (
	maxAttempts   = 3
	retryDelay    = 500 * time.Millisecond
	dequeueWait   = time.Second
)

// hallucinationBlacklist is the fixed set of Whisper idle-audio artifacts,
// matched case-insensitively against the trimmed full transcription.
var hallucinationBlacklist = map[string]struct{}{
	"thank you":                {},
	"thanks for watching":      {},
	"thanks for listening":     {},
	"you":                      {},
	"bye":                      {},
	"the end":                  {},
	"thank you for watching":   {},
	"subscribe":                {},
	"like and subscribe":       {},
}

// Item is a transcribed chunk handed to the translate stage.
type Item struct {
	Text       string
	Timestamp  time.Time
	RetryCount int
}

// Engine transcribes a WAV file to text.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// UINotifier is notified on each emitted transcript line.
type UINotifier interface {
	OnTranscript(text string, ts time.Time)
}

type noopNotifier struct{}

func (noopNotifier) OnTranscript(string, time.Time) {}

// Stage dequeues capture.Chunk values, transcribes them, and enqueues
// Item values for translation.
type Stage struct {
	engine          Engine
	monitor         *health.Monitor
	outputDir       string
	skipEmptyChunks bool
	cleanupWAV      bool

	in  <-chan capture.Chunk
	out chan<- Item

	ui  UINotifier
	now func() time.Time
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

// New creates a Stage.
func New(engine Engine, monitor *health.Monitor, outputDir string, skipEmptyChunks, cleanupWAV bool, in <-chan capture.Chunk, out chan<- Item, opts ...Option) *Stage {
	s := &Stage{
		engine:          engine,
		monitor:         monitor,
		outputDir:       outputDir,
		skipEmptyChunks: skipEmptyChunks,
		cleanupWAV:      cleanupWAV,
		in:              in,
		out:             out,
		ui:              noopNotifier{},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run dequeues chunks until ctx is cancelled.
func (s *Stage) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-s.in:
			if !ok {
				return
			}
			s.process(ctx, chunk)
		case <-time.After(dequeueWait):
		}
	}
}

func (s *Stage) process(ctx context.Context, chunk capture.Chunk) {
	text, ok := s.transcribeWithRetry(ctx, chunk.Path)
	if !ok {
		return
	}
	if s.cleanupWAV {
		defer os.Remove(chunk.Path) // #nosec G104 -- best-effort cleanup
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if s.skipEmptyChunks {
		if _, blacklisted := hallucinationBlacklist[strings.ToLower(text)]; blacklisted {
			return
		}
	}

	ts := chunk.CapturedAt
	if ts.IsZero() {
		ts = s.now()
	}

	s.ui.OnTranscript(text, ts)
	_ = s.appendTranscriptLine(ts, text)

	item := Item{Text: text, Timestamp: ts}
	select {
	case s.out <- item:
	case <-ctx.Done():
	}
}

func (s *Stage) transcribeWithRetry(ctx context.Context, wavPath string) (string, bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := s.engine.Transcribe(ctx, wavPath)
		if err == nil {
			s.monitor.OnTranscribeSuccess()
			return text, true
		}

		verdict := s.monitor.OnTranscribeError()
		if verdict == health.VerdictSkip {
			return "", false
		}

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false
		case <-timer.C:
		}
	}
	return "", false
}

func (s *Stage) appendTranscriptLine(ts time.Time, text string) error {
	f, err := os.OpenFile(filepath.Join(s.outputDir, "transcript.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // #nosec G304,G306
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] [SYS] %s\n", ts.Format("2006-01-02 15:04:05"), text)
	_, err = f.WriteString(line)
	return err
}
