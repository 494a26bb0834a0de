// Package translatestage translates transcribed items, persists the
// translation log, feeds the structured-output sink, and appends to the
// rolling-minutes ring buffer.
package translatestage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetloop/meetloop/internal/buffer"
	"github.com/meetloop/meetloop/internal/health"
	"github.com/meetloop/meetloop/internal/structuredoutput"
	"github.com/meetloop/meetloop/internal/transcribestage"
)

const (
	maxRetries  = 3
	dequeueWait = time.Second
)

// Translator translates text into targetLang, either single-shot or as a
// concatenated SSE stream.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
	TranslateStream(ctx context.Context, text, targetLang string) (string, error)
}

// LivenessProber checks whether the LM is currently reachable.
type LivenessProber interface {
	Alive(ctx context.Context) bool
}

// OutputSink receives completed translations for batched JSON/SRT output.
type OutputSink interface {
	Append(record structuredoutput.Record) error
}

// UINotifier is notified on each emitted translation.
type UINotifier interface {
	OnTranslation(text string, ts time.Time)
}

type noopNotifier struct{}

func (noopNotifier) OnTranslation(string, time.Time) {}

// Stage dequeues transcribestage.Item values, translates them, and feeds
// the rolling buffer and output sink.
type Stage struct {
	translator Translator
	liveness   LivenessProber
	monitor    *health.Monitor
	buf        *buffer.Ring
	sink       OutputSink
	outputDir  string
	targetLang string
	stream     bool

	in <-chan transcribestage.Item

	meetingStart time.Time
	ui           UINotifier
	now          func() time.Time
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

// WithStreamTranslation selects the SSE-streamed Translate call
// (concatenated before use) over the single-shot one.
func WithStreamTranslation(stream bool) Option {
	return func(s *Stage) { s.stream = stream }
}

// New creates a Stage.
func New(translator Translator, liveness LivenessProber, monitor *health.Monitor, buf *buffer.Ring, sink OutputSink, outputDir, targetLang string, meetingStart time.Time, in <-chan transcribestage.Item, opts ...Option) *Stage {
	s := &Stage{
		translator:   translator,
		liveness:     liveness,
		monitor:      monitor,
		buf:          buf,
		sink:         sink,
		outputDir:    outputDir,
		targetLang:   targetLang,
		in:           in,
		meetingStart: meetingStart,
		ui:           noopNotifier{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run dequeues items until ctx is cancelled, requeuing retryable failures
// onto an internal backlog it drains before pulling from in.
func (s *Stage) Run(ctx context.Context) {
	var backlog []transcribestage.Item
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var item transcribestage.Item
		var ok bool
		if len(backlog) > 0 {
			item, backlog = backlog[0], backlog[1:]
			ok = true
		} else {
			select {
			case <-ctx.Done():
				return
			case item, ok = <-s.in:
			case <-time.After(dequeueWait):
				continue
			}
		}
		if !ok {
			return
		}

		if retry, requeued := s.process(ctx, item); requeued {
			backlog = append(backlog, retry)
		}
	}
}

// process translates one item, returning (item, true) if it should be
// requeued with an incremented retry count.
func (s *Stage) process(ctx context.Context, item transcribestage.Item) (transcribestage.Item, bool) {
	if s.monitor.IsLMDown() {
		if s.liveness.Alive(ctx) {
			s.monitor.OnLLMSuccess()
		} else {
			return item, false
		}
	}

	translate := s.translator.Translate
	if s.stream {
		translate = s.translator.TranslateStream
	}
	translation, err := translate(ctx, item.Text, s.targetLang)
	if err != nil {
		verdict := s.monitor.OnLLMError(s.liveness.Alive(ctx))
		if verdict == health.VerdictRetry && item.RetryCount < maxRetries {
			item.RetryCount++
			return item, true
		}
		return item, false
	}
	s.monitor.OnLLMSuccess()

	translation = strings.TrimSpace(translation)

	s.ui.OnTranslation(translation, item.Timestamp)
	_ = s.appendTranslationLine(item.Timestamp, translation)

	relSeconds := item.Timestamp.Sub(s.meetingStart).Seconds()
	_ = s.sink.Append(structuredoutput.Record{
		Timestamp:       item.Timestamp,
		RelativeSeconds: relSeconds,
		Text:            item.Text,
		Translation:     translation,
	})

	line := fmt.Sprintf("[%s] %s", item.Timestamp.Format("2006-01-02 15:04:05"), translation)
	s.buf.Append(s.now().Unix(), line)

	return item, false
}

func (s *Stage) appendTranslationLine(ts time.Time, translation string) error {
	f, err := os.OpenFile(filepath.Join(s.outputDir, "translation.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // #nosec G304,G306
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] [SYS->%s] %s\n", ts.Format("2006-01-02 15:04:05"), s.targetLang, translation)
	_, err = f.WriteString(line)
	return err
}
