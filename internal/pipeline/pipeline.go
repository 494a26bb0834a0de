// Package pipeline owns the four long-lived stage goroutines (capture,
// transcribe, translate, minutes) and their shared lifecycle: start,
// graceful stop with a join deadline, pause/resume (capture-only), and
// reset.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meetloop/meetloop/internal/buffer"
	"github.com/meetloop/meetloop/internal/capture"
	"github.com/meetloop/meetloop/internal/health"
	"github.com/meetloop/meetloop/internal/minutesstage"
	"github.com/meetloop/meetloop/internal/structuredoutput"
	"github.com/meetloop/meetloop/internal/transcribestage"
	"github.com/meetloop/meetloop/internal/translatestage"
	"github.com/meetloop/meetloop/internal/uisink"
)

// shutdownJoinDeadline bounds how long Stop waits for stage goroutines to
// exit before giving up and returning anyway.
const shutdownJoinDeadline = 5 * time.Second

// Runnable is a stage goroutine entry point.
type Runnable interface {
	Run(ctx context.Context)
}

// PauseFlag is a shared pause switch: construct it before the capture
// stage so capture.WithPaused(flag.Load) and a Coordinator can observe
// and toggle the same state.
type PauseFlag struct {
	v atomic.Bool
}

// NewPauseFlag creates a PauseFlag in the running (not paused) state.
func NewPauseFlag() *PauseFlag { return &PauseFlag{} }

// Load reports whether the flag is currently set.
func (f *PauseFlag) Load() bool { return f.v.Load() }

// Store sets the flag.
func (f *PauseFlag) Store(v bool) { f.v.Store(v) }

// Coordinator wires the four stages together and manages their shared
// lifecycle. The caller is responsible for constructing the stages with
// channels of the agreed capacity (4) connecting them.
type Coordinator struct {
	captureStage    Runnable
	transcribeStage Runnable
	translateStage  Runnable
	minutesStage    *minutesstage.Stage

	sink    *structuredoutput.Sink
	monitor *health.Monitor
	buf     *buffer.Ring
	ui      uisink.Controller

	captureQueue    chan capture.Chunk
	transcribeQueue chan transcribestage.Item

	paused *PauseFlag

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// Config bundles the already-constructed collaborators a Coordinator
// supervises. Paused must be the same PauseFlag passed to
// capture.WithPaused when the capture stage was built, so the
// Coordinator's Pause/Resume act on the flag capture actually observes.
// If nil, New allocates one, but then nothing can pause capture.
type Config struct {
	Capture    Runnable
	Transcribe Runnable
	Translate  Runnable
	Minutes    *minutesstage.Stage

	Sink    *structuredoutput.Sink
	Monitor *health.Monitor
	Buffer  *buffer.Ring
	UI      uisink.Controller
	Paused  *PauseFlag

	// CaptureQueue and TranscribeQueue are the bounded channels connecting
	// capture->transcribe and transcribe->translate. Reset drains them so a
	// subsequent Start never processes chunks queued before the reset.
	CaptureQueue    chan capture.Chunk
	TranscribeQueue chan transcribestage.Item
}

// New creates a Coordinator from already-wired stages.
func New(cfg Config) *Coordinator {
	ui := cfg.UI
	if ui == nil {
		ui = uisink.Noop{}
	}
	paused := cfg.Paused
	if paused == nil {
		paused = NewPauseFlag()
	}
	return &Coordinator{
		captureStage:    cfg.Capture,
		transcribeStage: cfg.Transcribe,
		translateStage:  cfg.Translate,
		minutesStage:    cfg.Minutes,
		sink:            cfg.Sink,
		monitor:         cfg.Monitor,
		buf:             cfg.Buffer,
		ui:              ui,
		captureQueue:    cfg.CaptureQueue,
		transcribeQueue: cfg.TranscribeQueue,
		paused:          paused,
	}
}

// Paused reports whether the pipeline is currently paused. Only the
// capture stage should observe this.
func (c *Coordinator) Paused() bool {
	return c.paused.Load()
}

// Pause suspends capture; downstream stages continue to drain their
// queues.
func (c *Coordinator) Pause() {
	c.paused.Store(true)
	c.ui.OnStatus("paused")
}

// Resume clears the pause flag.
func (c *Coordinator) Resume() {
	c.paused.Store(false)
	c.ui.OnStatus("running")
}

// Start spawns the four stage goroutines under ctx. Calling Start twice
// without an intervening Stop is a programmer error.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(4)
	go c.runStage(runCtx, c.captureStage)
	go c.runStage(runCtx, c.transcribeStage)
	go c.runStage(runCtx, c.translateStage)
	go c.runStage(runCtx, c.minutesStage)

	go func() {
		c.wg.Wait()
		close(c.done)
	}()

	c.ui.OnStatus("running")
}

func (c *Coordinator) runStage(ctx context.Context, r Runnable) {
	defer c.wg.Done()
	r.Run(ctx)
}

// Stop cancels the pipeline context and waits up to shutdownJoinDeadline
// for all stages to exit, then force-flushes the structured output sink.
// Safe to call even if Start was never called.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	if done != nil {
		select {
		case <-done:
		case <-time.After(shutdownJoinDeadline):
		}
	}

	if c.sink != nil {
		_ = c.sink.Flush()
	}
	c.ui.OnStatus("stopped")
}

// Reset stops the pipeline (if running) and clears all mutable state:
// the translation buffer and its sequence counter, the health monitor's
// counters and LM-down latch, the minutes stage's watermark and last
// summary, and any chunks/items still sitting in the capture->transcribe
// and transcribe->translate queues. The caller must call Start again to
// resume processing.
func (c *Coordinator) Reset() {
	c.Stop()
	c.buf.Reset()
	c.monitor.Reset()
	if c.minutesStage != nil {
		c.minutesStage.Reset()
	}
	c.paused.Store(false)
	drainChunks(c.captureQueue)
	drainItems(c.transcribeQueue)
}

// drainChunks empties ch without blocking, so chunks queued before a Reset
// are never picked up by the next Start.
func drainChunks(ch chan capture.Chunk) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// drainItems is drainChunks's counterpart for the transcribe->translate queue.
func drainItems(ch chan transcribestage.Item) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// compile-time check that capture.Stage satisfies Runnable via its Run method.
var _ Runnable = (*capture.Stage)(nil)
var _ Runnable = (*transcribestage.Stage)(nil)
var _ Runnable = (*translatestage.Stage)(nil)
var _ Runnable = (*minutesstage.Stage)(nil)
