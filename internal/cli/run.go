package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meetloop/meetloop/internal/buffer"
	"github.com/meetloop/meetloop/internal/capture"
	"github.com/meetloop/meetloop/internal/config"
	"github.com/meetloop/meetloop/internal/health"
	"github.com/meetloop/meetloop/internal/interrupt"
	"github.com/meetloop/meetloop/internal/logging"
	"github.com/meetloop/meetloop/internal/minutesstage"
	"github.com/meetloop/meetloop/internal/pipeline"
	"github.com/meetloop/meetloop/internal/structuredoutput"
	"github.com/meetloop/meetloop/internal/transcribestage"
	"github.com/meetloop/meetloop/internal/translatestage"
	"github.com/meetloop/meetloop/internal/uisink"
	"github.com/meetloop/meetloop/internal/vad"
)

// queueCapacity is the bounded channel size of the capture and transcribe
// queues (translate feeds minutes through the ring buffer), giving each stage a little slack without letting a stuck downstream
// stage buffer unbounded memory.
const queueCapacity = 4

// ringCapacity is the translation buffer's entry count, sized generously
// past a typical MINUTES_WINDOW at a realistic utterance rate.
const ringCapacity = 1200

// RunCmd creates the "run" command: the live capture -> transcribe ->
// translate -> minutes pipeline.
func RunCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the live meeting pipeline until interrupted",
		Long: `Record system audio, transcribe and translate it, and maintain a
rolling Markdown summary, writing JSON/SRT/Markdown artifacts to the
output directory until interrupted with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), env)
		},
	}
}

func runRun(ctx context.Context, env *Env) error {
	cfg, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}
	if err := config.EnsureOutputDir(cfg.OutputDir); err != nil {
		return err
	}

	logger := logging.New(cfg.OutputDir)

	handler, runCtx := interrupt.NewHandler(ctx)
	defer handler.Stop()

	ffmpegPath, err := env.FFmpegResolver.Resolve(runCtx)
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(runCtx, ffmpegPath)

	// The loopback device must be resolved up front: capture needs the
	// concrete *audio.Device, not just a presence check. A missing device
	// is fatal here, before Preflight's other (non-fatal) checks run.
	device, err := env.LoopbackDetector.Detect(runCtx, ffmpegPath)
	if err != nil {
		return err
	}

	lm := env.LMClientFactory.NewClient(cfg)
	engine := env.SpeechFactory.NewEngine(runCtx, cfg)

	monitor := health.New()
	preflightResult, err := health.Preflight(runCtx, lm, alreadyDetectedLoopback{}, cfg.OutputDir, monitor)
	if err != nil {
		return err
	}
	logPreflight(logger, preflightResult)

	meetingStart := env.Now()
	buf := buffer.New(ringCapacity)
	sink := structuredoutput.New(cfg.OutputDir, meetingStart)
	ui := &uisink.TerminalLine{Out: env.Stdout}

	pauseFlag := pipeline.NewPauseFlag()

	captureQueue := make(chan capture.Chunk, queueCapacity)
	transcribeQueue := make(chan transcribestage.Item, queueCapacity)

	captureOpts := []capture.Option{capture.WithPaused(pauseFlag.Load)}
	if cfg.VADEnabled {
		extractor := &capture.FFmpegExtractor{FFmpegPath: ffmpegPath}
		captureOpts = append(captureOpts, capture.WithSegmenter(&vad.EnergySegmenter{}, extractor))
	}
	captureStage := capture.New(ffmpegPath, device, cfg.OutputDir, cfg.ChunkSeconds, monitor, captureQueue, captureOpts...)

	transcribeStage := transcribestage.New(
		engine, monitor, cfg.OutputDir, cfg.SkipEmptyChunks, cfg.CleanupWAV,
		captureQueue, transcribeQueue,
		transcribestage.WithUINotifier(ui),
	)

	translateStage := translatestage.New(
		lm, lm, monitor, buf, sink, cfg.OutputDir, cfg.TargetLang, meetingStart,
		transcribeQueue,
		translatestage.WithUINotifier(ui),
		translatestage.WithStreamTranslation(cfg.StreamTranslation),
	)

	minutesStage := minutesstage.New(
		buf, lm, cfg.OutputDir, cfg.SummaryEverySeconds, cfg.MinutesWindow,
		minutesstage.WithUINotifier(ui),
	)

	coord := pipeline.New(pipeline.Config{
		Capture:    captureStage,
		Transcribe: transcribeStage,
		Translate:  translateStage,
		Minutes:    minutesStage,
		Sink:       sink,
		Monitor:    monitor,
		Buffer:     buf,
		UI:         ui,
		Paused:     pauseFlag,

		CaptureQueue:    captureQueue,
		TranscribeQueue: transcribeQueue,
	})

	coord.Start(runCtx)
	<-runCtx.Done()

	if handler.WasInterrupted() {
		decision := handler.WaitForDecision("Finishing the current chunk, press Ctrl+C again to abort immediately...")
		if decision == interrupt.Abort {
			return nil
		}
	}

	coord.Stop()
	return nil
}

func logPreflight(logger *slog.Logger, result health.PreflightResult) {
	if result.LMDown {
		logger.Warn("LM server unreachable at startup")
	}
	if result.LowDiskSpace {
		logger.Warn("low disk space on output directory", "free_bytes", result.FreeBytes)
	}
}

// alreadyDetectedLoopback satisfies health.LoopbackDetector for the
// Preflight call in runRun, where the loopback device was already
// resolved (and a failure already returned) before Preflight runs.
type alreadyDetectedLoopback struct{}

func (alreadyDetectedLoopback) Detect(context.Context) error { return nil }
