package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetloop/meetloop/internal/doctor"
)

// DoctorCmd creates the "doctor" command: a standalone readiness report
// run without starting the pipeline.
func DoctorCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, the loopback device, and the LM server are reachable",
		Long: `Run the same readiness checks performed at pipeline startup, without
starting the pipeline: ffmpeg availability, loopback audio device
presence, LM server liveness, output directory free space, and (for the
"cli" whisper backend) the local whisper binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), env)
		},
	}
}

func runDoctor(ctx context.Context, env *Env) error {
	cfg, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}

	// The loopback check needs an ffmpeg path too; resolve once and reuse
	// it rather than having doctor.Run resolve it a second time.
	ffmpegPath, ffmpegErr := env.FFmpegResolver.Resolve(ctx)
	lm := env.LMClientFactory.NewClient(cfg)
	loopback := loopbackAdapter{detector: env.LoopbackDetector, ffmpegPath: ffmpegPath}

	report := doctor.Run(ctx, cfg, staticFFmpegResolver{ffmpegPath, ffmpegErr}, lm, loopback)

	fmt.Fprintln(env.Stdout, report.String())

	if !report.OK() {
		return ErrDoctorFailed
	}
	return nil
}

// staticFFmpegResolver reports an already-resolved ffmpeg path (or error)
// through doctor.FFmpegResolver, avoiding a second resolution attempt.
type staticFFmpegResolver struct {
	path string
	err  error
}

func (s staticFFmpegResolver) Resolve(context.Context) (string, error) { return s.path, s.err }

// loopbackAdapter narrows cli.LoopbackDetector (which also needs an
// ffmpeg path) down to the ctx-only shape health.Preflight and
// doctor.Run expect.
type loopbackAdapter struct {
	detector   LoopbackDetector
	ffmpegPath string
}

func (a loopbackAdapter) Detect(ctx context.Context) error {
	_, err := a.detector.Detect(ctx, a.ffmpegPath)
	return err
}
