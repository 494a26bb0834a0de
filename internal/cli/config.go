package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the "config" command, which prints the resolved
// environment-derived configuration snapshot. Unlike a persisted
// key/value store, there is nothing to set: every value comes from an
// environment variable or its default.
func ConfigCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print every setting the pipeline would use, resolved from environment
variables (with .env file support) and defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(env)
		},
	}
}

func runConfig(env *Env) error {
	cfg, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "LMSTUDIO_BASE_URL=%s\n", cfg.LMBaseURL)
	fmt.Fprintf(env.Stdout, "LMSTUDIO_MODEL_FAST=%s\n", cfg.LMModelFast)
	fmt.Fprintf(env.Stdout, "LMSTUDIO_MODEL_SMART=%s\n", cfg.LMModelSmart)
	fmt.Fprintf(env.Stdout, "SYSTEM_AUDIO_IDX=%d\n", cfg.SystemAudioIdx)
	fmt.Fprintf(env.Stdout, "CHUNK_SECONDS=%d\n", cfg.ChunkSeconds)
	fmt.Fprintf(env.Stdout, "TARGET_LANG=%s\n", cfg.TargetLang)
	fmt.Fprintf(env.Stdout, "SUMMARY_EVERY_SECONDS=%s\n", cfg.SummaryEverySeconds)
	fmt.Fprintf(env.Stdout, "MINUTES_WINDOW=%s\n", cfg.MinutesWindow)
	fmt.Fprintf(env.Stdout, "WHISPER_MODEL=%s\n", cfg.WhisperModel)
	fmt.Fprintf(env.Stdout, "WHISPER_BACKEND=%s\n", cfg.WhisperBackend)
	fmt.Fprintf(env.Stdout, "WHISPER_SERVER_URL=%s\n", cfg.WhisperServerURL)
	fmt.Fprintf(env.Stdout, "WHISPER_BIN_PATH=%s\n", cfg.WhisperBinPath)
	fmt.Fprintf(env.Stdout, "VAD_ENABLED=%t\n", cfg.VADEnabled)
	fmt.Fprintf(env.Stdout, "STREAM_TRANSLATION=%t\n", cfg.StreamTranslation)
	fmt.Fprintf(env.Stdout, "SKIP_EMPTY_CHUNKS=%t\n", cfg.SkipEmptyChunks)
	fmt.Fprintf(env.Stdout, "CLEANUP_WAV=%t\n", cfg.CleanupWAV)
	fmt.Fprintf(env.Stdout, "MEETLOOP_OUTPUT_DIR=%s\n", cfg.OutputDir)

	return nil
}
