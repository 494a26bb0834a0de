package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/meetloop/meetloop/internal/audio"
	"github.com/meetloop/meetloop/internal/config"
)

func validRunConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		LMBaseURL:           "http://localhost:1234/v1",
		ChunkSeconds:        10,
		TargetLang:          "English",
		SummaryEverySeconds: 1,
		MinutesWindow:       60,
		WhisperBackend:      "server",
		OutputDir:           t.TempDir(),
	}
}

func TestRunRunPropagatesConfigLoadError(t *testing.T) {
	t.Parallel()

	wantErr := config.ErrInvalidInt
	env, _ := testEnv()
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) { return config.Config{}, wantErr },
	}

	if err := runRun(context.Background(), env); err != wantErr {
		t.Fatalf("runRun() error = %v, want %v", err, wantErr)
	}
}

func TestRunRunPropagatesFFmpegResolveError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("ffmpeg missing")
	env, _ := testEnv()
	cfg := validRunConfig(t)
	env.ConfigLoader = &mockConfigLoader{LoadFunc: func() (config.Config, error) { return cfg, nil }}
	env.FFmpegResolver = &mockFFmpegResolver{ResolveFunc: func(context.Context) (string, error) { return "", wantErr }}

	if err := runRun(context.Background(), env); err != wantErr {
		t.Fatalf("runRun() error = %v, want %v", err, wantErr)
	}
}

func TestRunRunPropagatesLoopbackDetectError(t *testing.T) {
	t.Parallel()

	wantErr := audio.ErrLoopbackNotFound
	env, _ := testEnv()
	cfg := validRunConfig(t)
	env.ConfigLoader = &mockConfigLoader{LoadFunc: func() (config.Config, error) { return cfg, nil }}
	env.LoopbackDetector = &mockLoopbackDetector{
		DetectFunc: func(context.Context, string) (*audio.Device, error) { return nil, wantErr },
	}

	if err := runRun(context.Background(), env); !errors.Is(err, wantErr) {
		t.Fatalf("runRun() error = %v, want %v", err, wantErr)
	}
}

func TestRunRunPropagatesOutputDirError(t *testing.T) {
	t.Parallel()

	env, _ := testEnv()
	cfg := validRunConfig(t)
	cfg.OutputDir = ""
	env.ConfigLoader = &mockConfigLoader{LoadFunc: func() (config.Config, error) { return cfg, nil }}

	if err := runRun(context.Background(), env); err == nil {
		t.Fatal("runRun() with empty OutputDir returned nil error, want EnsureOutputDir failure")
	}
}
