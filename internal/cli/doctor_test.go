package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meetloop/meetloop/internal/config"
)

func TestRunDoctorReportsSuccess(t *testing.T) {
	t.Parallel()

	env, stdout := testEnv()
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{WhisperBackend: "server", OutputDir: t.TempDir()}, nil
		},
	}
	env.LMClientFactory = &mockLMClientFactory{client: &mockLMClient{AliveFunc: func(context.Context) bool { return true }}}

	err := runDoctor(context.Background(), env)
	if err != nil {
		t.Fatalf("runDoctor() unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "[OK] ffmpeg") {
		t.Errorf("runDoctor() stdout missing ffmpeg check:\n%s", stdout.String())
	}
}

func TestRunDoctorReturnsErrDoctorFailedOnFailingCheck(t *testing.T) {
	t.Parallel()

	env, _ := testEnv()
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{WhisperBackend: "server", OutputDir: t.TempDir()}, nil
		},
	}
	env.LMClientFactory = &mockLMClientFactory{client: &mockLMClient{AliveFunc: func(context.Context) bool { return false }}}

	err := runDoctor(context.Background(), env)
	if !errors.Is(err, ErrDoctorFailed) {
		t.Fatalf("runDoctor() error = %v, want ErrDoctorFailed", err)
	}
}

func TestRunDoctorResolvesFFmpegOnlyOnce(t *testing.T) {
	t.Parallel()

	resolver := &mockFFmpegResolver{}
	env, _ := testEnv()
	env.FFmpegResolver = resolver
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{WhisperBackend: "server", OutputDir: t.TempDir()}, nil
		},
	}

	if err := runDoctor(context.Background(), env); err != nil {
		t.Fatalf("runDoctor() unexpected error: %v", err)
	}
	if got := resolver.ResolveCalls(); got != 1 {
		t.Errorf("ffmpeg Resolve called %d times, want 1", got)
	}
}

func TestRunDoctorPropagatesConfigLoadError(t *testing.T) {
	t.Parallel()

	wantErr := config.ErrInvalidInt
	env, _ := testEnv()
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) { return config.Config{}, wantErr },
	}

	if err := runDoctor(context.Background(), env); err != wantErr {
		t.Fatalf("runDoctor() error = %v, want %v", err, wantErr)
	}
}
