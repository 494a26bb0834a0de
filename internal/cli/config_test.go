package cli

import (
	"strings"
	"testing"

	"github.com/meetloop/meetloop/internal/config"
)

func TestRunConfigPrintsResolvedSnapshot(t *testing.T) {
	t.Parallel()

	env, stdout := testEnv()
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{
				LMBaseURL:   "http://localhost:1234/v1",
				TargetLang:  "French",
				ChunkSeconds: 10,
				OutputDir:   "/tmp/out",
			}, nil
		},
	}

	if err := runConfig(env); err != nil {
		t.Fatalf("runConfig() unexpected error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"LMSTUDIO_BASE_URL=http://localhost:1234/v1",
		"TARGET_LANG=French",
		"CHUNK_SECONDS=10",
		"MEETLOOP_OUTPUT_DIR=/tmp/out",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("runConfig() output missing %q, got:\n%s", want, out)
		}
	}
}

func TestRunConfigPropagatesLoadError(t *testing.T) {
	t.Parallel()

	wantErr := config.ErrInvalidInt
	env, _ := testEnv()
	env.ConfigLoader = &mockConfigLoader{
		LoadFunc: func() (config.Config, error) { return config.Config{}, wantErr },
	}

	if err := runConfig(env); err != wantErr {
		t.Fatalf("runConfig() error = %v, want %v", err, wantErr)
	}
}
