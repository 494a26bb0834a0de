package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meetloop/meetloop/internal/vad"
)

// FFmpegExtractor extracts a VAD range out of a WAV file into its own file
// using a stream copy (-ss/-to), avoiding re-encoding.
type FFmpegExtractor struct {
	FFmpegPath string
	Exec       Executor
}

var _ Extractor = (*FFmpegExtractor)(nil)

func (e *FFmpegExtractor) Extract(ctx context.Context, wavPath string, r vad.Range) (string, error) {
	ext := filepath.Ext(wavPath)
	base := strings.TrimSuffix(wavPath, ext)
	out := fmt.Sprintf("%s-%dms%s", base, r.Start.Milliseconds(), ext)

	args := []string{
		"-y", "-nostdin", "-loglevel", "error",
		"-i", wavPath,
		"-ss", fmt.Sprintf("%.3f", r.Start.Seconds()),
		"-to", fmt.Sprintf("%.3f", r.End.Seconds()),
		"-c", "copy", out,
	}
	runner := e.Exec
	if runner == nil {
		runner = defaultExecutor{}
	}
	if _, err := runner.RunOutput(ctx, e.FFmpegPath, args); err != nil {
		return "", fmt.Errorf("extract vad range: %w", err)
	}
	return out, nil
}
