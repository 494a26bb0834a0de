// Package doctor runs a standalone readiness report for the capture,
// transcription, and LM dependencies the pipeline needs before it can
// start: ffmpeg, a loopback audio device, the LM server, and (for the
// local whisper backend) the whisper binary.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/meetloop/meetloop/internal/config"
	"github.com/meetloop/meetloop/internal/format"
	"github.com/meetloop/meetloop/internal/health"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, c := range r.Checks {
		status := "OK"
		if !c.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, c.Name, c.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FFmpegResolver resolves the path to a usable ffmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// LoopbackDetector checks for a loopback audio device without needing the
// detected device back.
type LoopbackDetector interface {
	Detect(ctx context.Context) error
}

// Run executes environment/runtime checks for a resolved config.
func Run(ctx context.Context, cfg config.Config, ffmpeg FFmpegResolver, lm health.LivenessProber, loopback LoopbackDetector) Report {
	var checks []Check

	ffmpegPath, err := ffmpeg.Resolve(ctx)
	if err != nil {
		checks = append(checks, Check{Name: "ffmpeg", Pass: false, Message: err.Error()})
	} else {
		checks = append(checks, Check{Name: "ffmpeg", Pass: true, Message: fmt.Sprintf("found at %s", ffmpegPath)})
	}

	checks = append(checks, checkLoopback(ctx, loopback))
	checks = append(checks, checkLM(ctx, lm, cfg.LMBaseURL))
	checks = append(checks, checkDiskSpace(cfg.OutputDir))

	if cfg.WhisperBackend == "cli" {
		checks = append(checks, checkBinary(cfg.WhisperBinPath))
	}

	return Report{Checks: checks}
}

func checkLoopback(ctx context.Context, loopback LoopbackDetector) Check {
	if err := loopback.Detect(ctx); err != nil {
		return Check{Name: "audio.loopback", Pass: false, Message: err.Error()}
	}
	return Check{Name: "audio.loopback", Pass: true, Message: "loopback device detected"}
}

func checkLM(ctx context.Context, lm health.LivenessProber, baseURL string) Check {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if lm.Alive(probeCtx) {
		return Check{Name: "lm.liveness", Pass: true, Message: fmt.Sprintf("reachable at %s", baseURL)}
	}
	return Check{Name: "lm.liveness", Pass: false, Message: fmt.Sprintf("not reachable at %s", baseURL)}
}

func checkDiskSpace(outputDir string) Check {
	free, err := health.FreeBytes(outputDir)
	if err != nil {
		return Check{Name: "disk.space", Pass: false, Message: err.Error()}
	}
	if free < health.MinFreeDiskBytes {
		return Check{Name: "disk.space", Pass: false, Message: fmt.Sprintf("only %s free, want >= %s", format.Size(int64(free)), format.Size(int64(health.MinFreeDiskBytes)))}
	}
	return Check{Name: "disk.space", Pass: true, Message: fmt.Sprintf("%s free", format.Size(int64(free)))}
}

func checkBinary(bin string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}
