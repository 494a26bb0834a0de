// Package sttengine transcribes a recorded WAV chunk to text, either
// against a local OpenAI-API-compatible STT server or by shelling out to a
// local whisper binary.
package sttengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetloop/meetloop/internal/apierr"
)

// Engine transcribes an audio file to text.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// transcriptionCreator is the subset of *openai.Client used here.
type transcriptionCreator interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAICompatible transcribes by multipart-uploading the WAV to a local
// OpenAI-API-compatible STT server (e.g. a whisper.cpp server running the
// /v1/audio/transcriptions route).
type OpenAICompatible struct {
	client transcriptionCreator
	model  string
	retry  apierr.RetryConfig
}

var _ Engine = (*OpenAICompatible)(nil)

// OpenAICompatibleOption configures an OpenAICompatible engine.
type OpenAICompatibleOption func(*OpenAICompatible)

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(cfg apierr.RetryConfig) OpenAICompatibleOption {
	return func(e *OpenAICompatible) { e.retry = cfg }
}

// NewOpenAICompatible creates an OpenAICompatible engine from a client
// already configured with the STT server's base URL.
func NewOpenAICompatible(client *openai.Client, model string, opts ...OpenAICompatibleOption) *OpenAICompatible {
	e := &OpenAICompatible{
		client: client,
		model:  model,
		retry: apierr.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *OpenAICompatible) Transcribe(ctx context.Context, wavPath string) (string, error) {
	return apierr.RetryWithBackoff(ctx, e.retry, func() (string, error) {
		resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    e.model,
			FilePath: wavPath,
		})
		if err != nil {
			return "", classifyError(err)
		}
		return resp.Text, nil
	}, isRetryable)
}

// binaryRunner execs a whisper binary and captures its stdout, injectable
// for tests.
type binaryRunner func(ctx context.Context, binPath string, args []string) (string, error)

// LocalBinary transcribes by invoking a local whisper/whisper-cli binary
// and reading its plain-text output.
type LocalBinary struct {
	binPath string
	model   string
	run     binaryRunner
}

var _ Engine = (*LocalBinary)(nil)

// LocalBinaryOption configures a LocalBinary engine.
type LocalBinaryOption func(*LocalBinary)

// WithBinaryRunner overrides the exec function (for testing).
func WithBinaryRunner(fn binaryRunner) LocalBinaryOption {
	return func(e *LocalBinary) { e.run = fn }
}

// NewLocalBinary creates a LocalBinary engine invoking binPath with model.
func NewLocalBinary(binPath, model string, opts ...LocalBinaryOption) *LocalBinary {
	e := &LocalBinary{
		binPath: binPath,
		model:   model,
		run:     defaultBinaryRun,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *LocalBinary) Transcribe(ctx context.Context, wavPath string) (string, error) {
	out, err := e.run(ctx, e.binPath, []string{"-m", e.model, "-f", wavPath, "--output-txt", "--no-timestamps"})
	if err != nil {
		return "", fmt.Errorf("local whisper binary: %w", err)
	}
	return out, nil
}

// defaultBinaryRun mirrors internal/ffmpeg.RunOutput's exec-and-capture
// shape: run the binary and return its stdout.
func defaultBinaryRun(ctx context.Context, binPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binPath, args...) // #nosec G204 -- binPath is operator-configured
	out, err := cmd.Output()
	return string(out), err
}

// classifyError maps go-openai errors to apierr sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	if os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", apierr.ErrTimeout, err)
	}

	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrTimeout) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}
