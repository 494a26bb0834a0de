package sttengine

import (
	"context"
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetloop/meetloop/internal/apierr"
)

type fakeTranscriptionCreator struct {
	resp  openai.AudioResponse
	errs  []error
	calls int
}

func (f *fakeTranscriptionCreator) CreateTranscription(_ context.Context, _ openai.AudioRequest) (openai.AudioResponse, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return openai.AudioResponse{}, f.errs[idx]
	}
	return f.resp, nil
}

func TestOpenAICompatibleTranscribeSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriptionCreator{resp: openai.AudioResponse{Text: "hello world"}}
	e := &OpenAICompatible{client: fake, model: "small", retry: apierr.RetryConfig{MaxRetries: 2}}

	text, err := e.Transcribe(context.Background(), "/tmp/chunk.wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAICompatibleRetriesOnServerError(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriptionCreator{
		resp: openai.AudioResponse{Text: "ok"},
		errs: []error{&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "busy"}},
	}
	e := &OpenAICompatible{client: fake, model: "small", retry: apierr.RetryConfig{MaxRetries: 2}}

	text, err := e.Transcribe(context.Background(), "/tmp/chunk.wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
	if fake.calls != 2 {
		t.Errorf("calls = %d, want 2", fake.calls)
	}
}

func TestOpenAICompatiblePropagatesAuthFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriptionCreator{
		errs: []error{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}},
	}
	e := &OpenAICompatible{client: fake, model: "small", retry: apierr.RetryConfig{MaxRetries: 2}}

	_, err := e.Transcribe(context.Background(), "/tmp/chunk.wav")
	if !errors.Is(err, apierr.ErrAuthFailed) {
		t.Errorf("error = %v, want ErrAuthFailed", err)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", fake.calls)
	}
}

func TestLocalBinaryTranscribeUsesInjectedRunner(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	e := NewLocalBinary("/usr/local/bin/whisper-cli", "small", WithBinaryRunner(
		func(_ context.Context, binPath string, args []string) (string, error) {
			gotArgs = args
			if binPath != "/usr/local/bin/whisper-cli" {
				t.Errorf("binPath = %q", binPath)
			}
			return "transcribed text", nil
		},
	))

	text, err := e.Transcribe(context.Background(), "/tmp/chunk.wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "transcribed text" {
		t.Errorf("text = %q", text)
	}
	if len(gotArgs) == 0 {
		t.Error("expected non-empty args to whisper binary")
	}
}

func TestLocalBinaryWrapsRunnerError(t *testing.T) {
	t.Parallel()

	e := NewLocalBinary("/usr/local/bin/whisper-cli", "small", WithBinaryRunner(
		func(context.Context, string, []string) (string, error) {
			return "", errors.New("exit status 1")
		},
	))

	_, err := e.Transcribe(context.Background(), "/tmp/chunk.wav")
	if err == nil {
		t.Fatal("expected error")
	}
}
