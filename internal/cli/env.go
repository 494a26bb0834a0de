// Package cli wires Cobra subcommands to the pipeline, following the
// teacher's injectable-Env pattern so commands can be exercised in tests
// without touching the network, the filesystem, or real audio devices.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetloop/meetloop/internal/audio"
	"github.com/meetloop/meetloop/internal/config"
	"github.com/meetloop/meetloop/internal/ffmpeg"
	"github.com/meetloop/meetloop/internal/lmclient"
	"github.com/meetloop/meetloop/internal/sttengine"
)

// Env holds injectable dependencies for CLI commands. All fields have
// sensible defaults via DefaultEnv(); tests override specific fields via
// the With* options or by building a custom Env.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	FFmpegResolver   FFmpegResolver
	ConfigLoader     ConfigLoader
	LMClientFactory  LMClientFactory
	SpeechFactory    SpeechFactory
	LoopbackDetector LoopbackDetector
}

// FFmpegResolver resolves the path to the ffmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads the environment-derived configuration snapshot.
type ConfigLoader interface {
	Load(getenv func(string) string) (config.Config, error)
}

// LMClient is the subset of *lmclient.Client the pipeline stages need:
// translation, rolling/flat summarization, and liveness. Declaring it here
// (rather than threading the concrete type through) lets tests substitute
// a fake LM without a real LM Studio server.
type LMClient interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
	TranslateStream(ctx context.Context, text, targetLang string) (string, error)
	Summarize(ctx context.Context, transcriptBlock string) (string, error)
	SummarizeRolling(ctx context.Context, previousSummary, newBlock string) (string, error)
	Alive(ctx context.Context) bool
}

// LMClientFactory builds the chat/completions client used for translation
// and rolling minutes.
type LMClientFactory interface {
	NewClient(cfg config.Config) LMClient
}

// SpeechFactory builds the speech-to-text engine selected by
// cfg.WhisperBackend. When the backend is "auto" and the HTTP server is
// unreachable at startup, implementations fall back to the local binary.
type SpeechFactory interface {
	NewEngine(ctx context.Context, cfg config.Config) sttengine.Engine
}

// LoopbackDetector finds the system-audio loopback device for the
// current platform.
type LoopbackDetector interface {
	Detect(ctx context.Context, ffmpegPath string) (*audio.Device, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption { return func(e *Env) { e.Stdout = w } }

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption { return func(e *Env) { e.Stderr = w } }

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption { return func(e *Env) { e.Getenv = fn } }

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption { return func(e *Env) { e.Now = fn } }

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption { return func(e *Env) { e.FFmpegResolver = r } }

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption { return func(e *Env) { e.ConfigLoader = l } }

// WithLMClientFactory sets the LM client factory.
func WithLMClientFactory(f LMClientFactory) EnvOption {
	return func(e *Env) { e.LMClientFactory = f }
}

// WithSpeechFactory sets the speech engine factory.
func WithSpeechFactory(f SpeechFactory) EnvOption { return func(e *Env) { e.SpeechFactory = f } }

// WithLoopbackDetector sets the loopback device detector.
func WithLoopbackDetector(d LoopbackDetector) EnvOption {
	return func(e *Env) { e.LoopbackDetector = d }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		Now:              time.Now,
		FFmpegResolver:   defaultFFmpegResolver{},
		ConfigLoader:     defaultConfigLoader{},
		LMClientFactory:  defaultLMClientFactory{},
		SpeechFactory:    defaultSpeechFactory{},
		LoopbackDetector: defaultLoopbackDetector{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages.
// ---------------------------------------------------------------------------

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) { return ffmpeg.Resolve(ctx) }

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	ffmpeg.CheckVersion(ctx, ffmpegPath)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(getenv func(string) string) (config.Config, error) {
	return config.Load(getenv)
}

type defaultLMClientFactory struct{}

func (defaultLMClientFactory) NewClient(cfg config.Config) LMClient {
	apiConfig := openai.DefaultConfig("lm-studio")
	apiConfig.BaseURL = cfg.LMBaseURL
	client := openai.NewClientWithConfig(apiConfig)
	return lmclient.New(client, cfg.LMModelFast, cfg.LMModelSmart)
}

type defaultSpeechFactory struct{}

func (defaultSpeechFactory) NewEngine(ctx context.Context, cfg config.Config) sttengine.Engine {
	if cfg.WhisperBackend == "cli" {
		return sttengine.NewLocalBinary(cfg.WhisperBinPath, cfg.WhisperModel)
	}

	apiConfig := openai.DefaultConfig("whisper-local")
	apiConfig.BaseURL = cfg.WhisperServerURL
	client := openai.NewClientWithConfig(apiConfig)

	if cfg.WhisperBackend == "auto" {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if _, err := client.ListModels(probeCtx); err != nil {
			return sttengine.NewLocalBinary(cfg.WhisperBinPath, cfg.WhisperModel)
		}
	}

	return sttengine.NewOpenAICompatible(client, cfg.WhisperModel)
}

type defaultLoopbackDetector struct{}

func (defaultLoopbackDetector) Detect(ctx context.Context, ffmpegPath string) (*audio.Device, error) {
	return audio.DetectLoopbackDevice(ctx, ffmpegPath)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver   = defaultFFmpegResolver{}
	_ ConfigLoader     = defaultConfigLoader{}
	_ LMClientFactory  = defaultLMClientFactory{}
	_ SpeechFactory    = defaultSpeechFactory{}
	_ LoopbackDetector = defaultLoopbackDetector{}
)
