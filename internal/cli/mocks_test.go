package cli

import (
	"context"
	"sync"

	"github.com/meetloop/meetloop/internal/audio"
	"github.com/meetloop/meetloop/internal/config"
	"github.com/meetloop/meetloop/internal/sttengine"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	CheckVersionFunc func(ctx context.Context, ffmpegPath string)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	if m.CheckVersionFunc != nil {
		m.CheckVersionFunc(ctx, ffmpegPath)
	}
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)
}

func (m *mockConfigLoader) Load(func(string) string) (config.Config, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

// ---------------------------------------------------------------------------
// Mock LMClientFactory / LMClient
// ---------------------------------------------------------------------------

type mockLMClient struct {
	TranslateFunc        func(ctx context.Context, text, targetLang string) (string, error)
	TranslateStreamFunc  func(ctx context.Context, text, targetLang string) (string, error)
	SummarizeFunc        func(ctx context.Context, block string) (string, error)
	SummarizeRollingFunc func(ctx context.Context, prev, block string) (string, error)
	AliveFunc            func(ctx context.Context) bool

	mu         sync.Mutex
	aliveCalls int
}

func (m *mockLMClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, targetLang)
	}
	return text, nil
}

func (m *mockLMClient) TranslateStream(ctx context.Context, text, targetLang string) (string, error) {
	if m.TranslateStreamFunc != nil {
		return m.TranslateStreamFunc(ctx, text, targetLang)
	}
	return text, nil
}

func (m *mockLMClient) Summarize(ctx context.Context, block string) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, block)
	}
	return "", nil
}

func (m *mockLMClient) SummarizeRolling(ctx context.Context, prev, block string) (string, error) {
	if m.SummarizeRollingFunc != nil {
		return m.SummarizeRollingFunc(ctx, prev, block)
	}
	return "", nil
}

func (m *mockLMClient) Alive(ctx context.Context) bool {
	m.mu.Lock()
	m.aliveCalls++
	m.mu.Unlock()
	if m.AliveFunc != nil {
		return m.AliveFunc(ctx)
	}
	return true
}

func (m *mockLMClient) AliveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aliveCalls
}

var _ LMClient = (*mockLMClient)(nil)

type mockLMClientFactory struct {
	client LMClient
}

func (f *mockLMClientFactory) NewClient(config.Config) LMClient {
	if f.client == nil {
		return &mockLMClient{}
	}
	return f.client
}

// ---------------------------------------------------------------------------
// Mock SpeechFactory
// ---------------------------------------------------------------------------

type mockEngine struct {
	TranscribeFunc func(ctx context.Context, wavPath string) (string, error)
}

func (m *mockEngine) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wavPath)
	}
	return "", nil
}

var _ sttengine.Engine = (*mockEngine)(nil)

type mockSpeechFactory struct {
	engine sttengine.Engine
}

func (f *mockSpeechFactory) NewEngine(context.Context, config.Config) sttengine.Engine {
	if f.engine == nil {
		return &mockEngine{}
	}
	return f.engine
}

// ---------------------------------------------------------------------------
// Mock LoopbackDetector
// ---------------------------------------------------------------------------

type mockLoopbackDetector struct {
	DetectFunc func(ctx context.Context, ffmpegPath string) (*audio.Device, error)
}

func (m *mockLoopbackDetector) Detect(ctx context.Context, ffmpegPath string) (*audio.Device, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, ffmpegPath)
	}
	return &audio.Device{Name: "test.monitor", Format: "pulse"}, nil
}
