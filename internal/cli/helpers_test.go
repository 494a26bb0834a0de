package cli

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// syncBuffer is a thread-safe bytes.Buffer for concurrent test output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// fixedTime returns a function that always returns t.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function backed by a map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

// testEnv builds an Env with every dependency mocked; individual fields
// are overridden by the caller after construction.
func testEnv() (*Env, *syncBuffer) {
	stdout := &syncBuffer{}
	env := &Env{
		Stdout:           stdout,
		Stderr:           &syncBuffer{},
		Getenv:           func(string) string { return "" },
		Now:              fixedTime(time.Date(2026, 1, 26, 14, 30, 0, 0, time.UTC)),
		FFmpegResolver:   &mockFFmpegResolver{},
		ConfigLoader:     &mockConfigLoader{},
		LMClientFactory:  &mockLMClientFactory{},
		SpeechFactory:    &mockSpeechFactory{},
		LoopbackDetector: &mockLoopbackDetector{},
	}
	return env, stdout
}
