// Package config resolves the pipeline's environment-derived settings into
// a single immutable snapshot, read once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variable names recognized at startup.
const (
	EnvLMBaseURL        = "LMSTUDIO_BASE_URL"
	EnvLMModelFast      = "LMSTUDIO_MODEL_FAST"
	EnvLMModelSmart     = "LMSTUDIO_MODEL_SMART"
	EnvSystemAudioIdx   = "SYSTEM_AUDIO_IDX"
	EnvChunkSeconds     = "CHUNK_SECONDS"
	EnvTargetLang       = "TARGET_LANG"
	EnvSummaryEvery     = "SUMMARY_EVERY_SECONDS"
	EnvMinutesWindow    = "MINUTES_WINDOW"
	EnvWhisperModel     = "WHISPER_MODEL"
	EnvWhisperBackend   = "WHISPER_BACKEND"
	EnvWhisperServerURL = "WHISPER_SERVER_URL"
	EnvWhisperBinPath   = "WHISPER_BIN_PATH"
	EnvVADEnabled       = "VAD_ENABLED"
	EnvStreamTranslate  = "STREAM_TRANSLATION"
	EnvSkipEmptyChunks  = "SKIP_EMPTY_CHUNKS"
	EnvCleanupWAV       = "CLEANUP_WAV"
	EnvOutputDir        = "MEETLOOP_OUTPUT_DIR"
)

// Defaults per the external interface contract.
const (
	defaultLMBaseURL       = "http://localhost:1234/v1"
	defaultLMModel         = "google/gemma-3-4b"
	defaultSystemAudioIdx  = 2
	defaultChunkSeconds    = 10
	defaultTargetLang      = "English"
	defaultSummaryEvery    = 300
	defaultMinutesWindow   = 600
	defaultWhisperModel    = "small"
	defaultWhisperBackend  = "auto"
	defaultWhisperServerURL = "http://localhost:8000/v1"
	defaultWhisperBinPath  = "whisper-cli"
	defaultOutputDir       = "out"
)

// Sentinel errors for configuration problems, checked with errors.Is.
var (
	// ErrNotWritable is returned when the output directory is not writable.
	ErrNotWritable = errors.New("directory not writable")
	// ErrNotDirectory is returned when the output path exists but is not a directory.
	ErrNotDirectory = errors.New("path is not a directory")
	// ErrInvalidInt is returned when an integer-valued env var cannot be parsed.
	ErrInvalidInt = errors.New("invalid integer value")
)

// Config is the immutable snapshot of pipeline settings, resolved once at
// startup from environment variables (with optional .env file support).
type Config struct {
	LMBaseURL  string
	LMModelFast  string
	LMModelSmart string

	SystemAudioIdx int
	ChunkSeconds   int
	TargetLang     string

	SummaryEverySeconds time.Duration
	MinutesWindow       time.Duration

	WhisperModel     string
	WhisperBackend   string
	WhisperServerURL string
	WhisperBinPath   string
	VADEnabled       bool

	StreamTranslation bool
	SkipEmptyChunks   bool
	CleanupWAV        bool

	OutputDir string
}

// Load resolves a Config from the environment using Getenv (os.Getenv in
// production, injectable for tests).
func Load(getenv func(string) string) (Config, error) {
	var cfg Config
	var err error

	cfg.LMBaseURL = strings.TrimSuffix(orDefault(getenv(EnvLMBaseURL), defaultLMBaseURL), "/")
	cfg.LMModelFast = orDefault(getenv(EnvLMModelFast), defaultLMModel)
	cfg.LMModelSmart = orDefault(getenv(EnvLMModelSmart), defaultLMModel)

	if cfg.SystemAudioIdx, err = intEnv(getenv, EnvSystemAudioIdx, defaultSystemAudioIdx); err != nil {
		return cfg, err
	}
	if cfg.ChunkSeconds, err = intEnv(getenv, EnvChunkSeconds, defaultChunkSeconds); err != nil {
		return cfg, err
	}
	cfg.TargetLang = orDefault(getenv(EnvTargetLang), defaultTargetLang)

	summaryEvery, err := intEnv(getenv, EnvSummaryEvery, defaultSummaryEvery)
	if err != nil {
		return cfg, err
	}
	cfg.SummaryEverySeconds = time.Duration(summaryEvery) * time.Second

	minutesWindow, err := intEnv(getenv, EnvMinutesWindow, defaultMinutesWindow)
	if err != nil {
		return cfg, err
	}
	cfg.MinutesWindow = time.Duration(minutesWindow) * time.Second

	cfg.WhisperModel = orDefault(getenv(EnvWhisperModel), defaultWhisperModel)
	cfg.WhisperBackend = orDefault(getenv(EnvWhisperBackend), defaultWhisperBackend)
	cfg.WhisperServerURL = strings.TrimSuffix(orDefault(getenv(EnvWhisperServerURL), defaultWhisperServerURL), "/")
	cfg.WhisperBinPath = orDefault(getenv(EnvWhisperBinPath), defaultWhisperBinPath)
	cfg.VADEnabled = boolEnv(getenv, EnvVADEnabled, true)

	cfg.StreamTranslation = boolEnv(getenv, EnvStreamTranslate, false)
	cfg.SkipEmptyChunks = boolEnv(getenv, EnvSkipEmptyChunks, true)
	cfg.CleanupWAV = boolEnv(getenv, EnvCleanupWAV, true)

	cfg.OutputDir = ExpandPath(orDefault(getenv(EnvOutputDir), defaultOutputDir))

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidInt, key, v)
	}
	return n, nil
}

func boolEnv(getenv func(string) string, key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

// ExpandPath expands ~ or ~/path to the user's home directory.
// Returns the path unchanged if expansion fails or if it doesn't start with ~.
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// dirPerm is the permission mode for a created output directory.
const dirPerm = os.FileMode(0750)

// EnsureOutputDir validates the output directory and creates it if absent.
// Returns nil if the directory exists and is writable, or was created.
func EnsureOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	dir = ExpandPath(dir)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dir, dirPerm); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	testFile := filepath.Join(dir, ".meetloop-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotWritable, dir)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(testFile)
		return fmt.Errorf("%w: %s", ErrNotWritable, dir)
	}
	_ = os.Remove(testFile)

	return nil
}
