package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/meetloop/meetloop/internal/logging"
)

func TestNewWritesJSONLinesToRotatedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := logging.New(dir)
	logger.Info("pipeline started", "stage", "capture")

	data, err := os.ReadFile(filepath.Join(dir, "meetloop.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file empty")
	}
}

func TestWithLevelFiltersBelowThreshold(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := logging.New(dir, logging.WithLevel(slog.LevelWarn))
	logger.Info("should be filtered")

	data, _ := os.ReadFile(filepath.Join(dir, "meetloop.log"))
	if len(data) != 0 {
		t.Errorf("expected no output below Warn level, got %q", data)
	}
}
