package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kilnbuild/kiln/internal/adapters/logger"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Info("pipeline loaded")
	log.Warn("cache save skipped")
	log.Error(errors.New("step failed"))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), out)
	}

	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "pipeline loaded") {
		t.Errorf("unexpected info line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "cache save skipped") {
		t.Errorf("unexpected warn line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "level=ERROR") || !strings.Contains(lines[2], "step failed") {
		t.Errorf("unexpected error line: %q", lines[2])
	}
}
