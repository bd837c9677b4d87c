package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		l, err := New(level)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", level, err)
		}
		if l == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestNewDebugEnablesDebug(t *testing.T) {
	l, err := New("debug")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Error("debug logger should enable DebugLevel")
	}

	l, err = New("warn")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("warn logger should not enable InfoLevel")
	}
}
