package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		dev   bool
		want  zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"debug", true, zapcore.DebugLevel},
		{"warn", false, zapcore.WarnLevel},
		{"ERROR", false, zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		l, err := New(tc.level, tc.dev)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.level, err)
		}
		if !l.Core().Enabled(tc.want) {
			t.Fatalf("New(%q): level %v not enabled", tc.level, tc.want)
		}
		if tc.want > zapcore.DebugLevel && l.Core().Enabled(tc.want-1) {
			t.Fatalf("New(%q): level %v unexpectedly enabled", tc.level, tc.want-1)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
