package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var out bytes.Buffer
	l := New(&out, LevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	got := out.String()
	if strings.Contains(got, "debug 1") || strings.Contains(got, "info 2") {
		t.Errorf("Filtered levels were written: %q", got)
	}
	if !strings.Contains(got, "[WARN] warn 3") || !strings.Contains(got, "[ERROR] error 4") {
		t.Errorf("Expected warn and error lines, got %q", got)
	}

	out.Reset()
	l.SetLevel(LevelDebug)
	Dump(l, "frame", []byte{0xDE, 0xAD})
	if !strings.Contains(out.String(), "frame (2 bytes)") || !strings.Contains(out.String(), "de ad") {
		t.Errorf("Unexpected dump: %q", out.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestOrNoOp(t *testing.T) {
	if _, ok := OrNoOp(nil).(*NoOpLogger); !ok {
		t.Error("OrNoOp(nil) should return a NoOpLogger")
	}
	l := NewDefaultLogger(LevelInfo)
	if OrNoOp(l) != Logger(l) {
		t.Error("OrNoOp should return the given logger")
	}
}
