package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func reset() {
	Log = zap.NewNop()
	Sugar = Log.Sugar()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"WARNING", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"", zapcore.InfoLevel, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNopBeforeInit(t *testing.T) {
	// must not panic
	Info("before init", zap.String("k", "v"))
	Named("test").Debug("named before init")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	defer reset()
	if err := Setup(Options{Level: "chatty"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestConsoleOutput(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	if err := Setup(Options{Level: "info", Console: &buf}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	Debug("hidden")
	Named("loader").Info("asset loaded", zap.String("url", "scene.glb"))
	Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry leaked at info level: %s", out)
	}
	for _, want := range []string{"asset loaded", "loader", "scene.glb", "logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in console output, got %s", want, out)
		}
	}
}

func TestFileOutput(t *testing.T) {
	defer reset()
	path := filepath.Join(t.TempDir(), "viewer.log")
	if err := Setup(Options{Level: "debug", File: path}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	Warn("environment missing", zap.String("asset", "scene.glb"))
	Named("renderer").Info("surface resized")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"environment missing"`) {
		t.Errorf("expected warn entry in log file, got %s", out)
	}
	if !strings.Contains(out, `"component":"renderer"`) {
		t.Errorf("expected component name in log file, got %s", out)
	}
}
