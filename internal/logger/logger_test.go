package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
	}{
		{"prod", "", false},
		{"local", "debug", false},
		{"docker", "warn", false},
		{"staging", "", true},
		{"prod", "loud", true},
	}
	for _, tt := range tests {
		l, err := NewLogger(tt.env, tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewLogger(%q, %q) error = %v, wantErr %v", tt.env, tt.level, err, tt.wantErr)
			continue
		}
		if l != nil {
			_ = l.Sync()
		}
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("info enabled with warn override")
	}
	if !l.Core().Enabled(zap.WarnLevel) {
		t.Error("warn disabled with warn override")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext() = nil, want nop logger")
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ctx = With(ctx, zap.String("request_id", "abc"))
	FromContext(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "abc" {
		t.Errorf("request_id = %v, want abc", got)
	}
}
