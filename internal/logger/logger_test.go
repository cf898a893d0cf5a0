package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		_ = l.Sync()
	}

	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must be enabled")
	}

	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Fatal("FromContext must never return nil")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	reqLogger := zap.New(core).With(zap.String("request_id", "r-1"))
	ctx := ContextWithLogger(context.Background(), reqLogger)

	FromContextOr(ctx, zap.NewNop()).Info("hello")
	if logs.Len() != 1 || logs.All()[0].ContextMap()["request_id"] != "r-1" {
		t.Errorf("request logger not used: %v", logs.All())
	}
}

func TestFromContextOr_Fallback(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core)

	FromContextOr(context.Background(), fallback).Info("from fallback")
	if logs.Len() != 1 {
		t.Errorf("fallback not used, got %d entries", logs.Len())
	}
	if FromContextOr(context.Background(), nil) == nil {
		t.Error("nil fallback must yield a nop logger")
	}
}
