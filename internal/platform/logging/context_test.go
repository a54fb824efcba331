package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedContext(level zapcore.Level, opts ...zap.Option) (context.Context, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return contextWithLogger(context.Background(), zap.New(core, opts...)), recorded
}

func fieldMap(entry observer.LoggedEntry) map[string]zap.Field {
	fields := make(map[string]zap.Field, len(entry.Context))
	for _, f := range entry.Context {
		fields[f.Key] = f
	}
	return fields
}

func TestTraceIDFromContext(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != nil {
		t.Fatalf("expected nil trace ID, got %v", *got)
	}
	ctx := contextWithTraceID(context.Background(), "trace-abc")
	if got := TraceIDFromContext(ctx); got == nil || *got != "trace-abc" {
		t.Fatalf("expected trace-abc, got %v", got)
	}
	if ctx := contextWithTraceID(context.Background(), ""); TraceIDFromContext(ctx) != nil {
		t.Fatal("expected empty trace ID to be ignored")
	}
}

func TestLogHelpersWriteAtLevel(t *testing.T) {
	tests := []struct {
		name  string
		log   func(context.Context)
		level zapcore.Level
		msg   string
	}{
		{"info", func(ctx context.Context) { LogInfo(ctx, "greeting served", zap.String("path", "/")) }, zapcore.InfoLevel, "greeting served"},
		{"warn", func(ctx context.Context) { LogWarn(ctx, "slow write", zap.String("path", "/")) }, zapcore.WarnLevel, "slow write"},
		{"error", func(ctx context.Context) { LogError(ctx, "write failed", nil, zap.String("path", "/")) }, zapcore.ErrorLevel, "write failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, recorded := observedContext(zapcore.DebugLevel)
			tt.log(ctx)

			entries := recorded.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 log entry, got %d", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Fatalf("expected level %s, got %s", tt.level, entries[0].Level)
			}
			if entries[0].Message != tt.msg {
				t.Fatalf("unexpected message: %s", entries[0].Message)
			}
			if f, ok := fieldMap(entries[0])["path"]; !ok || f.String != "/" {
				t.Fatalf("expected path field, got %+v", entries[0].Context)
			}
		})
	}
}

func TestLogErrorAppendsErrorField(t *testing.T) {
	ctx, recorded := observedContext(zapcore.ErrorLevel)
	LogError(ctx, "failed", errors.New("boom"))

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if f, ok := fieldMap(entries[0])["error"]; !ok || f.Type != zapcore.ErrorType {
		t.Fatalf("expected error field, got %+v", entries[0].Context)
	}
}

func TestLogErrorNilErrorOmitsField(t *testing.T) {
	ctx, recorded := observedContext(zapcore.ErrorLevel)
	LogError(ctx, "no error", nil)

	if _, ok := fieldMap(recorded.All()[0])["error"]; ok {
		t.Fatal("did not expect error field when err is nil")
	}
}

func TestLogFatalAppendsErrorField(t *testing.T) {
	ctx, recorded := observedContext(zapcore.InfoLevel, zap.WithFatalHook(zapcore.WriteThenPanic))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic triggered by fatal hook")
		}
		entries := recorded.All()
		if len(entries) != 1 || entries[0].Level != zapcore.FatalLevel {
			t.Fatalf("expected one fatal entry, got %+v", entries)
		}
		if _, ok := fieldMap(entries[0])["error"]; !ok {
			t.Fatalf("expected error field, got %+v", entries[0].Context)
		}
	}()

	LogFatal(ctx, "fatal failure", errors.New("boom"))
}

func TestSugarFromContext(t *testing.T) {
	ctx, recorded := observedContext(zapcore.InfoLevel)
	SugarFromContext(ctx).Infow("sugared", "key", "value")

	entries := recorded.All()
	if len(entries) != 1 || entries[0].Message != "sugared" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestNilContextFallbacks(t *testing.T) {
	var nilCtx context.Context //nolint:revive // nil context handling

	if LoggerFromContext(nilCtx) == nil {
		t.Fatal("expected global logger for nil context")
	}
	if TraceIDFromContext(nilCtx) != nil {
		t.Fatal("expected nil trace ID for nil context")
	}
	if ctx := contextWithTraceID(nilCtx, "trace-123"); *TraceIDFromContext(ctx) != "trace-123" {
		t.Fatal("expected trace ID stored on background context")
	}
	ctx := context.WithValue(context.Background(), ctxLoggerKey{}, (*zap.Logger)(nil))
	if LoggerFromContext(ctx) != Logger() {
		t.Fatal("expected global logger when context holds a nil logger")
	}
}
