// Package logging builds the process zap logger.
package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration
type Config struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "json" or "console"
	Output    string `yaml:"output"` // "stdout", "stderr" or a file path
	AddCaller bool   `yaml:"add_caller"`
	AddStack  bool   `yaml:"add_stack"`
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: "stderr"}
}

// New creates a zap logger from the production preset.
func New(config Config) (*zap.Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Format != "json" && config.Format != "console" {
		return nil, fmt.Errorf("unknown log format %q", config.Format)
	}
	if config.Output == "" {
		config.Output = "stderr"
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = ParseLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapConfig.Build()
}

// ParseLevel maps debug, info, warn and error; anything else is info.
func ParseLevel(level string) zap.AtomicLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// LogGeneration logs one completed generator call.
func LogGeneration(l *zap.Logger, provider, model, status string, duration time.Duration, promptTokens int) {
	l.Info("generation completed",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("status", status),
		zap.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
		zap.Int("prompt_tokens", promptTokens))
}

// LogRetry logs a retried generator call.
func LogRetry(l *zap.Logger, provider, reason string, attempt int) {
	l.Warn("request retry",
		zap.String("provider", provider),
		zap.String("reason", reason),
		zap.Int("attempt", attempt))
}

// LogCircuitBreaker logs a breaker state change.
func LogCircuitBreaker(l *zap.Logger, name, from, to string) {
	l.Warn("circuit breaker state changed",
		zap.String("breaker", name),
		zap.String("from", from),
		zap.String("to", to))
}
