// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package logger is the process-wide structured logger. Every line carries a
// component name so gateway, provider and transport output can be told apart
// when several provider processes share one terminal.
//
// Output always goes to stderr: provider processes own stdout for the
// JSON-RPC stream.
package logger

import (
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors the zap levels the CLI exposes.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = newZap(os.Stderr)
)

func newZap(w io.Writer) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

// SetLevel changes the minimum level for every logger handed out so far.
func SetLevel(l LogLevel) {
	level.SetLevel(l.zapLevel())
}

// SetOutput redirects all subsequent log lines. Used by tests and by the
// provider command when --log-file is given.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newZap(w)
}

// Named returns a zap logger scoped to component, for packages that take a
// *zap.Logger directly.
func Named(component string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(component)
}

func DebugCF(component, msg string, fields map[string]any) {
	Named(component).Debug(msg, toFields(fields)...)
}

func InfoCF(component, msg string, fields map[string]any) {
	Named(component).Info(msg, toFields(fields)...)
}

func WarnCF(component, msg string, fields map[string]any) {
	Named(component).Warn(msg, toFields(fields)...)
}

func ErrorCF(component, msg string, fields map[string]any) {
	Named(component).Error(msg, toFields(fields)...)
}

func InfoC(component, msg string) {
	Named(component).Info(msg)
}

// toFields keeps field order stable so log lines diff cleanly.
func toFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
