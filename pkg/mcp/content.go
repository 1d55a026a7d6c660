// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
)

const ContentTypeText = "text"

// Fault markers. Every failure crosses the protocol as text starting with one
// of these, never as a distinct error shape.
const (
	UnknownToolText = "Unknown tool"
	ErrorPrefix     = "Error: "
	TimeoutPrefix   = "Timeout: "
)

// TextResult wraps text as a single-block result.
func TextResult(text string) *ToolCallResult {
	return &ToolCallResult{Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// JSONResult renders v as indented JSON text.
func JSONResult(v any) *ToolCallResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult(fmt.Errorf("encode result: %w", err))
	}
	return TextResult(string(data))
}

// ErrorResult renders err as "Error: <message>".
func ErrorResult(err error) *ToolCallResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &ToolCallResult{
		Content: []ContentBlock{{Type: ContentTypeText, Text: ErrorPrefix + msg}},
		IsError: true,
	}
}

// Errorf is ErrorResult with formatting.
func Errorf(format string, args ...any) *ToolCallResult {
	return ErrorResult(fmt.Errorf(format, args...))
}

// TimeoutResult renders a timeout. Kept distinct from ErrorResult so callers
// can tell "no answer yet" from "the answer was an error".
func TimeoutResult(msg string) *ToolCallResult {
	return &ToolCallResult{
		Content: []ContentBlock{{Type: ContentTypeText, Text: TimeoutPrefix + msg}},
		IsError: true,
	}
}

// UnknownToolResult is the soft-fail answer for names outside the catalog.
func UnknownToolResult() *ToolCallResult {
	return TextResult(UnknownToolText)
}

// FirstText returns the first text-typed block.
func (r *ToolCallResult) FirstText() (string, bool) {
	if r == nil {
		return "", false
	}
	for _, c := range r.Content {
		if c.Type == ContentTypeText {
			return c.Text, true
		}
	}
	return "", false
}

// IsFault reports whether the first text block carries an error or timeout marker.
func (r *ToolCallResult) IsFault() bool {
	text, ok := r.FirstText()
	if !ok {
		return false
	}
	return strings.HasPrefix(text, ErrorPrefix) || strings.HasPrefix(text, TimeoutPrefix)
}

// IsTimeout reports whether the first text block carries the timeout marker.
func (r *ToolCallResult) IsTimeout() bool {
	text, ok := r.FirstText()
	return ok && strings.HasPrefix(text, TimeoutPrefix)
}
