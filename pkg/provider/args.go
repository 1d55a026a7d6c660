// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package provider

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args is the arguments object of one tool call.
type Args map[string]any

// String returns the named argument as a string, or "" when absent.
// Non-string scalars are formatted.
func (a Args) String(name string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return fmt.Sprint(v)
}

// StringOr returns the named argument or def when it is absent or blank.
func (a Args) StringOr(name, def string) string {
	if s := a.String(name); strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

// RequireString returns the named argument or an error when it is absent or
// blank.
func (a Args) RequireString(name string) (string, error) {
	s := a.String(name)
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// Int coerces the named argument to an int. Numbers are truncated, numeric
// strings are parsed; anything else yields def.
func (a Args) Int(name string, def int) int {
	switch v := a[name].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return def
}

// PositiveInt is Int that also falls back to def for values below 1.
func (a Args) PositiveInt(name string, def int) int {
	n := a.Int(name, def)
	if n < 1 {
		return def
	}
	return n
}

// Object returns the named argument as an object, or nil.
func (a Args) Object(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}

// RequireObject is Object that fails when the argument is absent.
func (a Args) RequireObject(name string) (map[string]any, error) {
	m := a.Object(name)
	if m == nil {
		return nil, fmt.Errorf("%s is required and must be an object", name)
	}
	return m, nil
}

// List splits a comma-separated argument, or accepts a JSON array of strings.
func (a Args) List(name string) []string {
	var raw []string
	switch v := a[name].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = v
	case string:
		raw = strings.Split(v, ",")
	}
	out := raw[:0:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
