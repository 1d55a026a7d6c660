// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package audit keeps an append-only record of gateway activity: provider
// connections and tool invocations. Events go to a JSON Lines file by
// default, or to SQLite or PostgreSQL.
package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit events.
type EventType string

const (
	EventConnect EventType = "service.connect"
	EventInvoke  EventType = "tool.invoke"
	EventOneShot EventType = "tool.oneshot"
)

// Result statuses.
const (
	StatusOK      = "ok"
	StatusFault   = "fault"
	StatusTimeout = "timeout"
	StatusMock    = "mock"
)

// Event is a single immutable audit record.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"ts"`
	Type      EventType      `json:"type"`
	User      string         `json:"user,omitempty"`
	Target    *EventTarget   `json:"target,omitempty"`
	Result    *EventResult   `json:"result,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EventTarget names what was called. ArgKeys lists argument names only;
// argument values are never recorded.
type EventTarget struct {
	Service string   `json:"service"`
	Family  string   `json:"family,omitempty"`
	Tool    string   `json:"tool,omitempty"`
	ArgKeys []string `json:"arg_keys,omitempty"`
}

// EventResult captures the outcome.
type EventResult struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// QueryOptions filters audit log queries. Limit keeps the newest matches.
type QueryOptions struct {
	Service string
	Type    EventType
	Status  string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Store is the persistence interface for the audit log.
type Store interface {
	Append(ctx context.Context, event *Event) error
	Query(ctx context.Context, opts QueryOptions) ([]*Event, error)
	Close() error
}

// ------------------------------------------------------------------
// File-based audit store (append-only JSONL)
// ------------------------------------------------------------------

// FileStore appends one JSON event per line to <dir>/audit.jsonl.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path is the log file location.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, "audit.jsonl")
}

// Close is a no-op; the file is opened per write.
func (s *FileStore) Close() error { return nil }

// Append writes an event, filling in ID and Timestamp when unset.
func (s *FileStore) Append(_ context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Query reads events matching the given filters, oldest first.
func (s *FileStore) Query(_ context.Context, opts QueryOptions) ([]*Event, error) {
	s.mu.Lock()
	all, err := s.readAll()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := slices.DeleteFunc(all, func(e *Event) bool { return !opts.match(e) })
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[len(results)-opts.Limit:]
	}
	return results, nil
}

func (o QueryOptions) match(e *Event) bool {
	if o.Service != "" && (e.Target == nil || e.Target.Service != o.Service) {
		return false
	}
	if o.Type != "" && e.Type != o.Type {
		return false
	}
	if o.Status != "" && (e.Result == nil || e.Result.Status != o.Status) {
		return false
	}
	if !o.Since.IsZero() && e.Timestamp.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && e.Timestamp.After(o.Until) {
		return false
	}
	return true
}

func (s *FileStore) readAll() ([]*Event, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var events []*Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip malformed lines
		}
		events = append(events, &e)
	}
	return events, sc.Err()
}

// ------------------------------------------------------------------
// Logger is a convenience wrapper for emitting audit events
// ------------------------------------------------------------------

// Logger stamps events with the local user.
type Logger struct {
	store Store
	user  string
}

// NewLogger creates an audit logger for the given user.
func NewLogger(store Store, user string) *Logger {
	return &Logger{store: store, user: user}
}

// Close closes the underlying store.
func (l *Logger) Close() error {
	return l.store.Close()
}

// LogConnect records a provider connection attempt.
func (l *Logger) LogConnect(ctx context.Context, service, family string, took time.Duration, connErr error) error {
	res := &EventResult{Status: StatusOK, DurationMS: took.Milliseconds()}
	if connErr != nil {
		res.Status = StatusFault
		res.Error = connErr.Error()
	}
	return l.store.Append(ctx, &Event{
		Type:   EventConnect,
		User:   l.user,
		Target: &EventTarget{Service: service, Family: family},
		Result: res,
	})
}

// LogInvocation records one tool call.
func (l *Logger) LogInvocation(ctx context.Context, typ EventType, target EventTarget, result EventResult) error {
	return l.store.Append(ctx, &Event{
		Type:   typ,
		User:   l.user,
		Target: &target,
		Result: &result,
	})
}

// ArgKeys returns the sorted argument names.
func ArgKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
