// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGo)
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore keeps audit events in a SQL table. Filter columns are stored
// alongside the full event JSON, which is what Query returns.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteStore opens (or creates) a SQLite audit database at path. Use
// ":memory:" in tests.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return newSQLStore(db, dialectSQLite)
}

// NewPostgresStore connects to PostgreSQL with a lib/pq DSN, e.g.
// "postgres://audit@db/devopsmcp?sslmode=require".
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(db, dialectPostgres)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	payloadType := "TEXT"
	if s.dialect == dialectPostgres {
		payloadType = "JSONB"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			ts_ns BIGINT NOT NULL,
			type TEXT NOT NULL,
			service TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			payload ` + payloadType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts_ns)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_service ON audit_events(service)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Append inserts an event, filling in ID and Timestamp when unset.
func (s *SQLStore) Append(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	var service, status string
	if event.Target != nil {
		service = event.Target.Service
	}
	if event.Result != nil {
		status = event.Result.Status
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO audit_events (id, ts_ns, type, service, status, payload) VALUES (?, ?, ?, ?, ?, ?)`),
		event.ID, event.Timestamp.UnixNano(), string(event.Type), service, status, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query returns matching events oldest first.
func (s *SQLStore) Query(ctx context.Context, opts QueryOptions) ([]*Event, error) {
	query, args := s.buildQuery(opts)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			continue // skip rows written by an incompatible version
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows come newest first so LIMIT keeps the newest.
	slices.Reverse(events)
	return events, nil
}

func (s *SQLStore) buildQuery(opts QueryOptions) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if opts.Service != "" {
		add("service = ?", opts.Service)
	}
	if opts.Type != "" {
		add("type = ?", string(opts.Type))
	}
	if opts.Status != "" {
		add("status = ?", opts.Status)
	}
	if !opts.Since.IsZero() {
		add("ts_ns >= ?", opts.Since.UnixNano())
	}
	if !opts.Until.IsZero() {
		add("ts_ns <= ?", opts.Until.UnixNano())
	}

	var b strings.Builder
	b.WriteString("SELECT payload FROM audit_events")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ts_ns DESC, id DESC")
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(opts.Limit))
	}
	return s.rebind(b.String()), args
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
