// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package audit

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store backends.
const (
	BackendJSONL    = "jsonl"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StoreConfig selects and locates an audit store.
type StoreConfig struct {
	Backend string // "jsonl" (default), "sqlite", "postgres"
	Dir     string // JSONL directory, and the default SQLite location
	DSN     string // SQLite file path or PostgreSQL DSN
}

// NewStore opens the store cfg describes.
func NewStore(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", BackendJSONL:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("jsonl audit store requires a directory")
		}
		return NewFileStore(cfg.Dir)

	case BackendSQLite:
		path := cfg.DSN
		if path == "" {
			if cfg.Dir == "" {
				return nil, fmt.Errorf("sqlite audit store requires dsn or dir")
			}
			if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
				return nil, fmt.Errorf("create audit dir: %w", err)
			}
			path = filepath.Join(cfg.Dir, "audit.db")
		}
		return NewSQLiteStore(path)

	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres audit store requires dsn")
		}
		return NewPostgresStore(cfg.DSN)
	}
	return nil, fmt.Errorf("unknown audit backend %q (supported: jsonl, sqlite, postgres)", cfg.Backend)
}
