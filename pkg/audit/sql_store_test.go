// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	events := []*Event{
		invoke("devops", "DevOps:summarize-diff", StatusOK),
		invoke("notion", "Notion:createPage", StatusMock),
		invoke("devops", "DevOps:generate-docs-patch", StatusFault),
		{Type: EventConnect, Target: &EventTarget{Service: "slack", Family: "messaging"}, Result: &EventResult{Status: StatusFault, Error: "connect: provider executable not found"}},
	}
	for i, e := range events {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Append(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	all, err := store.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "DevOps:summarize-diff", all[0].Target.Tool, "oldest first")
	assert.Equal(t, EventConnect, all[3].Type)
	assert.Equal(t, "connect: provider executable not found", all[3].Result.Error)
	assert.True(t, all[0].Timestamp.Equal(base))

	devops, err := store.Query(ctx, QueryOptions{Service: "devops"})
	require.NoError(t, err)
	assert.Len(t, devops, 2)

	faults, err := store.Query(ctx, QueryOptions{Status: StatusFault, Type: EventInvoke})
	require.NoError(t, err)
	require.Len(t, faults, 1)
	assert.Equal(t, "DevOps:generate-docs-patch", faults[0].Target.Tool)

	window, err := store.Query(ctx, QueryOptions{Since: base.Add(time.Minute), Until: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "notion", window[0].Target.Service)

	newest, err := store.Query(ctx, QueryOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "DevOps:generate-docs-patch", newest[0].Target.Tool)
	assert.Equal(t, EventConnect, newest[1].Type)
}

func TestFileStore_Contract(t *testing.T) {
	storeContract(t, tempStore(t))
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	storeContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), invoke("devops", "DevOps:collect-diff", StatusOK)))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Query(context.Background(), QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DevOps:collect-diff", got[0].Target.Tool)
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("DEVOPSMCP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DEVOPSMCP_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = store.db.Exec("DROP TABLE IF EXISTS audit_events")
		_ = store.Close()
	})
	_, err = store.db.Exec("DELETE FROM audit_events")
	require.NoError(t, err)
	storeContract(t, store)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{dialect: dialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestBuildQuery(t *testing.T) {
	s := &SQLStore{dialect: dialectPostgres}
	q, args := s.buildQuery(QueryOptions{Service: "devops", Status: StatusOK, Limit: 5})
	assert.Equal(t, "SELECT payload FROM audit_events WHERE service = $1 AND status = $2 ORDER BY ts_ns DESC, id DESC LIMIT 5", q)
	assert.Equal(t, []any{"devops", StatusOK}, args)
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(StoreConfig{Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = NewStore(StoreConfig{Backend: BackendSQLite, Dir: filepath.Join(dir, "nested")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "nested", "audit.db"))

	_, err = NewStore(StoreConfig{Backend: BackendPostgres})
	assert.ErrorContains(t, err, "requires dsn")

	_, err = NewStore(StoreConfig{Backend: "mongo"})
	assert.ErrorContains(t, err, `unknown audit backend "mongo"`)
}
