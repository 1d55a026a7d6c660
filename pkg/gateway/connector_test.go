// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package gateway

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freitascorp/devopsmcp/pkg/config"
)

func TestProcessConnector_Command(t *testing.T) {
	pc := &ProcessConnector{Executable: "/usr/local/bin/devopsmcp", ConfigPath: "/etc/devopsmcp.yaml"}

	exe, args, err := pc.command(config.ServiceConfig{ID: "devops", Family: "docs", Args: []string{"--debug"}})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/devopsmcp", exe)
	assert.Equal(t, []string{"provider", "docs", "--config", "/etc/devopsmcp.yaml", "--debug"}, args)

	exe, args, err = pc.command(config.ServiceConfig{ID: "slack", Family: "messaging", Command: "node", Args: []string{"slack.js"}})
	require.NoError(t, err)
	assert.Equal(t, "node", exe)
	assert.Equal(t, []string{"slack.js"}, args)

	self, err := os.Executable()
	require.NoError(t, err)
	exe, args, err = (&ProcessConnector{}).command(config.ServiceConfig{Family: "notes"})
	require.NoError(t, err)
	assert.Equal(t, self, exe)
	assert.Equal(t, []string{"provider", "notes"}, args)
}

func TestProcessConnector_MissingExecutable(t *testing.T) {
	pc := &ProcessConnector{}
	_, err := pc.Connect(context.Background(), config.ServiceConfig{
		ID:      "devops",
		Command: filepath.Join(t.TempDir(), "no-such-provider"),
	})
	assert.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestProcessConnector_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&ProcessConnector{}).Connect(ctx, config.ServiceConfig{ID: "devops", Command: "true"})
	assert.ErrorIs(t, err, context.Canceled)
}

// sleep never answers, so the handshake runs into the deadline. The child
// must still go away once the connection is closed.
func TestProcessConnector_HandshakeTimeoutAndClose(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	conn, err := (&ProcessConnector{}).Connect(context.Background(), config.ServiceConfig{ID: "mute", Command: sleep, Args: []string{"30"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = conn.Initialize(ctx, ClientInfo)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	done := make(chan error, 1)
	go func() { done <- conn.Close() }()
	select {
	case <-done:
	case <-time.After(gracefulExitWait + 5*time.Second):
		t.Fatal("Close did not return")
	}
}

func TestFormatEnv(t *testing.T) {
	assert.Nil(t, formatEnv(nil))
	assert.Equal(t,
		[]string{"DEVOPSMCP_LLM=mock", "NOTION_API_KEY=secret"},
		formatEnv(map[string]string{"NOTION_API_KEY": "secret", "DEVOPSMCP_LLM": "mock", " ": "ignored"}),
	)
}

func TestClassifyStartError(t *testing.T) {
	assert.ErrorIs(t, classifyStartError(exec.ErrNotFound), ErrExecutableNotFound)
	assert.ErrorIs(t, classifyStartError(&os.PathError{Op: "fork/exec", Path: "/x", Err: os.ErrPermission}), ErrPermissionDenied)

	err := classifyStartError(errors.New("resource temporarily unavailable"))
	assert.EqualError(t, err, "start provider: resource temporarily unavailable")
}
