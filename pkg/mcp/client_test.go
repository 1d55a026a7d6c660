// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package mcp

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeClient wires a Client to an in-process Server over two pipes and
// completes the handshake. hangup closes the server's output.
func pipeClient(t *testing.T, h Handler) (c *Client, hangup func()) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv := NewServerWithIO(h, reqR, respW)
	go func() {
		_ = srv.Serve(context.Background())
		respW.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := NewIOClient(ctx, respR, reqW, ClientOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	_, err = c.Initialize(ctx, EntityInfo{Name: "gateway", Version: "test"})
	require.NoError(t, err)
	return c, func() { respW.Close() }
}

func TestClient_HandshakeAndList(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go func() {
		_ = NewServerWithIO(newTestHandler(), reqR, respW).Serve(context.Background())
		respW.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := NewIOClient(ctx, respR, reqW, ClientOptions{})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ListTools(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	res, err := c.Initialize(ctx, EntityInfo{Name: "gateway", Version: "test"})
	require.NoError(t, err)
	assert.Equal(t, "test-provider", res.ServerInfo.Name)
	assert.NotEmpty(t, res.ProtocolVersion)

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "Test:echo", tools[0].Name)
	require.NotNil(t, tools[0].InputSchema)
	assert.Equal(t, []string{"arg1"}, tools[0].InputSchema.Required)
	assert.Equal(t, "string", tools[0].InputSchema.Properties["arg1"].Type)
}

func TestClient_CallTool(t *testing.T) {
	c, _ := pipeClient(t, newTestHandler())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.CallTool(ctx, "Test:echo", map[string]any{"arg1": "ping"})
	require.NoError(t, err)
	text, ok := res.FirstText()
	require.True(t, ok)
	assert.Equal(t, "ping", text)

	res, err = c.CallTool(ctx, "Test:fail", map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.IsFault())
	assert.True(t, res.IsError)

	res, err = c.CallTool(ctx, "Test:nope", map[string]any{})
	require.NoError(t, err)
	text, _ = res.FirstText()
	assert.Equal(t, UnknownToolText, text)
}

func TestClient_ConcurrentCallsAreCorrelated(t *testing.T) {
	c, _ := pipeClient(t, newTestHandler())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inputs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	got := make([]string, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.CallTool(ctx, "Test:echo", map[string]any{"arg1": in})
			if err != nil {
				return
			}
			got[i], _ = res.FirstText()
		}()
	}
	wg.Wait()
	assert.Equal(t, inputs, got)
}

func TestClient_RPCErrorIsReturned(t *testing.T) {
	c, _ := pipeClient(t, newTestHandler())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.CallTool(ctx, "", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool name is required")
}

// hangupHandler closes the server's output when Test:hangup is called.
type hangupHandler struct {
	*fakeHandler
	hangup func()
}

func (h *hangupHandler) CallTool(ctx context.Context, name string, args map[string]any) *ToolCallResult {
	if name == "Test:hangup" {
		h.hangup()
	}
	return h.fakeHandler.CallTool(ctx, name, args)
}

func TestClient_PeerExitEndsConnection(t *testing.T) {
	h := &hangupHandler{fakeHandler: newTestHandler()}
	c, hangup := pipeClient(t, h)
	h.hangup = hangup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.CallTool(ctx, "Test:hangup", map[string]any{})
	require.Error(t, err)

	assert.Eventually(t, func() bool {
		_, err := c.CallTool(ctx, "Test:echo", map[string]any{"arg1": "x"})
		return errors.Is(err, ErrClosed)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c, _ := pipeClient(t, newTestHandler())
	first := c.Close()
	assert.Equal(t, first, c.Close())

	_, err := c.CallTool(context.Background(), "Test:echo", map[string]any{"arg1": "x"})
	assert.ErrorIs(t, err, ErrClosed)
}

// blockingHandler holds every call until release is closed. The server
// handles one request at a time, so it stops reading meanwhile.
type blockingHandler struct {
	*fakeHandler
	release chan struct{}
}

func (h *blockingHandler) CallTool(ctx context.Context, name string, args map[string]any) *ToolCallResult {
	if name == "Test:block" {
		<-h.release
		return TextResult("released")
	}
	return h.fakeHandler.CallTool(ctx, name, args)
}

func TestClient_ContextBoundsStuckPeer(t *testing.T) {
	h := &blockingHandler{fakeHandler: newTestHandler(), release: make(chan struct{})}
	c, _ := pipeClient(t, h)
	defer close(h.release)

	go func() { _, _ = c.CallTool(context.Background(), "Test:block", map[string]any{}) }()

	// The peer no longer reads, so this request cannot even be written.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.CallTool(ctx, "Test:echo", map[string]any{"arg1": strings.Repeat("x", 256*1024)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_OversizedRequestRejectedLocally(t *testing.T) {
	c, _ := pipeClient(t, newTestHandler())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.CallTool(ctx, "Test:echo", map[string]any{"arg1": strings.Repeat("x", MaxMessageSize+1)})
	assert.ErrorIs(t, err, ErrRequestTooLarge)

	res, err := c.CallTool(ctx, "Test:echo", map[string]any{"arg1": "still here"})
	require.NoError(t, err)
	text, _ := res.FirstText()
	assert.Equal(t, "still here", text)
}

// bigHandler answers Test:big with more text than one message may carry.
type bigHandler struct {
	*fakeHandler
}

func (h *bigHandler) CallTool(ctx context.Context, name string, args map[string]any) *ToolCallResult {
	if name == "Test:big" {
		return TextResult(strings.Repeat("+line\n", (MaxMessageSize/6)+1024))
	}
	return h.fakeHandler.CallTool(ctx, name, args)
}

func TestClient_OversizedResultKeepsConnection(t *testing.T) {
	c, _ := pipeClient(t, &bigHandler{fakeHandler: newTestHandler()})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := c.CallTool(ctx, "Test:big", map[string]any{})
	require.NoError(t, err)
	text, _ := res.FirstText()
	assert.True(t, strings.HasPrefix(text, ErrorPrefix+"result too large"), text)

	res, err = c.CallTool(ctx, "Test:echo", map[string]any{"arg1": "next"})
	require.NoError(t, err)
	text, _ = res.FirstText()
	assert.Equal(t, "next", text)
}
