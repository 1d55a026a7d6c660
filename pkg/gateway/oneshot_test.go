// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freitascorp/devopsmcp/pkg/audit"
	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

func TestOneShot_Result(t *testing.T) {
	tc := &testConnector{}
	g := newGateway(t, config.DefaultConfig(), tc)

	out := g.OneShot(context.Background(), "reviewer", "CodeReviewer:reviewDiff", map[string]any{
		"diff":  "diff --git a/auth.go b/auth.go\n+token := req.Header.Get(\"X-Token\")\n",
		"focus": "security",
	})
	require.Equal(t, OutcomeResult, out.Kind, "err: %v", out.Err)
	assert.NoError(t, out.Err)
	assert.Contains(t, text(t, out.Content()), "security focus")
	assert.EqualValues(t, 1, tc.dials.Load())

	// The dedicated connection is gone once the call returns.
	_, err := tc.client("reviewer").ListTools(context.Background())
	assert.ErrorIs(t, err, mcp.ErrClosed)
}

func TestOneShot_DoesNotNeedInitialize(t *testing.T) {
	g := newGateway(t, config.DefaultConfig(), &testConnector{})
	out := g.OneShot(context.Background(), "devops", "DevOps:summarize-diff", map[string]any{"diff": "+a\n+b\n"})
	require.Equal(t, OutcomeResult, out.Kind)
	assert.Contains(t, text(t, out.Content()), "Lines Added: 2")

	// Invoke still answers from the mock policy: OneShot registers nothing.
	assert.Equal(t, MockSummaryText, text(t, g.Invoke(context.Background(), "devops", "DevOps:summarize-diff", nil)))
}

func TestOneShot_ConnectFault(t *testing.T) {
	g := newGateway(t, config.DefaultConfig(), &testConnector{down: map[string]bool{"slack": true}})

	out := g.OneShot(context.Background(), "slack", "Slack:postMessage", map[string]any{"channel": "#ops", "text": "hi"})
	assert.Equal(t, OutcomeFault, out.Kind)
	assert.ErrorIs(t, out.Err, ErrExecutableNotFound)
	assert.Nil(t, out.Result)

	res := out.Content()
	assert.True(t, strings.HasPrefix(text(t, res), mcp.ErrorPrefix))
	assert.True(t, res.IsError)
}

func TestOneShot_Timeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Services = []config.ServiceConfig{{ID: "slow", Family: "docs"}}
	cfg.Gateway.OneShotTimeout = 50 * time.Millisecond

	h := &slowHandler{release: make(chan struct{})}
	defer close(h.release)
	g := newGateway(t, cfg, &testConnector{handlers: map[string]mcp.Handler{"slow": h}})

	start := time.Now()
	out := g.OneShot(context.Background(), "slow", "Slow:wait", nil)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, OutcomeTimeout, out.Kind)
	require.Error(t, out.Err)

	res := out.Content()
	assert.True(t, res.IsTimeout(), text(t, res))
	assert.Contains(t, text(t, res), "within 50ms")
}

func TestOneShot_UnknownService(t *testing.T) {
	g := newGateway(t, config.DefaultConfig(), &testConnector{})
	out := g.OneShot(context.Background(), "jira", "Jira:createIssue", nil)
	assert.Equal(t, OutcomeFault, out.Kind)
	assert.EqualError(t, out.Err, `unknown service "jira"`)
}

func TestOneShot_InfersFamilyForUnconfiguredID(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Services = nil
	tc := &testConnector{}
	g := newGateway(t, cfg, tc)

	out := g.OneShot(context.Background(), "team-notion", "Notion:searchPages", map[string]any{"query": "oncall"})
	require.Equal(t, OutcomeResult, out.Kind, "err: %v", out.Err)
	assert.Contains(t, text(t, out.Content()), `"mockData": true`)
}

func TestOneShot_Audited(t *testing.T) {
	store, err := audit.NewFileStore(t.TempDir())
	require.NoError(t, err)
	g := newGateway(t, config.DefaultConfig(), &testConnector{down: map[string]bool{"slack": true}},
		WithAudit(audit.NewLogger(store, "ci")))

	ctx := context.Background()
	g.OneShot(ctx, "devops", "DevOps:summarize-diff", map[string]any{})
	g.OneShot(ctx, "slack", "Slack:postMessage", nil)

	events, err := store.Query(ctx, audit.QueryOptions{Type: audit.EventOneShot})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "devops", events[0].Target.Service)
	assert.Equal(t, audit.StatusFault, events[0].Result.Status, "strict validation error is a fault")
	assert.Equal(t, "slack", events[1].Target.Service)
	assert.Equal(t, audit.StatusFault, events[1].Result.Status)
	assert.NotEmpty(t, events[1].Result.Error)
}

func TestOutcomeContent(t *testing.T) {
	assert.Equal(t, "", text(t, Outcome{Kind: OutcomeResult}.Content()))
	assert.Equal(t, "Timeout: no response", text(t, Outcome{Kind: OutcomeTimeout}.Content()))
	assert.Equal(t, "Error: boom", text(t, Outcome{Kind: OutcomeFault, Err: errors.New("boom")}.Content()))
	assert.Equal(t, "timeout", OutcomeTimeout.String())
	assert.Equal(t, "OutcomeKind(9)", OutcomeKind(9).String())
}

func TestInferFamily(t *testing.T) {
	for id, want := range map[string]provider.Family{
		"devops":          provider.FamilyDocs,
		"team-docs":       provider.FamilyDocs,
		"Notion":          provider.FamilyNotes,
		"slack-alerts":    provider.FamilyMessaging,
		"claude-reviewer": provider.FamilyReviewer,
		"jira":            "",
	} {
		assert.Equal(t, want, InferFamily(id), id)
	}
}

func TestMockResult(t *testing.T) {
	assert.Equal(t, MockSummaryText, text(t, MockResult(provider.FamilyDocs, "DevOps:summarize-diff")))
	assert.Equal(t, MockPatchText, text(t, MockResult(provider.FamilyDocs, "DevOps:generate-docs-patch")))
	assert.Equal(t, `{"ok":true,"mock":true}`, text(t, MockResult(provider.FamilyMessaging, "Slack:postMessage")))
	assert.Equal(t, `{"ok":true,"mock":true}`, text(t, MockResult(provider.FamilyReviewer, "CodeReviewer:reviewDiff")))
	assert.Equal(t,
		"{\n  \"success\": false,\n  \"message\": \"Notion service not connected (mock mode)\",\n  \"mockData\": true\n}",
		text(t, MockResult(provider.FamilyNotes, "Notion:createPage")))
}
