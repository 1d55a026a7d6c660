// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freitascorp/devopsmcp/pkg/audit"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs(`{"diff":"+x","maxChars":10}`, []string{
		"maxChars=40",
		"focus=security",
		"limit=abc",
		"dryRun=true",
		"filter={\"property\":\"Status\"}",
		"quoted=\"7\"",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"diff":     "+x",
		"maxChars": 40.0,
		"focus":    "security",
		"limit":    "abc",
		"dryRun":   true,
		"filter":   map[string]any{"property": "Status"},
		"quoted":   `"7"`,
	}, args)
}

func TestParseToolArgs_Stdin(t *testing.T) {
	args, err := parseToolArgs("", []string{"diff=@-"}, strings.NewReader("diff --git a/x b/x\n+1\n"))
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/x b/x\n+1\n", args["diff"])

	_, err = parseToolArgs("", []string{"a=@-", "b=@-"}, strings.NewReader("x"))
	assert.ErrorContains(t, err, "stdin already consumed")
}

func TestParseToolArgs_Invalid(t *testing.T) {
	_, err := parseToolArgs(`["not","an","object"]`, nil, nil)
	assert.ErrorContains(t, err, "--args must be a JSON object")

	_, err = parseToolArgs("", []string{"novalue"}, nil)
	assert.ErrorContains(t, err, "expected key=value")

	_, err = parseToolArgs("", []string{"=x"}, nil)
	assert.Error(t, err)

	args, err := parseToolArgs("null", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "devopsmcp dev"), out)
	assert.Contains(t, out, "Go: ")
}

func TestProviderCmd_ServesStdio(t *testing.T) {
	t.Setenv("DEVOPSMCP_LLM", "mock")
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"DevOps:summarize-diff","arguments":{"diff":"diff --git a/x b/x\n+line\n"}}}`,
	}, "\n") + "\n"

	out, err := execute(t, in, "provider", "docs", "--mock", "--config", cfgPath)
	require.NoError(t, err)

	var responses []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var msg map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &msg), sc.Text())
		responses = append(responses, msg)
	}
	require.Len(t, responses, 3)

	serverInfo := responses[0]["result"].(map[string]any)["serverInfo"].(map[string]any)
	assert.Equal(t, "devops-mcp", serverInfo["name"])

	tools := responses[1]["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 3)

	content := responses[2]["result"].(map[string]any)["content"].([]any)
	assert.Contains(t, content[0].(map[string]any)["text"], "Lines Added: 1")
}

func TestProviderCmd_UnknownFamily(t *testing.T) {
	_, err := execute(t, "", "provider", "calendar", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs, notes, messaging, reviewer")
}

func TestAuditCmd(t *testing.T) {
	dir := t.TempDir()
	auditDir := filepath.Join(dir, "audit")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("audit:\n  enabled: true\n  dir: "+auditDir+"\n"), 0o644))

	store, err := audit.NewFileStore(auditDir)
	require.NoError(t, err)
	log := audit.NewLogger(store, "ci")
	ctx := context.Background()
	require.NoError(t, log.LogInvocation(ctx, audit.EventInvoke,
		audit.EventTarget{Service: "notion", Tool: "Notion:createPage"},
		audit.EventResult{Status: audit.StatusMock}))
	require.NoError(t, log.LogInvocation(ctx, audit.EventInvoke,
		audit.EventTarget{Service: "devops", Tool: "DevOps:summarize-diff"},
		audit.EventResult{Status: audit.StatusOK, DurationMS: 12}))

	out, err := execute(t, "", "audit", "--config", cfgPath, "--service", "devops", "--json")
	require.NoError(t, err)
	var events []audit.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "DevOps:summarize-diff", events[0].Target.Tool)

	out, err = execute(t, "", "audit", "--config", cfgPath, "--since", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Notion:createPage")
	assert.Contains(t, out, "12ms")

	_, err = execute(t, "", "audit", "--config", cfgPath, "--since", "yesterday")
	assert.ErrorContains(t, err, "invalid --since")

	out, err = execute(t, "", "audit", "--config", cfgPath, "--status", "timeout")
	require.NoError(t, err)
	assert.Contains(t, out, "No audit events found.")
}
