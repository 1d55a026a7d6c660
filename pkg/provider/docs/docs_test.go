// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package docs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/llm"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

const twoFileDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,5 @@
+import "fmt"
+func hello() { fmt.Println("hi") }
-// old
diff --git a/README.md b/README.md
--- a/README.md
+++ b/README.md
@@ -1 +1 @@
+Usage notes
`

func text(t *testing.T, res *mcp.ToolCallResult) string {
	t.Helper()
	s, ok := res.FirstText()
	require.True(t, ok)
	return s
}

func TestAnalyze(t *testing.T) {
	s := Analyze(twoFileDiff)
	assert.Equal(t, []string{"main.go", "README.md"}, s.Files)
	assert.Equal(t, 3, s.Added)
	assert.Equal(t, 1, s.Removed)
	assert.Equal(t, 2, s.Net())
	assert.True(t, s.NewFunction)
	assert.True(t, s.Imports)
	assert.True(t, s.Docs)
	assert.False(t, s.Tests)
	assert.False(t, s.Config)
}

func TestAnalyze_HunkLinesThatLookLikeHeaders(t *testing.T) {
	diff := "diff --git a/schema.sql b/schema.sql\n" +
		"--- a/schema.sql\n" +
		"+++ b/schema.sql\n" +
		"@@ -1,3 +1,3 @@\n" +
		" CREATE TABLE t (id INT);\n" +
		"--- old comment\n" +
		"+++ new counter\n" +
		" SELECT 1;\n" +
		"diff --git a/loop.c b/loop.c\n" +
		"--- a/loop.c\n" +
		"+++ b/loop.c\n" +
		"@@ -1 +1 @@\n" +
		"-i++;\n" +
		"+++i;\n"
	s := Analyze(diff)
	assert.Equal(t, []string{"schema.sql", "loop.c"}, s.Files)
	assert.Equal(t, 2, s.Added)
	assert.Equal(t, 2, s.Removed)
}

func TestAnalyze_PlainUnifiedMultiFile(t *testing.T) {
	diff := "--- a/one.txt\n+++ b/one.txt\n@@ -1 +1 @@\n-a\n+b\n" +
		"--- a/two.txt\n+++ b/two.txt\n@@ -1 +1,2 @@\n c\n+d\n"
	s := Analyze(diff)
	assert.Equal(t, 2, s.Added)
	assert.Equal(t, 1, s.Removed)
}

func TestSplitFiles(t *testing.T) {
	blocks := SplitFiles(twoFileDiff)
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "diff --git a/main.go"))
	assert.True(t, strings.HasPrefix(blocks[1], "diff --git a/README.md"))
	assert.Equal(t, twoFileDiff, blocks[0]+blocks[1])

	assert.Empty(t, SplitFiles(""))
}

func TestSummarize_SingleAddition(t *testing.T) {
	p, err := New(MockBackend{}, 0, nil)
	require.NoError(t, err)

	out := text(t, p.CallTool(context.Background(), "DevOps:summarize-diff", map[string]any{
		"diff": "diff --git a/x b/x\n+line\n",
	}))
	assert.Contains(t, out, "Lines Added: 1")
	assert.Contains(t, out, "Lines Removed: 0")
	assert.Contains(t, out, "Modified: `x`")
}

func TestSummarize_StrictRequiresDiff(t *testing.T) {
	p, err := New(MockBackend{}, 0, nil)
	require.NoError(t, err)
	out := text(t, p.CallTool(context.Background(), "DevOps:summarize-diff", map[string]any{}))
	assert.True(t, strings.HasPrefix(out, "Error: invalid arguments"), out)
}

func TestDocsPatch_MockIsDeduped(t *testing.T) {
	p, err := New(MockBackend{}, 0, nil)
	require.NoError(t, err)
	out := text(t, p.CallTool(context.Background(), "DevOps:generate-docs-patch", map[string]any{"diff": twoFileDiff}))
	assert.Equal(t, mockPatch, out)
}

type scripted struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) (string, error)
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.mu.Unlock()
	return s.answer(req.Prompt)
}

func TestDocsPatch_TruncatesAndFilters(t *testing.T) {
	c := &scripted{answer: func(prompt string) (string, error) {
		if strings.Contains(prompt, "main.go") {
			return "--- a/CHANGELOG.md\n+++ b/CHANGELOG.md\n@@ -0,0 +1 @@\n+- hello()\n", nil
		}
		return "Nothing to change.", nil
	}}
	p, err := New(NewLLMBackend(c), 0, nil)
	require.NoError(t, err)

	out := text(t, p.CallTool(context.Background(), "DevOps:generate-docs-patch", map[string]any{
		"diff":     twoFileDiff,
		"maxChars": 40.0,
	}))
	assert.Equal(t, "--- a/CHANGELOG.md\n+++ b/CHANGELOG.md\n@@ -0,0 +1 @@\n+- hello()", out)

	require.Len(t, c.prompts, 2)
	chunk := c.prompts[0][strings.Index(c.prompts[0], "TARGET DIFF CHUNK:\n")+len("TARGET DIFF CHUNK:\n"):]
	assert.Len(t, chunk, 40)
}

func TestDocsPatch_LenientMaxChars(t *testing.T) {
	c := &scripted{answer: func(string) (string, error) { return "", nil }}
	p, err := New(NewLLMBackend(c), 100, nil)
	require.NoError(t, err)

	out := text(t, p.CallTool(context.Background(), "DevOps:generate-docs-patch", map[string]any{
		"diff":     "diff --git a/x b/x\n+line\n",
		"maxChars": "lots",
	}))
	assert.Equal(t, "", out)
	require.Len(t, c.prompts, 1)
	assert.True(t, strings.HasSuffix(c.prompts[0], "diff --git a/x b/x\n+line\n"))
}

func TestModelErrorIsContent(t *testing.T) {
	c := &scripted{answer: func(string) (string, error) { return "", errors.New("overloaded") }}
	p, err := New(NewLLMBackend(c), 0, nil)
	require.NoError(t, err)
	out := text(t, p.CallTool(context.Background(), "DevOps:summarize-diff", map[string]any{"diff": "+x"}))
	assert.Equal(t, "Error: overloaded", out)
}

func TestCollectDiff(t *testing.T) {
	p, err := New(MockBackend{}, 0, nil)
	require.NoError(t, err)

	var gotDir string
	var gotArgs []string
	p.git = func(_ context.Context, dir string, args ...string) (string, error) {
		gotDir, gotArgs = dir, args
		return "diff --git a/a b/a\n+1\n", nil
	}
	out := text(t, p.CallTool(context.Background(), "DevOps:collect-diff", nil))
	assert.Equal(t, "diff --git a/a b/a\n+1\n", out)
	assert.Equal(t, ".", gotDir)
	assert.Equal(t, []string{"diff", "origin/main...HEAD", "--unified=0"}, gotArgs)

	_ = text(t, p.CallTool(context.Background(), "DevOps:collect-diff", map[string]any{
		"repoDir": "/src", "baseRef": "v1.0.0", "headRef": "feature",
	}))
	assert.Equal(t, "/src", gotDir)
	assert.Equal(t, "v1.0.0...feature", gotArgs[1])
}

func TestCollectDiff_FallsBackOutsideRepo(t *testing.T) {
	p, err := New(MockBackend{}, 0, nil)
	require.NoError(t, err)
	out := text(t, p.CallTool(context.Background(), "DevOps:collect-diff", map[string]any{"repoDir": t.TempDir()}))
	assert.Equal(t, exampleDiff, out)
}

func TestUnknownTool(t *testing.T) {
	p, err := New(MockBackend{}, 0, map[string]provider.Validation{"DevOps:collect-diff": provider.Strict})
	require.NoError(t, err)
	assert.Equal(t, mcp.UnknownToolText, text(t, p.CallTool(context.Background(), "DevOps:deploy", nil)))
}

func TestBackendFromEnv(t *testing.T) {
	b, err := BackendFromEnv(config.Environment{LLM: "auto"}, llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "mock", b.Name())

	b, err = BackendFromEnv(config.Environment{LLM: "auto", OpenAIAPIKey: "sk-x", OpenAIModel: "gpt-4o-mini"}, llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", b.Name())

	_, err = BackendFromEnv(config.Environment{LLM: "anthropic"}, llm.Options{})
	assert.Error(t, err)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abé", 4))
	assert.Equal(t, "abc", truncate("abc", 0))
}
