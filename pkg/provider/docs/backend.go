// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package docs

import (
	"context"
	"fmt"
	"strings"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/llm"
)

// Backend writes the prose behind the docs tools. Diff statistics are
// computed by the provider and handed in.
type Backend interface {
	Name() string
	Summarize(ctx context.Context, diff string, stats Stats) (string, error)
	Patch(ctx context.Context, chunk string) (string, error)
}

// BackendFromEnv wraps the configured model, or returns the mock when no
// model is configured.
func BackendFromEnv(env config.Environment, opts llm.Options) (Backend, error) {
	c, err := llm.Select(env, opts)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return MockBackend{}, nil
	}
	return NewLLMBackend(c), nil
}

// ── Model-backed ───────────────────────────────────────────────────

const systemPrompt = "You are a senior code and documentation assistant for a DevOps team."

// LLMBackend asks a model for summaries and documentation patches.
type LLMBackend struct {
	completer llm.Completer
}

func NewLLMBackend(c llm.Completer) *LLMBackend {
	return &LLMBackend{completer: c}
}

func (b *LLMBackend) Name() string { return b.completer.Name() }

func (b *LLMBackend) Summarize(ctx context.Context, diff string, _ Stats) (string, error) {
	return b.completer.Complete(ctx, llm.Request{System: systemPrompt, Prompt: summaryPrompt(diff)})
}

func (b *LLMBackend) Patch(ctx context.Context, chunk string) (string, error) {
	return b.completer.Complete(ctx, llm.Request{System: systemPrompt, Prompt: patchPrompt(chunk)})
}

func summaryPrompt(diff string) string {
	return `Summarize the following unified diff for human reviewers. Provide:
1) High-impact changes (breaking/user-visible)
2) Affected modules/functions
3) Suggested README/CHANGELOG snippets
4) Potential test gaps

Use Markdown with headings and lists.

DIFF:
` + diff
}

func patchPrompt(chunk string) string {
	return `Given the following unified diff (git format), generate a MINIMAL additional unified diff patch that ONLY:
- Adds/updates doc comments for new or modified exported functions, classes and types
- Updates CHANGELOG.md with a concise entry for user-facing changes
- Updates README.md sections if public behavior or CLI usage changed

HARD RULES:
- Do NOT change runtime logic
- Output MUST be a valid unified diff patch applying cleanly to current HEAD
- If nothing to change, output an empty string

TARGET DIFF CHUNK:
` + chunk
}

// ── Mock ───────────────────────────────────────────────────────────

// MockBackend builds deterministic reports from the diff statistics.
type MockBackend struct{}

func (MockBackend) Name() string { return "mock" }

func (MockBackend) Summarize(_ context.Context, _ string, s Stats) (string, error) {
	var b strings.Builder
	b.WriteString("## Diff Analysis Report\n\n")
	b.WriteString("### Statistics\n")
	fmt.Fprintf(&b, "- Files Changed: %d\n", max(len(s.Files), 1))
	fmt.Fprintf(&b, "- Lines Added: %d\n", s.Added)
	fmt.Fprintf(&b, "- Lines Removed: %d\n", s.Removed)
	fmt.Fprintf(&b, "- Net Change: %+d\n\n", s.Net())

	b.WriteString("### Key Changes Detected\n")
	if len(s.Files) == 0 {
		b.WriteString("- Changes detected in provided diff\n")
	}
	for _, f := range s.Files {
		fmt.Fprintf(&b, "- Modified: `%s`\n", f)
	}
	for _, flag := range []struct {
		on   bool
		text string
	}{
		{s.NewFunction, "New functions or declarations added"},
		{s.Imports, "Dependencies or imports changed"},
		{s.Tests, "Test files touched"},
		{s.Config, "Configuration files changed"},
		{s.Docs, "Documentation updated"},
	} {
		if flag.on {
			fmt.Fprintf(&b, "- %s\n", flag.text)
		}
	}

	b.WriteString("\n### Recommendations\n")
	fmt.Fprintf(&b, "1. **Testing**: %s\n", pick(s.Tests, "test changes included", "add unit tests for the new behavior"))
	fmt.Fprintf(&b, "2. **Documentation**: %s\n", pick(s.Docs, "docs updated alongside code", "update README if the public API changed"))
	b.WriteString("3. **Changelog**: record user-facing changes\n\n")

	b.WriteString("### Impact Assessment\n")
	fmt.Fprintf(&b, "- **Risk Level**: %s\n", riskLevel(s.Added))
	fmt.Fprintf(&b, "- **Review Priority**: %s\n\n", pick(s.Added > 100, "Critical", "Normal"))
	b.WriteString("---\n*This is a mock analysis. Set ANTHROPIC_API_KEY or OPENAI_API_KEY for model-backed summaries.*")
	return b.String(), nil
}

func (MockBackend) Patch(context.Context, string) (string, error) {
	return mockPatch, nil
}

func riskLevel(added int) string {
	switch {
	case added > 50:
		return "High"
	case added > 20:
		return "Medium"
	}
	return "Low"
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

const mockPatch = "diff --git a/README.md b/README.md\n" +
	"index abc123..def456 100644\n" +
	"--- a/README.md\n" +
	"+++ b/README.md\n" +
	"@@ -10,6 +10,15 @@ A powerful DevOps tool\n" +
	" \n" +
	" ## Installation\n" +
	" \n" +
	"+## API Documentation\n" +
	"+\n" +
	"+### New Functions\n" +
	"+- `generatePatch(diff: string)`: Generate documentation patches\n" +
	"+- `summarizeDiff(diff: string)`: Create diff summaries\n" +
	"+\n" +
	"+## Usage Example\n" +
	"+```javascript\n" +
	"+const result = await generatePatch(yourDiff);\n" +
	"+```\n" +
	"+\n" +
	" ## License"

// exampleDiff is returned by collect-diff when git cannot produce a diff.
const exampleDiff = "diff --git a/example.ts b/example.ts\n" +
	"index abc123..def456 100644\n" +
	"--- a/example.ts\n" +
	"+++ b/example.ts\n" +
	"@@ -10,6 +10,8 @@ export class Example {\n" +
	"+  // New method added\n" +
	"+  newMethod() { return true; }\n" +
	" }"
