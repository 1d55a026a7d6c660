// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package reviewer

import (
	"context"
	"fmt"
	"strings"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/llm"
	"github.com/freitascorp/devopsmcp/pkg/provider/docs"
)

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

const systemPrompt = "You are an expert code reviewer and software architect."

var focusInstruction = map[Focus]string{
	FocusSecurity:    "Focus primarily on security vulnerabilities, input validation, and potential exploits.",
	FocusPerformance: "Focus on performance issues, inefficient algorithms, and optimization opportunities.",
	FocusBugs:        "Focus on potential bugs, logic errors, and edge cases.",
	FocusStyle:       "Focus on code style, readability, and idiomatic usage.",
	FocusAll:         "Provide a comprehensive review covering security, performance, bugs, and style.",
}

// LLMBackend asks a model for reviews.
type LLMBackend struct {
	completer llm.Completer
}

func NewLLMBackend(c llm.Completer) *LLMBackend {
	return &LLMBackend{completer: c}
}

func (b *LLMBackend) Name() string { return b.completer.Name() }

func (b *LLMBackend) ReviewDiff(ctx context.Context, r DiffReview) (string, error) {
	prompt := fmt.Sprintf(`Please review the following Git diff and provide detailed feedback.

%s

Context: %s

Git Diff:
`+"```diff\n%s\n```"+`

Please provide:
1. **Summary**: Brief overview of the changes
2. **Strengths**: What's done well
3. **Issues**: Problems or concerns found
4. **Suggestions**: Specific improvement recommendations
5. **Security**: Security considerations (if any)
6. **Performance**: Performance implications (if any)

Be specific about line numbers when possible.`, focusInstruction[ParseFocus(string(r.Focus))], r.Context, r.Diff)

	return b.complete(ctx, prompt, "# Code Review Results", "Reviewed by")
}

func (b *LLMBackend) ReviewFile(ctx context.Context, r FileReview) (string, error) {
	prompt := fmt.Sprintf(`Please review this %s file: %s

File Content:
`+"```%s\n%s\n```"+`

Please provide:
1. **Overview**: What this code does
2. **Good Practices**: Well-implemented patterns
3. **Issues**: Problems or concerns
4. **Improvements**: Specific suggestions
5. **Security**: Security considerations
6. **Performance**: Performance notes
7. **Best Practices**: Language-specific recommendations

Be specific and provide code examples where helpful.`, r.Language, r.Path, r.Language, r.Content)

	return b.complete(ctx, prompt, "# File Review: "+r.Path, "Reviewed by")
}

func (b *LLMBackend) SuggestImprovements(ctx context.Context, r ImprovementRequest) (string, error) {
	prompt := fmt.Sprintf(`Please analyze this code and suggest improvements.

Requirements/Goals: %s

Code:
`+"```\n%s\n```"+`

Please provide:
1. **Refactoring**: Structure and organization improvements
2. **Performance**: Optimization opportunities
3. **Security**: Security enhancements
4. **Readability**: Code clarity improvements
5. **Testing**: Testing strategies
6. **Architecture**: Design pattern suggestions

Provide concrete code examples for your suggestions.`, r.Requirements, r.Code)

	return b.complete(ctx, prompt, "# Code Improvement Suggestions", "Suggested by")
}

func (b *LLMBackend) complete(ctx context.Context, prompt, heading, signoff string) (string, error) {
	text, err := b.completer.Complete(ctx, llm.Request{System: systemPrompt, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n\n%s\n\n---\n*%s %s*", heading, strings.TrimSpace(text), signoff, b.completer.Name()), nil
}

// ── Mock ───────────────────────────────────────────────────────────

const mockFooter = "*This is a mock review. Set ANTHROPIC_API_KEY or OPENAI_API_KEY for model-backed reviews.*"

// MockBackend derives a fixed-shape review from the input alone.
type MockBackend struct{}

func (MockBackend) Name() string { return "mock" }

func (MockBackend) ReviewDiff(_ context.Context, r DiffReview) (string, error) {
	s := docs.Analyze(r.Diff)

	var b strings.Builder
	fmt.Fprintf(&b, "## Mock Diff Review (%s focus)\n\n", ParseFocus(string(r.Focus)))
	fmt.Fprintf(&b, "Files: %d, +%d/-%d lines\n\n", len(s.Files), s.Added, s.Removed)

	b.WriteString("### Strengths\n")
	b.WriteString("- Changes are contained")
	if len(s.Files) > 0 {
		fmt.Fprintf(&b, " to %s", strings.Join(s.Files, ", "))
	}
	b.WriteString("\n")
	if s.Tests {
		b.WriteString("- Tests updated with the change\n")
	}

	b.WriteString("\n### Issues Found\n")
	issues := 0
	if !s.Tests && s.Added > 0 {
		b.WriteString("- No test changes accompany the added lines\n")
		issues++
	}
	if s.Added > 100 {
		b.WriteString("- Large change; consider splitting it for review\n")
		issues++
	}
	if s.Imports {
		b.WriteString("- New imports; check licensing and supply-chain impact\n")
		issues++
	}
	if issues == 0 {
		b.WriteString("- None detected\n")
	}

	b.WriteString("\n### Suggestions\n")
	if s.NewFunction {
		b.WriteString("- Document the new functions\n")
	}
	b.WriteString("- Add error handling for new code paths\n\n")
	b.WriteString(mockFooter)
	return b.String(), nil
}

func (MockBackend) ReviewFile(_ context.Context, r FileReview) (string, error) {
	lines := strings.Count(r.Content, "\n")
	if r.Content != "" && !strings.HasSuffix(r.Content, "\n") {
		lines++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Mock File Review: %s\n\n", r.Path)
	fmt.Fprintf(&b, "### Overview\n%d lines of %s code.\n\n", lines, r.Language)
	b.WriteString("### Good Practices\n- Clean function structure\n- Reasonable separation of concerns\n\n")
	b.WriteString("### Potential Issues\n- Error handling could be improved\n")
	if !strings.Contains(r.Content, "//") && !strings.Contains(r.Content, "#") {
		b.WriteString("- No comments found\n")
	}
	b.WriteString("\n" + mockFooter)
	return b.String(), nil
}

func (MockBackend) SuggestImprovements(_ context.Context, r ImprovementRequest) (string, error) {
	var b strings.Builder
	b.WriteString("## Mock Improvement Suggestions\n\n")
	if r.Requirements != "" {
		fmt.Fprintf(&b, "Goals: %s\n\n", r.Requirements)
	}
	b.WriteString("### Refactoring\n- Extract common patterns into helper functions\n\n")
	b.WriteString("### Performance\n- Look for opportunities to optimize loops\n- Cache frequently used values\n\n")
	b.WriteString(mockFooter)
	return b.String(), nil
}
