// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package docs is the DevOps provider (DevOps:* tools): diff summaries,
// documentation patches and diff collection from a local git checkout.
package docs

import (
	"context"
	"strings"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/logger"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

const ServerName = "devops-mcp"

type op int

const (
	opUnknown op = iota
	opSummarizeDiff
	opGenerateDocsPatch
	opCollectDiff
)

func parseOp(name string) op {
	switch name {
	case "DevOps:summarize-diff":
		return opSummarizeDiff
	case "DevOps:generate-docs-patch":
		return opGenerateDocsPatch
	case "DevOps:collect-diff":
		return opCollectDiff
	}
	return opUnknown
}

func Tools() []provider.Tool {
	return []provider.Tool{
		{
			Name:        "DevOps:summarize-diff",
			Description: "Summarize git diff for human review",
			InputSchema: provider.ObjectSchema([]string{"diff"},
				provider.StringProp("diff", "Git diff to summarize"),
			),
			Validation: provider.Strict,
		},
		{
			Name:        "DevOps:generate-docs-patch",
			Description: "Generate documentation patch from git diff",
			InputSchema: provider.ObjectSchema([]string{"diff"},
				provider.StringProp("diff", "Git diff to analyze"),
				provider.NumberProp("maxChars", "Max characters to process per file"),
			),
			Validation: provider.Lenient,
		},
		{
			Name:        "DevOps:collect-diff",
			Description: "Collect git diff from repository",
			InputSchema: provider.ObjectSchema(nil,
				provider.StringProp("repoDir", "Repository directory (default .)"),
				provider.StringProp("baseRef", "Base ref (default origin/main)"),
				provider.StringProp("headRef", "Head ref (default HEAD)"),
			),
			Validation: provider.Lenient,
		},
	}
}

// Provider serves the DevOps tools.
type Provider struct {
	backend  Backend
	catalog  *provider.Catalog
	maxChars int
	git      GitRunner
}

// New builds the provider. maxChars <= 0 means config.DefaultMaxChars.
func New(backend Backend, maxChars int, overrides map[string]provider.Validation) (*Provider, error) {
	catalog, err := provider.NewCatalog(Tools(), overrides)
	if err != nil {
		return nil, err
	}
	if maxChars <= 0 {
		maxChars = config.DefaultMaxChars
	}
	return &Provider{backend: backend, catalog: catalog, maxChars: maxChars, git: RunGit}, nil
}

func (p *Provider) Name() string    { return ServerName }
func (p *Provider) Backend() string { return p.backend.Name() }

func (p *Provider) ListTools() []mcp.ToolInfo { return p.catalog.List() }

func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) *mcp.ToolCallResult {
	return provider.Call(ctx, p.catalog, name, args, func(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
		switch parseOp(name) {
		case opSummarizeDiff:
			return p.summarize(ctx, a)
		case opGenerateDocsPatch:
			return p.docsPatch(ctx, a)
		case opCollectDiff:
			return p.collectDiff(ctx, a)
		}
		return mcp.UnknownToolResult(), nil
	})
}

func (p *Provider) summarize(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
	diff, err := a.RequireString("diff")
	if err != nil {
		return nil, err
	}
	text, err := p.backend.Summarize(ctx, diff, Analyze(diff))
	if err != nil {
		return nil, err
	}
	return mcp.TextResult(text), nil
}

// docsPatch asks for one patch per file block and keeps only answers that
// look like unified diffs. Identical answers are emitted once.
func (p *Provider) docsPatch(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
	diff, err := a.RequireString("diff")
	if err != nil {
		return nil, err
	}
	limit := a.PositiveInt("maxChars", p.maxChars)

	var (
		parts []string
		seen  = make(map[string]bool)
	)
	for _, block := range SplitFiles(diff) {
		out, err := p.backend.Patch(ctx, truncate(block, limit))
		if err != nil {
			return nil, err
		}
		out = strings.TrimSpace(out)
		if out == "" || !LooksLikeDiff(out) {
			logger.DebugCF("docs", "Discarded non-diff patch output", map[string]any{"length": len(out)})
			continue
		}
		if seen[out] {
			continue
		}
		seen[out] = true
		parts = append(parts, out)
	}
	return mcp.TextResult(strings.Join(parts, "\n")), nil
}

func (p *Provider) collectDiff(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
	dir := a.StringOr("repoDir", ".")
	base := a.StringOr("baseRef", "origin/main")
	head := a.StringOr("headRef", "HEAD")

	out, err := p.git(ctx, dir, "diff", base+"..."+head, "--unified=0")
	if err != nil {
		logger.WarnCF("docs", "git diff failed, returning example diff", map[string]any{
			"repo":  dir,
			"range": base + "..." + head,
			"error": err.Error(),
		})
		return mcp.TextResult(exampleDiff), nil
	}
	return mcp.TextResult(out), nil
}
