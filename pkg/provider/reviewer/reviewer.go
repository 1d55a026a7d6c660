// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package reviewer is the code review provider (CodeReviewer:* tools).
package reviewer

import (
	"context"
	"fmt"

	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

const ServerName = "claude-code-reviewer"

// Focus narrows a diff review.
type Focus string

const (
	FocusSecurity    Focus = "security"
	FocusPerformance Focus = "performance"
	FocusBugs        Focus = "bugs"
	FocusStyle       Focus = "style"
	FocusAll         Focus = "all"
)

// ParseFocus maps unknown or empty values to FocusAll.
func ParseFocus(s string) Focus {
	switch f := Focus(s); f {
	case FocusSecurity, FocusPerformance, FocusBugs, FocusStyle:
		return f
	}
	return FocusAll
}

type op int

const (
	opUnknown op = iota
	opReviewDiff
	opReviewFile
	opSuggestImprovements
)

func parseOp(name string) op {
	switch name {
	case "CodeReviewer:reviewDiff":
		return opReviewDiff
	case "CodeReviewer:reviewFile":
		return opReviewFile
	case "CodeReviewer:suggestImprovements":
		return opSuggestImprovements
	}
	return opUnknown
}

func Tools() []provider.Tool {
	return []provider.Tool{
		{
			Name:        "CodeReviewer:reviewDiff",
			Description: "Review code changes",
			InputSchema: provider.ObjectSchema([]string{"diff"},
				provider.StringProp("diff", "Git diff content"),
				provider.StringProp("context", "Additional context about the changes"),
				provider.EnumProp("focus", "Focus areas: security, performance, bugs, style, all",
					string(FocusSecurity), string(FocusPerformance), string(FocusBugs), string(FocusStyle), string(FocusAll)),
			),
		},
		{
			Name:        "CodeReviewer:reviewFile",
			Description: "Review a specific file",
			InputSchema: provider.ObjectSchema([]string{"content"},
				provider.StringProp("filePath", "File path"),
				provider.StringProp("content", "File content"),
				provider.StringProp("language", "Programming language"),
			),
		},
		{
			Name:        "CodeReviewer:suggestImprovements",
			Description: "Suggest code improvements",
			InputSchema: provider.ObjectSchema([]string{"code"},
				provider.StringProp("code", "Code to improve"),
				provider.StringProp("requirements", "Specific requirements or goals"),
			),
		},
	}
}

// DiffReview, FileReview and ImprovementRequest are the backend inputs.
type DiffReview struct {
	Diff    string
	Context string
	Focus   Focus
}

type FileReview struct {
	Path     string
	Content  string
	Language string
}

type ImprovementRequest struct {
	Code         string
	Requirements string
}

// Backend produces markdown reviews.
type Backend interface {
	Name() string
	ReviewDiff(ctx context.Context, r DiffReview) (string, error)
	ReviewFile(ctx context.Context, r FileReview) (string, error)
	SuggestImprovements(ctx context.Context, r ImprovementRequest) (string, error)
}

type Provider struct {
	backend Backend
	catalog *provider.Catalog
}

func New(backend Backend, overrides map[string]provider.Validation) (*Provider, error) {
	catalog, err := provider.NewCatalog(Tools(), overrides)
	if err != nil {
		return nil, err
	}
	return &Provider{backend: backend, catalog: catalog}, nil
}

func (p *Provider) Name() string    { return ServerName }
func (p *Provider) Backend() string { return p.backend.Name() }

func (p *Provider) ListTools() []mcp.ToolInfo { return p.catalog.List() }

func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) *mcp.ToolCallResult {
	return provider.Call(ctx, p.catalog, name, args, func(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
		var (
			text string
			err  error
		)
		switch parseOp(name) {
		case opReviewDiff:
			var diff string
			if diff, err = a.RequireString("diff"); err != nil {
				return nil, err
			}
			text, err = p.backend.ReviewDiff(ctx, DiffReview{
				Diff:    diff,
				Context: a.String("context"),
				Focus:   ParseFocus(a.String("focus")),
			})
			if err != nil {
				return nil, fmt.Errorf("code review failed: %w", err)
			}
		case opReviewFile:
			var content string
			if content, err = a.RequireString("content"); err != nil {
				return nil, err
			}
			text, err = p.backend.ReviewFile(ctx, FileReview{
				Path:     a.StringOr("filePath", "unknown"),
				Content:  content,
				Language: a.StringOr("language", "auto"),
			})
			if err != nil {
				return nil, fmt.Errorf("file review failed: %w", err)
			}
		case opSuggestImprovements:
			var code string
			if code, err = a.RequireString("code"); err != nil {
				return nil, err
			}
			text, err = p.backend.SuggestImprovements(ctx, ImprovementRequest{
				Code:         code,
				Requirements: a.String("requirements"),
			})
			if err != nil {
				return nil, fmt.Errorf("code improvement failed: %w", err)
			}
		default:
			return mcp.UnknownToolResult(), nil
		}
		return mcp.TextResult(text), nil
	})
}
