// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package notes is the workspace-notes provider (Notion:* tools).
package notes

import (
	"context"

	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

const (
	ServerName = "notion-mcp"

	defaultLimit = 10
	maxLimit     = 100
)

type op int

const (
	opUnknown op = iota
	opCreatePage
	opSearchPages
	opUpdatePage
	opGetDatabaseItems
	opCreateDatabaseItem
)

var opNames = map[string]op{
	"Notion:createPage":         opCreatePage,
	"Notion:searchPages":        opSearchPages,
	"Notion:updatePage":         opUpdatePage,
	"Notion:getDatabaseItems":   opGetDatabaseItems,
	"Notion:createDatabaseItem": opCreateDatabaseItem,
}

func parseOp(name string) op {
	if o, ok := opNames[name]; ok {
		return o
	}
	return opUnknown
}

// Tools is the Notion catalog with default validation policies.
func Tools() []provider.Tool {
	return []provider.Tool{
		{
			Name:        "Notion:createPage",
			Description: "Create a new Notion page",
			InputSchema: provider.ObjectSchema([]string{"title", "content"},
				provider.StringProp("title", "Page title"),
				provider.StringProp("content", "Page content (markdown)"),
				provider.StringProp("databaseId", "Database ID (optional)"),
			),
			Validation: provider.Strict,
		},
		{
			Name:        "Notion:searchPages",
			Description: "Search for Notion pages",
			InputSchema: provider.ObjectSchema([]string{"query"},
				provider.StringProp("query", "Search query"),
				provider.NumberProp("limit", "Max results (default: 10)"),
			),
		},
		{
			Name:        "Notion:updatePage",
			Description: "Append content to an existing Notion page",
			InputSchema: provider.ObjectSchema([]string{"pageId", "content"},
				provider.StringProp("pageId", "Page ID"),
				provider.StringProp("content", "New content"),
			),
			Validation: provider.Strict,
		},
		{
			Name:        "Notion:getDatabaseItems",
			Description: "Get items from a Notion database",
			InputSchema: provider.ObjectSchema([]string{"databaseId"},
				provider.StringProp("databaseId", "Database ID"),
				provider.ObjectProp("filter", "Filter criteria"),
				provider.NumberProp("limit", "Max results"),
			),
		},
		{
			Name:        "Notion:createDatabaseItem",
			Description: "Create item in Notion database",
			InputSchema: provider.ObjectSchema([]string{"databaseId", "properties"},
				provider.StringProp("databaseId", "Database ID"),
				provider.ObjectProp("properties", "Item properties"),
			),
			Validation: provider.Strict,
		},
	}
}

// Provider serves the Notion tools against one Backend.
type Provider struct {
	backend Backend
	catalog *provider.Catalog
}

// New builds the provider. overrides replaces default validation policies.
func New(backend Backend, overrides map[string]provider.Validation) (*Provider, error) {
	catalog, err := provider.NewCatalog(Tools(), overrides)
	if err != nil {
		return nil, err
	}
	return &Provider{backend: backend, catalog: catalog}, nil
}

func (p *Provider) Name() string { return ServerName }

// Backend reports which backend is serving calls.
func (p *Provider) Backend() string { return p.backend.Name() }

func (p *Provider) ListTools() []mcp.ToolInfo { return p.catalog.List() }

func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) *mcp.ToolCallResult {
	return provider.Call(ctx, p.catalog, name, args, func(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
		var (
			out any
			err error
		)
		switch parseOp(name) {
		case opCreatePage:
			out, err = p.createPage(ctx, a)
		case opSearchPages:
			out, err = p.searchPages(ctx, a)
		case opUpdatePage:
			out, err = p.updatePage(ctx, a)
		case opGetDatabaseItems:
			out, err = p.getDatabaseItems(ctx, a)
		case opCreateDatabaseItem:
			out, err = p.createDatabaseItem(ctx, a)
		default:
			return mcp.UnknownToolResult(), nil
		}
		if err != nil {
			return nil, err
		}
		return mcp.JSONResult(out), nil
	})
}

func (p *Provider) createPage(ctx context.Context, a provider.Args) (any, error) {
	title, err := a.RequireString("title")
	if err != nil {
		return nil, err
	}
	content, err := a.RequireString("content")
	if err != nil {
		return nil, err
	}
	return p.backend.CreatePage(ctx, PageInput{
		Title:      title,
		Content:    content,
		DatabaseID: a.String("databaseId"),
	})
}

func (p *Provider) searchPages(ctx context.Context, a provider.Args) (any, error) {
	query, err := a.RequireString("query")
	if err != nil {
		return nil, err
	}
	return p.backend.SearchPages(ctx, query, limit(a))
}

func (p *Provider) updatePage(ctx context.Context, a provider.Args) (any, error) {
	pageID, err := a.RequireString("pageId")
	if err != nil {
		return nil, err
	}
	content, err := a.RequireString("content")
	if err != nil {
		return nil, err
	}
	return p.backend.UpdatePage(ctx, pageID, content)
}

func (p *Provider) getDatabaseItems(ctx context.Context, a provider.Args) (any, error) {
	dbID, err := a.RequireString("databaseId")
	if err != nil {
		return nil, err
	}
	return p.backend.QueryDatabase(ctx, dbID, a.Object("filter"), limit(a))
}

func (p *Provider) createDatabaseItem(ctx context.Context, a provider.Args) (any, error) {
	dbID, err := a.RequireString("databaseId")
	if err != nil {
		return nil, err
	}
	props, err := a.RequireObject("properties")
	if err != nil {
		return nil, err
	}
	return p.backend.CreateDatabaseItem(ctx, dbID, props)
}

// limit coerces "limit" leniently: junk falls back to 10, large values are
// capped at Notion's page size.
func limit(a provider.Args) int {
	return min(a.PositiveInt("limit", defaultLimit), maxLimit)
}
