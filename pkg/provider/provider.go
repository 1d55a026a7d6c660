// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package provider holds what every tool provider shares: the catalog with its
// per-tool validation policy, argument helpers and the call envelope that turns
// handler errors and panics into content.
package provider

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/freitascorp/devopsmcp/pkg/logger"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
)

// Provider is a tool provider as served over stdio by mcp.Server.
type Provider interface {
	mcp.Handler
}

// Family names the kind of provider a service runs.
type Family string

const (
	FamilyDocs      Family = "docs"
	FamilyNotes     Family = "notes"
	FamilyMessaging Family = "messaging"
	FamilyReviewer  Family = "reviewer"
)

// Families lists every known family in display order.
func Families() []Family {
	return []Family{FamilyDocs, FamilyNotes, FamilyMessaging, FamilyReviewer}
}

// ParseFamily accepts a family name.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown provider family %q", s)
}

// HandlerFunc executes one validated call.
type HandlerFunc func(ctx context.Context, args Args) (*mcp.ToolCallResult, error)

// Call is the envelope every provider's CallTool goes through. Unknown names
// answer "Unknown tool"; strict tools are schema-checked; errors and panics
// from fn come back as "Error: ..." content.
func Call(ctx context.Context, c *Catalog, name string, args map[string]any, fn HandlerFunc) (res *mcp.ToolCallResult) {
	if _, ok := c.Lookup(name); !ok {
		return mcp.UnknownToolResult()
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := c.Check(name, args); err != nil {
		return mcp.ErrorResult(err)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("provider", "Tool handler panicked",
				map[string]any{
					"tool":  name,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			res = mcp.Errorf("internal error in %s: %v", name, r)
		}
	}()

	res, err := fn(ctx, Args(args))
	if err != nil {
		return mcp.ErrorResult(err)
	}
	if res == nil {
		return mcp.TextResult("")
	}
	return res
}
