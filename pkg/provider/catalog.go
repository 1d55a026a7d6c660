// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/freitascorp/devopsmcp/pkg/mcp"
)

// Validation is how strictly a tool checks its arguments before the handler
// runs.
type Validation int

const (
	// Lenient tools only enforce what the handler itself requires and coerce
	// numeric strings.
	Lenient Validation = iota
	// Strict tools validate arguments against the input schema.
	Strict
)

func (v Validation) String() string {
	if v == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseValidation accepts "strict" or "lenient" (case-insensitive).
func ParseValidation(s string) (Validation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Lenient, fmt.Errorf("unknown validation policy %q (want strict or lenient)", s)
}

// Tool is a catalog entry plus its validation policy.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Validation  Validation
}

// Catalog is a provider's fixed tool list. It is built once and never changes.
type Catalog struct {
	tools    []Tool
	index    map[string]int
	resolved map[string]*jsonschema.Resolved
}

// NewCatalog builds a catalog. overrides replaces the default policy of the
// named tools; naming a tool that is not in the catalog is an error.
func NewCatalog(tools []Tool, overrides map[string]Validation) (*Catalog, error) {
	c := &Catalog{
		tools:    make([]Tool, len(tools)),
		index:    make(map[string]int, len(tools)),
		resolved: make(map[string]*jsonschema.Resolved),
	}
	copy(c.tools, tools)

	for i, t := range c.tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if _, dup := c.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		if t.InputSchema == nil {
			c.tools[i].InputSchema = &jsonschema.Schema{Type: "object"}
		}
		c.index[t.Name] = i
	}

	var unknown []string
	for name, v := range overrides {
		i, ok := c.index[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		c.tools[i].Validation = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("validation override for unknown tool(s): %s", strings.Join(unknown, ", "))
	}

	for _, t := range c.tools {
		if t.Validation != Strict {
			continue
		}
		rs, err := t.InputSchema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve schema for %s: %w", t.Name, err)
		}
		c.resolved[t.Name] = rs
	}
	return c, nil
}

// MustCatalog is NewCatalog for built-in tables that are known to be valid.
func MustCatalog(tools []Tool, overrides map[string]Validation) *Catalog {
	c, err := NewCatalog(tools, overrides)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the catalog in declaration order. Schemas are deep copies, so
// callers may modify the result freely.
func (c *Catalog) List() []mcp.ToolInfo {
	out := make([]mcp.ToolInfo, len(c.tools))
	for i, t := range c.tools {
		out[i] = mcp.ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema.CloneSchemas(),
		}
	}
	return out
}

// Lookup finds a tool by exact name.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	i, ok := c.index[name]
	if !ok {
		return Tool{}, false
	}
	return c.tools[i], true
}

// Policy reports the effective validation policy of a tool.
func (c *Catalog) Policy(name string) (Validation, bool) {
	t, ok := c.Lookup(name)
	return t.Validation, ok
}

// Check validates args for strict tools. Lenient and unknown tools pass.
func (c *Catalog) Check(name string, args map[string]any) error {
	rs, ok := c.resolved[name]
	if !ok {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := rs.Validate(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// ── Schema helpers ─────────────────────────────────────────────────

// Prop is one property of an object schema.
type Prop struct {
	Name   string
	Schema *jsonschema.Schema
}

// ObjectSchema builds an object schema from ordered properties.
func ObjectSchema(required []string, props ...Prop) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(props)),
		Required:   required,
	}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
	}
	return s
}

// StringProp is a string property.
func StringProp(name, desc string) Prop {
	return Prop{Name: name, Schema: &jsonschema.Schema{Type: "string", Description: desc}}
}

// EnumProp is a string property restricted to values.
func EnumProp(name, desc string, values ...string) Prop {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return Prop{Name: name, Schema: &jsonschema.Schema{Type: "string", Description: desc, Enum: enum}}
}

// NumberProp is a numeric property.
func NumberProp(name, desc string) Prop {
	return Prop{Name: name, Schema: &jsonschema.Schema{Type: "number", Description: desc}}
}

// ObjectProp is a free-form object property.
func ObjectProp(name, desc string) Prop {
	return Prop{Name: name, Schema: &jsonschema.Schema{Type: "object", Description: desc}}
}
