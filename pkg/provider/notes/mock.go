// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package notes

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// mockNamespace seeds deterministic ids for fabricated pages.
var mockNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/freitascorp/devopsmcp/notes"))

type mockPage struct {
	id       string
	title    string
	status   string
	priority string
	dueDate  string
}

var mockPages = []mockPage{
	{id: "page-1", title: "Setup CI/CD Pipeline", status: "In Progress", priority: "High", dueDate: "2024-01-20"},
	{id: "page-2", title: "Write API Documentation", status: "Todo", priority: "Medium", dueDate: "2024-01-25"},
	{id: "page-3", title: "Code Review", status: "Done", priority: "Low", dueDate: "2024-01-15"},
}

// MockBackend fabricates deterministic results without network access.
type MockBackend struct{}

func NewMockBackend() *MockBackend { return &MockBackend{} }

func (*MockBackend) Name() string { return "mock" }

func mockID(kind, key string) string {
	return uuid.NewSHA1(mockNamespace, []byte(kind+"/"+key)).String()
}

func mockURL(id string) string {
	return "https://notion.so/" + strings.ReplaceAll(id, "-", "")
}

func (*MockBackend) CreatePage(_ context.Context, in PageInput) (map[string]any, error) {
	id := mockID("page", in.Title)
	page := map[string]any{
		"id":      id,
		"title":   in.Title,
		"content": in.Content,
		"url":     mockURL(id),
	}
	if in.DatabaseID != "" {
		page["databaseId"] = in.DatabaseID
	}
	return map[string]any{
		"success":  true,
		"page":     page,
		"message":  "Page created successfully (mock mode)",
		"mockData": true,
	}, nil
}

func (*MockBackend) SearchPages(_ context.Context, query string, limit int) (map[string]any, error) {
	q := strings.ToLower(query)
	results := []map[string]any{}
	for _, p := range mockPages {
		if len(results) >= limit {
			break
		}
		if !strings.Contains(strings.ToLower(p.title), q) {
			continue
		}
		results = append(results, map[string]any{
			"id":     p.id,
			"title":  p.title,
			"status": p.status,
			"url":    "https://notion.so/" + p.id,
		})
	}
	return map[string]any{
		"results":  results,
		"total":    len(results),
		"mockData": true,
	}, nil
}

func (*MockBackend) UpdatePage(_ context.Context, pageID, content string) (map[string]any, error) {
	return map[string]any{
		"success":        true,
		"pageId":         pageID,
		"blocksAppended": len(paragraphs(content)),
		"message":        "Page updated successfully (mock mode)",
		"mockData":       true,
	}, nil
}

func (*MockBackend) QueryDatabase(_ context.Context, databaseID string, _ map[string]any, limit int) (map[string]any, error) {
	items := make([]map[string]any, 0, len(mockPages))
	for _, p := range mockPages[:min(limit, len(mockPages))] {
		items = append(items, map[string]any{
			"id": p.id,
			"properties": map[string]any{
				"Name":     map[string]any{"title": []any{map[string]any{"text": map[string]any{"content": p.title}}}},
				"Status":   map[string]any{"select": map[string]any{"name": p.status}},
				"Priority": map[string]any{"select": map[string]any{"name": p.priority}},
				"DueDate":  map[string]any{"date": map[string]any{"start": p.dueDate}},
			},
		})
	}
	return map[string]any{
		"database": map[string]any{
			"id":    databaseID,
			"title": "DevOps Tasks",
		},
		"items":    items,
		"total":    len(mockPages),
		"mockData": true,
	}, nil
}

func (*MockBackend) CreateDatabaseItem(_ context.Context, databaseID string, properties map[string]any) (map[string]any, error) {
	return map[string]any{
		"success": true,
		"item": map[string]any{
			"id":         mockID("item", databaseID+"/"+propertiesKey(properties)),
			"databaseId": databaseID,
			"properties": properties,
		},
		"message":  "Database item created successfully (mock mode)",
		"mockData": true,
	}, nil
}

// propertiesKey is a stable rendering of the property names.
func propertiesKey(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return strings.Join(keys, ",")
}
