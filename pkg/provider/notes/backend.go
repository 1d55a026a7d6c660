// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package notes

import (
	"context"
	"net/http"
	"strings"

	"github.com/freitascorp/devopsmcp/pkg/config"
)

// PageInput is what createPage needs. An empty DatabaseID parents the page
// under the configured root page.
type PageInput struct {
	Title      string
	Content    string
	DatabaseID string
}

// Backend executes Notion operations. Results are JSON-encodable; create and
// update results carry a "success" field.
type Backend interface {
	Name() string
	CreatePage(ctx context.Context, in PageInput) (map[string]any, error)
	SearchPages(ctx context.Context, query string, limit int) (map[string]any, error)
	UpdatePage(ctx context.Context, pageID, content string) (map[string]any, error)
	QueryDatabase(ctx context.Context, databaseID string, filter map[string]any, limit int) (map[string]any, error)
	CreateDatabaseItem(ctx context.Context, databaseID string, properties map[string]any) (map[string]any, error)
}

// BackendFromEnv picks the REST backend when an API key is configured and
// the mock backend otherwise.
func BackendFromEnv(env config.Environment, httpClient *http.Client) Backend {
	key := strings.TrimSpace(env.NotionAPIKey)
	if key == "" {
		return NewMockBackend()
	}
	return NewClient(env.NotionBaseURL, key, env.NotionRootPageID, httpClient)
}
