// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

const (
	notionVersion  = "2022-06-28"
	defaultBaseURL = "https://api.notion.com"
	// Notion rejects rich_text items longer than this.
	maxRichText = 2000
)

// Client is the Notion backend, built on the notionapi SDK.
type Client struct {
	api        *notionapi.Client
	rootPageID string
}

// NewClient creates a Notion API client. baseURL is the API root, e.g.
// "https://api.notion.com"; any other root (a proxy, a test server) is
// reached by rewriting requests in the HTTP transport.
func NewClient(baseURL, apiKey, rootPageID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" && baseURL != defaultBaseURL {
		if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
			rewritten := *httpClient
			rewritten.Transport = &baseURLTransport{base: u, next: httpClient.Transport}
			httpClient = &rewritten
		}
	}
	return &Client{
		api: notionapi.NewClient(notionapi.Token(apiKey),
			notionapi.WithHTTPClient(httpClient),
			notionapi.WithVersion(notionVersion),
		),
		rootPageID: rootPageID,
	}
}

// baseURLTransport sends requests for the public API host to base instead.
type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.URL.Path = strings.TrimRight(t.base.Path, "/") + req.URL.Path
	out.Host = ""
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(out)
}

func (c *Client) Name() string { return "notion" }

// APIError is a non-2xx answer from Notion.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("notion API error (status %d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion API error (status %d)", e.Status)
}

// apiError converts SDK errors into APIError so callers see status and code.
func apiError(err error) error {
	var nErr *notionapi.Error
	if errors.As(err, &nErr) {
		return &APIError{Status: nErr.Status, Code: string(nErr.Code), Message: nErr.Message}
	}
	return err
}

func (c *Client) CreatePage(ctx context.Context, in PageInput) (map[string]any, error) {
	var parent notionapi.Parent
	switch {
	case in.DatabaseID != "":
		parent = notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(in.DatabaseID)}
	case c.rootPageID != "":
		parent = notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(c.rootPageID)}
	default:
		return nil, errors.New("no databaseId given and NOTION_ROOT_PAGE_ID is not set")
	}

	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: parent,
		Properties: notionapi.Properties{
			"title": &notionapi.TitleProperty{Title: richText(in.Title)},
		},
		Children: paragraphs(in.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", apiError(err))
	}
	return map[string]any{
		"success": true,
		"page":    summarizePage(toMap(page)),
		"message": "Page created successfully",
	}, nil
}

func (c *Client) SearchPages(ctx context.Context, query string, limit int) (map[string]any, error) {
	resp, err := c.api.Search.Do(ctx, &notionapi.SearchRequest{
		Query:    query,
		PageSize: limit,
		Filter:   notionapi.SearchFilter{Property: "object", Value: "page"},
	})
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", apiError(err))
	}
	results := make([]map[string]any, 0, len(resp.Results))
	for _, obj := range resp.Results {
		if page, ok := obj.(*notionapi.Page); ok {
			results = append(results, summarizePage(toMap(page)))
		}
	}
	return map[string]any{
		"results": results,
		"total":   len(results),
		"hasMore": resp.HasMore,
	}, nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID, content string) (map[string]any, error) {
	resp, err := c.api.Block.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{
		Children: paragraphs(content),
	})
	if err != nil {
		return nil, fmt.Errorf("update page: %w", apiError(err))
	}
	return map[string]any{
		"success":        true,
		"pageId":         pageID,
		"blocksAppended": len(resp.Results),
		"message":        "Page updated successfully",
	}, nil
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter map[string]any, limit int) (map[string]any, error) {
	req := &notionapi.DatabaseQueryRequest{PageSize: limit}
	if len(filter) > 0 {
		f, err := toFilter(filter)
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		req.Filter = f
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("query database: %w", apiError(err))
	}
	items := make([]map[string]any, 0, len(resp.Results))
	for i := range resp.Results {
		items = append(items, toMap(&resp.Results[i]))
	}
	out := map[string]any{
		"databaseId": databaseID,
		"items":      items,
		"total":      len(items),
		"hasMore":    resp.HasMore,
	}
	if resp.NextCursor != "" {
		out["nextCursor"] = string(resp.NextCursor)
	}
	return out, nil
}

func (c *Client) CreateDatabaseItem(ctx context.Context, databaseID string, properties map[string]any) (map[string]any, error) {
	props, err := toProperties(properties)
	if err != nil {
		return nil, fmt.Errorf("invalid properties: %w", err)
	}
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(databaseID)},
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("create database item: %w", apiError(err))
	}
	return map[string]any{
		"success": true,
		"item":    summarizePage(toMap(page)),
		"message": "Database item created successfully",
	}, nil
}

// toFilter decodes a raw Notion filter object. "and"/"or" objects are
// compound filters; anything else is a property filter.
func toFilter(raw map[string]any) (notionapi.Filter, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	_, isAnd := raw["and"]
	_, isOr := raw["or"]
	if isAnd || isOr {
		var f notionapi.CompoundFilter
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	}
	var f notionapi.PropertyFilter
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Property == "" {
		return nil, errors.New(`filter needs "property", "and" or "or"`)
	}
	return &f, nil
}

// toProperties decodes raw property values. Notion's own shape names the
// type by its single value key ({"title": [...]}); the SDK also wants it in
// "type", so it is filled in when missing.
func toProperties(raw map[string]any) (notionapi.Properties, error) {
	typed := make(map[string]any, len(raw))
	for name, v := range raw {
		prop, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("property %q is not an object", name)
		}
		if _, ok := prop["type"]; !ok {
			for key := range prop {
				if key != "id" {
					cp := make(map[string]any, len(prop)+1)
					for k, val := range prop {
						cp[k] = val
					}
					cp["type"] = key
					prop = cp
					break
				}
			}
		}
		typed[name] = prop
	}
	data, err := json.Marshal(typed)
	if err != nil {
		return nil, err
	}
	var props notionapi.Properties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// toMap renders an SDK value as plain JSON data.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func richText(s string) []notionapi.RichText {
	chunks := chunkRunes(s, maxRichText)
	out := make([]notionapi.RichText, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, notionapi.RichText{Text: &notionapi.Text{Content: c}})
	}
	return out
}

// paragraphs turns text into paragraph blocks, one per blank-line separated
// section.
func paragraphs(content string) []notionapi.Block {
	var blocks []notionapi.Block
	for _, section := range strings.Split(content, "\n\n") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		blocks = append(blocks, paragraph(richText(section)))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, paragraph([]notionapi.RichText{}))
	}
	return blocks
}

func paragraph(text []notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: text},
	}
}

func chunkRunes(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	var out []string
	for len(r) > 0 {
		end := min(n, len(r))
		out = append(out, string(r[:end]))
		r = r[end:]
	}
	return out
}

// summarizePage keeps the fields callers look at.
func summarizePage(page map[string]any) map[string]any {
	out := map[string]any{
		"id":  page["id"],
		"url": page["url"],
	}
	if t := pageTitle(page); t != "" {
		out["title"] = t
	}
	if v, ok := page["last_edited_time"]; ok {
		out["lastEdited"] = v
	}
	return out
}

// pageTitle finds the title-typed property and joins its plain text.
func pageTitle(page map[string]any) string {
	props, _ := page["properties"].(map[string]any)
	for _, raw := range props {
		prop, _ := raw.(map[string]any)
		if prop["type"] != "title" {
			continue
		}
		parts, _ := prop["title"].([]any)
		var sb strings.Builder
		for _, p := range parts {
			item, _ := p.(map[string]any)
			if s, ok := item["plain_text"].(string); ok {
				sb.WriteString(s)
			}
		}
		return sb.String()
	}
	return ""
}
