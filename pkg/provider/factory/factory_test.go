// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package factory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

func TestNew_EveryFamilyOnMock(t *testing.T) {
	cfg := config.DefaultConfig()
	want := map[provider.Family]string{
		provider.FamilyDocs:      "devops-mcp",
		provider.FamilyNotes:     "notion-mcp",
		provider.FamilyMessaging: "slack-mcp",
		provider.FamilyReviewer:  "claude-code-reviewer",
	}
	for _, family := range provider.Families() {
		p, err := New(family, cfg, Options{})
		require.NoError(t, err, family)
		assert.Equal(t, want[family], p.Name())
		assert.Equal(t, "mock", p.Backend(), family)
		assert.NotEmpty(t, p.ListTools())
	}

	_, err := New("calendar", cfg, Options{})
	assert.Error(t, err)
}

func TestNew_CredentialsPickRealBackends(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Env.NotionAPIKey = "secret_x"
	cfg.Env.SlackBotToken = "xoxb-real"
	cfg.Env.AnthropicAPIKey = "sk-ant-x"

	notesP, err := New(provider.FamilyNotes, cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "notion", notesP.Backend())

	slackP, err := New(provider.FamilyMessaging, cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "slack", slackP.Backend())

	docsP, err := New(provider.FamilyDocs, cfg, Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(docsP.Backend(), "anthropic:"), docsP.Backend())

	mocked, err := New(provider.FamilyNotes, cfg, Options{Mock: true})
	require.NoError(t, err)
	assert.Equal(t, "mock", mocked.Backend())
}

func TestNew_ValidationOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers["notes"] = config.ProviderConfig{Validation: map[string]string{"Notion:createPage": "lenient"}}

	p, err := New(provider.FamilyNotes, cfg, Options{})
	require.NoError(t, err)
	text, _ := p.CallTool(context.Background(), "Notion:createPage", map[string]any{"title": "T"}).FirstText()
	assert.Equal(t, "Error: content is required", text)

	cfg.Providers["notes"] = config.ProviderConfig{Validation: map[string]string{"Notion:createPage": "sometimes"}}
	_, err = New(provider.FamilyNotes, cfg, Options{})
	assert.ErrorContains(t, err, "providers.notes.validation.Notion:createPage")
}
