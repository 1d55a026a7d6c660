// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freitascorp/devopsmcp/pkg/config"
)

func TestSelect(t *testing.T) {
	base := config.Environment{LLM: "auto", AnthropicModel: "claude-sonnet-4-5", OpenAIModel: "gpt-4o-mini"}

	c, err := Select(base, Options{})
	require.NoError(t, err)
	assert.Nil(t, c, "no keys means mock")

	env := base
	env.OpenAIAPIKey = "sk-openai"
	c, err = Select(env, Options{})
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", c.Name())

	env.ClaudeAPIKey = "sk-ant"
	c, err = Select(env, Options{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic:claude-sonnet-4-5", c.Name())

	env.LLM = "openai"
	c, err = Select(env, Options{})
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", c.Name())

	env.LLM = "mock"
	c, err = Select(env, Options{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Select(config.Environment{LLM: "anthropic"}, Options{})
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
	_, err = Select(config.Environment{LLM: "gemini"}, Options{})
	assert.Error(t, err)
}

func TestAnthropic_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "## Summary\n\nLooks good."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	c := NewAnthropic("sk-ant", "", Options{BaseURL: srv.URL, MaxRetries: 1})
	text, err := c.Complete(context.Background(), Request{System: "be brief", Prompt: "summarize", MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, "## Summary\n\nLooks good.", text)

	assert.Equal(t, "claude-sonnet-4-5", got["model"])
	assert.Equal(t, float64(256), got["max_tokens"])
	require.NotNil(t, got["system"])
}

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-openai", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "review text"},
				"finish_reason": "stop"
			}]
		}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-openai", "", Options{BaseURL: srv.URL + "/v1", MaxRetries: 1})
	text, err := c.Complete(context.Background(), Request{System: "reviewer", Prompt: "review this"})
	require.NoError(t, err)
	assert.Equal(t, "review text", text)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("k", "m", Options{BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
