// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package llm is the text-completion seam used by the docs and reviewer
// providers. A nil Completer means no model is configured and callers use
// their deterministic mock output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/freitascorp/devopsmcp/pkg/config"
)

// DefaultMaxTokens bounds a completion when the request does not.
const DefaultMaxTokens = 4096

// ErrEmptyCompletion is returned when the model answered with no text.
var ErrEmptyCompletion = errors.New("model returned no text")

// Request is one single-turn completion.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

func (r Request) maxTokens() int64 {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return int64(r.MaxTokens)
}

// Completer turns a prompt into text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Options tune client construction. Zero values use SDK defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
}

// Select picks a completer from the environment. DEVOPSMCP_LLM=auto prefers
// Anthropic, then OpenAI; with neither key it returns nil, nil.
func Select(env config.Environment, opts Options) (Completer, error) {
	switch strings.ToLower(env.LLM) {
	case "mock":
		return nil, nil
	case "anthropic":
		if env.AnthropicKey() == "" {
			return nil, fmt.Errorf("DEVOPSMCP_LLM=anthropic but ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropic(env.AnthropicKey(), env.AnthropicModel, opts), nil
	case "openai":
		if env.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("DEVOPSMCP_LLM=openai but OPENAI_API_KEY is not set")
		}
		return NewOpenAI(env.OpenAIAPIKey, env.OpenAIModel, opts), nil
	case "", "auto":
		switch {
		case env.AnthropicKey() != "":
			return NewAnthropic(env.AnthropicKey(), env.AnthropicModel, opts), nil
		case env.OpenAIAPIKey != "":
			return NewOpenAI(env.OpenAIAPIKey, env.OpenAIModel, opts), nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown LLM backend %q", env.LLM)
}
