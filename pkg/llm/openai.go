// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	oaoption "github.com/openai/openai-go/v3/option"
)

// OpenAI completes through Chat Completions.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a completer. An empty model uses gpt-4o-mini.
func NewOpenAI(apiKey, model string, opts Options) *OpenAI {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	reqOpts := []oaoption.RequestOption{oaoption.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, oaoption.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, oaoption.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxRetries > 0 {
		reqOpts = append(reqOpts, oaoption.WithMaxRetries(opts.MaxRetries))
	}
	return &OpenAI{client: openai.NewClient(reqOpts...), model: model}
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(req.maxTokens()),
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return res.Choices[0].Message.Content, nil
}
