// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package messaging is the Slack provider (Slack:* tools).
package messaging

import (
	"context"
	"errors"

	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

const ServerName = "slack-mcp"

type op int

const (
	opUnknown op = iota
	opPostMessage
	opReplyInThread
	opUploadFile
)

func parseOp(name string) op {
	switch name {
	case "Slack:postMessage":
		return opPostMessage
	case "Slack:replyInThread":
		return opReplyInThread
	case "Slack:uploadFile":
		return opUploadFile
	}
	return opUnknown
}

// Tools is the Slack catalog. All tools validate strictly by default.
func Tools() []provider.Tool {
	return []provider.Tool{
		{
			Name:        "Slack:postMessage",
			Description: "Post a message to Slack",
			InputSchema: provider.ObjectSchema([]string{"channel", "text"},
				provider.StringProp("channel", "Channel ID"),
				provider.StringProp("text", "Message text"),
				provider.StringProp("thread_ts", "Thread timestamp"),
			),
			Validation: provider.Strict,
		},
		{
			Name:        "Slack:replyInThread",
			Description: "Reply to a Slack thread",
			InputSchema: provider.ObjectSchema([]string{"channel", "thread_ts", "text"},
				provider.StringProp("channel", "Channel ID"),
				provider.StringProp("thread_ts", "Thread timestamp"),
				provider.StringProp("text", "Reply text"),
			),
			Validation: provider.Strict,
		},
		{
			Name:        "Slack:uploadFile",
			Description: "Upload a file to Slack",
			InputSchema: provider.ObjectSchema([]string{"channels", "filename", "content"},
				provider.StringProp("channels", "Channels to share (comma-separated IDs)"),
				provider.StringProp("filename", "File name"),
				provider.StringProp("content", "File content"),
			),
			Validation: provider.Strict,
		},
	}
}

// Message is one chat post. ThreadTS is empty for top-level posts.
type Message struct {
	Channel  string
	Text     string
	ThreadTS string
}

// Upload is a file share to one or more channels.
type Upload struct {
	Channels []string
	Filename string
	Content  string
}

// Backend delivers messages. Results are JSON-encodable and carry "ok".
type Backend interface {
	Name() string
	PostMessage(ctx context.Context, msg Message) (map[string]any, error)
	UploadFile(ctx context.Context, up Upload) (map[string]any, error)
}

// ErrUnsupported is returned by backends that cannot perform an operation.
var ErrUnsupported = errors.New("not supported by this Slack backend")

// Provider serves the Slack tools against one Backend.
type Provider struct {
	backend Backend
	catalog *provider.Catalog
}

func New(backend Backend, overrides map[string]provider.Validation) (*Provider, error) {
	catalog, err := provider.NewCatalog(Tools(), overrides)
	if err != nil {
		return nil, err
	}
	return &Provider{backend: backend, catalog: catalog}, nil
}

func (p *Provider) Name() string    { return ServerName }
func (p *Provider) Backend() string { return p.backend.Name() }

func (p *Provider) ListTools() []mcp.ToolInfo { return p.catalog.List() }

func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) *mcp.ToolCallResult {
	return provider.Call(ctx, p.catalog, name, args, func(ctx context.Context, a provider.Args) (*mcp.ToolCallResult, error) {
		var (
			out map[string]any
			err error
		)
		switch parseOp(name) {
		case opPostMessage, opReplyInThread:
			var msg Message
			msg, err = messageArgs(a, parseOp(name) == opReplyInThread)
			if err != nil {
				return nil, err
			}
			out, err = p.backend.PostMessage(ctx, msg)
		case opUploadFile:
			var up Upload
			up, err = uploadArgs(a)
			if err != nil {
				return nil, err
			}
			out, err = p.backend.UploadFile(ctx, up)
		default:
			return mcp.UnknownToolResult(), nil
		}
		if err != nil {
			return nil, err
		}
		return mcp.JSONResult(out), nil
	})
}

func messageArgs(a provider.Args, threaded bool) (Message, error) {
	channel, err := a.RequireString("channel")
	if err != nil {
		return Message{}, err
	}
	text, err := a.RequireString("text")
	if err != nil {
		return Message{}, err
	}
	msg := Message{Channel: channel, Text: text, ThreadTS: a.String("thread_ts")}
	if threaded && msg.ThreadTS == "" {
		return Message{}, errors.New("thread_ts is required")
	}
	return msg, nil
}

func uploadArgs(a provider.Args) (Upload, error) {
	channels := a.List("channels")
	if len(channels) == 0 {
		return Upload{}, errors.New("channels is required")
	}
	filename, err := a.RequireString("filename")
	if err != nil {
		return Upload{}, err
	}
	content := a.String("content")
	if content == "" {
		return Upload{}, errors.New("content is required")
	}
	return Upload{Channels: channels, Filename: filename, Content: content}, nil
}
