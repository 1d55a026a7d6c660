// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"

	"github.com/freitascorp/devopsmcp/pkg/config"
)

// BackendFromEnv picks the Web API backend for a usable bot token, the
// webhook backend when only a webhook URL is set, and the mock otherwise.
func BackendFromEnv(env config.Environment, httpClient *http.Client) Backend {
	if token := env.SlackToken(); token != "" {
		var opts []slack.Option
		if env.SlackAPIURL != "" {
			opts = append(opts, slack.OptionAPIURL(env.SlackAPIURL))
		}
		if httpClient != nil {
			opts = append(opts, slack.OptionHTTPClient(httpClient))
		}
		return NewAPIBackend(slack.New(token, opts...))
	}
	if url := strings.TrimSpace(env.SlackWebhookURL); url != "" {
		return NewWebhookBackend(url, httpClient)
	}
	return NewMockBackend(nil)
}

// ── Web API (bot token) ────────────────────────────────────────────

// APIBackend posts through the Slack Web API.
type APIBackend struct {
	client *slack.Client
}

func NewAPIBackend(client *slack.Client) *APIBackend {
	return &APIBackend{client: client}
}

func (b *APIBackend) Name() string { return "slack" }

func (b *APIBackend) PostMessage(ctx context.Context, msg Message) (map[string]any, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}
	channel, ts, err := b.client.PostMessageContext(ctx, msg.Channel, opts...)
	if err != nil {
		return nil, fmt.Errorf("chat.postMessage: %w", err)
	}
	return map[string]any{"ok": true, "channel": channel, "ts": ts}, nil
}

// UploadFile shares the content once per channel; the v2 upload flow binds a
// file to a single channel.
func (b *APIBackend) UploadFile(ctx context.Context, up Upload) (map[string]any, error) {
	ids := make([]string, 0, len(up.Channels))
	for _, ch := range up.Channels {
		f, err := b.client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
			Channel:  ch,
			Content:  up.Content,
			FileSize: len(up.Content),
			Filename: up.Filename,
			Title:    up.Filename,
		})
		if err != nil {
			return nil, fmt.Errorf("upload to %s: %w", ch, err)
		}
		ids = append(ids, f.ID)
	}
	return map[string]any{"ok": true, "file": ids[0], "files": ids}, nil
}

// ── Incoming webhook ───────────────────────────────────────────────

// WebhookBackend posts through an incoming webhook. Webhooks cannot thread
// or upload.
type WebhookBackend struct {
	url        string
	httpClient *http.Client
}

func NewWebhookBackend(url string, httpClient *http.Client) *WebhookBackend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookBackend{url: url, httpClient: httpClient}
}

func (b *WebhookBackend) Name() string { return "webhook" }

func (b *WebhookBackend) PostMessage(ctx context.Context, msg Message) (map[string]any, error) {
	if msg.ThreadTS != "" {
		return nil, fmt.Errorf("thread replies: %w (set SLACK_BOT_TOKEN)", ErrUnsupported)
	}
	err := slack.PostWebhookCustomHTTPContext(ctx, b.url, b.httpClient, &slack.WebhookMessage{
		Channel: msg.Channel,
		Text:    msg.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	return map[string]any{"ok": true, "channel": msg.Channel, "via": "webhook"}, nil
}

func (b *WebhookBackend) UploadFile(context.Context, Upload) (map[string]any, error) {
	return nil, fmt.Errorf("file uploads: %w (set SLACK_BOT_TOKEN)", ErrUnsupported)
}

// ── Mock ───────────────────────────────────────────────────────────

// MockBackend answers without network access.
type MockBackend struct {
	now func() time.Time
	seq atomic.Int64
}

// NewMockBackend builds a mock. now defaults to time.Now.
func NewMockBackend(now func() time.Time) *MockBackend {
	if now == nil {
		now = time.Now
	}
	return &MockBackend{now: now}
}

func (b *MockBackend) Name() string { return "mock" }

// ts renders a Slack-style "seconds.micros" timestamp that is unique per call.
func (b *MockBackend) ts() string {
	t := b.now()
	micros := (int64(t.Nanosecond()/1000) + b.seq.Add(1)) % 1_000_000
	return fmt.Sprintf("%d.%06d", t.Unix(), micros)
}

func (b *MockBackend) PostMessage(_ context.Context, msg Message) (map[string]any, error) {
	out := map[string]any{"ok": true, "ts": b.ts(), "channel": msg.Channel, "mock": true}
	if msg.ThreadTS != "" {
		out["thread_ts"] = msg.ThreadTS
	}
	return out, nil
}

func (b *MockBackend) UploadFile(_ context.Context, up Upload) (map[string]any, error) {
	return map[string]any{"ok": true, "file": "mock-file-id", "channels": up.Channels, "mock": true}, nil
}
