// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned for calls on a client whose connection has ended.
	ErrClosed = errors.New("mcp: connection closed")
	// ErrNotInitialized is returned for calls made before Initialize.
	ErrNotInitialized = errors.New("mcp: not initialized")
	// ErrRequestTooLarge is returned for arguments the peer would drop.
	ErrRequestTooLarge = errors.New("mcp: request too large")
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Logger *zap.Logger
}

// Client is the calling side of a provider connection, a thin layer over a
// go-sdk ClientSession. Concurrent calls are safe; bounding how many are in
// flight is the caller's decision.
type Client struct {
	conn   sdk.Connection
	logger *zap.Logger

	mu      sync.Mutex
	session *sdk.ClientSession
	closed  bool
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewClient wraps an open connection. The MCP handshake happens in
// Initialize.
func NewClient(conn sdk.Connection, opts ClientOptions) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{conn: conn, logger: log, done: make(chan struct{})}
}

// NewIOClient connects over a reader/writer pair, e.g. the two ends of an
// in-process pipe to a Server.
func NewIOClient(ctx context.Context, r io.ReadCloser, w io.WriteCloser, opts ClientOptions) (*Client, error) {
	conn, err := (&sdk.IOTransport{Reader: r, Writer: w}).Connect(ctx)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, opts), nil
}

// openConn hands an already connected sdk.Connection to sdk.Client.Connect.
type openConn struct {
	conn sdk.Connection
}

func (t openConn) Connect(context.Context) (sdk.Connection, error) {
	return t.conn, nil
}

// Initialize performs the MCP handshake, including the initialized
// notification.
func (c *Client) Initialize(ctx context.Context, info EntityInfo) (*InitializeResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.session != nil {
		c.mu.Unlock()
		return nil, errors.New("mcp: already initialized")
	}
	c.mu.Unlock()

	client := sdk.NewClient(&sdk.Implementation{Name: info.Name, Version: info.Version}, nil)
	session, err := await(ctx, func() (*sdk.ClientSession, error) {
		return client.Connect(ctx, openConn{conn: c.conn}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = session.Close()
		return nil, ErrClosed
	}
	c.session = session
	c.mu.Unlock()

	go func() {
		err := session.Wait()
		c.logger.Debug("session ended", zap.Error(err))
		close(c.done)
	}()

	res := &InitializeResult{Capabilities: ServerCapability{Tools: &ToolsCapability{}}}
	if init := session.InitializeResult(); init != nil {
		res.ProtocolVersion = init.ProtocolVersion
		if init.ServerInfo != nil {
			res.ServerInfo = EntityInfo{Name: init.ServerInfo.Name, Version: init.ServerInfo.Version}
		}
	}
	return res, nil
}

// ListTools fetches the provider's catalog.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	session, err := c.active()
	if err != nil {
		return nil, err
	}
	res, err := await(ctx, func() (*sdk.ListToolsResult, error) {
		return session.ListTools(ctx, &sdk.ListToolsParams{})
	})
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", c.classify(err))
	}

	tools := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := toSchema(t.InputSchema)
		if err != nil {
			c.logger.Warn("tool schema unreadable", zap.String("tool", t.Name), zap.Error(err))
		}
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return tools, nil
}

// CallTool invokes one tool. A non-nil error means the call did not produce a
// protocol-level result (transport failure, JSON-RPC error, cancellation).
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	session, err := c.active()
	if err != nil {
		return nil, err
	}
	if n, err := encodedSize(args); err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	} else if n > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes of arguments, limit %d", ErrRequestTooLarge, n, MaxMessageSize)
	}

	res, err := await(ctx, func() (*sdk.CallToolResult, error) {
		return session.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
	})
	if err != nil {
		return nil, c.classify(err)
	}
	return fromSDKResult(res), nil
}

// Close ends the session, or the bare connection when Initialize never
// succeeded. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		session := c.session
		c.mu.Unlock()
		if session != nil {
			c.closeErr = session.Close()
			return
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Client) active() (*sdk.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.session == nil {
		return nil, ErrNotInitialized
	}
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}
	return c.session, nil
}

// classify folds errors from an ended session into ErrClosed.
func (c *Client) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sdk.ErrConnectionClosed) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	select {
	case <-c.done:
		return fmt.Errorf("%w: %v", ErrClosed, err)
	default:
		return err
	}
}

// await runs fn and returns as soon as ctx is done, even when fn is stuck
// writing to a peer that stopped reading.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() != nil {
			return r.v, ctx.Err()
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func encodedSize(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	data, err := json.Marshal(v)
	return len(data), err
}

// toSchema converts the wire schema the SDK decoded into a typed schema.
func toSchema(v any) (*jsonschema.Schema, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(*jsonschema.Schema); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func fromSDKResult(res *sdk.CallToolResult) *ToolCallResult {
	out := &ToolCallResult{Content: make([]ContentBlock, 0, len(res.Content)), IsError: res.IsError}
	for _, c := range res.Content {
		switch v := c.(type) {
		case *sdk.TextContent:
			out.Content = append(out.Content, ContentBlock{Type: ContentTypeText, Text: v.Text})
		default:
			// Non-text blocks are kept as their JSON so nothing is lost.
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out.Content = append(out.Content, ContentBlock{Type: ContentTypeText, Text: string(data)})
		}
	}
	return out
}
