// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/freitascorp/devopsmcp/pkg/logger"
)

const (
	// ProtocolVersion is the MCP protocol revision both ends speak.
	ProtocolVersion = "2024-11-05"
	ServerVersion   = "1.0.0"

	// MaxMessageSize bounds one JSON-RPC line in either direction. Longer
	// request lines are dropped; longer results are replaced by an error.
	MaxMessageSize = 10 * 1024 * 1024
)

// envelopeSlack leaves room for the JSON-RPC envelope around a result.
const envelopeSlack = 1024

// supportedVersions are the protocol revisions the server accepts from a
// client. Any other request is answered with ProtocolVersion.
var supportedVersions = []string{"2025-06-18", "2025-03-26", ProtocolVersion}

// Handler is what a Server exposes: a fixed catalog and a call entry point
// that always answers with content, even on failure.
type Handler interface {
	Name() string
	ListTools() []ToolInfo
	CallTool(ctx context.Context, name string, args map[string]any) *ToolCallResult
}

// Server implements a stdio-based MCP server for a single Handler.
// Requests are handled one at a time in arrival order.
type Server struct {
	handler Handler
	in      io.Reader
	out     io.Writer
	mu      sync.Mutex // serializes writes to stdout
}

// NewServer creates an MCP server that reads JSON-RPC from stdin and writes
// responses to stdout.
func NewServer(handler Handler) *Server {
	return &Server{
		handler: handler,
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// NewServerWithIO creates an MCP server with custom I/O (for tests and
// in-process connections).
func NewServerWithIO(handler Handler, in io.Reader, out io.Writer) *Server {
	return &Server{
		handler: handler,
		in:      in,
		out:     out,
	}
}

// Serve runs the server loop, reading requests until EOF or ctx cancellation.
// A line longer than MaxMessageSize is dropped and reading continues.
func (s *Server) Serve(ctx context.Context) error {
	reader := bufio.NewReaderSize(s.in, 1024*1024)

	for {
		line, tooLong, err := readLine(reader, MaxMessageSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("stdin read error: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if tooLong {
			logger.WarnCF("mcp", "Dropped oversized request line",
				map[string]any{"provider": s.handler.Name(), "limit": MaxMessageSize})
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(nil, ErrParse, "parse error: "+err.Error())
			continue
		}

		s.handleRequest(ctx, &req)
	}
}

// readLine returns the next newline-terminated line. When the line exceeds
// max it is consumed in full and reported as tooLong with no content.
func readLine(r *bufio.Reader, max int) (line []byte, tooLong bool, err error) {
	for {
		frag, rerr := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > max {
				tooLong = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		switch {
		case errors.Is(rerr, bufio.ErrBufferFull):
			continue
		case errors.Is(rerr, io.EOF) && (len(line) > 0 || tooLong):
			return line, tooLong, nil
		case rerr != nil:
			return nil, false, rerr
		}
		return line, tooLong, nil
	}
}

// handleRequest dispatches a single JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, req *Request) {
	switch req.Method {
	case MethodInitialize:
		s.handleInitialize(req)
	case MethodInitialized:
		// Client ack, nothing to do.
	case MethodToolsList:
		s.sendResult(req.ID, ToolsListResult{Tools: s.handler.ListTools()})
	case MethodToolsCall:
		s.handleToolsCall(ctx, req)
	case MethodPing:
		s.sendResult(req.ID, map[string]any{})
	default:
		// Unknown method. With an ID it expects a response.
		if req.ID != nil {
			s.sendError(req.ID, ErrNotFound, "method not found: "+req.Method)
		}
		// Notifications (no ID) are ignored.
	}
}

// ── Method handlers ────────────────────────────────────────────────

func (s *Server) handleInitialize(req *Request) {
	version := ProtocolVersion
	if params, ok := req.Params.(map[string]any); ok {
		if v, _ := params["protocolVersion"].(string); slices.Contains(supportedVersions, v) {
			version = v
		}
	}
	result := InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapability{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: EntityInfo{
			Name:    s.handler.Name(),
			Version: ServerVersion,
		},
	}
	s.sendResult(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) {
	raw, err := json.Marshal(req.Params)
	if err != nil {
		s.sendError(req.ID, ErrInternal, "failed to marshal params")
		return
	}

	var params ToolCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		s.sendError(req.ID, ErrInvalidReq, "invalid tools/call params: "+err.Error())
		return
	}

	if params.Name == "" {
		s.sendError(req.ID, ErrInvalidReq, "tool name is required")
		return
	}

	logger.DebugCF("mcp", "Tool call",
		map[string]any{"provider": s.handler.Name(), "tool": params.Name})

	result := s.handler.CallTool(ctx, params.Name, params.Arguments)
	if result == nil {
		result = TextResult("(no output)")
	}
	if result.Content == nil {
		result.Content = []ContentBlock{}
	}
	if n, err := encodedSize(result); err != nil || n > MaxMessageSize-envelopeSlack {
		logger.WarnCF("mcp", "Tool result too large",
			map[string]any{"provider": s.handler.Name(), "tool": params.Name, "bytes": n})
		result = Errorf("result too large (%d bytes, limit %d)", n, MaxMessageSize)
	}
	s.sendResult(req.ID, result)
}

// ── Wire helpers ───────────────────────────────────────────────────

func (s *Server) sendResult(id any, result any) {
	s.writeJSON(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(id any, code int, message string) {
	s.writeJSON(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	})
}

func (s *Server) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Last-resort: log and drop.
		logger.ErrorCF("mcp", "Failed to marshal response",
			map[string]any{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// MCP stdio transport: one JSON object per line.
	_, _ = s.out.Write(append(data, '\n'))
}
