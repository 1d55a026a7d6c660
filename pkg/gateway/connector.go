// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/proc"
)

// Conn is an open provider connection. *mcp.Client implements it.
type Conn interface {
	Initialize(ctx context.Context, info mcp.EntityInfo) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolCallResult, error)
	Close() error
}

// Connector opens a connection to one service. The handshake is the
// gateway's job.
type Connector interface {
	Connect(ctx context.Context, svc config.ServiceConfig) (Conn, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, svc config.ServiceConfig) (Conn, error)

func (f ConnectorFunc) Connect(ctx context.Context, svc config.ServiceConfig) (Conn, error) {
	return f(ctx, svc)
}

var (
	ErrExecutableNotFound = errors.New("provider executable not found")
	ErrPermissionDenied   = errors.New("provider executable not runnable")
)

const (
	maxStderrLineLength = 32 * 1024
	gracefulExitWait    = 2 * time.Second
)

// ProcessConnector runs each provider as a child process speaking MCP on
// stdin/stdout through the go-sdk command transport. Stderr lines go to
// the logger.
type ProcessConnector struct {
	// Executable runs services with no Command. Empty means this binary.
	Executable string
	// ConfigPath is passed as --config to default provider commands.
	ConfigPath string
	Logger     *zap.Logger
}

func (pc *ProcessConnector) logger() *zap.Logger {
	if pc.Logger == nil {
		return zap.NewNop()
	}
	return pc.Logger
}

// command resolves the executable and arguments for svc.
func (pc *ProcessConnector) command(svc config.ServiceConfig) (string, []string, error) {
	if svc.Command != "" {
		return svc.Command, svc.Args, nil
	}
	exe := pc.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return "", nil, fmt.Errorf("locate own executable: %w", err)
		}
		exe = self
	}
	args := []string{"provider", svc.Family}
	if pc.ConfigPath != "" {
		args = append(args, "--config", pc.ConfigPath)
	}
	return exe, append(args, svc.Args...), nil
}

// Connect starts the provider process. The process lives until the returned
// Conn is closed; ctx only bounds the start.
func (pc *ProcessConnector) Connect(ctx context.Context, svc config.ServiceConfig) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exe, args, err := pc.command(svc)
	if err != nil {
		return nil, err
	}

	log := pc.logger().With(zap.String("service", svc.ID), zap.String("family", svc.Family))

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, exe, args...)
	cmd.Env = append(os.Environ(), formatEnv(svc.Env)...)
	cleanup := proc.Prepare(cmd)

	errR, errW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stderr = errW

	transport := &sdk.CommandTransport{Command: cmd}
	conn, err := transport.Connect(ctx)
	_ = errW.Close()
	if err != nil {
		cancel()
		_ = errR.Close()
		return nil, classifyStartError(err)
	}

	go mirrorStderr(errR, log.With(zap.String("stream", "stderr")))

	log.Debug("provider started", zap.Int("pid", cmd.Process.Pid), zap.String("command", exe))
	return mcp.NewClient(&processConn{
		Connection: conn,
		log:        log,
		kill: func() {
			cancel()
			cleanup()
		},
	}, mcp.ClientOptions{Logger: log}), nil
}

// processConn kills the provider's process group when closing the
// connection takes longer than gracefulExitWait.
type processConn struct {
	sdk.Connection
	log  *zap.Logger
	kill func()

	once sync.Once
	err  error
}

func (c *processConn) Close() error {
	c.once.Do(func() {
		// Closing stdin lets the provider exit on EOF first.
		t := time.AfterFunc(gracefulExitWait, c.kill)
		err := c.Connection.Close()
		t.Stop()
		c.kill()

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			c.log.Debug("provider exited", zap.Error(err))
			return
		}
		c.err = err
		if err != nil {
			c.log.Warn("provider close failed", zap.Error(err))
		} else {
			c.log.Debug("provider exited")
		}
	})
	return c.err
}

func mirrorStderr(reader io.ReadCloser, logger *zap.Logger) {
	defer reader.Close()
	buf := bufio.NewReaderSize(reader, 8192)
	for {
		line, isPrefix, err := buf.ReadLine()
		if len(line) > 0 {
			trimmed := strings.TrimRight(string(line), "\r\n")
			if trimmed != "" {
				if len(trimmed) > maxStderrLineLength {
					trimmed = trimmed[:maxStderrLineLength] + "... [truncated]"
				}
				logger.Info(trimmed)
			}
			for isPrefix && err == nil {
				_, isPrefix, err = buf.ReadLine()
			}
		}
		if err != nil {
			return
		}
	}
}

func formatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func classifyStartError(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, err.Error())
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err.Error())
	}
	return fmt.Errorf("start provider: %w", err)
}
