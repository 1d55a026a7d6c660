// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freitascorp/devopsmcp/pkg/audit"
	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/observability"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

// OutcomeKind classifies a one-shot invocation.
type OutcomeKind int

const (
	OutcomeResult OutcomeKind = iota
	OutcomeFault
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResult:
		return "result"
	case OutcomeFault:
		return "fault"
	case OutcomeTimeout:
		return "timeout"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the typed result of OneShot. Result is set for OutcomeResult;
// Err is set otherwise.
type Outcome struct {
	Kind   OutcomeKind
	Result *mcp.ToolCallResult
	Err    error
}

// Content always yields a content list.
func (o Outcome) Content() *mcp.ToolCallResult {
	switch o.Kind {
	case OutcomeResult:
		if o.Result != nil {
			return o.Result
		}
		return mcp.TextResult("")
	case OutcomeTimeout:
		return mcp.TimeoutResult(errText(o.Err, "no response"))
	}
	return mcp.ErrorResult(o.Err)
}

func errText(err error, def string) string {
	if err == nil {
		return def
	}
	return err.Error()
}

// OneShot starts a dedicated provider for serviceID, performs the handshake
// and a single tools/call, then closes it. The whole exchange is bounded by
// the configured one-shot timeout. It does not use or need Initialize.
func (g *Gateway) OneShot(ctx context.Context, serviceID, toolName string, args map[string]any) Outcome {
	start := time.Now()
	svc, ok := g.cfg.Service(serviceID)
	if !ok {
		family := InferFamily(serviceID)
		if family == "" {
			return Outcome{Kind: OutcomeFault, Err: fmt.Errorf("unknown service %q", serviceID)}
		}
		svc = config.ServiceConfig{ID: serviceID, Family: string(family)}
	}

	timeout := g.cfg.Gateway.OneShotTimeout
	if timeout <= 0 {
		timeout = config.DefaultOneShotTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := g.oneShot(callCtx, svc, toolName, args)
	if out.Kind == OutcomeFault && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		out = Outcome{Kind: OutcomeTimeout, Err: fmt.Errorf("%s did not answer %s within %s", serviceID, toolName, timeout)}
	}

	var status string
	switch out.Kind {
	case OutcomeResult:
		status = outcomeOf(out.Content())
	case OutcomeFault:
		status = observability.OutcomeFault
	case OutcomeTimeout:
		status = observability.OutcomeTimeout
	}
	g.record(ctx, audit.EventOneShot, serviceID, provider.Family(svc.Family), toolName, args, status, time.Since(start), out.Err)
	return out
}

func (g *Gateway) oneShot(ctx context.Context, svc config.ServiceConfig, toolName string, args map[string]any) Outcome {
	conn, err := g.connector.Connect(ctx, svc)
	if err != nil {
		return Outcome{Kind: OutcomeFault, Err: fmt.Errorf("connect %s: %w", svc.ID, err)}
	}
	defer conn.Close()

	if _, err := conn.Initialize(ctx, ClientInfo); err != nil {
		return Outcome{Kind: OutcomeFault, Err: fmt.Errorf("initialize %s: %w", svc.ID, err)}
	}
	res, err := conn.CallTool(ctx, toolName, args)
	if err != nil {
		return Outcome{Kind: OutcomeFault, Err: fmt.Errorf("%s: %w", toolName, err)}
	}
	return Outcome{Kind: OutcomeResult, Result: res}
}
