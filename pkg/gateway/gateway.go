// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package gateway routes tool calls to provider processes. Services that
// could not be brought up answer from a deterministic mock policy, so Invoke
// always returns content.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/freitascorp/devopsmcp/pkg/audit"
	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/observability"
	"github.com/freitascorp/devopsmcp/pkg/provider"
	"github.com/freitascorp/devopsmcp/pkg/resilience"
)

var (
	ErrAlreadyInitialized = errors.New("gateway: already initialized")
	ErrNotRegistered      = errors.New("gateway: service not registered")
)

// ClientInfo identifies the gateway in provider handshakes.
var ClientInfo = mcp.EntityInfo{Name: "devopsmcp-gateway", Version: mcp.ServerVersion}

// State is a service's registration state. Both values are terminal once
// Initialize has run.
type State string

const (
	StateUnregistered State = "unregistered"
	StateRegistered   State = "registered"
)

// ServiceStatus describes one configured service.
type ServiceStatus struct {
	ID       string          `json:"id"`
	Family   provider.Family `json:"family"`
	State    State           `json:"state"`
	Server   string          `json:"server,omitempty"`
	Tools    int             `json:"tools,omitempty"`
	Error    string          `json:"error,omitempty"`
	Disabled bool            `json:"disabled,omitempty"`
}

type connection struct {
	serviceID string
	family    provider.Family
	conn      Conn
	bulkhead  *resilience.Bulkhead
}

// registry is built once by Initialize and read-only afterwards.
type registry struct {
	conns    map[string]*connection
	statuses []ServiceStatus
}

// Gateway owns the provider connections.
type Gateway struct {
	cfg       *config.Config
	connector Connector
	logger    *zap.Logger
	metrics   *observability.Metrics
	audit     *audit.Logger

	initialized atomic.Bool
	reg         atomic.Pointer[registry]
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithConnector(c Connector) Option { return func(g *Gateway) { g.connector = c } }

func WithLogger(l *zap.Logger) Option { return func(g *Gateway) { g.logger = l } }

func WithMetrics(m *observability.Metrics) Option { return func(g *Gateway) { g.metrics = m } }

func WithAudit(a *audit.Logger) Option { return func(g *Gateway) { g.audit = a } }

// New creates a gateway. Without WithConnector, providers run as child
// processes of this binary.
func New(cfg *config.Config, opts ...Option) *Gateway {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	g := &Gateway{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.connector == nil {
		g.connector = &ProcessConnector{ConfigPath: cfg.Path(), Logger: g.logger.Named("provider")}
	}
	return g
}

// NewAuditLogger opens the configured audit store, or returns nil when the
// audit log is disabled. The caller closes it.
func NewAuditLogger(cfg *config.Config) (*audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	store, err := audit.NewStore(auditStoreConfig(cfg))
	if err != nil {
		return nil, err
	}
	name := "unknown"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return audit.NewLogger(store, name), nil
}

// OpenAuditStore opens the configured audit store for reading, whether or
// not recording is enabled.
func OpenAuditStore(cfg *config.Config) (audit.Store, error) {
	return audit.NewStore(auditStoreConfig(cfg))
}

func auditStoreConfig(cfg *config.Config) audit.StoreConfig {
	return audit.StoreConfig{Backend: cfg.Audit.Backend, Dir: cfg.Audit.Dir, DSN: cfg.Audit.DSN}
}

// Initialize connects every enabled service and performs the MCP handshake.
// Failures are logged and leave the service unregistered. Services connect
// concurrently; the registry is published once all attempts have finished.
func (g *Gateway) Initialize(ctx context.Context) error {
	if !g.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	services := g.cfg.Services
	statuses := make([]ServiceStatus, len(services))
	conns := make([]*connection, len(services))

	var wg sync.WaitGroup
	for i, svc := range services {
		statuses[i] = ServiceStatus{
			ID:       svc.ID,
			Family:   provider.Family(svc.Family),
			State:    StateUnregistered,
			Disabled: svc.Disabled,
		}
		if svc.Disabled {
			g.logger.Info("service disabled, using mock responses", zap.String("service", svc.ID))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			conns[i] = g.connect(ctx, svc, &statuses[i])
		}()
	}
	wg.Wait()

	reg := &registry{conns: make(map[string]*connection), statuses: statuses}
	for _, c := range conns {
		if c != nil {
			reg.conns[c.serviceID] = c
		}
	}
	g.reg.Store(reg)
	g.metrics.SetRegistered(len(reg.conns))

	g.logger.Info("gateway initialized",
		zap.Int("configured", len(services)),
		zap.Int("registered", len(reg.conns)),
	)
	return nil
}

func (g *Gateway) connect(ctx context.Context, svc config.ServiceConfig, status *ServiceStatus) *connection {
	log := g.logger.With(zap.String("service", svc.ID), zap.String("family", svc.Family))
	start := time.Now()

	connCtx, cancel := context.WithTimeout(ctx, g.connectTimeout())
	defer cancel()

	c, tools, err := g.dial(connCtx, svc, status)
	g.metrics.ObserveConnect(svc.ID, err)
	if g.audit != nil {
		if aerr := g.audit.LogConnect(ctx, svc.ID, svc.Family, time.Since(start), err); aerr != nil {
			log.Warn("audit write failed", zap.Error(aerr))
		}
	}
	if err != nil {
		status.Error = err.Error()
		log.Warn("provider unavailable, using mock responses", zap.Error(err))
		return nil
	}

	status.State = StateRegistered
	status.Tools = tools
	log.Info("provider registered",
		zap.String("server", status.Server),
		zap.Int("tools", tools),
		zap.Duration("took", time.Since(start)),
	)
	return c
}

func (g *Gateway) dial(ctx context.Context, svc config.ServiceConfig, status *ServiceStatus) (*connection, int, error) {
	conn, err := g.connector.Connect(ctx, svc)
	if err != nil {
		return nil, 0, fmt.Errorf("connect: %w", err)
	}
	init, err := conn.Initialize(ctx, ClientInfo)
	if err != nil {
		_ = conn.Close()
		return nil, 0, fmt.Errorf("initialize: %w", err)
	}
	status.Server = init.ServerInfo.Name

	tools, err := conn.ListTools(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, 0, fmt.Errorf("tools/list: %w", err)
	}

	return &connection{
		serviceID: svc.ID,
		family:    provider.Family(svc.Family),
		conn:      conn,
		bulkhead:  resilience.NewBulkhead(svc.ID, g.cfg.Gateway.MaxInFlight),
	}, len(tools), nil
}

func (g *Gateway) connectTimeout() time.Duration {
	if g.cfg.Gateway.ConnectTimeout > 0 {
		return g.cfg.Gateway.ConnectTimeout
	}
	return config.DefaultConnectTimeout
}

func (g *Gateway) lookup(serviceID string) *connection {
	reg := g.reg.Load()
	if reg == nil {
		return nil
	}
	return reg.conns[serviceID]
}

// familyOf prefers the configured family and falls back to the id.
func (g *Gateway) familyOf(serviceID string) provider.Family {
	if svc, ok := g.cfg.Service(serviceID); ok && svc.Family != "" {
		return provider.Family(svc.Family)
	}
	return InferFamily(serviceID)
}

// Invoke calls toolName on serviceID. It never returns an error: transport
// faults come back as "Error: ..." content, timeouts as "Timeout: ...", and
// unregistered services answer from the mock policy.
func (g *Gateway) Invoke(ctx context.Context, serviceID, toolName string, args map[string]any) *mcp.ToolCallResult {
	start := time.Now()
	c := g.lookup(serviceID)
	if c == nil {
		family := g.familyOf(serviceID)
		g.logger.Debug("no live provider, answering from mock policy",
			zap.String("service", serviceID),
			zap.String("family", string(family)),
			zap.String("tool", toolName),
		)
		res := MockResult(family, toolName)
		g.record(ctx, audit.EventInvoke, serviceID, family, toolName, args, observability.OutcomeMock, time.Since(start), nil)
		return res
	}

	res, err := g.forward(ctx, c, toolName, args)
	outcome := outcomeOf(res)
	g.record(ctx, audit.EventInvoke, serviceID, c.family, toolName, args, outcome, time.Since(start), err)
	return res
}

func (g *Gateway) forward(ctx context.Context, c *connection, toolName string, args map[string]any) (*mcp.ToolCallResult, error) {
	done := g.metrics.CallStarted(c.serviceID)
	defer done()

	timeout := g.cfg.Gateway.CallTimeout
	var res *mcp.ToolCallResult
	err := c.bulkhead.Execute(ctx, func() error {
		return resilience.WithTimeout(ctx, timeout, func(ctx context.Context) error {
			r, err := c.conn.CallTool(ctx, toolName, args)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})

	switch {
	case err == nil && res != nil:
		return res, nil
	case err == nil:
		err = errors.New("provider returned no result")
		return mcp.ErrorResult(err), err
	case errors.Is(err, resilience.ErrTimeout):
		return mcp.TimeoutResult(fmt.Sprintf("%s did not answer %s within %s", c.serviceID, toolName, timeout)), err
	case errors.Is(err, context.DeadlineExceeded):
		return mcp.TimeoutResult(fmt.Sprintf("%s: %v", toolName, err)), err
	}
	g.logger.Warn("tool call failed",
		zap.String("service", c.serviceID),
		zap.String("tool", toolName),
		zap.Error(err),
	)
	return mcp.ErrorResult(err), err
}

func outcomeOf(res *mcp.ToolCallResult) string {
	switch {
	case res.IsTimeout():
		return observability.OutcomeTimeout
	case res.IsFault():
		return observability.OutcomeFault
	}
	return observability.OutcomeOK
}

func (g *Gateway) record(ctx context.Context, typ audit.EventType, serviceID string, family provider.Family, toolName string, args map[string]any, outcome string, took time.Duration, err error) {
	g.metrics.ObserveCall(serviceID, outcome, took)
	if g.audit == nil {
		return
	}
	result := audit.EventResult{Status: outcome, DurationMS: took.Milliseconds()}
	if err != nil {
		result.Error = err.Error()
	}
	target := audit.EventTarget{
		Service: serviceID,
		Family:  string(family),
		Tool:    toolName,
		ArgKeys: audit.ArgKeys(args),
	}
	if aerr := g.audit.LogInvocation(context.WithoutCancel(ctx), typ, target, result); aerr != nil {
		g.logger.Warn("audit write failed", zap.Error(aerr))
	}
}

// ListTools returns the live catalog of a registered service.
func (g *Gateway) ListTools(ctx context.Context, serviceID string) ([]mcp.ToolInfo, error) {
	c := g.lookup(serviceID)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, serviceID)
	}
	var tools []mcp.ToolInfo
	err := c.bulkhead.Execute(ctx, func() error {
		var err error
		tools, err = c.conn.ListTools(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", serviceID, err)
	}
	return tools, nil
}

// Services reports every configured service in configuration order. Before
// Initialize all of them are unregistered.
func (g *Gateway) Services() []ServiceStatus {
	if reg := g.reg.Load(); reg != nil {
		out := make([]ServiceStatus, len(reg.statuses))
		copy(out, reg.statuses)
		return out
	}
	out := make([]ServiceStatus, 0, len(g.cfg.Services))
	for _, svc := range g.cfg.Services {
		out = append(out, ServiceStatus{
			ID:       svc.ID,
			Family:   provider.Family(svc.Family),
			State:    StateUnregistered,
			Disabled: svc.Disabled,
		})
	}
	return out
}

// Close closes every provider connection.
func (g *Gateway) Close() error {
	reg := g.reg.Load()
	if reg == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for id, c := range reg.conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.conn.Close(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
