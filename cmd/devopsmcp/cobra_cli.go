// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/freitascorp/devopsmcp/pkg/audit"
	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/gateway"
	"github.com/freitascorp/devopsmcp/pkg/logger"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/observability"
	"github.com/freitascorp/devopsmcp/pkg/tui"
)

// errToolFault makes the process exit with status 2 after the fault
// content has been printed.
var errToolFault = errors.New("tool call returned a fault")

// ------------------------------------------------------------------
// Global flags
// ------------------------------------------------------------------

var (
	flagConfig string
	flagDebug  bool
	flagJSON   bool
)

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(flagConfig)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// newGateway builds a gateway with the CLI's logging and the configured
// audit log. metrics may be nil. closeFn closes the providers and the
// audit store.
func newGateway(cfg *config.Config, metrics *observability.Metrics) (g *gateway.Gateway, closeFn func(), err error) {
	auditLog, err := gateway.NewAuditLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	opts := []gateway.Option{gateway.WithLogger(logger.Named("gateway")), gateway.WithMetrics(metrics)}
	if auditLog != nil {
		opts = append(opts, gateway.WithAudit(auditLog))
	}
	g = gateway.New(cfg, opts...)
	return g, func() {
		if err := g.Close(); err != nil {
			logger.WarnCF("cli", "Closing providers failed", map[string]any{"error": err.Error()})
		}
		if auditLog != nil {
			_ = auditLog.Close()
		}
	}, nil
}

// ------------------------------------------------------------------
// Root command
// ------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "devopsmcp",
		Short: "devopsmcp - MCP tool gateway for DevOps services",
		Long: `devopsmcp routes tool calls to MCP tool providers for documentation,
notes, messaging and code review.

Each provider runs as its own process speaking JSON-RPC over stdio.
Services that cannot be reached answer from a deterministic mock, so a
call always produces content.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetLevel(logger.WARN)
			if flagDebug {
				logger.SetLevel(logger.DEBUG)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultPath(), "Config file")
	root.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")

	root.AddCommand(
		newProviderCmd(),
		newServicesCmd(),
		newToolsCmd(),
		newCallCmd(),
		newAuditCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// ------------------------------------------------------------------
// `devopsmcp services`
// ------------------------------------------------------------------

func newServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "Connect every configured service and show its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			g, closeGateway, err := newGateway(cfg, nil)
			if err != nil {
				return err
			}
			defer closeGateway()
			if err := g.Initialize(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flagJSON {
				return writeJSON(out, g.Services())
			}
			fmt.Fprintln(out, tui.NewRenderer(out).Services(g.Services()))
			return nil
		},
	}
}

// ------------------------------------------------------------------
// `devopsmcp tools <service>`
// ------------------------------------------------------------------

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools <service>",
		Short: "List the tools a service exposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			g, closeGateway, err := newGateway(cfg, nil)
			if err != nil {
				return err
			}
			defer closeGateway()
			if err := g.Initialize(ctx); err != nil {
				return err
			}

			tools, err := g.ListTools(ctx, args[0])
			if errors.Is(err, gateway.ErrNotRegistered) {
				return fmt.Errorf("%w (run `devopsmcp services` to see why)", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flagJSON {
				return writeJSON(out, tools)
			}
			fmt.Fprintln(out, tui.NewRenderer(out).Tools(tools))
			return nil
		},
	}
}

// ------------------------------------------------------------------
// `devopsmcp call <service> <tool>`
// ------------------------------------------------------------------

func newCallCmd() *cobra.Command {
	var (
		flagArgs    string
		flagArg     []string
		flagOneShot bool
		flagTimeout time.Duration
		flagRaw     bool
		flagMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "call <service> <tool>",
		Short: "Invoke one tool and print its content",
		Long: `Invoke a tool through the gateway.

Arguments come from --args (a JSON object) and --arg key=value pairs; a
value that parses as JSON (numbers, booleans, objects) is passed typed,
anything else as a string. --arg wins over --args for the same key.

Without --oneshot every configured service is connected first, and an
unreachable service answers from its mock. With --oneshot only the named
service is started, for a single call bounded by --timeout.

Examples:
  devopsmcp call devops DevOps:collect-diff --arg baseRef=origin/main
  git diff | devopsmcp call devops DevOps:summarize-diff --arg diff=@-
  devopsmcp call notion Notion:searchPages --arg query=runbook --oneshot
  devopsmcp call reviewer CodeReviewer:reviewDiff --args '{"diff":"...","focus":"security"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceID, toolName := args[0], args[1]

			toolArgs, err := parseToolArgs(flagArgs, flagArg, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				if flagOneShot {
					cfg.Gateway.OneShotTimeout = flagTimeout
				} else {
					cfg.Gateway.CallTimeout = flagTimeout
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var metrics *observability.Metrics
			if flagMetrics {
				metrics = observability.NewMetrics()
			}
			g, closeGateway, err := newGateway(cfg, metrics)
			if err != nil {
				return err
			}
			defer closeGateway()

			var res *mcp.ToolCallResult
			if flagOneShot {
				res = g.OneShot(ctx, serviceID, toolName, toolArgs).Content()
			} else {
				if err := g.Initialize(ctx); err != nil {
					return err
				}
				res = g.Invoke(ctx, serviceID, toolName, toolArgs)
			}

			out := cmd.OutOrStdout()
			if flagRaw || flagJSON {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, tui.NewRenderer(out).Result(res))
			}
			if flagMetrics {
				if err := metrics.WriteText(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if res.IsFault() {
				return errToolFault
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagArgs, "args", "", "Tool arguments as a JSON object")
	cmd.Flags().StringArrayVarP(&flagArg, "arg", "a", nil, "Tool argument as key=value; value @- reads stdin (repeatable)")
	cmd.Flags().BoolVar(&flagOneShot, "oneshot", false, "Start only this service for a single call")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Call timeout (one-shot timeout with --oneshot)")
	cmd.Flags().BoolVar(&flagRaw, "raw", false, "Print the MCP result object as JSON")
	cmd.Flags().BoolVar(&flagMetrics, "metrics", false, "Print gateway metrics to stderr after the call")

	return cmd
}

// parseToolArgs merges --args and --arg pairs. A pair value of "@-" is
// replaced by stdin, which can be consumed once.
func parseToolArgs(jsonArgs string, pairs []string, stdin io.Reader) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(jsonArgs) != "" {
		if err := json.Unmarshal([]byte(jsonArgs), &args); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	stdinUsed := false
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--arg %q: expected key=value", pair)
		}
		if raw == "@-" {
			if stdinUsed {
				return nil, fmt.Errorf("--arg %s: stdin already consumed", key)
			}
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("--arg %s: read stdin: %w", key, err)
			}
			stdinUsed = true
			args[key] = string(data)
			continue
		}
		args[key] = argValue(raw)
	}
	return args, nil
}

func argValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		if _, isString := v.(string); !isString {
			return v
		}
	}
	return raw
}

// ------------------------------------------------------------------
// `devopsmcp audit`
// ------------------------------------------------------------------

func newAuditCmd() *cobra.Command {
	var (
		flagService string
		flagType    string
		flagStatus  string
		flagSince   string
		flagLimit   int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the tool invocation audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := gateway.OpenAuditStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := audit.QueryOptions{
				Service: flagService,
				Type:    audit.EventType(flagType),
				Status:  flagStatus,
				Limit:   flagLimit,
			}
			if flagSince != "" {
				dur, err := time.ParseDuration(flagSince)
				if err != nil {
					return fmt.Errorf("invalid --since duration: %w", err)
				}
				opts.Since = time.Now().Add(-dur)
			}

			events, err := store.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flagJSON {
				return writeJSON(out, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No audit events found.")
				if !cfg.Audit.Enabled {
					fmt.Fprintln(out, "The audit log is disabled; set audit.enabled in", flagConfig)
				}
				return nil
			}
			fmt.Fprintln(out, tui.NewRenderer(out).Audit(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagService, "service", "", "Filter by service id")
	cmd.Flags().StringVar(&flagType, "type", "", "Filter by event type (service.connect, tool.invoke, tool.oneshot)")
	cmd.Flags().StringVar(&flagStatus, "status", "", "Filter by status (ok, fault, timeout, mock)")
	cmd.Flags().StringVar(&flagSince, "since", "", "Filter since duration (e.g., 2h, 24h)")
	cmd.Flags().IntVar(&flagLimit, "limit", 50, "Max events to show")

	return cmd
}
