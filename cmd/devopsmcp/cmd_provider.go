// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freitascorp/devopsmcp/pkg/logger"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
	"github.com/freitascorp/devopsmcp/pkg/provider/factory"
)

func familyNames() string {
	names := make([]string, 0, len(provider.Families()))
	for _, f := range provider.Families() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func newProviderCmd() *cobra.Command {
	var (
		flagMock    bool
		flagLogFile string
	)

	cmd := &cobra.Command{
		Use:   "provider <family>",
		Short: "Run one tool provider as an MCP stdio server",
		Long: fmt.Sprintf(`Serve one provider family over MCP stdio (JSON-RPC on stdin/stdout).

Families: %s.

The gateway starts providers this way. Any MCP client can too, e.g. in
Claude Desktop or Gemini CLI settings:
  {
    "mcpServers": {
      "devops": {
        "command": "devopsmcp",
        "args": ["provider", "docs"]
      }
    }
  }

Credentials come from the environment; without them the provider runs on
its mock backend. Logs go to stderr, or to --log-file.`, familyNames()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := provider.ParseFamily(args[0])
			if err != nil {
				return fmt.Errorf("%w (families: %s)", err, familyNames())
			}

			if flagLogFile != "" {
				f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger.SetOutput(f)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := factory.New(family, cfg, factory.Options{Mock: flagMock})
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			logger.InfoCF("provider", "Serving MCP over stdio", map[string]any{
				"family":  string(family),
				"server":  p.Name(),
				"backend": p.Backend(),
				"tools":   len(p.ListTools()),
			})
			err = mcp.NewServerWithIO(p, cmd.InOrStdin(), cmd.OutOrStdout()).Serve(ctx)
			logger.DebugCF("provider", "Stdin closed, exiting", map[string]any{"server": p.Name()})
			return err
		},
	}

	cmd.Flags().BoolVar(&flagMock, "mock", false, "Use the mock backend even when credentials are set")
	cmd.Flags().StringVar(&flagLogFile, "log-file", "", "Append logs to this file instead of stderr")

	return cmd
}
