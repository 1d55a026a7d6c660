// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package proc holds child-process helpers shared by the git runner and the
// provider process connector.
package proc
