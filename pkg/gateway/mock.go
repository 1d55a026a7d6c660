// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package gateway

import (
	"strings"

	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider"
)

// Mock answers for services without a live connection.
const (
	MockSummaryText = "## Mock Summary\n\nThis is a mock response. Service not connected."
	MockPatchText   = "Mock patch response"
	MockGenericText = `{"ok":true,"mock":true}`
)

// MockResult is the canned answer for a call to an unregistered service of
// the given family. It never fails.
func MockResult(family provider.Family, toolName string) *mcp.ToolCallResult {
	switch family {
	case provider.FamilyDocs:
		if strings.Contains(toolName, "summarize") {
			return mcp.TextResult(MockSummaryText)
		}
		return mcp.TextResult(MockPatchText)
	case provider.FamilyNotes:
		return mcp.JSONResult(notesMock{
			Success:  false,
			Message:  "Notion service not connected (mock mode)",
			MockData: true,
		})
	}
	return mcp.TextResult(MockGenericText)
}

// notesMock fixes the key order of the notes mock.
type notesMock struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	MockData bool   `json:"mockData"`
}

// InferFamily guesses the family from a service id. Unknown ids return "".
func InferFamily(serviceID string) provider.Family {
	id := strings.ToLower(serviceID)
	switch {
	case strings.Contains(id, "devops"), strings.Contains(id, "docs"):
		return provider.FamilyDocs
	case strings.Contains(id, "notion"), strings.Contains(id, "notes"):
		return provider.FamilyNotes
	case strings.Contains(id, "slack"), strings.Contains(id, "messaging"):
		return provider.FamilyMessaging
	case strings.Contains(id, "review"):
		return provider.FamilyReviewer
	}
	return ""
}
