// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package tui

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/freitascorp/devopsmcp/pkg/audit"
	"github.com/freitascorp/devopsmcp/pkg/gateway"
	"github.com/freitascorp/devopsmcp/pkg/mcp"
	"github.com/freitascorp/devopsmcp/pkg/provider/docs"
)

// urlRe matches http/https URLs in text for OSC 8 wrapping.
var urlRe = regexp.MustCompile(`https?://[^\s\)\]>"'` + "`" + `]+`)

// Linkify wraps bare http/https URLs in OSC 8 escape sequences so they
// become clickable in terminals that support hyperlinks.
func Linkify(s string) string {
	return urlRe.ReplaceAllStringFunc(s, func(u string) string {
		return "\x1b]8;;" + u + "\x1b\\" + u + "\x1b]8;;\x1b\\"
	})
}

// Renderer formats gateway output for one writer. On anything other than
// a terminal it emits plain text.
type Renderer struct {
	color bool
	width int
	md    *glamour.TermRenderer
}

// NewRenderer inspects w once. Piped output stays byte-for-byte the tool
// text.
func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{color: IsTerminal(w), width: MaxContentWidth(TerminalWidth(w))}
	if r.color {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(r.width-4, 40)),
		)
		if err == nil {
			r.md = md
		}
	}
	return r
}

// Result renders every content block of res.
func (r *Renderer) Result(res *mcp.ToolCallResult) string {
	if res == nil {
		return ""
	}
	parts := make([]string, 0, len(res.Content))
	for _, b := range res.Content {
		if b.Type != mcp.ContentTypeText {
			parts = append(parts, fmt.Sprintf("[%s content]", b.Type))
			continue
		}
		parts = append(parts, b.Text)
	}
	body := strings.Join(parts, "\n")
	if !r.color {
		return body
	}

	switch {
	case res.IsTimeout():
		return WarnBlockStyle.Render(body)
	case res.IsFault():
		return ErrorBlockStyle.Render(body)
	case looksLikeJSON(body):
		return ResultBlockStyle.Render(Linkify(body))
	case docs.LooksLikeDiff(body):
		body = "```diff\n" + body + "\n```"
	}
	if r.md != nil {
		if out, err := r.md.Render(body); err == nil {
			return Linkify(strings.TrimRight(out, "\n"))
		}
	}
	return ResultBlockStyle.Render(Linkify(body))
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// ─── Tables ────────────────────────────────────────────────────────────

func (r *Renderer) table(headers []string, rows [][]string, cellStyle func(row, col int, value string) lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorPanel)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderText
			}
			if cellStyle == nil || row < 0 || row >= len(rows) {
				return CellText
			}
			return cellStyle(row, col, rows[row][col])
		})
	return t.String()
}

// Services renders gateway service states.
func (r *Renderer) Services(list []gateway.ServiceStatus) string {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		note := s.Error
		if s.Disabled {
			note = "disabled"
		}
		tools := ""
		if s.Tools > 0 {
			tools = strconv.Itoa(s.Tools)
		}
		rows = append(rows, []string{s.ID, string(s.Family), string(s.State), s.Server, tools, truncate(note, 60)})
	}
	return r.table(
		[]string{"SERVICE", "FAMILY", "STATE", "SERVER", "TOOLS", "NOTE"},
		rows,
		func(_, col int, v string) lipgloss.Style {
			if col != 2 {
				return CellText
			}
			if v == string(gateway.StateRegistered) {
				return CellText.Foreground(ColorSecondary)
			}
			return CellText.Foreground(ColorWarn)
		},
	)
}

// Tools renders a tool catalog with each tool's required arguments.
func (r *Renderer) Tools(list []mcp.ToolInfo) string {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		var required string
		if t.InputSchema != nil {
			required = strings.Join(t.InputSchema.Required, ", ")
		}
		rows = append(rows, []string{t.Name, required, truncate(t.Description, 60)})
	}
	return r.table([]string{"TOOL", "REQUIRED", "DESCRIPTION"}, rows, nil)
}

// Audit renders audit events oldest first.
func (r *Renderer) Audit(events []*audit.Event) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		var service, tool, status, took string
		if e.Target != nil {
			service, tool = e.Target.Service, e.Target.Tool
		}
		if e.Result != nil {
			status = e.Result.Status
			took = strconv.FormatInt(e.Result.DurationMS, 10) + "ms"
		}
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.User,
			string(e.Type),
			service,
			tool,
			status,
			took,
		})
	}
	return r.table(
		[]string{"TIME", "USER", "TYPE", "SERVICE", "TOOL", "STATUS", "TOOK"},
		rows,
		func(_, col int, v string) lipgloss.Style {
			if col != 5 {
				return CellText
			}
			switch v {
			case audit.StatusFault:
				return CellText.Foreground(ColorError)
			case audit.StatusTimeout, audit.StatusMock:
				return CellText.Foreground(ColorWarn)
			}
			return CellText
		},
	)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
