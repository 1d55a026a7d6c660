// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package tui renders gateway output for a terminal: tool results as
// Markdown, service and tool listings as tables.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ─── Palette ───────────────────────────────────────────────────────────

var (
	ColorPrimary   = lipgloss.Color("#cc7700") // orange, headings and accents
	ColorSecondary = lipgloss.Color("#5599dd") // sky blue, live services
	ColorPanel     = lipgloss.Color("#555555") // gray, borders
	ColorMuted     = lipgloss.Color("#888888")
	ColorWarn      = lipgloss.Color("#aaaa00") // timeouts, mock answers
	ColorError     = lipgloss.Color("#cc3333")
	ColorText      = lipgloss.Color("#dddddd")
)

// ─── Borders ───────────────────────────────────────────────────────────

var (
	ThickBorder = lipgloss.Border{Left: "┃"}
	WideBorder  = lipgloss.Border{Left: "│"}
)

// ResultBlockStyle frames a successful tool result.
var ResultBlockStyle = lipgloss.NewStyle().
	Border(WideBorder).
	BorderLeft(true).BorderTop(false).BorderBottom(false).BorderRight(false).
	BorderForeground(ColorSecondary).
	PaddingLeft(1)

// ErrorBlockStyle frames "Error: " content.
var ErrorBlockStyle = lipgloss.NewStyle().
	Border(ThickBorder).
	BorderLeft(true).BorderTop(false).BorderBottom(false).BorderRight(false).
	BorderForeground(ColorError).
	PaddingLeft(1)

// WarnBlockStyle frames "Timeout: " content.
var WarnBlockStyle = lipgloss.NewStyle().
	Border(ThickBorder).
	BorderLeft(true).BorderTop(false).BorderBottom(false).BorderRight(false).
	BorderForeground(ColorWarn).
	PaddingLeft(1).
	Foreground(ColorWarn)

// ─── Text styles ───────────────────────────────────────────────────────

var (
	PrimaryText   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SecondaryText = lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary)
	MutedText     = lipgloss.NewStyle().Foreground(ColorMuted)
	WarnText      = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
	ErrorText     = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	NormalText    = lipgloss.NewStyle().Foreground(ColorText)
	HeaderText    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1)
	CellText      = lipgloss.NewStyle().Padding(0, 1)
)

// ─── Terminal ──────────────────────────────────────────────────────────

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of w, defaulting to 80.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// MaxContentWidth caps content at 100 columns.
func MaxContentWidth(termW int) int {
	if termW > 100 {
		return 100
	}
	return termW
}
