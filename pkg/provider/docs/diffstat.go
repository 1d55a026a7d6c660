// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package docs

import (
	"regexp"
	"strings"
)

// Stats describes a unified diff.
type Stats struct {
	Files   []string
	Added   int
	Removed int

	NewFunction bool
	Imports     bool
	Tests       bool
	Config      bool
	Docs        bool
}

// Net is Added minus Removed.
func (s Stats) Net() int { return s.Added - s.Removed }

var fileHeader = regexp.MustCompile(`^diff --git a/(\S+) b/(\S+)`)

// Analyze counts files and changed lines. "---"/"+++" lines are file
// headers only before the first hunk of a file; inside a hunk they are
// changes like any other.
func Analyze(diff string) Stats {
	var s Stats
	lines := strings.Split(diff, "\n")
	inHunk := false
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			inHunk = false
			if m := fileHeader.FindStringSubmatch(line); m != nil {
				s.Files = append(s.Files, m[2])
			} else {
				s.Files = append(s.Files, "unknown")
			}
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk && (strings.HasPrefix(line, "+++ ") || strings.HasPrefix(line, "--- ")):
		case inHunk && nextFileHeader(lines, i):
			// Plain "diff -u" output starts the next file without a
			// "diff --git" line.
			inHunk = false
		case strings.HasPrefix(line, "+"):
			s.Added++
			body := strings.TrimSpace(line[1:])
			if hasAnyPrefix(body, "func ", "function ", "def ", "const ", "class ", "export function ") {
				s.NewFunction = true
			}
			if hasAnyPrefix(body, "import ", "require(", "from ") || strings.Contains(body, "require(") {
				s.Imports = true
			}
		case strings.HasPrefix(line, "-"):
			s.Removed++
		}
	}
	for _, f := range s.Files {
		lower := strings.ToLower(f)
		switch {
		case strings.Contains(lower, "_test.") || strings.Contains(lower, ".test.") ||
			strings.Contains(lower, ".spec.") || strings.HasPrefix(lower, "test"):
			s.Tests = true
		case hasAnySuffix(lower, ".json", ".yaml", ".yml", ".toml", ".ini", ".env", "dockerfile"):
			s.Config = true
		case hasAnySuffix(lower, ".md", ".rst", ".txt") || strings.Contains(lower, "docs/"):
			s.Docs = true
		}
	}
	return s
}

// nextFileHeader reports whether lines[i] opens a "---", "+++", "@@" file
// header triple.
func nextFileHeader(lines []string, i int) bool {
	return i+2 < len(lines) &&
		strings.HasPrefix(lines[i], "--- ") &&
		strings.HasPrefix(lines[i+1], "+++ ") &&
		strings.HasPrefix(lines[i+2], "@@")
}

// SplitFiles cuts a multi-file diff into one block per "diff --git" header.
// Text before the first header is kept as its own block.
func SplitFiles(diff string) []string {
	var blocks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") && cur.Len() > 0 {
			blocks = append(blocks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if strings.TrimSpace(cur.String()) != "" {
		blocks = append(blocks, cur.String())
	}
	return blocks
}

// LooksLikeDiff reports whether text carries unified diff markers.
func LooksLikeDiff(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if hasAnyPrefix(line, "diff --git", "--- ", "+++ ", "@@ ") {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}
