// Copyright (c) 2022, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

//go:embed README.md
var cliHelpFile string

var linkTargetPattern = regexp.MustCompile(`\(#[a-z]+\)`)

// helpEntry is the reference of one command: a one-sentence summary and the text lines of its section.
type helpEntry struct {
	summary string
	lines   []string
}

// Help renders the command reference embedded from README.md, wrapped to the terminal width.
type Help struct {
	termWidth   uint
	maxCmdWidth uint
	entries     map[string]*helpEntry
}

func newHelp() Help {
	h := Help{termWidth: 80, entries: parseHelpFile(cliHelpFile)}
	for cmd := range h.entries {
		if w := uint(len(cmd)); w > h.maxCmdWidth {
			h.maxCmdWidth = w
		}
	}
	h.update()
	return h
}

// update takes the current terminal width into account, if stdout is a terminal.
func (help *Help) update() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if width, _, err := term.GetSize(fd); err == nil && width > int(help.maxCmdWidth)+20 {
		help.termWidth = uint(width)
	}
}

// Topics returns the sorted names of all commands that have help.
func (help *Help) Topics() []string {
	cmds := make([]string, 0, len(help.entries))
	for k := range help.entries {
		cmds = append(cmds, k)
	}
	sort.Strings(cmds)
	return cmds
}

// outputGeneralHelp lists all commands with their summary.
func (help *Help) outputGeneralHelp() string {
	help.update()
	var sb strings.Builder
	indent := help.maxCmdWidth + 2
	pad := strings.Repeat(" ", int(indent))
	for _, c := range help.Topics() {
		lines := strings.Split(wordwrap.WrapString(help.entries[c].summary, help.termWidth-indent), "\n")
		fmt.Fprintf(&sb, "%-*s%s\n", indent, c, lines[0])
		for _, l := range lines[1:] {
			sb.WriteString(pad + l + "\n")
		}
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.update()
	e, ok := help.entries[command]
	if !ok {
		return fmt.Sprintf("%s\n  (Non-existent command.)\n", command)
	}
	var sb strings.Builder
	sb.WriteString(command + "\n")
	for _, line := range e.lines {
		if line == "" {
			sb.WriteString("\n")
			continue
		}
		lead := len(line) - len(strings.TrimLeft(line, " "))
		wrapped := wordwrap.WrapString(strings.TrimLeft(line, " "), help.termWidth-2-uint(lead))
		for _, w := range strings.Split(wrapped, "\n") {
			sb.WriteString("  " + strings.Repeat(" ", lead) + w + "\n")
		}
	}
	return sb.String()
}

// parseHelpFile returns one entry per '### <command>' section. Any other heading ends the section. A
// "shell" code block is the Definition of the command, a "bash" block its Example.
func parseHelpFile(md string) map[string]*helpEntry {
	entries := map[string]*helpEntry{}
	var cur *helpEntry
	inBlock := false
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "### "):
			cur = &helpEntry{}
			entries[strings.TrimSpace(line[4:])] = cur
			continue
		case strings.HasPrefix(line, "#") && !inBlock:
			cur = nil
			continue
		case cur == nil || line == "":
			continue
		}

		switch line {
		case "```shell", "```bash":
			title := "Definition:"
			if line == "```bash" {
				title = "Example:"
			}
			cur.lines = append(cur.lines, "", title)
			inBlock = true
		case "```":
			inBlock = false
		default:
			if inBlock {
				cur.lines = append(cur.lines, "  "+line)
				break
			}
			text := markdownUnquote(line)
			cur.lines = append(cur.lines, text)
			if cur.summary == "" {
				cur.summary = firstSentence(text)
			}
		}
	}
	return entries
}

func firstSentence(s string) string {
	if idx := strings.Index(s, "."); idx > 0 {
		return s[:idx+1]
	}
	return s
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	return linkTargetPattern.ReplaceAllString(md, "")
}
