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
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/openthread/ot-tsch-sim/logger"
)

type CliHandler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

type CliOptions struct {
	EchoInput   bool
	Stdin       *os.File
	Stdout      *os.File
	HistoryFile string
	Commands    []string // completed with Tab
}

func DefaultCliOptions() *CliOptions {
	return &CliOptions{}
}

// CliInstance is the console of the simulator. There is one per process, Cli.
type CliInstance struct {
	Options *CliOptions
	rl      *readline.Instance
}

var Cli = &CliInstance{}

// OnStdout is called by the logger when new output was written to stdout or stderr.
func (cli *CliInstance) OnStdout() {
	if cli.rl != nil {
		cli.rl.Refresh()
	}
}

func (o *CliOptions) withDefaults() *CliOptions {
	if o == nil {
		o = DefaultCliOptions()
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// newCompleter completes command names, and command names after "help".
func newCompleter(commands []string) readline.AutoCompleter {
	if len(commands) == 0 {
		return nil
	}
	var items, helpItems []readline.PrefixCompleterInterface
	for _, c := range commands {
		helpItems = append(helpItems, readline.PcItem(c))
		if c != "help" {
			items = append(items, readline.PcItem(c))
		}
	}
	items = append(items, readline.PcItem("help", helpItems...))
	return readline.NewPrefixCompleter(items...)
}

// saveTerminalState returns a function restoring the state of every terminal among files.
func saveTerminalState(files ...*os.File) (func(), error) {
	var restore []func()
	for _, f := range files {
		fd := int(f.Fd())
		if !readline.IsTerminal(fd) {
			continue
		}
		state, err := readline.GetState(fd)
		if err != nil {
			return nil, errors.Wrapf(err, "terminal state of %s", f.Name())
		}
		restore = append(restore, func() {
			_ = readline.Restore(fd, state)
		})
	}
	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
	}, nil
}

// Run reads command lines until EOF, Ctrl-C on an empty line, or an error from the handler. Empty lines and
// lines starting with '#' are skipped.
func (cli *CliInstance) Run(handler CliHandler, options *CliOptions) error {
	defer logger.Debugf("CLI exit.")
	options = options.withDefaults()
	cli.Options = options

	restore, err := saveTerminalState(options.Stdin, options.Stdout)
	if err != nil {
		return err
	}
	defer restore()

	l, err := readline.NewEx(&readline.Config{
		Prompt:            handler.GetPrompt(),
		HistoryFile:       options.HistoryFile,
		HistorySearchFold: true,
		AutoComplete:      newCompleter(options.Commands),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		Stdin:             options.Stdin,
		Stdout:            options.Stdout,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			return r, r != readline.CharCtrlZ
		},
	})
	if err != nil {
		return err
	}
	cli.rl = l
	defer func() {
		cli.rl = nil
		_ = l.Close()
	}()
	return cli.readLoop(l, handler, options)
}

func (cli *CliInstance) readLoop(l *readline.Instance, handler CliHandler, options *CliOptions) error {
	for {
		l.SetPrompt(handler.GetPrompt())
		line, err := l.Readline()
		switch {
		case len(line) > 0 && line[0] == readline.CharInterrupt:
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			if len(line) == 0 {
				return nil
			}
			continue // Ctrl-C while editing only drops the line
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if options.EchoInput {
			if _, err := options.Stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" || strings.HasPrefix(cmd, "#") {
			continue
		}
		err = handler.HandleCommand(cmd, l.Stdout())
		_ = options.Stdout.Sync()
		if err != nil {
			return err
		}
	}
}
