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

package logger

import (
	"strings"

	"github.com/pkg/errors"
)

type levelName struct {
	name    string
	tag     string
	aliases []string
}

var levelNames = map[Level]levelName{
	TraceLevel: {"trace", "[T]", []string{"t"}},
	DebugLevel: {"debug", "[D]", []string{"d"}},
	InfoLevel:  {"info", "[I]", []string{"i"}},
	NoteLevel:  {"note", "[N]", []string{"n"}},
	WarnLevel:  {"warn", "[W]", []string{"warning", "w"}},
	ErrorLevel: {"crit", "[C]", []string{"critical", "error", "err", "c", "e"}},
	PanicLevel: {"panic", "[C]", nil},
	FatalLevel: {"fatal", "[C]", nil},
	OffLevel:   {"off", "", []string{"none"}},
}

var levelsByName = func() map[string]Level {
	m := map[string]Level{"default": DefaultLevel, "def": DefaultLevel}
	for lv, n := range levelNames {
		if lv == PanicLevel || lv == FatalLevel {
			continue
		}
		m[n.name] = lv
		for _, a := range n.aliases {
			m[a] = lv
		}
	}
	return m
}()

// ParseLevelString parses a level name or one of its aliases, case-insensitive. On error DefaultLevel is
// returned.
func ParseLevelString(level string) (Level, error) {
	if lv, ok := levelsByName[strings.ToLower(level)]; ok {
		return lv, nil
	}
	return DefaultLevel, errors.Errorf("invalid log level string: %s", level)
}

func GetLevelString(level Level) string {
	n, ok := levelNames[level]
	if !ok {
		Panicf("unknown level: %d", level)
	}
	return n.name
}

func (level Level) String() string {
	if n, ok := levelNames[level]; ok {
		return n.name
	}
	return "unknown"
}

// levelTag is the 3-letter tag used in node log files.
func levelTag(level Level) string {
	if n, ok := levelNames[level]; ok && n.tag != "" {
		return n.tag
	}
	return "[C]"
}
