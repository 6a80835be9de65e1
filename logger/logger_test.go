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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedClock uint64

func (c fixedClock) Now() uint64 {
	return uint64(c)
}

func TestParseLevelString(t *testing.T) {
	for _, s := range []string{"trace", "debug", "info", "note", "warn", "crit", "off"} {
		lv, err := ParseLevelString(s)
		assert.Nil(t, err)
		assert.Equal(t, s, GetLevelString(lv))
	}
	lv, err := ParseLevelString("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lv)

	lv, err = ParseLevelString("loud")
	assert.NotNil(t, err)
	assert.Equal(t, DefaultLevel, lv)
}

func TestAssertPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		AssertTrue(true)
		AssertEqual(1, 1)
	})
	assert.Panics(t, func() {
		AssertTrue(false, "must be true")
	})
	assert.Panics(t, func() {
		AssertEqual(1, 2)
	})
}

func TestNodeLoggerFile(t *testing.T) {
	dir := t.TempDir()
	nl := NewNodeLogger(3, fixedClock(120000), dir)
	assert.True(t, nl.IsFileEnabled())
	nl.SetFileLevel(DebugLevel)
	nl.Debugf("selected parent %d", 2)
	nl.Tracef("not saved")
	nl.Close()
	assert.False(t, nl.IsFileEnabled())

	data, err := os.ReadFile(filepath.Join(dir, "node_3.log"))
	assert.Nil(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "Node<3>"))
	assert.True(t, strings.Contains(content, "[D] selected parent 2"))
	assert.True(t, strings.Contains(content, "120000"))
	assert.False(t, strings.Contains(content, "not saved"))
}

func TestNodeLoggerNoFile(t *testing.T) {
	nl := NewNodeLogger(1, nil, "")
	assert.False(t, nl.IsFileEnabled())
	assert.NotPanics(t, func() {
		nl.Infof("hello")
		nl.Error(nil)
	})
	assert.Panics(t, func() {
		nl.Panicf("fatal condition")
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "crit", ErrorLevel.String())
	assert.Equal(t, "unknown", Level(42).String())
	assert.Equal(t, "[W]", levelTag(WarnLevel))
	assert.Equal(t, "[C]", levelTag(PanicLevel))

	lv, err := ParseLevelString("DEF")
	assert.Nil(t, err)
	assert.Equal(t, DefaultLevel, lv)
	_, err = ParseLevelString("panic")
	assert.NotNil(t, err)
}
