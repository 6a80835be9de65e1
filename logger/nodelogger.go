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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openthread/ot-tsch-sim/types"
)

// Clock provides the current simulation time in us.
type Clock interface {
	Now() uint64
}

// NodeLogger is a node-specific log object. Levels and output file can be set per individual node.
type NodeLogger struct {
	Id           types.NodeId
	fileLevel    Level
	displayLevel Level
	clock        Clock

	logFile       *os.File
	logFileName   string
	isFileEnabled bool
}

// NewNodeLogger creates the NodeLogger for a node. If outputDir is non-empty, a per-node log file
// is created in it.
func NewNodeLogger(id types.NodeId, clock Clock, outputDir string) *NodeLogger {
	nl := &NodeLogger{
		Id:           id,
		fileLevel:    InfoLevel,
		displayLevel: ErrorLevel,
		clock:        clock,
	}
	if outputDir != "" {
		nl.logFileName = getLogFileName(outputDir, id)
		nl.isFileEnabled = true
		nl.createLogFile()
	}
	return nl
}

func getLogFileName(outputPath string, nodeId types.NodeId) string {
	return filepath.Join(outputPath, fmt.Sprintf("node_%d.log", nodeId))
}

func (nl *NodeLogger) createLogFile() {
	var err error
	nl.logFile, err = os.OpenFile(nl.logFileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0664)
	if err != nil {
		nl.isFileEnabled = false
		nl.Errorf("creating node log file %s failed: %+v", nl.logFileName, err)
		return
	}

	header := fmt.Sprintf("#\n# TSCH node log for %s Created %s\n", types.GetNodeName(nl.Id),
		time.Now().Format(time.RFC3339)) +
		"# SimTimeUs  Lev Message"
	_ = nl.writeToLogFile(header)
	nl.Debugf("Node log file '%s' created.", nl.logFileName)
}

func (nl *NodeLogger) SetFileLevel(level Level) {
	nl.fileLevel = level
}

func (nl *NodeLogger) SetDisplayLevel(level Level) {
	nl.displayLevel = level
}

func (nl *NodeLogger) DisplayLevel() Level {
	return nl.displayLevel
}

func (nl *NodeLogger) now() uint64 {
	if nl.clock == nil {
		return 0
	}
	return nl.clock.Now()
}

// Logf logs a formatted message for the node. Whatever is displayed (watch) is also written to the
// node log file, if enabled.
func (nl *NodeLogger) Logf(level Level, format string, args []interface{}) {
	isSaveEntry := nl.isFileEnabled && nl.fileLevel >= level
	isDisplayEntry := nl.displayLevel >= level
	if !isSaveEntry && !isDisplayEntry && level > PanicLevel {
		return
	}
	logStr := fmt.Sprintf("%11d %s", nl.now(), getMessage(format, args))
	if isSaveEntry || (isDisplayEntry && nl.isFileEnabled) {
		_ = nl.writeToLogFile(fmt.Sprintf("%-12s%s", logStr[:12], levelTag(level)+" "+logStr[12:]))
	}
	if isDisplayEntry || level <= PanicLevel {
		logAlways(level, types.GetNodeName(nl.Id)+logStr)
	}
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.Logf(TraceLevel, format, args)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.Logf(DebugLevel, format, args)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.Logf(InfoLevel, format, args)
}

func (nl *NodeLogger) Notef(format string, args ...interface{}) {
	nl.Logf(NoteLevel, format, args)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.Logf(WarnLevel, format, args)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.Logf(ErrorLevel, format, args)
}

func (nl *NodeLogger) Error(err error) {
	if err == nil {
		return
	}
	nl.Logf(ErrorLevel, "%v", []interface{}{err})
}

func (nl *NodeLogger) Panicf(format string, args ...interface{}) {
	nl.Logf(PanicLevel, format, args)
}

func (nl *NodeLogger) writeToLogFile(line string) error {
	if nl.logFile == nil {
		return nil
	}
	_, err := nl.logFile.WriteString(line + "\n")
	if err != nil {
		nl.Close()
		Errorf("couldn't write to node log file (%s), closing it", nl.logFileName)
	}
	return err
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (nl *NodeLogger) IsFileEnabled() bool {
	return nl.isFileEnabled
}

// Close closes the node log file.
func (nl *NodeLogger) Close() {
	nl.isFileEnabled = false
	if nl.logFile != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
	}
}
