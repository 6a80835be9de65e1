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

package visualize_statslog

import (
	"bufio"
	"fmt"
	"os"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/tsch"
	. "github.com/openthread/ot-tsch-sim/types"
	. "github.com/openthread/ot-tsch-sim/visualize"
)

// RFC 4180 header: no spaces around field names.
const csvHeader = "timeSec,nNodes,nAttached,nUnattached,nParentChanges,nDedicatedCells,nNegotiationFailures,nDelivered"

// networkStats is one row of the stats log.
type networkStats struct {
	nodes, attached, unattached int
	parentChanges               int
	dedicatedCells              int
	negotiationFailures         int
	delivered                   int
}

func (s networkStats) row(ts uint64) string {
	return fmt.Sprintf("%12.6f, %3d,%3d,%3d,%3d,%3d,%3d,%3d", float64(ts)/float64(Second), s.nodes, s.attached,
		s.unattached, s.parentChanges, s.dedicatedCells, s.negotiationFailures, s.delivered)
}

type statslogVisualizer struct {
	fileName string
	f        *os.File
	w        *bufio.Writer

	state       map[NodeId]DodagState
	cells       map[NodeId]int // dedicated cells per node
	counters    networkStats   // only the cumulative counters are kept up to date
	dirty       bool
	lastWritten networkStats
	timestampUs uint64
}

// NewStatslogVisualizer creates a Visualizer writing a CSV time series of the network state to
// <outputDir>/<simulationId>_stats.csv. A row is added whenever the state changed during a time step.
func NewStatslogVisualizer(outputDir string, simulationId int) Visualizer {
	return &statslogVisualizer{
		fileName: fmt.Sprintf("%s/%d_stats.csv", outputDir, simulationId),
		state:    map[NodeId]DodagState{},
		cells:    map[NodeId]int{},
		dirty:    true,
	}
}

func (sv *statslogVisualizer) Init() {
	logger.AssertNil(sv.f)
	f, err := os.Create(sv.fileName)
	if err != nil {
		logger.Errorf("creating stats log file %s failed: %+v", sv.fileName, err)
		return
	}
	sv.f, sv.w = f, bufio.NewWriter(f)
	sv.writeLine(csvHeader)
	logger.Debugf("stats log file '%s' created", sv.fileName)
}

func (sv *statslogVisualizer) Stop() {
	sv.writeLine(sv.current().row(sv.timestampUs))
	if sv.f == nil {
		return
	}
	if err := sv.w.Flush(); err != nil {
		logger.Errorf("writing stats log file %s failed: %+v", sv.fileName, err)
	}
	_ = sv.f.Close()
	sv.f, sv.w = nil, nil
}

func (sv *statslogVisualizer) AddNode(nodeid NodeId, isRoot bool) {
	sv.state[nodeid] = Unattached
	sv.dirty = true
}

func (sv *statslogVisualizer) SetParent(NodeId, NodeId) {
	sv.counters.parentChanges++
	sv.dirty = true
}

func (sv *statslogVisualizer) SetRank(NodeId, Rank) {
}

func (sv *statslogVisualizer) SetDodagState(nodeid NodeId, state DodagState) {
	sv.state[nodeid] = state
	sv.dirty = true
}

func (sv *statslogVisualizer) AddCell(nodeid NodeId, cell tsch.Cell) {
	sv.countCell(nodeid, cell, 1)
}

func (sv *statslogVisualizer) RemoveCell(nodeid NodeId, cell tsch.Cell) {
	sv.countCell(nodeid, cell, -1)
}

func (sv *statslogVisualizer) countCell(nodeid NodeId, cell tsch.Cell, delta int) {
	if cell.IsShared() {
		return
	}
	sv.cells[nodeid] += delta
	sv.dirty = true
}

func (sv *statslogVisualizer) OnNegotiationFailed(NegotiationFailure) {
	sv.counters.negotiationFailures++
	sv.dirty = true
}

func (sv *statslogVisualizer) OnDataDelivered(NodeId, uint64, int) {
	sv.counters.delivered++
	sv.dirty = true
}

// AdvanceTime closes the time step that started at the previous timestamp: its final state is logged, stamped
// with the start of the step, if it differs from the last row.
func (sv *statslogVisualizer) AdvanceTime(ts uint64) {
	if sv.dirty {
		if s := sv.current(); s != sv.lastWritten {
			sv.writeLine(s.row(sv.timestampUs))
			sv.lastWritten = s
		}
		sv.dirty = false
	}
	sv.timestampUs = ts
}

func (sv *statslogVisualizer) current() networkStats {
	s := sv.counters
	s.nodes = len(sv.state)
	for _, st := range sv.state {
		if st == Attached {
			s.attached++
		} else {
			s.unattached++
		}
	}
	for _, n := range sv.cells {
		s.dedicatedCells += n
	}
	return s
}

func (sv *statslogVisualizer) writeLine(line string) {
	if sv.w == nil {
		return
	}
	if _, err := sv.w.WriteString(line + "\n"); err != nil {
		logger.Errorf("couldn't write to stats log file (%s), closing it", sv.fileName)
		_ = sv.f.Close()
		sv.f, sv.w = nil, nil
	}
}
