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

package visualize_multi

import (
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

type MultiVisualizer struct {
	vs []visualize.Visualizer
}

// NewMultiVisualizer creates a new Visualizer that multiplexes to multiple Visualizers.
func NewMultiVisualizer(vs ...visualize.Visualizer) *MultiVisualizer {
	return &MultiVisualizer{vs: vs}
}

func (mv *MultiVisualizer) AddVisualizer(vs ...visualize.Visualizer) {
	mv.vs = append(mv.vs, vs...)
}

func (mv *MultiVisualizer) Len() int {
	return len(mv.vs)
}

// SetClock passes the clock on to the visualizers that use one.
func (mv *MultiVisualizer) SetClock(clock visualize.Clock) {
	for _, v := range mv.vs {
		if cu, ok := v.(visualize.ClockUser); ok {
			cu.SetClock(clock)
		}
	}
}

func (mv *MultiVisualizer) Init() {
	for _, v := range mv.vs {
		v.Init()
	}
}

func (mv *MultiVisualizer) Stop() {
	for _, v := range mv.vs {
		v.Stop()
	}
}

func (mv *MultiVisualizer) AddNode(nodeid types.NodeId, isRoot bool) {
	for _, v := range mv.vs {
		v.AddNode(nodeid, isRoot)
	}
}

func (mv *MultiVisualizer) SetParent(nodeid types.NodeId, parent types.NodeId) {
	for _, v := range mv.vs {
		v.SetParent(nodeid, parent)
	}
}

func (mv *MultiVisualizer) SetRank(nodeid types.NodeId, rank types.Rank) {
	for _, v := range mv.vs {
		v.SetRank(nodeid, rank)
	}
}

func (mv *MultiVisualizer) SetDodagState(nodeid types.NodeId, state types.DodagState) {
	for _, v := range mv.vs {
		v.SetDodagState(nodeid, state)
	}
}

func (mv *MultiVisualizer) AddCell(nodeid types.NodeId, cell tsch.Cell) {
	for _, v := range mv.vs {
		v.AddCell(nodeid, cell)
	}
}

func (mv *MultiVisualizer) RemoveCell(nodeid types.NodeId, cell tsch.Cell) {
	for _, v := range mv.vs {
		v.RemoveCell(nodeid, cell)
	}
}

func (mv *MultiVisualizer) OnNegotiationFailed(failure visualize.NegotiationFailure) {
	for _, v := range mv.vs {
		v.OnNegotiationFailed(failure)
	}
}

func (mv *MultiVisualizer) OnDataDelivered(origin types.NodeId, latencyUs uint64, hops int) {
	for _, v := range mv.vs {
		v.OnDataDelivered(origin, latencyUs, hops)
	}
}

func (mv *MultiVisualizer) AdvanceTime(ts uint64) {
	for _, v := range mv.vs {
		v.AdvanceTime(ts)
	}
}
