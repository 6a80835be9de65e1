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

package visualize

import (
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
)

// Visualizer receives the structured events of a simulation. Simulation correctness never depends on what
// a Visualizer does with them. All methods are called from the simulation goroutine.
type Visualizer interface {
	Init()
	Stop()

	AddNode(nodeid types.NodeId, isRoot bool)
	SetParent(nodeid types.NodeId, parent types.NodeId)
	SetRank(nodeid types.NodeId, rank types.Rank)
	SetDodagState(nodeid types.NodeId, state types.DodagState)
	AddCell(nodeid types.NodeId, cell tsch.Cell)
	RemoveCell(nodeid types.NodeId, cell tsch.Cell)
	OnNegotiationFailed(failure NegotiationFailure)
	OnDataDelivered(origin types.NodeId, latencyUs uint64, hops int)
	AdvanceTime(ts uint64)
}

// Clock provides the current simulation time in us.
type Clock interface {
	Now() uint64
}

// ClockUser is implemented by visualizers that stamp each event with the exact simulation time, rather
// than the last AdvanceTime value. The simulation sets the clock before the first event.
type ClockUser interface {
	SetClock(clock Clock)
}

// NegotiationFailure reports that a cell negotiation exhausted its retries. It is a soft failure: the node
// stays attached and the cell scheduler retries at its next housekeeping.
type NegotiationFailure struct {
	NodeId    types.NodeId
	Peer      types.NodeId
	Command   packet.SixPCommand
	Attempts  int
	Reason    string
	Timestamp uint64
}
