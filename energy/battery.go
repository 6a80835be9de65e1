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

package energy

import (
	"math"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/types"
)

// Battery models the energy store of a node. Its residual energy fraction is used as a routing metric.
type Battery struct {
	nodeId       types.NodeId
	capacityMj   float64
	initialMj    float64
	mainsPowered bool
	radio        RadioStatus
}

// NewBattery creates a full battery of the given capacity. A mains-powered node always reports full residual
// energy, while its consumption is still accounted.
func NewBattery(nodeId types.NodeId, capacityMj float64, mainsPowered bool) *Battery {
	logger.AssertTrue(capacityMj > 0)
	return &Battery{
		nodeId:       nodeId,
		capacityMj:   capacityMj,
		initialMj:    capacityMj,
		mainsPowered: mainsPowered,
	}
}

func (b *Battery) NodeId() types.NodeId {
	return b.nodeId
}

// ChargeSlot accounts for the radio activity of one slot of duration slotUs.
func (b *Battery) ChargeSlot(activity SlotActivity, slotUs uint64) {
	var tx, rx uint64
	switch activity {
	case ActivitySleep:
	case ActivityIdleListen:
		rx = guardTimeUs
	case ActivityTxAck:
		tx, rx = frameTimeUs, txAckWaitUs
	case ActivityTxNoAck:
		tx = frameTimeUs
	case ActivityRxAck:
		rx, tx = frameTimeUs+rxAckTurnaroundUs, ackTimeUs
	case ActivityRxNoAck:
		rx = frameTimeUs
	default:
		logger.Panicf("unknown slot activity: %v", activity)
	}
	if tx+rx > slotUs {
		tx, rx = slotUs*tx/(tx+rx), slotUs*rx/(tx+rx)
	}
	b.radio.SpentTx += tx
	b.radio.SpentRx += rx
	b.radio.SpentSleep += slotUs - tx - rx
}

// Consumption returns the energy consumed so far per radio state, in mJ.
func (b *Battery) Consumption() NodeConsumption {
	return NodeConsumption{
		NodeId: b.nodeId,
		Sleep:  float64(b.radio.SpentSleep) * RadioSleepConsumption,
		Tx:     float64(b.radio.SpentTx) * RadioTxConsumption,
		Rx:     float64(b.radio.SpentRx) * RadioRxConsumption,
	}
}

// ResidualEnergy returns the remaining energy as a fraction of the capacity, in [0, 1].
func (b *Battery) ResidualEnergy() float64 {
	if b.mainsPowered {
		return 1.0
	}
	left := b.initialMj - b.Consumption().Total()
	return math.Max(0.0, math.Min(1.0, left/b.capacityMj))
}

// SetResidualEnergy sets the remaining energy to a fraction of the capacity, e.g. to model a partly
// depleted battery. Consumption counters are kept.
func (b *Battery) SetResidualEnergy(fraction float64) {
	logger.AssertTrue(fraction >= 0.0 && fraction <= 1.0)
	b.mainsPowered = false
	b.initialMj = fraction*b.capacityMj + b.Consumption().Total()
}

func (b *Battery) IsMainsPowered() bool {
	return b.mainsPowered
}
