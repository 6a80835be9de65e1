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

/*
 * Default consumption values by radio state, of a typical 2.4 GHz 802.15.4 SoC at 3.3V.
 * Consumption in kilowatts, time in microseconds, resulting energy in mJ.
 */
const (
	RadioSleepConsumption float64 = 0.00000011 //kilowatts
	RadioTxConsumption    float64 = 0.00001716 //kilowatts @ i = 5.2 mA
	RadioRxConsumption    float64 = 0.00001485 //kilowatts @ i = 4.5 mA
)

const (
	// ComputePeriod is the interval of network energy snapshots, in microseconds.
	ComputePeriod uint64 = 30000000

	// BatteryAaCapacityMj is the energy of a 2821.5 mAh AA cell at 3V.
	BatteryAaCapacityMj float64 = 2821.5 * 3.6 * 3.0 * 1000.0
)

// Radio time per slot activity, in microseconds.
const (
	frameTimeUs      uint64 = 4256 // 133 bytes PHY frame at 32 us/byte
	ackTimeUs        uint64 = 352  // 11 bytes ACK
	guardTimeUs      uint64 = 2200 // idle listening window when nothing is received
	txAckWaitUs      uint64 = 1000 // listening for the ACK after transmit
	rxAckTurnaroundUs       = 192
)

type RadioState int

const (
	RadioSleep RadioState = iota
	RadioTx
	RadioRx
)

// SlotActivity is what the radio did in one time slot.
type SlotActivity int

const (
	ActivitySleep      SlotActivity = iota // no cell, or cell without action
	ActivityIdleListen                     // RX cell, nothing received
	ActivityTxAck                          // unicast transmit, wait for ACK
	ActivityTxNoAck                        // broadcast transmit
	ActivityRxAck                          // unicast receive, send ACK
	ActivityRxNoAck                        // broadcast receive
)

// RadioStatus accumulates the time spent in each radio state.
type RadioStatus struct {
	SpentSleep uint64
	SpentTx    uint64
	SpentRx    uint64
}

// NetworkConsumption is the average consumption per node over the network, at a point in time.
type NetworkConsumption struct {
	Timestamp       uint64
	EnergyConsSleep float64
	EnergyConsTx    float64
	EnergyConsRx    float64
}

// NodeConsumption is the consumption of a single node, at a point in time.
type NodeConsumption struct {
	NodeId int
	Sleep  float64
	Tx     float64
	Rx     float64
}

func (nc NodeConsumption) Total() float64 {
	return nc.Sleep + nc.Tx + nc.Rx
}
