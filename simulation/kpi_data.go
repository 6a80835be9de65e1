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

package simulation

import . "github.com/openthread/ot-tsch-sim/types"

type KpiTimeUs struct {
	StartTimeUs uint64 `json:"start"`
	EndTimeUs   uint64 `json:"end"`
	PeriodUs    uint64 `json:"duration"`
}

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start"`
	EndTimeSec   float64 `json:"end"`
	PeriodSec    float64 `json:"duration"`
}

type KpiNode struct {
	Attached            bool    `json:"attached"`
	Rank                int     `json:"rank"`
	Parent              NodeId  `json:"parent"`
	HopCount            int     `json:"hop_count"`
	TxCells             int     `json:"tx_cells"`
	RxCells             int     `json:"rx_cells"`
	ParentChanges       uint64  `json:"parent_changes"`
	NegotiationFailures uint64  `json:"negotiation_failures"`
	DataGenerated       uint64  `json:"data_generated"`
	DataDelivered       uint64  `json:"data_delivered"`
	DataDropped         uint64  `json:"data_dropped"`
	EnergyConsumedMj    float64 `json:"energy_mj"`
	ResidualEnergy      float64 `json:"residual_energy"`
}

type KpiNetwork struct {
	Attached      int     `json:"attached"`
	DataGenerated uint64  `json:"data_generated"`
	DataDelivered uint64  `json:"data_delivered"`
	Pdr           float64 `json:"pdr"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	Audit         string  `json:"dodag_audit"`
}

type Kpi struct {
	FileTime string                  `json:"created"`
	Status   string                  `json:"status"`
	TimeUs   KpiTimeUs               `json:"time_us"`
	TimeSec  KpiTimeSec              `json:"time_sec"`
	Network  KpiNetwork              `json:"network"`
	Radio    RadioStats              `json:"radio"`
	Nodes    map[NodeId]KpiNode      `json:"nodes"`
	Counters map[NodeId]NodeCounters `json:"counters"`
}
