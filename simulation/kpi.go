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

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openthread/ot-tsch-sim/logger"
	. "github.com/openthread/ot-tsch-sim/types"
)

type KpiManager struct {
	sim             *Simulation
	data            *Kpi
	startCounters   NodeCountersStore
	curCounters     NodeCountersStore
	startRadioStats RadioStats
	isRunning       bool
}

type NodeCountersStore map[NodeId]NodeCounters

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager() *KpiManager {
	km := &KpiManager{}
	return km
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok"}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

// Start begins a KPI period at the current time. Counters are reported relative to this point.
func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.startCounters = km.retrieveNodeCounters()
	km.startRadioStats = km.sim.RadioStats()
	km.data.TimeUs.StartTimeUs = km.sim.Now()
	km.isRunning = true
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.isRunning = false
		km.calculateKpis()
		km.SaveDefaultFile()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs, brought up to date if the period is still running.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.calculateKpis()
	}
	return km.data
}

func (km *KpiManager) SaveDefaultFile() {
	if km.sim.cfg.OutputDir == "" {
		return
	}
	km.SaveFile(km.getDefaultSaveFileName())
}

func (km *KpiManager) SaveFile(fn string) {
	logger.AssertNotNil(km.sim)
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	json, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		logger.Fatalf("Could not marshal KPI JSON data: %v", err)
		return
	}

	err = os.WriteFile(fn, json, 0644)
	if err != nil {
		logger.Errorf("Could not write KPI JSON file %s: %v", fn, err)
		return
	}
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	nodes := km.sim.GetNodes()
	nodesMap := make(NodeCountersStore, len(nodes))
	for _, nid := range nodes {
		nodesMap[nid] = getMoteCounters(km.sim.GetMote(nid))
	}
	return nodesMap
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		ret[k] = v - startCtr[k]
	}
	return ret
}

func diffRadioStats(cur, start RadioStats) RadioStats {
	return RadioStats{
		ControlSent:      cur.ControlSent - start.ControlSent,
		ControlDelivered: cur.ControlDelivered - start.ControlDelivered,
		ControlLost:      cur.ControlLost - start.ControlLost,
		DataSent:         cur.DataSent - start.DataSent,
		DataDelivered:    cur.DataDelivered - start.DataDelivered,
		DataLost:         cur.DataLost - start.DataLost,
		DataNoRxCell:     cur.DataNoRxCell - start.DataNoRxCell,
	}
}

func (km *KpiManager) calculateKpis() {
	// time
	km.data.TimeUs.EndTimeUs = km.sim.Now()
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / 1e6
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / 1e6
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / 1e6

	km.data.Radio = diffRadioStats(km.sim.RadioStats(), km.startRadioStats)

	// nodes
	km.data.Nodes = make(map[NodeId]KpiNode)
	km.data.Counters = make(map[NodeId]NodeCounters)
	network := KpiNetwork{}
	var latencySumUs uint64
	for nid, ctr := range km.curCounters {
		m := km.sim.GetMote(nid)
		counters := getCountersDiff(ctr, km.startCounters[nid])
		km.data.Counters[nid] = counters

		tx, rx := countDedicatedCells(m.Schedule)
		battery := m.Battery
		node := KpiNode{
			Attached:            m.Dodag.State() == Attached,
			Rank:                int(m.Dodag.Rank()),
			Parent:              m.Dodag.Parent(),
			HopCount:            m.Dodag.HopCount(),
			TxCells:             tx,
			RxCells:             rx,
			ParentChanges:       counters["rpl.ParentChanges"],
			NegotiationFailures: counters["msf.NegotiationFailures"],
			DataGenerated:       counters["data.Generated"],
			DataDelivered:       counters["data.Delivered"],
			DataDropped:         counters["data.Dropped"] + counters["data.QueueOverflows"],
			EnergyConsumedMj:    battery.Consumption().Total(),
			ResidualEnergy:      battery.ResidualEnergy(),
		}
		km.data.Nodes[nid] = node
		if node.Attached {
			network.Attached++
		}
		network.DataGenerated += node.DataGenerated
		network.DataDelivered += node.DataDelivered
		latencySumUs += counters["data.LatencySumUs"]
	}
	if network.DataGenerated > 0 {
		network.Pdr = float64(network.DataDelivered) / float64(network.DataGenerated)
	}
	if network.DataDelivered > 0 {
		network.AvgLatencyMs = float64(latencySumUs) / float64(network.DataDelivered) / 1e3
	}
	network.Audit = "ok"
	if err := km.sim.AuditDodag(); err != nil {
		network.Audit = err.Error()
		km.data.Status = "DODAG audit failed"
	}
	km.data.Network = network
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return fmt.Sprintf("%s/%d_kpi.json", km.sim.cfg.OutputDir, km.sim.cfg.Id)
}
