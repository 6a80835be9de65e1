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
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/types"
)

// EnergyAnalyser keeps the batteries of all nodes and a history of network consumption.
type EnergyAnalyser struct {
	nodes                map[types.NodeId]*Battery
	networkHistory       []NetworkConsumption
	energyHistoryByNodes [][]NodeConsumption
	title                string
}

func NewEnergyAnalyser() *EnergyAnalyser {
	return &EnergyAnalyser{
		nodes:                make(map[types.NodeId]*Battery),
		networkHistory:       make([]NetworkConsumption, 0, 3600), // 1 sample every 30s for 30 hours
		energyHistoryByNodes: make([][]NodeConsumption, 0, 3600),
	}
}

func (e *EnergyAnalyser) AddNode(b *Battery) {
	if _, ok := e.nodes[b.NodeId()]; ok {
		return
	}
	e.nodes[b.NodeId()] = b
}

func (e *EnergyAnalyser) GetNode(nodeId types.NodeId) *Battery {
	return e.nodes[nodeId]
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

// GetLatestEnergyOfNodes returns the last snapshot, in ascending node id order.
func (e *EnergyAnalyser) GetLatestEnergyOfNodes() []NodeConsumption {
	if len(e.energyHistoryByNodes) == 0 {
		return nil
	}
	return e.energyHistoryByNodes[len(e.energyHistoryByNodes)-1]
}

func (e *EnergyAnalyser) sortedNodeIds() []types.NodeId {
	ids := make([]types.NodeId, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// StoreNetworkEnergy takes a snapshot of the consumption of all nodes.
func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) {
	nodesEnergySnapshot := make([]NodeConsumption, 0, len(e.nodes))
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
	}

	netSize := float64(len(e.nodes))
	for _, id := range e.sortedNodeIds() {
		c := e.nodes[id].Consumption()
		networkSnapshot.EnergyConsSleep += c.Sleep / netSize
		networkSnapshot.EnergyConsTx += c.Tx / netSize
		networkSnapshot.EnergyConsRx += c.Rx / netSize
		nodesEnergySnapshot = append(nodesEnergySnapshot, c)
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByNodes = append(e.energyHistoryByNodes, nodesEnergySnapshot)
}

// SaveEnergyDataToFile writes the per-node and network energy history into dir.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, timestamp uint64) error {
	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "failed to create energy output dir %s", dir)
	}

	path := filepath.Join(dir, name)
	fileNodes, err := os.Create(path + "_nodes.txt")
	if err != nil {
		return errors.Wrap(err, "error creating file")
	}
	defer fileNodes.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return errors.Wrap(err, "error creating file")
	}
	defer fileNetwork.Close()

	e.writeEnergyByNodes(fileNodes, timestamp)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	logger.Debugf("energy data saved to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByNodes(fileNodes *os.File, timestamp uint64) {
	_, _ = fmt.Fprintf(fileNodes, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	_, _ = fmt.Fprintf(fileNodes, "ID\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\tResidual\n")

	for _, id := range e.sortedNodeIds() {
		b := e.nodes[id]
		c := b.Consumption()
		_, _ = fmt.Fprintf(fileNodes, "%d\t%f\t%f\t%f\t%.4f\n", id, c.Sleep, c.Tx, c.Rx, b.ResidualEnergy())
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(fileNetwork *os.File, timestamp uint64) {
	_, _ = fmt.Fprintf(fileNetwork, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	_, _ = fmt.Fprintf(fileNetwork, "Time (ms)\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, snapshot := range e.networkHistory {
		_, _ = fmt.Fprintf(fileNetwork, "%d\t%f\t%f\t%f\n",
			snapshot.Timestamp/1000,
			snapshot.EnergyConsSleep,
			snapshot.EnergyConsTx,
			snapshot.EnergyConsRx,
		)
	}
}

func (e *EnergyAnalyser) SetTitle(title string) {
	e.title = title
}
