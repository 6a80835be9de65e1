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

package visualize_metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openthread/ot-tsch-sim/tsch"
	. "github.com/openthread/ot-tsch-sim/types"
	. "github.com/openthread/ot-tsch-sim/visualize"
)

type metricsVisualizer struct {
	parentChanges       prometheus.Counter
	cellsAllocated      prometheus.Counter
	cellsDeallocated    prometheus.Counter
	negotiationFailures prometheus.Counter
	dataDelivered       prometheus.Counter
	attachedNodes       prometheus.Gauge
	nodeRank            *prometheus.GaugeVec
	dedicatedCells      *prometheus.GaugeVec
	simTime             prometheus.Gauge

	states map[NodeId]DodagState
}

// NewMetricsVisualizer creates a Visualizer that exports network metrics on reg. It returns an error if
// the metrics are already registered there.
func NewMetricsVisualizer(reg prometheus.Registerer) (Visualizer, error) {
	mv := &metricsVisualizer{
		parentChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsch_parent_changes_total",
			Help: "Number of preferred parent changes over all nodes.",
		}),
		cellsAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsch_cells_allocated_total",
			Help: "Number of dedicated cells installed over all nodes.",
		}),
		cellsDeallocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsch_cells_deallocated_total",
			Help: "Number of dedicated cells removed over all nodes.",
		}),
		negotiationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsch_negotiation_failures_total",
			Help: "Number of 6P transactions that exhausted their retries.",
		}),
		dataDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsch_data_delivered_total",
			Help: "Number of data packets delivered to the root.",
		}),
		attachedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpl_attached_nodes",
			Help: "Number of nodes attached to the DODAG.",
		}),
		nodeRank: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rpl_node_rank",
			Help: "Current rank of a node.",
		}, []string{"node"}),
		dedicatedCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tsch_dedicated_cells",
			Help: "Number of dedicated cells installed in a node.",
		}, []string{"node"}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tsch_simulation_time_seconds",
			Help: "Current simulated time.",
		}),
		states: make(map[NodeId]DodagState),
	}

	for _, c := range []prometheus.Collector{mv.parentChanges, mv.cellsAllocated, mv.cellsDeallocated,
		mv.negotiationFailures, mv.dataDelivered, mv.attachedNodes, mv.nodeRank, mv.dedicatedCells, mv.simTime} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return mv, nil
}

func (mv *metricsVisualizer) Init() {
}

func (mv *metricsVisualizer) Stop() {
}

func (mv *metricsVisualizer) AddNode(nodeid NodeId, isRoot bool) {
	mv.states[nodeid] = Unattached
	mv.dedicatedCells.WithLabelValues(nodeLabel(nodeid)).Set(0)
}

func (mv *metricsVisualizer) SetParent(NodeId, NodeId) {
	mv.parentChanges.Inc()
}

func (mv *metricsVisualizer) SetRank(nodeid NodeId, rank Rank) {
	if rank == InfiniteRank {
		mv.nodeRank.DeleteLabelValues(nodeLabel(nodeid))
		return
	}
	mv.nodeRank.WithLabelValues(nodeLabel(nodeid)).Set(float64(rank))
}

func (mv *metricsVisualizer) SetDodagState(nodeid NodeId, state DodagState) {
	mv.states[nodeid] = state
	n := 0
	for _, s := range mv.states {
		if s == Attached {
			n++
		}
	}
	mv.attachedNodes.Set(float64(n))
}

func (mv *metricsVisualizer) AddCell(nodeid NodeId, cell tsch.Cell) {
	if cell.IsShared() {
		return
	}
	mv.cellsAllocated.Inc()
	mv.dedicatedCells.WithLabelValues(nodeLabel(nodeid)).Inc()
}

func (mv *metricsVisualizer) RemoveCell(nodeid NodeId, cell tsch.Cell) {
	if cell.IsShared() {
		return
	}
	mv.cellsDeallocated.Inc()
	mv.dedicatedCells.WithLabelValues(nodeLabel(nodeid)).Dec()
}

func (mv *metricsVisualizer) OnNegotiationFailed(NegotiationFailure) {
	mv.negotiationFailures.Inc()
}

func (mv *metricsVisualizer) OnDataDelivered(NodeId, uint64, int) {
	mv.dataDelivered.Inc()
}

func (mv *metricsVisualizer) AdvanceTime(ts uint64) {
	mv.simTime.Set(float64(ts) / float64(Second))
}

func nodeLabel(nodeid NodeId) string {
	return strconv.Itoa(nodeid)
}
