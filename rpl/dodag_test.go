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

package rpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/radiomodel"
	"github.com/openthread/ot-tsch-sim/types"
)

// sixNodeNetwork builds the reference topology: a chain 0-1-2-3-5 with perfect links and a lossy
// shortcut 0-4-5; nodes 2 and 3 are low on energy.
func sixNodeNetwork(t *testing.T) (*event.Queue, []*testNode) {
	rm := radiomodel.NewFullyMeshed(1.0)
	for _, l := range [][2]types.NodeId{{0, 5}, {1, 5}, {2, 5}, {0, 2}, {0, 3}, {1, 4}, {2, 4}, {3, 4}} {
		rm.SetPdrBothDirections(l[0], l[1], radiomodel.AllChannels, 0)
	}
	rm.SetPdrBothDirections(0, 4, radiomodel.AllChannels, 0.75)
	rm.SetPdrBothDirections(4, 5, radiomodel.AllChannels, 0.75)

	energy := []float64{1.0, 1.0, 0.4, 0.15, 1.0, 1.0}
	q := event.NewQueue()
	nodes := make([]*testNode, 6)
	for id := range nodes {
		nodes[id] = newTestNode(id, q, rm, OfNameWeightedParameters, scenarioWeights, energy[id])
	}
	require.Equal(t, types.Attached, nodes[0].dodag.State())
	return q, nodes
}

func TestWeightedParametersScenario(t *testing.T) {
	_, n := sixNodeNetwork(t)

	advertise(n[0], n[1], n[4])
	assert.Equal(t, 0, n[1].dodag.Parent())
	assert.Equal(t, types.Rank(512), n[1].dodag.Rank())
	assert.Equal(t, 0, n[4].dodag.Parent())
	assert.Equal(t, types.Rank(580), n[4].dodag.Rank())

	advertise(n[1], n[2])
	assert.Equal(t, 1, n[2].dodag.Parent())
	assert.Equal(t, types.Rank(771), n[2].dodag.Rank())

	advertise(n[2], n[3])
	assert.Equal(t, 2, n[3].dodag.Parent())
	assert.Equal(t, types.Rank(1125), n[3].dodag.Rank())
	assert.Equal(t, 3, n[3].dodag.HopCount())

	advertise(n[3], n[5])
	assert.Equal(t, 3, n[5].dodag.Parent())
	assert.Equal(t, types.Rank(1521), n[5].dodag.Rank())

	// 1521 - 907 = 614 exceeds the switch threshold
	advertise(n[4], n[5])
	assert.Equal(t, 4, n[5].dodag.Parent())
	assert.Equal(t, types.Rank(907), n[5].dodag.Rank())
	assert.Equal(t, [][2]types.NodeId{{types.InvalidNodeId, 3}, {3, 4}}, n[5].parents.changes)
	assert.Equal(t, 2, n[5].dodag.Stats().ParentChanges)
	assert.Equal(t, []types.NodeId{3, 4}, n[5].dodag.CandidateIds())

	for _, node := range n[1:] {
		assert.Equal(t, types.Attached, node.dodag.State())
	}
}

func TestDodagDaoRoutes(t *testing.T) {
	_, n := sixNodeNetwork(t)
	advertise(n[0], n[1], n[4])
	advertise(n[1], n[2])
	advertise(n[4], n[5])

	// attaching sends a DAO to the new parent
	for _, id := range []types.NodeId{2, 5} {
		sent := n[id].radio.take()
		require.Len(t, sent, 1)
		assert.Equal(t, packet.TypeDao, sent[0].Type)
		assert.Equal(t, n[id].dodag.Parent(), sent[0].Dst)
		assert.Equal(t, id, sent[0].Dao.Source)
	}

	// a non-root node forwards to its parent
	dao, ok := n[2].dodag.BuildDao()
	require.True(t, ok)
	n[1].radio.take()
	n[1].dodag.OnReceiveDao(dao)
	fwd := n[1].radio.take()
	require.Len(t, fwd, 1)
	assert.Equal(t, 0, fwd[0].Dst)
	assert.Equal(t, 1, fwd[0].Src)
	assert.Equal(t, 2, fwd[0].Dao.Source)

	for _, id := range []types.NodeId{1, 2, 4, 5} {
		dao, ok := n[id].dodag.BuildDao()
		require.True(t, ok)
		n[0].dodag.OnReceiveDao(dao)
	}
	_, ok = n[0].dodag.BuildDao()
	assert.False(t, ok)

	assert.Equal(t, map[types.NodeId]types.NodeId{1: 0, 2: 1, 4: 0, 5: 4}, n[0].dodag.Routes())
	path, ok := n[0].dodag.RouteTo(5)
	assert.True(t, ok)
	assert.Equal(t, []types.NodeId{0, 4, 5}, path)
	path, ok = n[0].dodag.RouteTo(2)
	assert.True(t, ok)
	assert.Equal(t, []types.NodeId{0, 1, 2}, path)
	_, ok = n[0].dodag.RouteTo(3)
	assert.False(t, ok)

	// DAOs of another DODAG are ignored
	n[0].dodag.OnReceiveDao(&packet.Dao{Source: 3, Parent: 2, DodagId: 9})
	_, ok = n[0].dodag.RouteTo(3)
	assert.False(t, ok)
}

func TestDodagDetachOnPoison(t *testing.T) {
	_, n := sixNodeNetwork(t)
	advertise(n[0], n[1], n[4])
	advertise(n[1], n[2])
	advertise(n[2], n[3])
	advertise(n[3], n[5])
	advertise(n[4], n[5])
	n[5].radio.take()
	n[5].parents.changes = nil

	n[5].dodag.OnReceiveDio(&packet.Dio{Source: 4, Rank: types.InfiniteRank, DodagId: 0})

	// 3 advertised a rank above the last rank of 5, so it is not a valid alternative
	assert.Equal(t, types.Unattached, n[5].dodag.State())
	assert.Equal(t, types.InvalidNodeId, n[5].dodag.Parent())
	assert.Equal(t, types.InfiniteRank, n[5].dodag.Rank())
	assert.Empty(t, n[5].dodag.CandidateIds())
	assert.Equal(t, [][2]types.NodeId{{4, types.InvalidNodeId}}, n[5].parents.changes)
	assert.Equal(t, 1, n[5].dodag.Stats().Detaches)

	sent := n[5].radio.take()
	require.Len(t, sent, 1)
	assert.Equal(t, packet.TypeDio, sent[0].Type)
	assert.True(t, sent[0].IsBroadcast())
	assert.True(t, sent[0].Dio.IsPoisoning())

	_, ok := n[5].dodag.BuildDio()
	assert.False(t, ok)
	_, ok = n[5].dodag.BuildDao()
	assert.False(t, ok)

	// a fresh advertisement re-attaches
	advertise(n[4], n[5])
	assert.Equal(t, types.Attached, n[5].dodag.State())
	assert.Equal(t, 4, n[5].dodag.Parent())
}

func TestDodagIgnoresOtherDodag(t *testing.T) {
	_, n := sixNodeNetwork(t)
	n[1].dodag.OnReceiveDio(&packet.Dio{Source: 0, Rank: types.RootRank, DodagId: 7})
	assert.Equal(t, types.Unattached, n[1].dodag.State())
	assert.Empty(t, n[1].dodag.CandidateIds())

	// the root never selects a parent
	advertise(n[0], n[1])
	advertise(n[1], n[0])
	assert.Equal(t, types.InvalidNodeId, n[0].dodag.Parent())
	assert.Equal(t, types.RootRank, n[0].dodag.Rank())
	assert.Equal(t, 0, n[0].dodag.HopCount())
}

func TestDodagCandidateExpiry(t *testing.T) {
	q, n := sixNodeNetwork(t)
	advertise(n[0], n[1])
	require.Equal(t, types.Attached, n[1].dodag.State())

	// DIOs are captured, not delivered: the only candidate of 1 goes stale
	cfg := DefaultDodagConfig()
	q.RunUntil(cfg.CandidateLifetime - 1)
	assert.Equal(t, types.Attached, n[1].dodag.State())
	assert.True(t, n[1].dodag.Stats().DaosSent > 1)

	q.RunUntil(cfg.CandidateLifetime)
	assert.Equal(t, types.Unattached, n[1].dodag.State())
	assert.Empty(t, n[1].dodag.CandidateIds())
	assert.Equal(t, [][2]types.NodeId{{types.InvalidNodeId, 0}, {0, types.InvalidNodeId}}, n[1].parents.changes)

	// the root kept advertising
	assert.True(t, n[0].dodag.Stats().DiosSent > 0)
	for _, p := range n[0].radio.take() {
		assert.Equal(t, packet.TypeDio, p.Type)
		assert.Equal(t, types.RootRank, p.Dio.Rank)
	}

	for _, node := range n {
		node.dodag.Stop()
	}
	assert.Equal(t, 0, q.Len())
}
