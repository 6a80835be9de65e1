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

package sf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

const handle = types.SlotframeHandleNegotiated

type recordingVis struct {
	visualize.Visualizer
	failures []visualize.NegotiationFailure
	added    int
	removed  int
}

func (v *recordingVis) AddCell(types.NodeId, tsch.Cell) {
	v.added++
}

func (v *recordingVis) RemoveCell(types.NodeId, tsch.Cell) {
	v.removed++
}

func (v *recordingVis) OnNegotiationFailed(f visualize.NegotiationFailure) {
	v.failures = append(v.failures, f)
}

// network delivers 6P messages between schedulers one slot after sending, unless drop says otherwise.
type network struct {
	q     *event.Queue
	nodes map[types.NodeId]*Msf
	vis   map[types.NodeId]*recordingVis
	drop  func(p *packet.Packet) bool
	sent  []*packet.Packet
}

func newNetwork() *network {
	return &network{
		q:     event.NewQueue(),
		nodes: map[types.NodeId]*Msf{},
		vis:   map[types.NodeId]*recordingVis{},
	}
}

func (n *network) Send(p *packet.Packet) {
	n.sent = append(n.sent, p)
	n.q.ScheduleAfter(types.DefaultSlotDurationUs, p.Src, "deliver", func() {
		if n.drop != nil && n.drop(p) {
			return
		}
		if dst := n.nodes[p.Dst]; dst != nil {
			dst.OnReceiveSixP(p.SixP)
		}
	})
}

func (n *network) SendData(*packet.Packet, types.ChannelId) bool {
	return false
}

func newTestSchedule(id types.NodeId) *tsch.Schedule {
	s := tsch.NewSchedule(id)
	s.AddSlotframe(types.SlotframeHandleMinimal, types.DefaultSlotframeLength)
	s.InstallMinimalCell(types.SlotframeHandleMinimal)
	s.AddSlotframe(handle, types.DefaultSlotframeLength)
	return s
}

func (n *network) add(id types.NodeId, isRoot bool) *Msf {
	vis := &recordingVis{Visualizer: visualize.NewNopVisualizer()}
	m := NewMsf(id, isRoot, DefaultConfig(), newTestSchedule(id), n.q, n, rand.New(rand.NewSource(int64(id)+1)),
		vis, logger.NewNodeLogger(id, n.q, ""))
	n.nodes[id] = m
	n.vis[id] = vis
	return m
}

func (n *network) run(d uint64) {
	n.q.RunUntil(n.q.Now() + d)
}

func (n *network) checkNoCollision(t *testing.T) {
	for id, m := range n.nodes {
		assert.True(t, m.sched.CheckNoCollision(), "node %d", id)
	}
}

func TestAttachNegotiatesTxAndRxCells(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	child := net.add(1, false)

	child.OnParentChanged(types.InvalidNodeId, 0)
	assert.True(t, child.IsNegotiating())
	net.run(types.Second)
	assert.False(t, child.IsNegotiating())
	assert.Equal(t, 0, child.Parent())

	tx := child.sched.GetTxCells(0, handle)
	rx := child.sched.GetRxCells(0, handle)
	require.Len(t, tx, 1)
	require.Len(t, rx, 1)
	assert.NotEqual(t, 0, tx[0].SlotOffset)

	// the parent holds the mirrored cells
	prx := root.sched.GetRxCells(1, handle)
	ptx := root.sched.GetTxCells(1, handle)
	require.Len(t, prx, 1)
	require.Len(t, ptx, 1)
	assert.Equal(t, tx[0].SlotOffset, prx[0].SlotOffset)
	assert.Equal(t, tx[0].ChannelOffset, prx[0].ChannelOffset)
	assert.Equal(t, rx[0].SlotOffset, ptx[0].SlotOffset)

	assert.Equal(t, 2, child.Stats().CellsAdded)
	assert.Equal(t, 2, child.Stats().RequestsSent)
	assert.Equal(t, 2, root.Stats().RequestsReceived)
	assert.Equal(t, 2, net.vis[1].added)
	assert.Empty(t, net.vis[1].failures)
	assert.Len(t, child.slotframe().FreeSlots(), types.DefaultSlotframeLength-2)
	net.checkNoCollision(t)
}

func TestParentSwitchReleasesOldCells(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	other := net.add(2, false)
	child := net.add(1, false)

	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(types.Second)
	require.Len(t, child.sched.GetTxCells(0, handle), 1)

	child.OnParentChanged(0, 2)
	assert.Empty(t, child.sched.GetCells(0, handle))
	assert.True(t, child.IsClearing(0))
	net.run(types.Second)

	assert.False(t, child.IsClearing(0))
	assert.Empty(t, root.sched.GetCells(1, handle))
	assert.Len(t, child.sched.GetTxCells(2, handle), 1)
	assert.Len(t, child.sched.GetRxCells(2, handle), 1)
	assert.Len(t, other.sched.GetCells(1, handle), 2)
	assert.Equal(t, 2, net.vis[1].removed)
	assert.Equal(t, 2, net.vis[0].removed)
	net.checkNoCollision(t)

	// detaching releases everything
	child.OnParentChanged(2, types.InvalidNodeId)
	net.run(types.Second)
	assert.Empty(t, child.sched.GetCells(2, handle))
	assert.Empty(t, other.sched.GetCells(1, handle))
	assert.False(t, child.IsNegotiating())
}

func TestTimeoutExhaustsAttempts(t *testing.T) {
	net := newNetwork()
	net.add(0, true)
	child := net.add(1, false)
	net.drop = func(*packet.Packet) bool { return true }

	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(2 * types.Second)

	assert.False(t, child.IsNegotiating())
	assert.False(t, child.IsClearing(0))
	// three ADD attempts, then three attempts of the CLEAR that resets the parent
	assert.Equal(t, 6, child.Stats().RequestsSent)
	require.Len(t, net.vis[1].failures, 2)
	f := net.vis[1].failures[0]
	assert.Equal(t, 1, f.NodeId)
	assert.Equal(t, 0, f.Peer)
	assert.Equal(t, packet.SixPAdd, f.Command)
	assert.Equal(t, 3, f.Attempts)
	assert.Equal(t, "timeout", f.Reason)
	assert.Equal(t, packet.SixPClear, net.vis[1].failures[1].Command)
	assert.Equal(t, "timeout", net.vis[1].failures[1].Reason)

	// the node keeps its parent; reservations are released
	assert.Equal(t, 0, child.Parent())
	assert.Len(t, child.slotframe().FreeSlots(), types.DefaultSlotframeLength)

	// all three ADD attempts carry the same transaction id
	adds := 0
	for _, p := range net.sent {
		if p.SixP.Command == packet.SixPAdd {
			adds++
			assert.Equal(t, net.sent[0].SixP.TransactionId, p.SixP.TransactionId)
		}
	}
	assert.Equal(t, 3, adds)
}

// checkMirrored asserts that every cell of child toward parent has its mirror at parent, and nothing more.
func checkMirrored(t *testing.T, child, parent *Msf) {
	t.Helper()
	cells := child.sched.GetCells(parent.nodeId, handle)
	require.Len(t, parent.sched.GetCells(child.nodeId, handle), len(cells))
	for _, c := range cells {
		pc, ok := parent.slotframe().GetCell(c.SlotOffset)
		require.True(t, ok, "slot %d", c.SlotOffset)
		assert.Equal(t, child.nodeId, pc.Peer)
		assert.Equal(t, c.ChannelOffset, pc.ChannelOffset)
		assert.Equal(t, c.Options.Mirror(), pc.Options)
	}
}

func TestLostAddResponsesResyncWithParent(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	child := net.add(1, false)
	net.drop = func(p *packet.Packet) bool {
		return p.SixP.Kind == packet.SixPResponse && len(net.vis[1].failures) == 0
	}

	child.Start()
	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(60 * types.Second)

	require.Len(t, net.vis[1].failures, 1)
	assert.Equal(t, packet.SixPAdd, net.vis[1].failures[0].Command)
	assert.Equal(t, "timeout", net.vis[1].failures[0].Reason)

	assert.False(t, child.IsNegotiating())
	assert.False(t, child.IsClearing(0))
	assert.Len(t, child.sched.GetTxCells(0, handle), 1)
	assert.Len(t, child.sched.GetRxCells(0, handle), 1)
	assert.Len(t, root.sched.GetCells(1, handle), 2)
	checkMirrored(t, child, root)
	net.checkNoCollision(t)
}

func TestLostDeleteResponsesResyncWithParent(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	child := net.add(1, false)
	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(types.Second)
	child.OnTrafficObserved(0, 0.9)
	net.run(types.Second)
	require.Len(t, child.sched.GetTxCells(0, handle), 2)

	net.drop = func(p *packet.Packet) bool {
		return p.SixP.Kind == packet.SixPResponse && len(net.vis[1].failures) == 0
	}
	child.OnTrafficObserved(0, 0.1)
	net.run(2 * types.Second)

	require.Len(t, net.vis[1].failures, 1)
	assert.Equal(t, packet.SixPDelete, net.vis[1].failures[0].Command)
	assert.Equal(t, "timeout", net.vis[1].failures[0].Reason)

	// the parent removed the cell at the first attempt; both sides start over from a clean schedule
	assert.False(t, child.IsNegotiating())
	assert.Len(t, child.sched.GetTxCells(0, handle), 1)
	assert.Len(t, child.sched.GetRxCells(0, handle), 1)
	checkMirrored(t, child, root)
	net.checkNoCollision(t)
}

func TestRetransmissionAnsweredFromCache(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	child := net.add(1, false)
	dropped := false
	net.drop = func(p *packet.Packet) bool {
		if !dropped && p.SixP.Kind == packet.SixPResponse {
			dropped = true
			return true
		}
		return false
	}

	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(2 * types.Second)

	assert.True(t, dropped)
	assert.Len(t, child.sched.GetTxCells(0, handle), 1)
	assert.Len(t, root.sched.GetRxCells(1, handle), 1)
	assert.Equal(t, 2, root.Stats().CellsAdded)
	assert.Equal(t, 3, child.Stats().RequestsSent)
	assert.Empty(t, net.vis[1].failures)
}

func TestTrafficDrivenAddDelete(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	child := net.add(1, false)
	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(types.Second)

	child.OnTrafficObserved(0, 0.9)
	net.run(types.Second)
	assert.Len(t, child.sched.GetTxCells(0, handle), 2)
	assert.Len(t, root.sched.GetRxCells(1, handle), 2)

	// other peers are ignored
	child.OnTrafficObserved(5, 0.9)
	assert.False(t, child.IsNegotiating())

	child.OnTrafficObserved(0, 0.5)
	assert.False(t, child.IsNegotiating())

	child.OnTrafficObserved(0, 0.1)
	net.run(types.Second)
	assert.Len(t, child.sched.GetTxCells(0, handle), 1)
	assert.Len(t, root.sched.GetRxCells(1, handle), 1)
	assert.Equal(t, child.sched.GetTxCells(0, handle)[0].SlotOffset, root.sched.GetRxCells(1, handle)[0].SlotOffset)

	// never below one TX cell
	child.OnTrafficObserved(0, 0.0)
	assert.False(t, child.IsNegotiating())
	assert.Len(t, child.sched.GetTxCells(0, handle), 1)
	net.checkNoCollision(t)
}

func TestResponderWithoutResources(t *testing.T) {
	net := newNetwork()
	root := net.add(0, true)
	child := net.add(1, false)
	for s := 1; s < types.DefaultSlotframeLength; s++ {
		root.sched.AddCell(tsch.Cell{SlotframeHandle: handle, SlotOffset: s, Options: tsch.CellOptionRx, Peer: 99})
	}

	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(5 * types.Second)

	assert.Empty(t, child.sched.GetCells(0, handle))
	require.Len(t, net.vis[1].failures, 1)
	assert.Equal(t, "rejected: NORES", net.vis[1].failures[0].Reason)
	assert.Equal(t, 3, net.vis[1].failures[0].Attempts)
	assert.Len(t, child.slotframe().FreeSlots(), types.DefaultSlotframeLength)

	// retries use new transaction ids
	tids := map[uint8]struct{}{}
	for _, p := range net.sent {
		if p.SixP.Kind == packet.SixPRequest {
			tids[p.SixP.TransactionId] = struct{}{}
		}
	}
	assert.Len(t, tids, 3)
}

func TestResponderBusy(t *testing.T) {
	net := newNetwork()
	net.add(0, true)
	a := net.add(1, false)
	b := net.add(2, false)
	net.drop = func(p *packet.Packet) bool { return p.Dst == 0 }

	// 1 negotiates with 0, which never answers; a request from 0 meanwhile gets BUSY
	a.OnParentChanged(types.InvalidNodeId, 0)
	b.OnParentChanged(types.InvalidNodeId, 0)
	req := &packet.SixP{Kind: packet.SixPRequest, Command: packet.SixPAdd, Requester: 0, Responder: 1,
		SlotframeHandle: handle, TransactionId: 9, Options: tsch.CellOptionTx,
		Cells: []packet.CellProposal{{SlotOffset: 7, ChannelOffset: 1}}}
	a.OnReceiveSixP(req)
	last := net.sent[len(net.sent)-1].SixP
	assert.Equal(t, packet.SixPResponse, last.Kind)
	assert.Equal(t, packet.SixPErrBusy, last.ReturnCode)
	assert.Equal(t, uint8(9), last.TransactionId)
}

func TestLateAddSuccessFromFormerParentIsCleared(t *testing.T) {
	net := newNetwork()
	child := net.add(1, false)
	child.OnParentChanged(types.InvalidNodeId, 2)

	child.OnReceiveSixP(&packet.SixP{Kind: packet.SixPResponse, Command: packet.SixPAdd, Requester: 1,
		Responder: 0, SlotframeHandle: handle, TransactionId: 77, ReturnCode: packet.SixPSuccess,
		Cells: []packet.CellProposal{{SlotOffset: 3, ChannelOffset: 2}}})

	assert.True(t, child.IsClearing(0))
	assert.Empty(t, child.sched.GetCells(0, handle))
	last := net.sent[len(net.sent)-1]
	assert.Equal(t, 0, last.Dst)
	assert.Equal(t, packet.SixPClear, last.SixP.Command)

	// unrelated late responses are ignored
	child.OnReceiveSixP(&packet.SixP{Kind: packet.SixPResponse, Command: packet.SixPAdd, Requester: 1,
		Responder: 2, TransactionId: 200, ReturnCode: packet.SixPSuccess,
		Cells: []packet.CellProposal{{SlotOffset: 4}}})
	assert.Empty(t, child.sched.GetCells(2, handle))
	assert.True(t, child.IsNegotiating())
}

func TestParentChangeAbandonsPendingTransaction(t *testing.T) {
	net := newNetwork()
	net.add(0, true)
	child := net.add(1, false)
	net.drop = func(*packet.Packet) bool { return true }

	child.OnParentChanged(types.InvalidNodeId, 0)
	child.OnParentChanged(0, types.InvalidNodeId)
	assert.False(t, child.IsNegotiating())
	assert.True(t, child.IsClearing(0))
	net.run(2 * types.Second)

	// only the teardown reports a failure
	require.Len(t, net.vis[1].failures, 1)
	assert.Equal(t, packet.SixPClear, net.vis[1].failures[0].Command)
	assert.False(t, child.IsClearing(0))
	assert.Equal(t, 0, net.q.Len())
}

func TestHousekeepingAddsCellsUnderLoad(t *testing.T) {
	net := newNetwork()
	net.add(0, true)
	child := net.add(1, false)
	child.Start()
	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(types.Second)

	tx := child.sched.GetTxCells(0, handle)
	require.Len(t, tx, 1)
	c, ok := child.slotframe().GetCell(tx[0].SlotOffset)
	require.True(t, ok)
	c.Elapsed, c.Used = 10, 9

	net.run(DefaultConfig().HousekeepingPeriod)
	tx = child.sched.GetTxCells(0, handle)
	assert.Len(t, tx, 2)
	for _, c := range tx {
		assert.Equal(t, 0, c.Elapsed)
	}

	child.Stop()
	assert.Equal(t, 0, net.q.Len())
}

func TestHousekeepingRetriesAfterFailure(t *testing.T) {
	net := newNetwork()
	net.add(0, true)
	child := net.add(1, false)
	child.Start()
	net.drop = func(*packet.Packet) bool { return true }
	child.OnParentChanged(types.InvalidNodeId, 0)
	net.run(types.Second)
	// the ADD and the CLEAR that follows it both time out
	require.Len(t, net.vis[1].failures, 2)
	assert.Empty(t, child.sched.GetCells(0, handle))

	net.drop = nil
	net.run(DefaultConfig().HousekeepingPeriod + types.Second)
	assert.Len(t, child.sched.GetTxCells(0, handle), 1)
	assert.Len(t, child.sched.GetRxCells(0, handle), 1)
}
