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

package mote

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-tsch-sim/energy"
	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/radiomodel"
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

type testRadio struct {
	sent []*packet.Packet
	data []*packet.Packet
	ack  bool
}

func (r *testRadio) Send(p *packet.Packet) {
	r.sent = append(r.sent, p)
}

func (r *testRadio) SendData(p *packet.Packet, ch types.ChannelId) bool {
	r.data = append(r.data, p)
	return r.ack
}

func newTestMote(t *testing.T, id types.NodeId, isRoot bool) (*Mote, *testRadio, *event.Queue) {
	q := event.NewQueue()
	radio := &testRadio{ack: true}
	rm := radiomodel.NewFullyMeshed(1.0)
	rm.SetPdrBothDirections(id, 7, radiomodel.AllChannels, 0.6)
	m, err := New(DefaultConfig(id, isRoot), q, radio, rm, rand.New(rand.NewSource(1)), visualize.NewNopVisualizer())
	require.NoError(t, err)
	m.Start()
	return m, radio, q
}

func rootDio() *packet.Packet {
	return packet.NewDio(&packet.Dio{Source: 0, Rank: types.RootRank, DodagId: 0,
		Metrics: packet.Metrics{HopCount: 0, ResidualEnergy: 1.0}})
}

func TestNewMote(t *testing.T) {
	root, _, _ := newTestMote(t, 0, true)
	assert.True(t, root.IsRoot())
	assert.Equal(t, types.Attached, root.Dodag.State())
	assert.True(t, root.Battery.IsMainsPowered())

	m, _, _ := newTestMote(t, 3, false)
	assert.False(t, m.IsRoot())
	assert.Equal(t, types.Unattached, m.Dodag.State())
	assert.InDelta(t, 0.6, m.LinkPdr(7), 1e-9)
	assert.InDelta(t, 1.0, m.LinkPdr(1), 1e-9)

	c, ok := m.Schedule.GetCellAt(0)
	require.True(t, ok)
	assert.True(t, c.IsShared())
	assert.Equal(t, types.BroadcastNodeId, c.Peer)
	assert.NotNil(t, m.Schedule.GetSlotframe(types.SlotframeHandleNegotiated))

	cfg := DefaultConfig(4, false)
	cfg.OfName = "unknown"
	_, err := New(cfg, event.NewQueue(), &testRadio{}, radiomodel.NewFullyMeshed(1), rand.New(rand.NewSource(1)),
		visualize.NewNopVisualizer())
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestMoteDispatch(t *testing.T) {
	m, radio, _ := newTestMote(t, 1, false)
	m.OnReceive(rootDio())
	assert.Equal(t, types.Attached, m.Dodag.State())
	assert.Equal(t, 0, m.Dodag.Parent())
	assert.Equal(t, 0, m.Msf.Parent())

	// attaching sends a DAO and a 6P ADD to the parent
	var sawDao, sawSixP bool
	for _, p := range radio.sent {
		switch p.Type {
		case packet.TypeDao:
			sawDao = p.Dst == 0
		case packet.TypeSixP:
			sawSixP = p.Dst == 0 && p.SixP.Command == packet.SixPAdd
		}
	}
	assert.True(t, sawDao)
	assert.True(t, sawSixP)
	assert.Equal(t, len(radio.sent), m.Stats().ControlSent)

	// unicast for another node is not processed
	before := m.Stats().ControlReceived
	m.OnReceive(packet.NewDao(5, 2, &packet.Dao{Source: 2, Parent: 5}))
	assert.Equal(t, before, m.Stats().ControlReceived)
}

func TestMoteTransmitsInTxCell(t *testing.T) {
	m, radio, _ := newTestMote(t, 1, false)
	m.OnReceive(rootDio())
	m.Schedule.AddCell(tsch.Cell{SlotframeHandle: types.SlotframeHandleNegotiated, SlotOffset: 5,
		ChannelOffset: 3, Options: tsch.CellOptionTx, Peer: 0})

	m.GenerateData()
	m.GenerateData()
	assert.Equal(t, 2, m.QueueLen())

	// nothing to do outside the cell
	m.OnSlot(4)
	m.EndSlot()
	assert.Empty(t, radio.data)

	m.OnSlot(5)
	m.EndSlot()
	require.Len(t, radio.data, 1)
	p := radio.data[0]
	assert.Equal(t, 1, p.Src)
	assert.Equal(t, 0, p.Dst)
	assert.Equal(t, 1, p.Data.Origin)
	assert.Equal(t, 1, m.QueueLen())
	assert.Equal(t, 1, m.Stats().DataSent)
	assert.True(t, m.Battery.Consumption().Tx > 0)

	c, _ := m.Schedule.GetCellAt(5)
	assert.Equal(t, 1, c.Elapsed)
	assert.Equal(t, 1, c.Used)

	// the next slotframe occurrence is the same cell
	radio.ack = false
	for i := 0; i < MaxDataAttempts; i++ {
		m.OnSlot(uint64(5 + (i+1)*types.DefaultSlotframeLength))
		m.EndSlot()
	}
	assert.Equal(t, 0, m.QueueLen())
	assert.Equal(t, 1, m.Stats().DataDropped)
	assert.Equal(t, 1+MaxDataAttempts, m.Stats().TxAttempts)

	// an empty queue leaves the cell unused
	m.OnSlot(5)
	assert.Equal(t, 1+MaxDataAttempts+1, c.Elapsed)
	assert.Equal(t, 1+MaxDataAttempts, c.Used)
}

func TestMoteQueueOverflow(t *testing.T) {
	m, _, _ := newTestMote(t, 1, false)
	for i := 0; i < DefaultTxQueueSize+2; i++ {
		m.GenerateData()
	}
	assert.Equal(t, DefaultTxQueueSize, m.QueueLen())
	assert.Equal(t, 2, m.Stats().QueueOverflows)
	assert.Equal(t, DefaultTxQueueSize+2, m.Stats().DataGenerated)

	fwd := packet.NewData(2, 1, &packet.Data{Origin: 2, Seq: 1})
	assert.False(t, m.OnReceiveData(fwd))
}

func TestMoteForwardAndDeliver(t *testing.T) {
	m, _, _ := newTestMote(t, 1, false)
	in := packet.NewData(2, 1, &packet.Data{Origin: 2, Seq: 9, Hops: 0})
	assert.True(t, m.OnReceiveData(in))
	assert.Equal(t, 1, m.Stats().DataForwarded)
	require.Equal(t, 1, m.QueueLen())
	assert.Equal(t, 1, m.queue[0].Data.Hops)
	assert.Equal(t, 0, in.Data.Hops)

	root, _, _ := newTestMote(t, 0, true)
	root.GenerateData()
	assert.Equal(t, 0, root.QueueLen())
	assert.True(t, root.OnReceiveData(packet.NewData(1, 0, &packet.Data{Origin: 2, Seq: 9, Hops: 1})))
	assert.Equal(t, 1, root.Stats().DataDelivered)
}

func TestMoteEnergyPerSlot(t *testing.T) {
	m, _, _ := newTestMote(t, 1, false)
	m.Battery.SetResidualEnergy(0.5)

	// idle listening in the shared cell
	m.OnSlot(0)
	m.EndSlot()
	rx := m.Battery.Consumption().Rx
	assert.True(t, rx > 0)
	assert.Equal(t, 0.0, m.Battery.Consumption().Tx)

	// a control transmission since the last slot
	m.OnReceive(rootDio())
	m.OnSlot(1)
	m.EndSlot()
	assert.True(t, m.Battery.Consumption().Tx > 0)

	// sleeping
	tx := m.Battery.Consumption().Tx
	m.OnSlot(2)
	m.EndSlot()
	assert.Equal(t, tx, m.Battery.Consumption().Tx)
	assert.True(t, m.Battery.ResidualEnergy() < 0.5)
	assert.Equal(t, energy.ActivitySleep, m.slotActivity)
}
