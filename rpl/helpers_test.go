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
	"math/rand"

	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/radiomodel"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

type testLinks map[types.NodeId]float64

func (l testLinks) LinkPdr(n types.NodeId) float64 {
	return l[n]
}

// modelLinks estimates links from a radio model, on channel 0.
type modelLinks struct {
	rm   radiomodel.RadioModel
	self types.NodeId
}

func (l modelLinks) LinkPdr(n types.NodeId) float64 {
	return l.rm.GetPdr(l.self, n, 0)
}

type testClock struct {
	now uint64
}

func (c *testClock) Now() uint64 {
	return c.now
}

type fixedEnergy float64

func (e fixedEnergy) ResidualEnergy() float64 {
	return float64(e)
}

type captureRadio struct {
	sent []*packet.Packet
}

func (r *captureRadio) Send(p *packet.Packet) {
	r.sent = append(r.sent, p)
}

func (r *captureRadio) SendData(*packet.Packet, types.ChannelId) bool {
	return false
}

func (r *captureRadio) take() []*packet.Packet {
	s := r.sent
	r.sent = nil
	return s
}

type parentLog struct {
	changes [][2]types.NodeId
}

func (l *parentLog) OnParentChanged(old, new types.NodeId) {
	l.changes = append(l.changes, [2]types.NodeId{old, new})
}

func newTestOf(name string, id types.NodeId, links LinkEstimator, w Weights) ObjectiveFunction {
	cfg := DefaultOfConfig()
	cfg.Weights = w
	of, err := NewObjectiveFunction(name, id, id == 0, cfg, links, &testClock{})
	logger.PanicIfError(err)
	return of
}

func dio(src types.NodeId, rank types.Rank, hops int, energy float64) *packet.Dio {
	return &packet.Dio{
		Source:  src,
		Rank:    rank,
		DodagId: 0,
		Metrics: packet.Metrics{HopCount: hops, ResidualEnergy: energy},
	}
}

type testNode struct {
	dodag   *Dodag
	radio   *captureRadio
	parents *parentLog
}

func newTestNode(id types.NodeId, q *event.Queue, rm radiomodel.RadioModel, ofName string, w Weights,
	energy float64) *testNode {
	cfg := DefaultOfConfig()
	cfg.Weights = w
	of, err := NewObjectiveFunction(ofName, id, id == 0, cfg, modelLinks{rm, id}, q)
	logger.PanicIfError(err)
	n := &testNode{
		radio:   &captureRadio{},
		parents: &parentLog{},
	}
	n.dodag = NewDodag(id, id == 0, 0, DefaultDodagConfig(), of, q, n.radio, fixedEnergy(energy),
		rand.New(rand.NewSource(int64(id))), visualize.NewNopVisualizer(), logger.NewNodeLogger(id, q, ""))
	n.dodag.SetParentListener(n.parents)
	n.dodag.Start()
	return n
}

// advertise hands the DIO of node from to the given receivers, as if it was delivered.
func advertise(from *testNode, to ...*testNode) {
	d, ok := from.dodag.BuildDio()
	logger.AssertTrue(ok)
	for _, n := range to {
		n.dodag.OnReceiveDio(d)
	}
}
