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
	"github.com/openthread/ot-tsch-sim/types"
)

// Trickle is the RFC 6206 timer driving DIO transmission. An interval starts at Imin and doubles up to Imax
// while the network is consistent; a transmission is suppressed once k consistent messages were heard.
type Trickle struct {
	q        *event.Queue
	nodeId   types.NodeId
	rand     *rand.Rand
	imin     uint64
	imax     uint64
	k        int
	transmit func()

	interval      uint64
	counter       int
	intervalEvent *event.Event
	txEvent       *event.Event
	running       bool
}

// NewTrickle creates a stopped Trickle timer with Imin in us; Imax is Imin doubled the given number of times.
// k == 0 disables suppression.
func NewTrickle(q *event.Queue, nodeId types.NodeId, r *rand.Rand, imin uint64, doublings int, k int,
	transmit func()) *Trickle {
	return &Trickle{
		q:        q,
		nodeId:   nodeId,
		rand:     r,
		imin:     imin,
		imax:     imin << uint(doublings),
		k:        k,
		transmit: transmit,
		interval: imin,
	}
}

func (t *Trickle) Start() {
	t.Stop()
	t.running = true
	t.interval = t.imin
	t.startInterval()
}

func (t *Trickle) Stop() {
	t.running = false
	t.intervalEvent.Cancel()
	t.txEvent.Cancel()
	t.intervalEvent, t.txEvent = nil, nil
}

func (t *Trickle) IsRunning() bool {
	return t.running
}

// Reset restarts the timer at Imin, on an inconsistency. Nothing is done if the interval already is Imin.
func (t *Trickle) Reset() {
	if !t.running {
		t.Start()
		return
	}
	if t.interval == t.imin {
		return
	}
	t.Start()
}

// Consistent records a consistent transmission heard from a neighbor.
func (t *Trickle) Consistent() {
	t.counter++
}

// Interval returns the current interval length in us.
func (t *Trickle) Interval() uint64 {
	return t.interval
}

func (t *Trickle) startInterval() {
	t.counter = 0
	half := t.interval / 2
	tx := half
	if half > 0 {
		tx += uint64(t.rand.Int63n(int64(half)))
	}
	t.txEvent = t.q.ScheduleAfter(tx, t.nodeId, "trickle-tx", t.onTx)
	t.intervalEvent = t.q.ScheduleAfter(t.interval, t.nodeId, "trickle-interval", t.onIntervalEnd)
}

func (t *Trickle) onTx() {
	t.txEvent = nil
	if t.k == 0 || t.counter < t.k {
		t.transmit()
	}
}

func (t *Trickle) onIntervalEnd() {
	t.intervalEvent = nil
	t.interval *= 2
	if t.interval > t.imax {
		t.interval = t.imax
	}
	t.startInterval()
}
