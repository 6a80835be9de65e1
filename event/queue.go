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

package event

import (
	"container/heap"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/types"
)

type eventQueue []*Event

func (eq eventQueue) Len() int {
	return len(eq)
}

// Less orders by timestamp, then by scheduling order, so that events at the same time fire FIFO.
func (eq eventQueue) Less(i, j int) bool {
	if eq[i].Timestamp != eq[j].Timestamp {
		return eq[i].Timestamp < eq[j].Timestamp
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) {
	a, b := eq[i], eq[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	eq[i], eq[j] = b, a             // swap the elements
	eq[i].index, eq[j].index = i, j // fix the indexes
}

func (eq *eventQueue) Push(x interface{}) {
	e := x.(*Event)
	*eq = append(*eq, e)
	e.index = len(*eq) - 1
}

func (eq *eventQueue) Pop() (elem interface{}) {
	eqlen := len(*eq)
	e := (*eq)[eqlen-1]
	(*eq)[eqlen-1] = nil
	*eq = (*eq)[:eqlen-1]
	e.index = -1
	return e
}

// Queue is the discrete-event queue that drives simulated time. It is not safe for concurrent use;
// the simulation runs it from a single goroutine.
type Queue struct {
	q   eventQueue
	now uint64
	seq uint64

	fired uint64
}

func NewQueue() *Queue {
	q := &Queue{
		q: eventQueue{},
	}
	heap.Init(&q.q)
	return q
}

// Now returns the current simulation time in us.
func (q *Queue) Now() uint64 {
	return q.now
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.q)
}

// Fired returns the number of events executed so far.
func (q *Queue) Fired() uint64 {
	return q.fired
}

// Schedule adds an event at absolute time ts. Scheduling in the past is a fatal assertion.
func (q *Queue) Schedule(ts uint64, nodeid types.NodeId, name string, handler Handler) *Event {
	logger.AssertTruef(ts >= q.now, "event %s scheduled in the past: %d < %d", name, ts, q.now)
	logger.AssertNotNil(handler)

	e := &Event{
		Timestamp: ts,
		NodeId:    nodeid,
		Name:      name,
		handler:   handler,
		queue:     q,
		seq:       q.seq,
	}
	q.seq++
	heap.Push(&q.q, e)
	return e
}

// ScheduleAfter adds an event delay us after the current time.
func (q *Queue) ScheduleAfter(delay uint64, nodeid types.NodeId, name string, handler Handler) *Event {
	return q.Schedule(q.now+delay, nodeid, name, handler)
}

func (q *Queue) cancel(e *Event) {
	if e.index < 0 || e.index >= len(q.q) || q.q[e.index] != e {
		return
	}
	heap.Remove(&q.q, e.index)
}

// NextTimestamp returns the time of the next pending event, or types.Ever if none.
func (q *Queue) NextTimestamp() uint64 {
	if len(q.q) == 0 {
		return types.Ever
	}
	return q.q[0].Timestamp
}

// NextEvent returns the next pending event without removing it, or nil.
func (q *Queue) NextEvent() *Event {
	if len(q.q) == 0 {
		return nil
	}
	return q.q[0]
}

// Step executes the next pending event. Returns false if the queue was empty.
func (q *Queue) Step() bool {
	if len(q.q) == 0 {
		return false
	}
	e := heap.Pop(&q.q).(*Event)
	q.now = e.Timestamp
	q.fired++
	e.handler()
	return true
}

// RunUntil executes all events with a timestamp up to and including ts, then advances the current time
// to ts. Events scheduled by handlers are executed too if they fall within the interval.
// Returns the number of events executed.
func (q *Queue) RunUntil(ts uint64) int {
	logger.AssertTruef(ts >= q.now, "cannot run backwards in time: %d < %d", ts, q.now)
	n := 0
	for len(q.q) > 0 && q.q[0].Timestamp <= ts {
		q.Step()
		n++
	}
	q.now = ts
	return n
}

// Clear removes all pending events, without executing them.
func (q *Queue) Clear() {
	for _, e := range q.q {
		e.index = -1
	}
	q.q = q.q[:0]
}
