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
	"fmt"

	"github.com/openthread/ot-tsch-sim/types"
)

// Handler is invoked when an event fires. The queue's current time equals the event's Timestamp.
type Handler func()

// Event is a scheduled action in the simulation. An Event obtained from Queue.Schedule can be cancelled any
// number of times; only the first Cancel has an effect, and cancelling an event that already fired is a no-op.
type Event struct {
	Timestamp uint64
	NodeId    types.NodeId
	Name      string

	handler Handler
	queue   *Queue
	seq     uint64
	index   int
}

// Cancel removes the event from its queue, if it is still pending.
func (e *Event) Cancel() {
	if e == nil || e.queue == nil {
		return
	}
	e.queue.cancel(e)
}

// IsPending returns true if the event is still scheduled to fire.
func (e *Event) IsPending() bool {
	return e != nil && e.index >= 0 && e.queue != nil
}

func (e *Event) String() string {
	return fmt.Sprintf("Event{ts=%d, node=%d, %s}", e.Timestamp, e.NodeId, e.Name)
}
