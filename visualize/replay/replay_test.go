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

package visualize_replay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/tsch"
	. "github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

func TestReplayVisualizer(t *testing.T) {
	defer goleak.VerifyNone(t)

	filename := filepath.Join(t.TempDir(), "0.replay")
	vis, err := NewReplayVisualizer(filename)
	require.NoError(t, err)
	vis.Init()

	vis.AddNode(0, true)
	vis.AddNode(1, false)
	vis.AdvanceTime(2 * Second)
	vis.SetParent(1, 0)
	vis.SetRank(1, 512)
	vis.SetDodagState(1, Attached)
	vis.AddCell(1, tsch.Cell{SlotframeHandle: SlotframeHandleNegotiated, SlotOffset: 17, ChannelOffset: 4,
		Options: tsch.CellOptionTx, Peer: 0})
	vis.OnNegotiationFailed(visualize.NegotiationFailure{NodeId: 1, Peer: 0, Command: packet.SixPAdd, Attempts: 3,
		Reason: "timeout"})
	vis.OnDataDelivered(1, 25*Millisecond, 1)
	vis.Stop()
	vis.Stop()

	entries, err := ReadReplayFile(filename)
	require.NoError(t, err)
	require.Len(t, entries, 8)

	events := make([]string, len(entries))
	for i, e := range entries {
		events[i] = e.Fields["event"].GetStringValue()
	}
	assert.Equal(t, []string{"addNode", "addNode", "setParent", "setRank", "setDodagState", "addCell",
		"negotiationFailed", "dataDelivered"}, events)

	assert.Equal(t, 0.0, entries[0].Fields["timestamp"].GetNumberValue())
	assert.True(t, entries[0].Fields["root"].GetBoolValue())
	assert.Equal(t, 2e6, entries[2].Fields["timestamp"].GetNumberValue())
	assert.Equal(t, 512.0, entries[3].Fields["rank"].GetNumberValue())
	assert.Equal(t, "attached", entries[4].Fields["state"].GetStringValue())

	cell := entries[5].AsMap()
	assert.Equal(t, 17.0, cell["slot"])
	assert.Equal(t, 4.0, cell["channel"])
	assert.Equal(t, "TX", cell["options"])

	assert.Equal(t, "timeout", entries[6].Fields["reason"].GetStringValue())
	assert.Equal(t, 25000.0, entries[7].Fields["latencyUs"].GetNumberValue())
}

func TestReadReplayFileErrors(t *testing.T) {
	_, err := ReadReplayFile(filepath.Join(t.TempDir(), "missing.replay"))
	assert.Error(t, err)
}

type testClock struct {
	now uint64
}

func (c *testClock) Now() uint64 {
	return c.now
}

func TestReplayVisualizerUsesClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	filename := filepath.Join(t.TempDir(), "1.replay")
	vis, err := NewReplayVisualizer(filename)
	require.NoError(t, err)
	clock := &testClock{}
	vis.(visualize.ClockUser).SetClock(clock)
	vis.Init()

	vis.AddNode(1, false)
	vis.AdvanceTime(Second)
	clock.now = Second + 250*Millisecond
	vis.SetParent(1, 0)
	clock.now = Second + 730*Millisecond
	vis.AddCell(1, tsch.Cell{SlotframeHandle: SlotframeHandleNegotiated, SlotOffset: 9, Options: tsch.CellOptionTx})
	vis.AdvanceTime(2 * Second)
	vis.Stop()

	entries, err := ReadReplayFile(filename)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 0.0, entries[0].Fields["timestamp"].GetNumberValue())
	assert.Equal(t, 1.25e6, entries[1].Fields["timestamp"].GetNumberValue())
	assert.Equal(t, 1.73e6, entries[2].Fields["timestamp"].GetNumberValue())
}
