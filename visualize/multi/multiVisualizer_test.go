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

package visualize_multi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

type fixedClock uint64

func (c fixedClock) Now() uint64 {
	return uint64(c)
}

type clockedVisualizer struct {
	visualize.Visualizer
	clock  visualize.Clock
	parent types.NodeId
}

func (cv *clockedVisualizer) SetClock(clock visualize.Clock) {
	cv.clock = clock
}

func (cv *clockedVisualizer) SetParent(nodeid types.NodeId, parent types.NodeId) {
	cv.parent = parent
}

func TestMultiVisualizer(t *testing.T) {
	a := &clockedVisualizer{Visualizer: visualize.NewNopVisualizer()}
	b := &clockedVisualizer{Visualizer: visualize.NewNopVisualizer()}
	mv := NewMultiVisualizer(a, visualize.NewNopVisualizer())
	mv.AddVisualizer(b)
	assert.Equal(t, 3, mv.Len())

	var vis visualize.Visualizer = mv
	cu, ok := vis.(visualize.ClockUser)
	assert.True(t, ok)
	cu.SetClock(fixedClock(42))
	assert.Equal(t, uint64(42), a.clock.Now())
	assert.Equal(t, uint64(42), b.clock.Now())

	mv.SetParent(3, 1)
	assert.Equal(t, types.NodeId(1), a.parent)
	assert.Equal(t, types.NodeId(1), b.parent)
}
