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

package radiomodel

import (
	"math"

	"github.com/openthread/ot-tsch-sim/types"
)

const defaultLinearSpacing = 10.0

// Linear places nodes on a line, in order of id, unless a position is given. Adjacent nodes have a perfect link;
// the PDR drops linearly with distance and reaches zero at twice the spacing.
type Linear struct {
	Name    string
	Spacing float64

	positions map[types.NodeId]Position
	links     linkOverrides
}

func NewLinear(spacing float64) *Linear {
	return &Linear{
		Name:      ClassLinear,
		Spacing:   spacing,
		positions: map[types.NodeId]Position{},
		links:     linkOverrides{},
	}
}

func (rm *Linear) AddNode(id types.NodeId, pos Position) {
	if pos == (Position{}) && id != 0 {
		pos = Position{X: float64(id) * rm.Spacing}
	}
	rm.positions[id] = pos
}

func (rm *Linear) GetPdr(src, dst types.NodeId, ch types.ChannelId) float64 {
	if src == dst {
		return 0.0
	}
	if pdr, ok := rm.links.get(src, dst, ch); ok {
		return pdr
	}
	p1, ok1 := rm.positions[src]
	p2, ok2 := rm.positions[dst]
	if !ok1 || !ok2 {
		return 0.0
	}
	dist := p1.DistanceTo(p2)
	if dist <= rm.Spacing {
		return 1.0
	}
	return clipPdr(math.Round(100*(2.0-dist/rm.Spacing)) / 100)
}

func (rm *Linear) SetPdrBothDirections(a, b types.NodeId, ch types.ChannelId, pdr float64) {
	rm.links.set(a, b, ch, clipPdr(pdr))
}

func (rm *Linear) GetName() string {
	return rm.Name
}
