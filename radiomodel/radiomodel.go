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
	"sort"

	"github.com/openthread/ot-tsch-sim/types"
)

// Connectivity class names, as used in the configuration.
const (
	ClassFullyMeshed = "FullyMeshed"
	ClassLinear      = "Linear"
	ClassPathloss    = "Pathloss"
)

// AllChannels is used for link PDR settings that apply to every channel.
const AllChannels types.ChannelId = -1

// RadioModel is the connectivity service shared by all nodes. It is read-mostly: nodes only query it,
// the simulation (or CLI) changes it.
type RadioModel interface {
	// GetPdr returns the packet delivery ratio in [0, 1] of a frame sent by src, received by dst on channel ch.
	GetPdr(src, dst types.NodeId, ch types.ChannelId) float64

	// SetPdrBothDirections overrides the PDR of link (a, b) in both directions, on channel ch or AllChannels.
	SetPdrBothDirections(a, b types.NodeId, ch types.ChannelId, pdr float64)

	// AddNode registers a node at a position; position is ignored by models that don't use it.
	AddNode(id types.NodeId, pos Position)

	GetName() string
}

// Position of a node in meters.
type Position struct {
	X, Y float64
}

func (p Position) DistanceTo(other Position) float64 {
	dx := other.X - p.X
	dy := other.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

type linkKey struct {
	Src, Dst types.NodeId
	Channel  types.ChannelId
}

// linkOverrides holds per-link PDR settings, that take precedence over the model's computed PDR.
type linkOverrides map[linkKey]float64

func (lo linkOverrides) set(a, b types.NodeId, ch types.ChannelId, pdr float64) {
	if ch == AllChannels {
		for k := range lo {
			if (k.Src == a && k.Dst == b) || (k.Src == b && k.Dst == a) {
				delete(lo, k)
			}
		}
	}
	lo[linkKey{a, b, ch}] = pdr
	lo[linkKey{b, a, ch}] = pdr
}

func (lo linkOverrides) get(src, dst types.NodeId, ch types.ChannelId) (float64, bool) {
	if pdr, ok := lo[linkKey{src, dst, ch}]; ok {
		return pdr, true
	}
	pdr, ok := lo[linkKey{src, dst, AllChannels}]
	return pdr, ok
}

// Neighbors returns the ids of all nodes in ids (other than src) with a non-zero PDR from src on ch,
// in ascending order.
func Neighbors(rm RadioModel, src types.NodeId, ids []types.NodeId, ch types.ChannelId) []types.NodeId {
	var res []types.NodeId
	for _, id := range ids {
		if id != src && rm.GetPdr(src, id, ch) > 0 {
			res = append(res, id)
		}
	}
	sort.Ints(res)
	return res
}

// Create creates a new RadioModel of the given class, or returns nil if the class is unknown.
func Create(class string, defaultPdr float64) RadioModel {
	switch class {
	case ClassFullyMeshed:
		return NewFullyMeshed(defaultPdr)
	case ClassLinear:
		return NewLinear(defaultLinearSpacing)
	case ClassPathloss:
		return NewPathloss()
	default:
		return nil
	}
}

func clipPdr(pdr float64) float64 {
	return math.Max(0.0, math.Min(1.0, pdr))
}
