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

import "github.com/openthread/ot-tsch-sim/types"

// FullyMeshed connects every pair of nodes with the same PDR, unless a link setting overrides it.
type FullyMeshed struct {
	Name       string
	DefaultPdr float64

	links linkOverrides
}

func NewFullyMeshed(defaultPdr float64) *FullyMeshed {
	return &FullyMeshed{
		Name:       ClassFullyMeshed,
		DefaultPdr: clipPdr(defaultPdr),
		links:      linkOverrides{},
	}
}

func (rm *FullyMeshed) GetPdr(src, dst types.NodeId, ch types.ChannelId) float64 {
	if src == dst {
		return 0.0
	}
	if pdr, ok := rm.links.get(src, dst, ch); ok {
		return pdr
	}
	return rm.DefaultPdr
}

func (rm *FullyMeshed) SetPdrBothDirections(a, b types.NodeId, ch types.ChannelId, pdr float64) {
	rm.links.set(a, b, ch, clipPdr(pdr))
}

func (rm *FullyMeshed) AddNode(types.NodeId, Position) {
}

func (rm *FullyMeshed) GetName() string {
	return rm.Name
}
