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
	"math"

	"github.com/openthread/ot-tsch-sim/types"
)

const (
	of0DefaultRankFactor  = 1.0
	of0DefaultStretchRank = 0.0
	of0MinStepOfRank      = 1.0
	of0MaxStepOfRank      = 9.0
)

// OF0 is the Objective Function Zero of RFC 6552, with the step of rank derived from the link ETX.
// Optional weights are (rank factor, stretch of rank).
type OF0 struct {
	*ofBase
}

func newOF0(base *ofBase) *OF0 {
	of := &OF0{ofBase: base}
	base.calc = of.CalculateRank
	return of
}

func (of *OF0) Name() string {
	return OfNameOF0
}

func (of *OF0) CalculateRank(c *Candidate, w Weights) (types.Rank, bool) {
	if c == nil || c.Pdr < of.cfg.AcceptableLowestPdr {
		return types.InfiniteRank, false
	}
	rf, sr := of0DefaultRankFactor, of0DefaultStretchRank
	if len(w) >= 1 {
		rf = w[0]
	}
	if len(w) >= 2 {
		sr = w[1]
	}
	step := math.Max(of0MinStepOfRank, math.Min(of0MaxStepOfRank, 3*c.Etx()-2))
	increase := (rf*step + sr) * float64(types.MinHopRankIncrease)
	return addRankIncrease(c.AdvertisedRank, increase)
}
