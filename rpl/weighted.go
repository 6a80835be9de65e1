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

// WeightedMaxHops normalizes the hop count metric.
const WeightedMaxHops = 8

// WeightedParameters combines hop count, link quality and residual energy of the candidate:
//
//	increase = MinHopRankIncrease * (1 + w0*hops/MaxHops + w1*(ETX-1) + w2*(1-residualEnergy))
//
// Each term grows with the cost of its metric, so the rank is monotonic in each of them.
type WeightedParameters struct {
	*ofBase
}

func newWeightedParameters(base *ofBase) *WeightedParameters {
	of := &WeightedParameters{ofBase: base}
	base.calc = of.CalculateRank
	return of
}

func (of *WeightedParameters) Name() string {
	return OfNameWeightedParameters
}

func (of *WeightedParameters) CalculateRank(c *Candidate, w Weights) (types.Rank, bool) {
	if c == nil || c.Pdr < of.cfg.AcceptableLowestPdr || len(w) != 3 {
		return types.InfiniteRank, false
	}
	hops := math.Min(float64(c.Metrics.HopCount), WeightedMaxHops) / WeightedMaxHops
	etxCost := c.Etx() - 1
	energyCost := 1 - math.Max(0, math.Min(1, c.Metrics.ResidualEnergy))
	increase := float64(types.MinHopRankIncrease) * (1 + w[0]*hops + w[1]*etxCost + w[2]*energyCost)
	return addRankIncrease(c.AdvertisedRank, increase)
}
