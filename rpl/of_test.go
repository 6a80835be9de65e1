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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-tsch-sim/types"
)

var scenarioWeights = Weights{0.1, 0.8, 0.6}

func TestValidateWeights(t *testing.T) {
	assert.Nil(t, ValidateWeights(OfNameWeightedParameters, scenarioWeights))
	assert.Nil(t, ValidateWeights(OfNameOF0, nil))
	assert.Nil(t, ValidateWeights(OfNameBestLinkPdr, Weights{2}))

	for _, tc := range []struct {
		name string
		w    Weights
	}{
		{OfNameWeightedParameters, nil},
		{OfNameWeightedParameters, Weights{0.1, 0.8}},
		{OfNameWeightedParameters, Weights{0.1, -0.8, 0.6}},
		{OfNameWeightedParameters, Weights{0, 0, 0}},
		{OfNameOF0, Weights{1, 2, 3}},
		{"MRHOF", nil},
	} {
		err := ValidateWeights(tc.name, tc.w)
		assert.ErrorIs(t, err, types.ErrConfig, "%s %v", tc.name, tc.w)
	}

	_, err := NewObjectiveFunction("MRHOF", 1, false, DefaultOfConfig(), testLinks{}, &testClock{})
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestCalculateRank(t *testing.T) {
	links := testLinks{}
	root := &Candidate{Id: 0, AdvertisedRank: types.RootRank, Pdr: 1.0, Metrics: dio(0, 0, 0, 1.0).Metrics}
	lossy := &Candidate{Id: 4, AdvertisedRank: types.RootRank, Pdr: 0.75, Metrics: dio(0, 0, 0, 1.0).Metrics}
	bad := &Candidate{Id: 7, AdvertisedRank: types.RootRank, Pdr: 0.45, Metrics: dio(0, 0, 0, 1.0).Metrics}

	of0 := newTestOf(OfNameOF0, 1, links, nil)
	r, ok := of0.CalculateRank(root, nil)
	assert.True(t, ok)
	assert.Equal(t, types.Rank(512), r)
	r, ok = of0.CalculateRank(lossy, nil)
	assert.True(t, ok)
	assert.Equal(t, types.Rank(768), r)
	_, ok = of0.CalculateRank(bad, nil)
	assert.False(t, ok)

	blp := newTestOf(OfNameBestLinkPdr, 1, links, nil)
	r, _ = blp.CalculateRank(root, nil)
	assert.Equal(t, types.Rank(512), r)
	r, _ = blp.CalculateRank(lossy, nil)
	assert.Equal(t, types.Rank(597), r)
	_, ok = blp.CalculateRank(bad, nil)
	assert.False(t, ok)

	wp := newTestOf(OfNameWeightedParameters, 1, links, scenarioWeights)
	r, _ = wp.CalculateRank(root, scenarioWeights)
	assert.Equal(t, types.Rank(512), r)
	r, _ = wp.CalculateRank(lossy, scenarioWeights)
	assert.Equal(t, types.Rank(580), r)
	_, ok = wp.CalculateRank(bad, scenarioWeights)
	assert.False(t, ok)
	_, ok = wp.CalculateRank(root, Weights{1})
	assert.False(t, ok)

	// results that reach the infinite rank are excluded
	far := &Candidate{Id: 9, AdvertisedRank: types.InfiniteRank - 100, Pdr: 1.0}
	_, ok = wp.CalculateRank(far, scenarioWeights)
	assert.False(t, ok)
}

func TestWeightedRankMonotonic(t *testing.T) {
	wp := newTestOf(OfNameWeightedParameters, 1, testLinks{}, scenarioWeights)
	base := Candidate{Id: 2, AdvertisedRank: 768, Pdr: 0.9}
	base.Metrics.HopCount = 2
	base.Metrics.ResidualEnergy = 0.7
	r0, _ := wp.CalculateRank(&base, scenarioWeights)

	worseLink := base
	worseLink.Pdr = 0.6
	r1, _ := wp.CalculateRank(&worseLink, scenarioWeights)
	assert.True(t, r1 > r0)

	moreHops := base
	moreHops.Metrics.HopCount = 4
	r2, _ := wp.CalculateRank(&moreHops, scenarioWeights)
	assert.True(t, r2 > r0)

	lessEnergy := base
	lessEnergy.Metrics.ResidualEnergy = 0.2
	r3, _ := wp.CalculateRank(&lessEnergy, scenarioWeights)
	assert.True(t, r3 > r0)
}

func TestFindBestParentExcludesLowPdr(t *testing.T) {
	links := testLinks{1: 0.45, 2: 0.49, 3: 0.5}
	for _, name := range []string{OfNameOF0, OfNameBestLinkPdr, OfNameWeightedParameters} {
		var w Weights
		if name == OfNameWeightedParameters {
			w = scenarioWeights
		}
		of := newTestOf(name, 5, links, w)
		of.UpdateCandidate(dio(1, types.RootRank, 0, 1))
		of.UpdateCandidate(dio(2, types.RootRank, 0, 1))
		assert.Nil(t, of.FindBestParent(), name)
		switched, _, best := of.SelectParent()
		assert.False(t, switched)
		assert.Nil(t, best)
		_, ok := of.GetRank()
		assert.False(t, ok)

		of.UpdateCandidate(dio(3, 1024, 3, 1))
		best = of.FindBestParent()
		require.NotNil(t, best, name)
		assert.Equal(t, 3, best.Id)
	}
}

func TestFindBestParentTieBreak(t *testing.T) {
	links := testLinks{2: 1.0, 3: 1.0, 7: 1.0}
	of := newTestOf(OfNameOF0, 9, links, nil)
	of.UpdateCandidate(dio(7, 512, 1, 1))
	of.UpdateCandidate(dio(3, 512, 1, 1))
	of.UpdateCandidate(dio(2, 768, 2, 1))
	assert.Equal(t, 3, of.FindBestParent().Id)
	switched, old, best := of.SelectParent()
	assert.True(t, switched)
	assert.Nil(t, old)
	assert.Equal(t, 3, best.Id)
}

func TestSelectParentHysteresis(t *testing.T) {
	links := testLinks{1: 1.0, 2: 1.0}
	of := newTestOf(OfNameOF0, 5, links, nil)
	of.UpdateCandidate(dio(1, 1024, 3, 1))
	switched, _, _ := of.SelectParent()
	assert.True(t, switched)
	rank, ok := of.GetRank()
	assert.True(t, ok)
	assert.Equal(t, types.Rank(1280), rank)

	// improvement of 256 <= 384: no switch
	of.UpdateCandidate(dio(2, 768, 2, 1))
	switched, old, best := of.SelectParent()
	assert.False(t, switched)
	assert.Equal(t, 1, old.Id)
	assert.Equal(t, 1, best.Id)
	assert.Equal(t, 1, of.PreferredParent().Id)

	// improvement of exactly 384 is not enough either
	of.UpdateCandidate(dio(2, 1024, 2, 1))
	of.UpdateCandidate(dio(1, 1408, 3, 1))
	switched, _, _ = of.SelectParent()
	assert.False(t, switched)
	rank, _ = of.GetRank()
	assert.Equal(t, types.Rank(1664), rank)

	// improvement of 768 > 384: switch
	of.UpdateCandidate(dio(2, 640, 2, 1))
	switched, old, best = of.SelectParent()
	assert.True(t, switched)
	assert.Equal(t, 1, old.Id)
	assert.Equal(t, 2, best.Id)
}

func TestSelectParentIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		links := testLinks{}
		of := newTestOf(OfNameWeightedParameters, 100, links, scenarioWeights)
		for i := 0; i < 8; i++ {
			id := r.Intn(20)
			links[id] = 0.3 + 0.7*r.Float64()
			of.UpdateCandidate(dio(id, types.Rank(256+r.Intn(2000)), r.Intn(6), r.Float64()))
		}
		of.SelectParent()
		p1 := of.PreferredParent()
		switched, _, _ := of.SelectParent()
		assert.False(t, switched)
		assert.Equal(t, p1, of.PreferredParent())
	}
}

func TestSelectParentRankAboveParent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, name := range []string{OfNameOF0, OfNameBestLinkPdr, OfNameWeightedParameters} {
		var w Weights
		if name == OfNameWeightedParameters {
			w = scenarioWeights
		}
		links := testLinks{}
		of := newTestOf(name, 100, links, w)
		for step := 0; step < 200; step++ {
			id := r.Intn(15)
			links[id] = r.Float64()
			of.UpdateCandidate(dio(id, types.Rank(256+r.Intn(3000)), r.Intn(6), r.Float64()))
			of.SelectParent()

			if p := of.PreferredParent(); p != nil {
				rank, ok := of.GetRank()
				assert.True(t, ok)
				assert.True(t, rank > p.AdvertisedRank, "%s: rank %d parent %s", name, rank, p)
				assert.True(t, p.Pdr >= DefaultAcceptableLowestPdr)
			}
			if best := of.FindBestParent(); best != nil {
				assert.True(t, best.Pdr >= DefaultAcceptableLowestPdr)
			}
		}
	}
}

func TestSelectParentLocalRepair(t *testing.T) {
	links := testLinks{1: 1.0, 2: 1.0, 6: 1.0}
	of := newTestOf(OfNameOF0, 5, links, nil)
	of.UpdateCandidate(dio(1, 512, 1, 1))
	of.SelectParent()
	rank, _ := of.GetRank()
	assert.Equal(t, types.Rank(768), rank)

	// 2 is a possible alternative, 6 may be a child
	of.UpdateCandidate(dio(2, 700, 2, 1))
	of.UpdateCandidate(dio(6, 1024, 3, 1))
	switched, _, _ := of.SelectParent()
	assert.False(t, switched)

	// parent poisons: switch to 2, child 6 pruned
	of.UpdateCandidate(dio(1, types.InfiniteRank, 0, 0))
	switched, old, best := of.SelectParent()
	assert.True(t, switched)
	assert.Equal(t, 1, old.Id)
	assert.Equal(t, 2, best.Id)
	assert.Len(t, of.Candidates(), 1)

	// link to parent 2 drops below threshold: no alternative, detach
	links[2] = 0.3
	switched, old, best = of.SelectParent()
	assert.True(t, switched)
	assert.Equal(t, 2, old.Id)
	assert.Nil(t, best)
	_, ok := of.GetRank()
	assert.False(t, ok)
	assert.Nil(t, of.PreferredParent())
}

func TestRootOf(t *testing.T) {
	of := newTestOf(OfNameOF0, 0, testLinks{1: 1.0}, nil)
	of.UpdateCandidate(dio(1, 512, 1, 1))
	assert.Len(t, of.Candidates(), 0)
	rank, ok := of.GetRank()
	assert.True(t, ok)
	assert.Equal(t, types.RootRank, rank)
	switched, _, _ := of.SelectParent()
	assert.False(t, switched)
	assert.Nil(t, of.FindBestParent())
}
