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

package prng

import (
	"math/rand"
	"time"
)

type RandomSeed int64

// Generators holds the seeded random generators of one simulation. Each concern draws from its own
// generator so that e.g. adding traffic does not change the outcome of link-delivery draws.
type Generators struct {
	rootSeed                 int64
	newNodeRandSeedGenerator *rand.Rand
	deliveryRandGenerator    *rand.Rand
	unitRandGenerator        *rand.Rand
}

// New initializes the generators, either with a fixed PRNG seed (rootSeed != 0) or a 'random' time-based PRNG
// seed (if rootSeed == 0).
func New(rootSeed int64) *Generators {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	seeder := rand.New(rand.NewSource(rootSeed))
	return &Generators{
		rootSeed:                 rootSeed,
		newNodeRandSeedGenerator: rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
		deliveryRandGenerator:    rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
		unitRandGenerator:        rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
	}
}

// RootSeed returns the seed the generators were created from.
func (g *Generators) RootSeed() int64 {
	return g.rootSeed
}

// NewNodeRandomSeed generates unique random-seeds for newly created nodes.
func (g *Generators) NewNodeRandomSeed() RandomSeed {
	return RandomSeed(g.newNodeRandSeedGenerator.Int63())
}

// NewNodeRand creates the private generator of a node, from a fresh node seed.
func (g *Generators) NewNodeRand() *rand.Rand {
	return rand.New(rand.NewSource(int64(g.NewNodeRandomSeed())))
}

// Deliver draws whether a frame is delivered over a link with the given PDR.
func (g *Generators) Deliver(pdr float64) bool {
	if pdr >= 1.0 {
		return true
	}
	if pdr <= 0.0 {
		return false
	}
	return g.deliveryRandGenerator.Float64() < pdr
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func (g *Generators) NewUnitRandom() float64 {
	return g.unitRandGenerator.Float64()
}
