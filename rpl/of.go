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
	"fmt"
	"sort"

	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/types"
)

// Objective Function names, as used in the configuration.
const (
	OfNameOF0                = "OF0"
	OfNameBestLinkPdr        = "BestLinkPdr"
	OfNameWeightedParameters = "WeightedParameters"
)

const (
	DefaultAcceptableLowestPdr       = 0.5
	DefaultParentSwitchRankThreshold = types.Rank(384)
)

// Weights are the non-negative coefficients an Objective Function uses to combine metrics into one rank
// increase. Their meaning depends on the Objective Function.
type Weights []float64

// LinkEstimator provides the estimated delivery ratio of the link from this node to a neighbor.
type LinkEstimator interface {
	LinkPdr(neighbor types.NodeId) float64
}

// Candidate is a neighbor that advertised a usable rank; one per distinct advertiser, the latest DIO wins.
type Candidate struct {
	Id             types.NodeId
	AdvertisedRank types.Rank
	DodagId        types.NodeId
	Pdr            float64
	Metrics        packet.Metrics
	LastHeard      uint64
}

// Etx is the expected transmission count of the link to the candidate.
func (c *Candidate) Etx() float64 {
	if c.Pdr <= 0 {
		return float64(types.InfiniteRank)
	}
	return 1.0 / c.Pdr
}

func (c *Candidate) String() string {
	return fmt.Sprintf("{id=%d rank=%s pdr=%.2f hops=%d energy=%.2f}", c.Id, c.AdvertisedRank, c.Pdr,
		c.Metrics.HopCount, c.Metrics.ResidualEnergy)
}

// ObjectiveFunction computes rank from candidate metrics and selects the preferred parent with hysteresis.
// The variant is fixed at configuration time.
type ObjectiveFunction interface {
	Name() string

	// UpdateCandidate inserts or updates the candidate of the DIO advertiser. A poisoning DIO removes it.
	UpdateCandidate(dio *packet.Dio)

	// RemoveCandidate removes a candidate, e.g. after it became stale. Returns false if it was unknown.
	RemoveCandidate(id types.NodeId) bool

	// CalculateRank returns the rank this node would have with the candidate as parent. ok is false if the
	// candidate is excluded: link below the acceptable-lowest PDR, or resulting rank not representable.
	CalculateRank(c *Candidate, w Weights) (rank types.Rank, ok bool)

	// FindBestParent returns the usable candidate with the lowest resulting rank, ties broken by lowest id, or nil.
	FindBestParent() *Candidate

	// SelectParent switches the preferred parent to the best candidate if the rank improvement exceeds the
	// hysteresis threshold, or if there is no valid current parent. Returns whether a switch happened.
	SelectParent() (switched bool, old *Candidate, best *Candidate)

	// GetRank returns the rank of this node; ok is false while unattached.
	GetRank() (rank types.Rank, ok bool)

	PreferredParent() *Candidate
	Candidates() []*Candidate
}

type OfConfig struct {
	Weights                   Weights
	AcceptableLowestPdr       float64
	ParentSwitchRankThreshold types.Rank
}

func DefaultOfConfig() OfConfig {
	return OfConfig{
		Weights:                   nil,
		AcceptableLowestPdr:       DefaultAcceptableLowestPdr,
		ParentSwitchRankThreshold: DefaultParentSwitchRankThreshold,
	}
}

// NewObjectiveFunction creates the named Objective Function for a node.
func NewObjectiveFunction(name string, nodeId types.NodeId, isRoot bool, cfg OfConfig, links LinkEstimator,
	clock Clock) (ObjectiveFunction, error) {
	if err := ValidateWeights(name, cfg.Weights); err != nil {
		return nil, err
	}
	base := newOfBase(nodeId, isRoot, cfg, links, clock)
	switch name {
	case OfNameOF0:
		return newOF0(base), nil
	case OfNameBestLinkPdr:
		return newBestLinkPdr(base), nil
	case OfNameWeightedParameters:
		return newWeightedParameters(base), nil
	default:
		return nil, types.ConfigErrorf("unknown objective function: %s", name)
	}
}

// ValidateWeights checks that the weights are non-negative, have the count required by the Objective
// Function and, if given, at least one is strictly positive.
func ValidateWeights(name string, w Weights) error {
	var maxCount, minCount int
	switch name {
	case OfNameOF0:
		minCount, maxCount = 0, 2
	case OfNameBestLinkPdr:
		minCount, maxCount = 0, 1
	case OfNameWeightedParameters:
		minCount, maxCount = 3, 3
	default:
		return types.ConfigErrorf("unknown objective function: %s", name)
	}
	if len(w) < minCount || len(w) > maxCount {
		return types.ConfigErrorf("%s needs %d to %d weights, got %d", name, minCount, maxCount, len(w))
	}
	positive := false
	for i, x := range w {
		if x < 0 {
			return types.ConfigErrorf("weight %d is negative: %f", i, x)
		}
		if x > 0 {
			positive = true
		}
	}
	if len(w) > 0 && !positive {
		return types.ConfigErrorf("%s weights must have at least one positive value", name)
	}
	return nil
}

// Clock provides the current simulation time in us.
type Clock interface {
	Now() uint64
}

// ofBase holds the candidate set and the parent selection shared by all variants. The variant provides
// the rank calculation.
type ofBase struct {
	nodeId     types.NodeId
	isRoot     bool
	cfg        OfConfig
	links      LinkEstimator
	clock      Clock
	candidates map[types.NodeId]*Candidate
	parent     *Candidate
	rank       types.Rank
	calc       func(c *Candidate, w Weights) (types.Rank, bool)
}

func newOfBase(nodeId types.NodeId, isRoot bool, cfg OfConfig, links LinkEstimator, clock Clock) *ofBase {
	of := &ofBase{
		nodeId:     nodeId,
		isRoot:     isRoot,
		cfg:        cfg,
		links:      links,
		clock:      clock,
		candidates: map[types.NodeId]*Candidate{},
		rank:       types.InfiniteRank,
	}
	if isRoot {
		of.rank = types.RootRank
	}
	return of
}

func (of *ofBase) UpdateCandidate(dio *packet.Dio) {
	if of.isRoot || dio.Source == of.nodeId {
		return
	}
	if dio.IsPoisoning() {
		of.RemoveCandidate(dio.Source)
		return
	}
	c, ok := of.candidates[dio.Source]
	if !ok {
		c = &Candidate{Id: dio.Source}
		of.candidates[dio.Source] = c
	}
	c.AdvertisedRank = dio.Rank
	c.DodagId = dio.DodagId
	c.Metrics = dio.Metrics
	c.Pdr = of.links.LinkPdr(dio.Source)
	c.LastHeard = of.clock.Now()
}

func (of *ofBase) RemoveCandidate(id types.NodeId) bool {
	if _, ok := of.candidates[id]; !ok {
		return false
	}
	delete(of.candidates, id)
	return true
}

// refreshLinks updates the link estimate of all candidates.
func (of *ofBase) refreshLinks() {
	for id, c := range of.candidates {
		c.Pdr = of.links.LinkPdr(id)
	}
}

func (of *ofBase) isUsable(c *Candidate) (types.Rank, bool) {
	if c.Pdr < of.cfg.AcceptableLowestPdr {
		return types.InfiniteRank, false
	}
	return of.calc(c, of.cfg.Weights)
}

// currentParentRank returns the rank through the current parent, if it is still valid: known, not
// poisoned and above the PDR threshold.
func (of *ofBase) currentParentRank() (types.Rank, bool) {
	if of.parent == nil {
		return types.InfiniteRank, false
	}
	c, ok := of.candidates[of.parent.Id]
	if !ok {
		return types.InfiniteRank, false
	}
	of.parent = c
	return of.isUsable(c)
}

func (of *ofBase) isParent(c *Candidate) bool {
	return of.parent != nil && c.Id == of.parent.Id
}

// findBest scans the candidates for the lowest resulting rank. Candidates other than the current parent whose
// resulting rank is not below curRank are excluded, so that a node never picks a descendant.
func (of *ofBase) findBest(curRank types.Rank) (*Candidate, types.Rank) {
	var best *Candidate
	bestRank := types.InfiniteRank
	for _, id := range of.sortedIds() {
		c := of.candidates[id]
		rank, ok := of.isUsable(c)
		if !ok {
			continue
		}
		if !of.isParent(c) && rank >= curRank {
			continue
		}
		if best == nil || rank < bestRank {
			best, bestRank = c, rank
		}
	}
	return best, bestRank
}

func (of *ofBase) FindBestParent() *Candidate {
	if of.isRoot {
		return nil
	}
	curRank, ok := of.currentParentRank()
	if !ok {
		curRank = of.rank
	}
	best, _ := of.findBest(curRank)
	return best
}

// pruneDescendants removes the candidates that may be below this node in the DODAG: their advertised
// rank is not lower than the last rank of this node.
func (of *ofBase) pruneDescendants(lastRank types.Rank) {
	for id, c := range of.candidates {
		if c.AdvertisedRank >= lastRank {
			delete(of.candidates, id)
		}
	}
}

func (of *ofBase) SelectParent() (bool, *Candidate, *Candidate) {
	if of.isRoot {
		return false, nil, nil
	}
	of.refreshLinks()
	old := of.parent

	curRank, valid := of.currentParentRank()
	if valid {
		of.rank = curRank
	} else if old != nil {
		// current parent lost: local repair, avoiding own descendants.
		of.pruneDescendants(of.rank)
		of.parent = nil
		of.rank = types.InfiniteRank
	}

	best, bestRank := of.findBest(of.rank)
	switch {
	case best == nil:
		// while valid, the current parent is always found
		if old == nil {
			return false, nil, nil
		}
		return true, old, nil
	case !valid:
		// no parent, or the current parent is invalid: take the best, no hysteresis.
	case best.Id == old.Id:
		return false, old, best
	case of.rank-bestRank <= of.cfg.ParentSwitchRankThreshold:
		return false, old, of.parent
	}
	of.parent = best
	of.rank = bestRank
	return true, old, best
}

func (of *ofBase) GetRank() (types.Rank, bool) {
	if of.isRoot {
		return types.RootRank, true
	}
	if of.parent == nil {
		return types.InfiniteRank, false
	}
	return of.rank, true
}

func (of *ofBase) PreferredParent() *Candidate {
	return of.parent
}

func (of *ofBase) sortedIds() []types.NodeId {
	ids := make([]types.NodeId, 0, len(of.candidates))
	for id := range of.candidates {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Candidates returns the candidate set, in ascending id order.
func (of *ofBase) Candidates() []*Candidate {
	res := make([]*Candidate, 0, len(of.candidates))
	for _, id := range of.sortedIds() {
		res = append(res, of.candidates[id])
	}
	return res
}

// addRankIncrease adds a rank increase to an advertised rank; results that are not representable are excluded.
func addRankIncrease(advertised types.Rank, increase float64) (types.Rank, bool) {
	if advertised.IsInfinite() {
		return types.InfiniteRank, false
	}
	if increase < float64(types.MinHopRankIncrease) {
		increase = float64(types.MinHopRankIncrease)
	}
	total := float64(advertised) + increase
	if total >= float64(types.InfiniteRank) {
		return types.InfiniteRank, false
	}
	return types.Rank(total), true
}
