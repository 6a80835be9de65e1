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
	"sort"

	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

// DodagConfig holds the timing parameters of the DODAG manager; times in us.
type DodagConfig struct {
	DioIntervalMin       int // Imin = 2^DioIntervalMin ms
	DioIntervalDoublings int
	DioRedundancy        int
	CandidateLifetime    uint64
	ReevaluationPeriod   uint64
	DaoPeriod            uint64
}

func DefaultDodagConfig() DodagConfig {
	return DodagConfig{
		DioIntervalMin:       14, // 16.384 s
		DioIntervalDoublings: 4,
		DioRedundancy:        0,
		CandidateLifetime:    600 * types.Second,
		ReevaluationPeriod:   60 * types.Second,
		DaoPeriod:            180 * types.Second,
	}
}

// ParentListener is notified when the preferred parent changes; InvalidNodeId stands for no parent.
type ParentListener interface {
	OnParentChanged(old, new types.NodeId)
}

// EnergySource provides the residual energy fraction of this node.
type EnergySource interface {
	ResidualEnergy() float64
}

// Dodag is the DODAG manager of one node: it ingests and produces DIO and DAO messages, drives the
// Objective Function, tracks the attachment state and notifies the cell scheduler on parent change.
type Dodag struct {
	nodeId  types.NodeId
	isRoot  bool
	dodagId types.NodeId
	cfg     DodagConfig
	of      ObjectiveFunction
	q       *event.Queue
	radio   packet.Radio
	energy  EnergySource
	vis     visualize.Visualizer
	log     *logger.NodeLogger

	listener ParentListener
	state    types.DodagState
	lastRank types.Rank
	trickle  *Trickle

	expiry    map[types.NodeId]*event.Event
	tickEvent *event.Event
	daoEvent  *event.Event
	routes    map[types.NodeId]types.NodeId

	stats DodagStats
}

// DodagStats are the counters of a DODAG manager.
type DodagStats struct {
	ParentChanges int
	DiosSent      int
	DaosSent      int
	Detaches      int
}

// NewDodag creates the DODAG manager of a node. The root is permanently attached; dodagId is the root id.
func NewDodag(nodeId types.NodeId, isRoot bool, dodagId types.NodeId, cfg DodagConfig, of ObjectiveFunction,
	q *event.Queue, radio packet.Radio, energy EnergySource, r *rand.Rand, vis visualize.Visualizer,
	log *logger.NodeLogger) *Dodag {
	d := &Dodag{
		nodeId:   nodeId,
		isRoot:   isRoot,
		dodagId:  dodagId,
		cfg:      cfg,
		of:       of,
		q:        q,
		radio:    radio,
		energy:   energy,
		vis:      vis,
		log:      log,
		state:    types.Unattached,
		lastRank: types.InfiniteRank,
		expiry:   map[types.NodeId]*event.Event{},
		routes:   map[types.NodeId]types.NodeId{},
	}
	imin := (uint64(1) << uint(cfg.DioIntervalMin)) * types.Millisecond
	d.trickle = NewTrickle(q, nodeId, r, imin, cfg.DioIntervalDoublings, cfg.DioRedundancy, d.sendDio)
	return d
}

func (d *Dodag) SetParentListener(l ParentListener) {
	d.listener = l
}

// Start starts the root advertising, or a non-root node's periodic parent re-evaluation.
func (d *Dodag) Start() {
	if d.isRoot {
		d.setState(types.Attached)
		d.updateRank()
		d.trickle.Start()
		return
	}
	d.scheduleTick()
}

func (d *Dodag) scheduleTick() {
	if d.cfg.ReevaluationPeriod == 0 {
		return
	}
	d.tickEvent = d.q.ScheduleAfter(d.cfg.ReevaluationPeriod, d.nodeId, "rpl-tick", func() {
		d.OnPeriodicTick()
		d.scheduleTick()
	})
}

// OnReceiveDio ingests a DIO: updates the candidate and re-runs parent selection.
func (d *Dodag) OnReceiveDio(dio *packet.Dio) {
	if dio.Source == d.nodeId {
		return
	}
	if d.state == types.Attached && dio.DodagId == d.dodagId && !dio.IsPoisoning() {
		d.trickle.Consistent()
	}
	if d.isRoot {
		return
	}
	if dio.DodagId != d.dodagId {
		d.log.Debugf("ignoring DIO of other DODAG %d", dio.DodagId)
		return
	}
	d.log.Tracef("received DIO %s", dio)
	d.of.UpdateCandidate(dio)
	if dio.IsPoisoning() {
		d.cancelExpiry(dio.Source)
	} else {
		d.refreshExpiry(dio.Source)
	}
	d.selectParent()
}

// OnPeriodicTick re-runs parent selection, to catch changes without new DIOs.
func (d *Dodag) OnPeriodicTick() {
	if d.isRoot {
		return
	}
	d.selectParent()
}

func (d *Dodag) refreshExpiry(id types.NodeId) {
	d.cancelExpiry(id)
	if d.cfg.CandidateLifetime == 0 {
		return
	}
	d.expiry[id] = d.q.ScheduleAfter(d.cfg.CandidateLifetime, d.nodeId, "rpl-candidate-expiry", func() {
		delete(d.expiry, id)
		d.onCandidateExpired(id)
	})
}

func (d *Dodag) cancelExpiry(id types.NodeId) {
	if e, ok := d.expiry[id]; ok {
		e.Cancel()
		delete(d.expiry, id)
	}
}

func (d *Dodag) onCandidateExpired(id types.NodeId) {
	if d.of.RemoveCandidate(id) {
		d.log.Debugf("candidate %d expired", id)
		d.selectParent()
	}
}

func (d *Dodag) selectParent() {
	switched, old, best := d.of.SelectParent()
	// candidates may have been pruned by the Objective Function
	for id := range d.expiry {
		if !d.hasCandidate(id) {
			d.cancelExpiry(id)
		}
	}
	if !switched {
		d.updateRank()
		return
	}

	oldId, newId := types.InvalidNodeId, types.InvalidNodeId
	if old != nil {
		oldId = old.Id
	}
	if best != nil {
		newId = best.Id
	}
	d.stats.ParentChanges++
	d.log.Infof("preferred parent %d -> %d", oldId, newId)
	d.vis.SetParent(d.nodeId, newId)

	if best == nil {
		d.detach()
	} else {
		d.setState(types.Attached)
		d.updateRank()
		d.trickle.Reset()
		d.sendDao()
		d.scheduleDao()
	}
	if d.listener != nil {
		d.listener.OnParentChanged(oldId, newId)
	}
}

func (d *Dodag) hasCandidate(id types.NodeId) bool {
	for _, c := range d.of.Candidates() {
		if c.Id == id {
			return true
		}
	}
	return false
}

// detach moves to the unattached state: one poisoning DIO is sent, then the node stays silent.
func (d *Dodag) detach() {
	d.stats.Detaches++
	d.trickle.Stop()
	d.daoEvent.Cancel()
	d.daoEvent = nil
	d.setState(types.Unattached)
	d.updateRank()
	d.radio.Send(packet.NewDio(&packet.Dio{
		Source:    d.nodeId,
		Rank:      types.InfiniteRank,
		DodagId:   d.dodagId,
		Timestamp: d.q.Now(),
	}))
	d.stats.DiosSent++
}

func (d *Dodag) setState(state types.DodagState) {
	if d.state == state {
		return
	}
	d.log.Infof("DODAG state %s -> %s", d.state, state)
	d.state = state
	d.vis.SetDodagState(d.nodeId, state)
}

func (d *Dodag) updateRank() {
	rank, ok := d.of.GetRank()
	if !ok {
		rank = types.InfiniteRank
	}
	if rank != d.lastRank {
		d.lastRank = rank
		d.vis.SetRank(d.nodeId, rank)
	}
}

// BuildDio builds the DIO of this node; ok is false if it must not advertise (unattached).
func (d *Dodag) BuildDio() (*packet.Dio, bool) {
	rank, ok := d.of.GetRank()
	if !ok || d.state != types.Attached {
		return nil, false
	}
	hops := 0
	if p := d.of.PreferredParent(); p != nil && !d.isRoot {
		hops = p.Metrics.HopCount + 1
	}
	energy := 1.0
	if d.energy != nil {
		energy = d.energy.ResidualEnergy()
	}
	return &packet.Dio{
		Source:  d.nodeId,
		Rank:    rank,
		DodagId: d.dodagId,
		Metrics: packet.Metrics{
			HopCount:       hops,
			ResidualEnergy: energy,
		},
		Timestamp: d.q.Now(),
	}, true
}

func (d *Dodag) sendDio() {
	dio, ok := d.BuildDio()
	if !ok {
		return
	}
	d.radio.Send(packet.NewDio(dio))
	d.stats.DiosSent++
}

// BuildDao builds the DAO advertising reachability through the preferred parent; ok is false for the root
// or while unattached.
func (d *Dodag) BuildDao() (*packet.Dao, bool) {
	p := d.of.PreferredParent()
	if d.isRoot || p == nil {
		return nil, false
	}
	return &packet.Dao{
		Source:    d.nodeId,
		Parent:    p.Id,
		DodagId:   d.dodagId,
		Timestamp: d.q.Now(),
	}, true
}

func (d *Dodag) sendDao() {
	dao, ok := d.BuildDao()
	if !ok {
		return
	}
	d.radio.Send(packet.NewDao(dao.Parent, d.nodeId, dao))
	d.stats.DaosSent++
}

func (d *Dodag) scheduleDao() {
	d.daoEvent.Cancel()
	d.daoEvent = nil
	if d.cfg.DaoPeriod == 0 {
		return
	}
	d.daoEvent = d.q.ScheduleAfter(d.cfg.DaoPeriod, d.nodeId, "rpl-dao", func() {
		d.daoEvent = nil
		d.sendDao()
		d.scheduleDao()
	})
}

// OnReceiveDao records the route at the root; other nodes forward the DAO to their own parent.
func (d *Dodag) OnReceiveDao(dao *packet.Dao) {
	if dao.DodagId != d.dodagId {
		return
	}
	if d.isRoot {
		if prev, ok := d.routes[dao.Source]; !ok || prev != dao.Parent {
			d.log.Debugf("route %d via %d", dao.Source, dao.Parent)
		}
		d.routes[dao.Source] = dao.Parent
		return
	}
	p := d.of.PreferredParent()
	if p == nil {
		d.log.Debugf("dropping DAO of %d: no parent", dao.Source)
		return
	}
	d.radio.Send(packet.NewDao(p.Id, d.nodeId, dao))
}

// Routes returns the child -> parent table learned from DAOs (root only).
func (d *Dodag) Routes() map[types.NodeId]types.NodeId {
	res := make(map[types.NodeId]types.NodeId, len(d.routes))
	for k, v := range d.routes {
		res[k] = v
	}
	return res
}

// RouteTo returns the downward path from the root to a node, using the route table (root only).
// ok is false if the node is unknown or the table contains a loop.
func (d *Dodag) RouteTo(dst types.NodeId) ([]types.NodeId, bool) {
	path := []types.NodeId{dst}
	seen := map[types.NodeId]struct{}{dst: {}}
	for cur := dst; cur != d.nodeId; {
		parent, ok := d.routes[cur]
		if !ok {
			return nil, false
		}
		if _, loop := seen[parent]; loop {
			return nil, false
		}
		seen[parent] = struct{}{}
		path = append([]types.NodeId{parent}, path...)
		cur = parent
	}
	return path, true
}

func (d *Dodag) State() types.DodagState {
	return d.state
}

func (d *Dodag) IsRoot() bool {
	return d.isRoot
}

func (d *Dodag) ObjectiveFunction() ObjectiveFunction {
	return d.of
}

// Parent returns the preferred parent id, or InvalidNodeId.
func (d *Dodag) Parent() types.NodeId {
	if p := d.of.PreferredParent(); p != nil {
		return p.Id
	}
	return types.InvalidNodeId
}

func (d *Dodag) Rank() types.Rank {
	rank, ok := d.of.GetRank()
	if !ok {
		return types.InfiniteRank
	}
	return rank
}

func (d *Dodag) HopCount() int {
	if d.isRoot {
		return 0
	}
	if p := d.of.PreferredParent(); p != nil {
		return p.Metrics.HopCount + 1
	}
	return -1
}

func (d *Dodag) Stats() DodagStats {
	return d.stats
}

// CandidateIds returns the ids of the current candidates, in ascending order.
func (d *Dodag) CandidateIds() []types.NodeId {
	var ids []types.NodeId
	for _, c := range d.of.Candidates() {
		ids = append(ids, c.Id)
	}
	sort.Ints(ids)
	return ids
}

// Stop cancels all pending events of the manager.
func (d *Dodag) Stop() {
	d.trickle.Stop()
	d.tickEvent.Cancel()
	d.daoEvent.Cancel()
	for id := range d.expiry {
		d.cancelExpiry(id)
	}
}
