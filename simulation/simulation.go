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

package simulation

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/openthread/ot-tsch-sim/energy"
	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/mote"
	"github.com/openthread/ot-tsch-sim/prng"
	"github.com/openthread/ot-tsch-sim/progctx"
	"github.com/openthread/ot-tsch-sim/radiomodel"
	. "github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

const energySamplePeriod = 30 * Second

type Simulation struct {
	ctx            *progctx.ProgCtx
	cfg            *Config
	q              *event.Queue
	gens           *prng.Generators
	rm             radiomodel.RadioModel
	motes          map[NodeId]*mote.Mote
	nodeIds        []NodeId
	vis            visualize.Visualizer
	energyAnalyser *energy.EnergyAnalyser
	kpiMgr         *KpiManager
	radioStats     RadioStats

	asn           uint64
	slotEvent     *event.Event
	energyEvent   *event.Event
	trafficEvents map[NodeId]*event.Event
	watching      map[NodeId]logger.Level
	stopped       bool
}

// NewSimulation validates cfg, creates all motes and starts them at time 0. Motes are numbered from 0, which
// is the DODAG root.
func NewSimulation(ctx *progctx.ProgCtx, cfg *Config, vis visualize.Visualizer) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if vis == nil {
		vis = visualize.NewNopVisualizer()
	}
	s := &Simulation{
		ctx:            ctx,
		cfg:            cfg,
		q:              event.NewQueue(),
		gens:           prng.New(cfg.Seed),
		motes:          map[NodeId]*mote.Mote{},
		vis:            vis,
		energyAnalyser: energy.NewEnergyAnalyser(),
		trafficEvents:  map[NodeId]*event.Event{},
		watching:       map[NodeId]logger.Level{},
	}
	logger.Infof("simulation %d: %d motes, seed %d", cfg.Id, cfg.NumMotes, s.gens.RootSeed())
	if err := s.createOutputDir(); err != nil {
		return nil, err
	}
	s.vis.Init()
	if cu, ok := s.vis.(visualize.ClockUser); ok {
		cu.SetClock(s.q)
	}
	logger.SetClock(s.q)

	s.rm = radiomodel.Create(cfg.Connectivity.Class, cfg.Connectivity.Pdr)
	logger.AssertNotNil(s.rm)
	for _, l := range cfg.Connectivity.Links {
		s.rm.SetPdrBothDirections(l.A, l.B, radiomodel.AllChannels, l.Pdr)
	}

	for id := 0; id < cfg.NumMotes; id++ {
		if err := s.addMote(id); err != nil {
			return nil, err
		}
	}
	s.energyAnalyser.SetTitle(fmt.Sprintf("%d_energy", cfg.Id))
	s.kpiMgr = NewKpiManager()
	s.kpiMgr.Init(s)
	s.start()
	return s, nil
}

func (s *Simulation) addMote(id NodeId) error {
	entry := s.cfg.moteEntry(id)
	s.rm.AddNode(id, radiomodel.Position{X: entry.X, Y: entry.Y})

	m, err := mote.New(s.cfg.moteConfig(id), s.q, &moteRadio{s: s, id: id}, s.rm, s.gens.NewNodeRand(), s.vis)
	if err != nil {
		return errors.Wrapf(err, "creating mote %d", id)
	}
	if entry.ResidualEnergy != nil {
		m.Battery.SetResidualEnergy(*entry.ResidualEnergy)
	}
	s.motes[id] = m
	s.nodeIds = append(s.nodeIds, id)
	s.energyAnalyser.AddNode(m.Battery)
	s.vis.AddNode(id, m.IsRoot())
	return nil
}

func (s *Simulation) start() {
	for _, id := range s.nodeIds {
		s.motes[id].Start()
	}
	s.slotEvent = s.q.Schedule(0, InvalidNodeId, "slot", s.onSlot)
	s.energyEvent = s.q.ScheduleAfter(energySamplePeriod, InvalidNodeId, "energy-sample", s.onEnergySample)
	if s.cfg.Traffic.PeriodSec > 0 {
		period := secondsToUs(s.cfg.Traffic.PeriodSec)
		for _, id := range s.nodeIds {
			if id == RootId {
				continue
			}
			s.scheduleTraffic(id, uint64(s.gens.NewUnitRandom()*float64(period)), period)
		}
	}
	s.kpiMgr.Start()
}

// onSlot runs one timeslot in all motes: first every mote acts in its active cell, then the slot is closed
// and the radio activity charged.
func (s *Simulation) onSlot() {
	for _, id := range s.nodeIds {
		s.motes[id].OnSlot(s.asn)
	}
	for _, id := range s.nodeIds {
		s.motes[id].EndSlot()
	}
	s.asn++
	s.slotEvent = s.q.Schedule(s.asn*s.cfg.SlotDurationUs, InvalidNodeId, "slot", s.onSlot)
}

func (s *Simulation) scheduleTraffic(id NodeId, delay uint64, period uint64) {
	m := s.motes[id]
	s.trafficEvents[id] = s.q.ScheduleAfter(delay, id, "traffic", func() {
		if m.Dodag.State() == Attached {
			m.GenerateData()
		}
		s.scheduleTraffic(id, period, period)
	})
}

func (s *Simulation) onEnergySample() {
	s.energyAnalyser.StoreNetworkEnergy(s.q.Now())
	s.energyEvent = s.q.ScheduleAfter(energySamplePeriod, InvalidNodeId, "energy-sample", s.onEnergySample)
}

// Go runs the simulation for duration us of simulated time, one slotframe at a time. It returns
// CommandInterruptedError if the program context is cancelled meanwhile.
func (s *Simulation) Go(duration uint64) error {
	if s.stopped {
		return errors.Errorf("simulation is stopped")
	}
	end := s.q.Now() + duration
	chunk := uint64(s.cfg.SlotframeLength) * s.cfg.SlotDurationUs
	for s.q.Now() < end {
		if s.ctx != nil && s.ctx.Err() != nil {
			return CommandInterruptedError
		}
		next := s.q.Now() + chunk
		if next > end {
			next = end
		}
		s.q.RunUntil(next)
		s.vis.AdvanceTime(s.q.Now())
	}
	return nil
}

// RunSlotframes runs the configured number of slotframes.
func (s *Simulation) RunSlotframes(n uint64) error {
	return s.Go(n * uint64(s.cfg.SlotframeLength) * s.cfg.SlotDurationUs)
}

// Stop ends the simulation: KPIs and energy data are saved, all motes stopped and the visualizer stopped.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation at %d us", s.q.Now())
	s.kpiMgr.Stop()
	s.energyAnalyser.StoreNetworkEnergy(s.q.Now())
	if s.cfg.OutputDir != "" {
		if err := s.energyAnalyser.SaveEnergyDataToFile(s.cfg.OutputDir, "", s.q.Now()); err != nil {
			logger.Errorf("%v", err)
		}
	}
	s.stopped = true

	s.slotEvent.Cancel()
	s.energyEvent.Cancel()
	for _, e := range s.trafficEvents {
		e.Cancel()
	}
	for _, id := range s.nodeIds {
		s.motes[id].Stop()
	}
	logger.Debugf("all motes stopped, dropping %d pending deliveries", s.q.Len())
	s.q.Clear()
	s.vis.Stop()
	logger.SetClock(nil)
}

func (s *Simulation) IsStopped() bool {
	return s.stopped
}

func (s *Simulation) createOutputDir() error {
	if s.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0775); err != nil {
		return errors.Wrapf(err, "creating output directory %s", s.cfg.OutputDir)
	}
	return removeAllFiles(fmt.Sprintf("%s/%d_*.*", s.cfg.OutputDir, s.cfg.Id))
}

// GetNodes returns the ids of all motes in ascending order.
func (s *Simulation) GetNodes() []NodeId {
	return s.nodeIds
}

func (s *Simulation) GetMote(id NodeId) *mote.Mote {
	return s.motes[id]
}

// VisitNodesInOrder calls cb for every mote in ascending id order.
func (s *Simulation) VisitNodesInOrder(cb func(m *mote.Mote)) {
	for _, id := range s.nodeIds {
		cb(s.motes[id])
	}
}

func (s *Simulation) Config() *Config {
	return s.cfg
}

// Now returns the simulated time in us.
func (s *Simulation) Now() uint64 {
	return s.q.Now()
}

// Asn returns the absolute slot number of the next slot.
func (s *Simulation) Asn() uint64 {
	return s.asn
}

func (s *Simulation) RadioModel() radiomodel.RadioModel {
	return s.rm
}

func (s *Simulation) RadioStats() RadioStats {
	return s.radioStats
}

func (s *Simulation) EnergyAnalyser() *energy.EnergyAnalyser {
	return s.energyAnalyser
}

func (s *Simulation) Kpi() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) Visualizer() visualize.Visualizer {
	return s.vis
}

// SetLinkPdr overrides the PDR of link (a, b) in both directions on all channels.
func (s *Simulation) SetLinkPdr(a, b NodeId, pdr float64) error {
	if s.motes[a] == nil || s.motes[b] == nil || a == b {
		return errors.Errorf("invalid link (%d, %d)", a, b)
	}
	if !inUnitRange(pdr) {
		return errors.Errorf("pdr %v outside [0,1]", pdr)
	}
	s.rm.SetPdrBothDirections(a, b, radiomodel.AllChannels, pdr)
	return nil
}

func (s *Simulation) SetResidualEnergy(id NodeId, fraction float64) error {
	m := s.motes[id]
	if m == nil {
		return errors.Errorf("node not found: %d", id)
	}
	if !inUnitRange(fraction) {
		return errors.Errorf("residual energy %v outside [0,1]", fraction)
	}
	m.Battery.SetResidualEnergy(fraction)
	return nil
}

// WatchNode displays the log of a mote on the console, from the given level up.
func (s *Simulation) WatchNode(id NodeId, level logger.Level) error {
	m := s.motes[id]
	if m == nil {
		return errors.Errorf("node not found: %d", id)
	}
	if level == logger.OffLevel {
		s.UnwatchNode(id)
		return nil
	}
	m.Logger.SetDisplayLevel(level)
	s.watching[id] = level
	return nil
}

func (s *Simulation) UnwatchNode(id NodeId) {
	if m := s.motes[id]; m != nil {
		m.Logger.SetDisplayLevel(logger.ErrorLevel)
	}
	delete(s.watching, id)
}

// GetWatchingNodes returns the watched motes in ascending id order.
func (s *Simulation) GetWatchingNodes() []NodeId {
	var ids []NodeId
	for _, id := range s.nodeIds {
		if _, ok := s.watching[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CountAttached returns the number of motes attached to the DODAG, the root included.
func (s *Simulation) CountAttached() int {
	n := 0
	for _, m := range s.motes {
		if m.Dodag.State() == Attached {
			n++
		}
	}
	return n
}

// AuditDodag checks that following the parent pointers from any attached mote never revisits a mote. A
// chain may end at a detached mote that has not yet been noticed by its children.
func (s *Simulation) AuditDodag() error {
	for _, id := range s.nodeIds {
		m := s.motes[id]
		if m.IsRoot() || m.Dodag.State() != Attached {
			continue
		}
		visited := map[NodeId]bool{id: true}
		for cur := m; !cur.IsRoot(); {
			next := s.motes[cur.Dodag.Parent()]
			if next == nil {
				break
			}
			if visited[next.Id] {
				return errors.Errorf("routing loop through node %d, reached from node %d", next.Id, id)
			}
			visited[next.Id] = true
			cur = next
		}
	}
	return nil
}
