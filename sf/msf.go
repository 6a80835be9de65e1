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

package sf

import (
	"math/rand"

	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

// Config holds the cell scheduler parameters; times in us.
type Config struct {
	SlotframeHandle    int
	NumChannels        int
	CellListSize       int
	MaxAttempts        int
	SixPTimeout        uint64
	HighWater          float64
	LowWater           float64
	HousekeepingPeriod uint64
	RxCell             bool // also negotiate one RX cell from the parent
}

func DefaultConfig() Config {
	return Config{
		SlotframeHandle:    types.SlotframeHandleNegotiated,
		NumChannels:        types.DefaultNumChannels,
		CellListSize:       5,
		MaxAttempts:        3,
		SixPTimeout:        16 * types.DefaultSlotDurationUs,
		HighWater:          0.75,
		LowWater:           0.25,
		HousekeepingPeriod: 8 * types.DefaultSlotframeLength * types.DefaultSlotDurationUs,
		RxCell:             true,
	}
}

// Stats are the counters of a cell scheduler.
type Stats struct {
	RequestsSent        int
	RequestsReceived    int
	CellsAdded          int
	CellsRemoved        int
	NegotiationFailures int
}

// Msf is the cell scheduler of one node. It keeps dedicated cells toward the preferred parent, negotiated
// with 6P transactions, and answers the requests of its children. Cells are only ever added or removed in
// this node's own schedule; the peer's side follows from the exchanged messages.
type Msf struct {
	nodeId types.NodeId
	isRoot bool
	cfg    Config
	sched  *tsch.Schedule
	q      *event.Queue
	radio  packet.Radio
	rand   *rand.Rand
	vis    visualize.Visualizer
	log    *logger.NodeLogger

	parent types.NodeId
	seq    uint8

	// tx is the add/delete transaction in flight toward the parent.
	tx *transaction
	// clears are the teardowns in flight toward former parents.
	clears map[types.NodeId]*transaction
	// responses caches the last response sent to each requester, to answer retransmissions.
	responses map[types.NodeId]cachedResponse
	// resync is set when a CLEAR toward the parent is still owed before negotiating again.
	resync bool

	housekeepingEvent *event.Event
	stats             Stats
}

func NewMsf(nodeId types.NodeId, isRoot bool, cfg Config, sched *tsch.Schedule, q *event.Queue,
	radio packet.Radio, r *rand.Rand, vis visualize.Visualizer, log *logger.NodeLogger) *Msf {
	logger.AssertNotNil(sched.GetSlotframe(cfg.SlotframeHandle))
	logger.AssertTrue(cfg.NumChannels > 0 && cfg.CellListSize > 0 && cfg.MaxAttempts > 0)
	return &Msf{
		nodeId:    nodeId,
		isRoot:    isRoot,
		cfg:       cfg,
		sched:     sched,
		q:         q,
		radio:     radio,
		rand:      r,
		vis:       vis,
		log:       log,
		parent:    types.InvalidNodeId,
		clears:    map[types.NodeId]*transaction{},
		responses: map[types.NodeId]cachedResponse{},
	}
}

// Start schedules the periodic housekeeping of a non-root node.
func (m *Msf) Start() {
	if m.isRoot || m.cfg.HousekeepingPeriod == 0 {
		return
	}
	first := m.cfg.HousekeepingPeriod/2 + uint64(m.rand.Int63n(int64(m.cfg.HousekeepingPeriod/2)+1))
	m.scheduleHousekeeping(first)
}

func (m *Msf) scheduleHousekeeping(delay uint64) {
	m.housekeepingEvent = m.q.ScheduleAfter(delay, m.nodeId, "msf-housekeeping", func() {
		m.housekeeping()
		m.scheduleHousekeeping(m.cfg.HousekeepingPeriod)
	})
}

func (m *Msf) Stop() {
	m.parent = types.InvalidNodeId
	m.resync = false
	m.housekeepingEvent.Cancel()
	if m.tx != nil {
		m.finish(m.tx)
	}
	for _, tr := range m.clears {
		m.finish(tr)
	}
}

// OnParentChanged releases the cells bound to the old parent and starts negotiating cells toward the new
// one. Either may be types.InvalidNodeId.
func (m *Msf) OnParentChanged(old, new types.NodeId) {
	if m.isRoot || old == new {
		return
	}
	m.log.Debugf("MSF parent %d -> %d", old, new)
	if m.tx != nil {
		m.log.Debugf("abandoning %s", m.tx.request)
		m.finish(m.tx)
	}
	m.parent = new
	m.resync = false
	if old != types.InvalidNodeId {
		m.startClear(old)
	}
	m.ensureCells()
}

// OnTrafficObserved adapts the number of TX cells toward the parent to the load measured on them, the
// fraction of cell occurrences that carried a frame. At least one TX cell is kept.
func (m *Msf) OnTrafficObserved(parent types.NodeId, load float64) {
	if m.isRoot || parent == types.InvalidNodeId || parent != m.parent {
		return
	}
	if m.tx != nil || m.clears[parent] != nil || m.resync {
		return
	}
	txCells := m.sched.GetTxCells(parent, m.cfg.SlotframeHandle)
	switch {
	case len(txCells) == 0 || load > m.cfg.HighWater:
		m.log.Debugf("load %.2f on %d TX cells: adding one", load, len(txCells))
		m.startAdd(tsch.CellOptionTx)
	case load < m.cfg.LowWater && len(txCells) > 1:
		m.log.Debugf("load %.2f on %d TX cells: deleting one", load, len(txCells))
		m.startDelete(leastUsed(txCells))
	}
}

// leastUsed picks the cell that carried the fewest frames; ties go to the highest slot offset.
func leastUsed(cells []tsch.Cell) tsch.Cell {
	best := cells[0]
	for _, c := range cells[1:] {
		if c.Used < best.Used || (c.Used == best.Used && c.SlotOffset > best.SlotOffset) {
			best = c
		}
	}
	return best
}

func (m *Msf) housekeeping() {
	if m.parent == types.InvalidNodeId {
		return
	}
	if m.resync {
		m.resyncWithParent()
		return
	}
	elapsed, used := 0, 0
	for _, c := range m.sched.GetTxCells(m.parent, m.cfg.SlotframeHandle) {
		elapsed += c.Elapsed
		used += c.Used
	}
	if elapsed > 0 {
		m.OnTrafficObserved(m.parent, float64(used)/float64(elapsed))
	}
	m.sched.ResetCellCounters(m.parent, m.cfg.SlotframeHandle)
	m.ensureCells()
}

// ensureCells starts the next negotiation needed toward the parent: first a TX cell, then an RX cell.
func (m *Msf) ensureCells() {
	if m.isRoot || m.parent == types.InvalidNodeId || m.tx != nil || m.clears[m.parent] != nil || m.resync {
		return
	}
	if len(m.sched.GetTxCells(m.parent, m.cfg.SlotframeHandle)) == 0 {
		m.startAdd(tsch.CellOptionTx)
		return
	}
	if m.cfg.RxCell && len(m.sched.GetRxCells(m.parent, m.cfg.SlotframeHandle)) == 0 {
		m.startAdd(tsch.CellOptionRx)
	}
}

// isFree returns true if no cell of any slotframe is active at the slot offset and it is not reserved.
// Slot 0 always belongs to the minimal cell.
func (m *Msf) isFree(slotOffset int) bool {
	if slotOffset == 0 || !m.slotframe().IsSlotFree(slotOffset) {
		return false
	}
	_, busy := m.sched.GetCellAt(slotOffset)
	return !busy
}

func (m *Msf) slotframe() *tsch.Slotframe {
	return m.sched.GetSlotframe(m.cfg.SlotframeHandle)
}

// propose draws up to CellListSize free cells and reserves their slot offsets.
func (m *Msf) propose() []packet.CellProposal {
	sf := m.slotframe()
	var free []int
	for s := 1; s < sf.Length; s++ {
		if m.isFree(s) {
			free = append(free, s)
		}
	}
	m.rand.Shuffle(len(free), func(i, j int) {
		free[i], free[j] = free[j], free[i]
	})
	if len(free) > m.cfg.CellListSize {
		free = free[:m.cfg.CellListSize]
	}
	cells := make([]packet.CellProposal, 0, len(free))
	for _, s := range free {
		sf.Reserve(s)
		cells = append(cells, packet.CellProposal{
			SlotOffset:    s,
			ChannelOffset: types.ChannelId(m.rand.Intn(m.cfg.NumChannels)),
		})
	}
	return cells
}

func (m *Msf) installCell(c tsch.Cell) {
	cell := m.sched.AddCell(c)
	m.stats.CellsAdded++
	m.log.Infof("cell added %s", cell)
	m.vis.AddCell(m.nodeId, *cell)
}

func (m *Msf) removeCell(slotOffset int) {
	c, ok := m.sched.RemoveCell(m.cfg.SlotframeHandle, slotOffset)
	if !ok {
		return
	}
	m.stats.CellsRemoved++
	m.log.Infof("cell removed %s", c)
	m.vis.RemoveCell(m.nodeId, c)
}

func (m *Msf) removeCellsOf(peer types.NodeId) {
	for _, c := range m.sched.GetCells(peer, m.cfg.SlotframeHandle) {
		m.removeCell(c.SlotOffset)
	}
}

func (m *Msf) reportFailure(peer types.NodeId, cmd packet.SixPCommand, attempts int, reason string) {
	m.stats.NegotiationFailures++
	m.log.Warnf("6P %s with %d failed after %d attempts: %s", cmd, peer, attempts, reason)
	m.vis.OnNegotiationFailed(visualize.NegotiationFailure{
		NodeId:    m.nodeId,
		Peer:      peer,
		Command:   cmd,
		Attempts:  attempts,
		Reason:    reason,
		Timestamp: m.q.Now(),
	})
}

// Parent returns the parent the scheduler allocates cells toward, or types.InvalidNodeId.
func (m *Msf) Parent() types.NodeId {
	return m.parent
}

// IsNegotiating returns true while an add/delete transaction toward the parent is in flight.
func (m *Msf) IsNegotiating() bool {
	return m.tx != nil
}

// IsClearing returns true while a teardown toward peer is in flight.
func (m *Msf) IsClearing(peer types.NodeId) bool {
	return m.clears[peer] != nil
}

func (m *Msf) Stats() Stats {
	return m.stats
}
