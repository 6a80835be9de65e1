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

package tsch

import (
	"sort"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/types"
)

// Schedule is the table of slotframes owned by one node. Only the owning node changes it.
type Schedule struct {
	NodeId types.NodeId

	slotframes map[int]*Slotframe
	handles    []int
}

func NewSchedule(nodeId types.NodeId) *Schedule {
	return &Schedule{
		NodeId:     nodeId,
		slotframes: map[int]*Slotframe{},
	}
}

// AddSlotframe adds a new slotframe; slotframes with a lower handle take precedence in a slot.
func (s *Schedule) AddSlotframe(handle int, length int) *Slotframe {
	logger.AssertNil(s.slotframes[handle], "slotframe %d exists", handle)
	sf := NewSlotframe(handle, length)
	s.slotframes[handle] = sf
	s.handles = append(s.handles, handle)
	sort.Ints(s.handles)
	return sf
}

func (s *Schedule) GetSlotframe(handle int) *Slotframe {
	return s.slotframes[handle]
}

func (s *Schedule) mustSlotframe(handle int) *Slotframe {
	sf := s.slotframes[handle]
	logger.AssertTruef(sf != nil, "node %d: no slotframe with handle %d", s.NodeId, handle)
	return sf
}

// InstallMinimalCell adds the shared cell at slot 0, channel 0 used by every node for broadcast and
// negotiation traffic.
func (s *Schedule) InstallMinimalCell(handle int) {
	s.AddCell(Cell{
		SlotframeHandle: handle,
		SlotOffset:      0,
		ChannelOffset:   0,
		Options:         CellOptionTx | CellOptionRx | CellOptionShared,
		Peer:            types.BroadcastNodeId,
	})
}

// AddCell adds a cell to the slotframe given by its SlotframeHandle. A collision is a fatal assertion.
func (s *Schedule) AddCell(c Cell) *Cell {
	cell := s.mustSlotframe(c.SlotframeHandle).AddCell(c)
	logger.Tracef("node %d: added cell %s", s.NodeId, cell)
	return cell
}

func (s *Schedule) RemoveCell(handle int, slotOffset int) (Cell, bool) {
	return s.mustSlotframe(handle).RemoveCell(slotOffset)
}

// RemoveCells removes all cells toward peer in the slotframe and returns them.
func (s *Schedule) RemoveCells(peer types.NodeId, handle int) []Cell {
	sf := s.mustSlotframe(handle)
	cells := s.GetCells(peer, handle)
	for _, c := range cells {
		sf.RemoveCell(c.SlotOffset)
	}
	return cells
}

// GetCells returns the cells scheduled toward peer in the slotframe, ordered by slot offset.
func (s *Schedule) GetCells(peer types.NodeId, handle int) []Cell {
	sf := s.slotframes[handle]
	if sf == nil {
		return nil
	}
	var res []Cell
	for _, c := range sf.Cells() {
		if c.Peer == peer {
			res = append(res, c)
		}
	}
	return res
}

// GetTxCells returns the dedicated TX cells toward peer in the slotframe.
func (s *Schedule) GetTxCells(peer types.NodeId, handle int) []Cell {
	var res []Cell
	for _, c := range s.GetCells(peer, handle) {
		if c.IsDedicatedTx() {
			res = append(res, c)
		}
	}
	return res
}

// GetRxCells returns the dedicated RX cells from peer in the slotframe.
func (s *Schedule) GetRxCells(peer types.NodeId, handle int) []Cell {
	var res []Cell
	for _, c := range s.GetCells(peer, handle) {
		if c.IsRx() && !c.IsShared() {
			res = append(res, c)
		}
	}
	return res
}

// GetCellAt returns the cell active at the slot offset, if any. The slot offset is reduced modulo each
// slotframe's length, and the slotframe with the lowest handle wins.
func (s *Schedule) GetCellAt(slotOffset int) (*Cell, bool) {
	for _, h := range s.handles {
		sf := s.slotframes[h]
		if c, ok := sf.GetCell(slotOffset % sf.Length); ok {
			return c, true
		}
	}
	return nil, false
}

// GetActiveCell returns the cell active at the absolute slot number asn, if any.
func (s *Schedule) GetActiveCell(asn uint64) (*Cell, bool) {
	for _, h := range s.handles {
		sf := s.slotframes[h]
		if c, ok := sf.GetCell(int(asn % uint64(sf.Length))); ok {
			return c, true
		}
	}
	return nil, false
}

// AllCells returns all cells of all slotframes, in handle and slot offset order.
func (s *Schedule) AllCells() []Cell {
	var res []Cell
	for _, h := range s.handles {
		res = append(res, s.slotframes[h].Cells()...)
	}
	return res
}

// ResetCellCounters resets the Elapsed and Used counters of all cells toward peer in the slotframe.
func (s *Schedule) ResetCellCounters(peer types.NodeId, handle int) {
	sf := s.mustSlotframe(handle)
	for _, c := range sf.cells {
		if c.Peer == peer {
			c.Elapsed = 0
			c.Used = 0
		}
	}
}

// CheckNoCollision verifies that no two cells of this node share a slot offset within one slotframe.
// Cells are stored by slot offset, so a violation can only come from a corrupted table.
func (s *Schedule) CheckNoCollision() bool {
	for _, sf := range s.slotframes {
		seen := map[int]struct{}{}
		for slot, c := range sf.cells {
			if slot != c.SlotOffset {
				return false
			}
			if _, ok := seen[c.SlotOffset]; ok {
				return false
			}
			seen[c.SlotOffset] = struct{}{}
		}
	}
	return true
}
