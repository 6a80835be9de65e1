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
)

// Slotframe is a repeating sequence of Length slots. Each slot offset hosts at most one of the node's own cells.
type Slotframe struct {
	Handle int
	Length int

	cells    map[int]*Cell
	reserved map[int]struct{}
}

func NewSlotframe(handle int, length int) *Slotframe {
	logger.AssertTrue(length > 0)
	return &Slotframe{
		Handle:   handle,
		Length:   length,
		cells:    map[int]*Cell{},
		reserved: map[int]struct{}{},
	}
}

// AddCell adds a cell. A second cell at an occupied slot offset is a schedule collision: a fatal assertion.
func (sf *Slotframe) AddCell(c Cell) *Cell {
	logger.AssertTruef(c.SlotOffset >= 0 && c.SlotOffset < sf.Length, "slot offset %d out of range", c.SlotOffset)
	if existing, ok := sf.cells[c.SlotOffset]; ok {
		logger.Panicf("schedule collision in slotframe %d: adding [%s] over [%s]", sf.Handle, c, *existing)
	}
	c.SlotframeHandle = sf.Handle
	cell := &c
	sf.cells[c.SlotOffset] = cell
	delete(sf.reserved, c.SlotOffset)
	return cell
}

func (sf *Slotframe) RemoveCell(slotOffset int) (Cell, bool) {
	c, ok := sf.cells[slotOffset]
	if !ok {
		return Cell{}, false
	}
	delete(sf.cells, slotOffset)
	return *c, true
}

func (sf *Slotframe) GetCell(slotOffset int) (*Cell, bool) {
	c, ok := sf.cells[slotOffset]
	return c, ok
}

// IsSlotFree returns true if the slot offset holds no cell and is not reserved.
func (sf *Slotframe) IsSlotFree(slotOffset int) bool {
	if _, ok := sf.cells[slotOffset]; ok {
		return false
	}
	_, ok := sf.reserved[slotOffset]
	return !ok
}

// Reserve marks a slot offset as proposed in an ongoing negotiation.
func (sf *Slotframe) Reserve(slotOffset int) {
	sf.reserved[slotOffset] = struct{}{}
}

func (sf *Slotframe) Unreserve(slotOffset int) {
	delete(sf.reserved, slotOffset)
}

// Cells returns a copy of all cells, ordered by slot offset.
func (sf *Slotframe) Cells() []Cell {
	res := make([]Cell, 0, len(sf.cells))
	for _, c := range sf.cells {
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].SlotOffset < res[j].SlotOffset
	})
	return res
}

func (sf *Slotframe) NumCells() int {
	return len(sf.cells)
}

// FreeSlots returns the slot offsets that hold no cell and are not reserved, in ascending order.
func (sf *Slotframe) FreeSlots() []int {
	var res []int
	for s := 0; s < sf.Length; s++ {
		if sf.IsSlotFree(s) {
			res = append(res, s)
		}
	}
	return res
}
