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
	"fmt"
	"strings"

	"github.com/openthread/ot-tsch-sim/types"
)

// CellOption are the link options of a cell.
type CellOption uint8

const (
	CellOptionTx CellOption = 1 << iota
	CellOptionRx
	CellOptionShared
)

func (o CellOption) Has(opt CellOption) bool {
	return o&opt == opt
}

// Mirror returns the options the peer must use for the same cell: TX becomes RX and vice versa.
func (o CellOption) Mirror() CellOption {
	m := o & CellOptionShared
	if o.Has(CellOptionTx) {
		m |= CellOptionRx
	}
	if o.Has(CellOptionRx) {
		m |= CellOptionTx
	}
	return m
}

func (o CellOption) String() string {
	var s []string
	if o.Has(CellOptionTx) {
		s = append(s, "TX")
	}
	if o.Has(CellOptionRx) {
		s = append(s, "RX")
	}
	if o.Has(CellOptionShared) {
		s = append(s, "SH")
	}
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, "|")
}

// Cell is a (slot offset, channel offset) reservation within a slotframe, for communicating with one peer.
type Cell struct {
	SlotframeHandle int
	SlotOffset      int
	ChannelOffset   types.ChannelId
	Options         CellOption
	Peer            types.NodeId

	// Elapsed counts the occurrences of the cell, Used counts the occurrences in which it carried a frame.
	// Both are reset by the cell scheduler at each housekeeping.
	Elapsed int
	Used    int
}

func (c Cell) IsTx() bool {
	return c.Options.Has(CellOptionTx)
}

func (c Cell) IsRx() bool {
	return c.Options.Has(CellOptionRx)
}

func (c Cell) IsShared() bool {
	return c.Options.Has(CellOptionShared)
}

// IsDedicatedTx returns true for a non-shared TX cell.
func (c Cell) IsDedicatedTx() bool {
	return c.IsTx() && !c.IsShared()
}

func (c Cell) String() string {
	peer := "*"
	if c.Peer != types.BroadcastNodeId {
		peer = fmt.Sprintf("%d", c.Peer)
	}
	return fmt.Sprintf("sf=%d slot=%d ch=%d %s peer=%s", c.SlotframeHandle, c.SlotOffset, c.ChannelOffset,
		c.Options, peer)
}
