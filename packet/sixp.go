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

package packet

import (
	"fmt"

	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
)

type SixPKind int

const (
	SixPRequest SixPKind = iota
	SixPResponse
)

// SixPCommand is the negotiation command. A CLEAR request is the teardown variant: it releases all negotiated
// cells between requester and responder.
type SixPCommand int

const (
	SixPAdd SixPCommand = iota
	SixPDelete
	SixPClear
)

func (c SixPCommand) String() string {
	switch c {
	case SixPAdd:
		return "ADD"
	case SixPDelete:
		return "DELETE"
	case SixPClear:
		return "CLEAR"
	default:
		return fmt.Sprintf("CMD(%d)", int(c))
	}
}

type SixPReturnCode int

const (
	SixPSuccess SixPReturnCode = iota
	SixPErrNoRes    // no proposed cell could be installed
	SixPErrBusy     // responder has a transaction in progress with this requester
	SixPErrCellList // DELETE of a cell unknown to the responder
)

func (rc SixPReturnCode) String() string {
	switch rc {
	case SixPSuccess:
		return "SUCCESS"
	case SixPErrNoRes:
		return "NORES"
	case SixPErrBusy:
		return "BUSY"
	case SixPErrCellList:
		return "CELLLIST"
	default:
		return fmt.Sprintf("RC(%d)", int(rc))
	}
}

// CellProposal is a (slot offset, channel offset) pair proposed or confirmed in a negotiation.
type CellProposal struct {
	SlotOffset    int
	ChannelOffset types.ChannelId
}

// SixP is a cell negotiation message. Options are expressed from the requester's point of view.
type SixP struct {
	Kind            SixPKind
	Command         SixPCommand
	Requester       types.NodeId
	Responder       types.NodeId
	SlotframeHandle int
	TransactionId   uint8
	Options         tsch.CellOption
	NumCells        int
	Cells           []CellProposal
	ReturnCode      SixPReturnCode
}

func (m *SixP) String() string {
	kind := "req"
	if m.Kind == SixPResponse {
		kind = "rsp:" + m.ReturnCode.String()
	}
	return fmt.Sprintf("{%s %s tid=%d %d->%d opt=%s cells=%v}", kind, m.Command, m.TransactionId, m.Requester,
		m.Responder, m.Options, m.Cells)
}

// NewResponse creates the response to a request, with the same transaction id and command.
func (m *SixP) NewResponse(rc SixPReturnCode, cells []CellProposal) *SixP {
	return &SixP{
		Kind:            SixPResponse,
		Command:         m.Command,
		Requester:       m.Requester,
		Responder:       m.Responder,
		SlotframeHandle: m.SlotframeHandle,
		TransactionId:   m.TransactionId,
		Options:         m.Options,
		NumCells:        len(cells),
		Cells:           cells,
		ReturnCode:      rc,
	}
}
