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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
)

func TestSixPResponseDirection(t *testing.T) {
	req := &SixP{
		Kind:            SixPRequest,
		Command:         SixPAdd,
		Requester:       5,
		Responder:       3,
		SlotframeHandle: types.SlotframeHandleNegotiated,
		TransactionId:   7,
		Options:         tsch.CellOptionTx,
		NumCells:        1,
		Cells:           []CellProposal{{4, 2}, {9, 1}},
	}
	p := NewSixP(req)
	assert.Equal(t, 5, p.Src)
	assert.Equal(t, 3, p.Dst)

	rsp := req.NewResponse(SixPSuccess, []CellProposal{{9, 1}})
	assert.Equal(t, SixPResponse, rsp.Kind)
	assert.Equal(t, uint8(7), rsp.TransactionId)
	assert.Equal(t, 1, rsp.NumCells)
	p = NewSixP(rsp)
	assert.Equal(t, 3, p.Src)
	assert.Equal(t, 5, p.Dst)
	assert.Contains(t, p.String(), "rsp:SUCCESS ADD tid=7")
}

func TestDio(t *testing.T) {
	dio := &Dio{Source: 2, Rank: types.InfiniteRank, DodagId: 0}
	assert.True(t, dio.IsPoisoning())
	p := NewDio(dio)
	assert.True(t, p.IsBroadcast())
	assert.Equal(t, "DIO 2->* {src=2 rank=inf dodag=0 hops=0 energy=0.00}", p.String())
	assert.Equal(t, "DATA", TypeData.String())
	assert.Equal(t, "CLEAR", SixPClear.String())
}
