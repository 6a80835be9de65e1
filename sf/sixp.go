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
	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
)

// transaction is a 6P request awaiting its response. A timeout retransmits the same request, a rejection
// retries with a new transaction id after a backoff; both count as attempts.
type transaction struct {
	peer     types.NodeId
	request  *packet.SixP
	attempts int
	timeout  *event.Event
	retry    *event.Event
}

func (m *Msf) nextTid() uint8 {
	tid := m.seq
	m.seq++
	return tid
}

func (m *Msf) begin(peer types.NodeId, cmd packet.SixPCommand, opts tsch.CellOption,
	cells []packet.CellProposal) *transaction {
	tr := &transaction{
		peer: peer,
		request: &packet.SixP{
			Kind:            packet.SixPRequest,
			Command:         cmd,
			Requester:       m.nodeId,
			Responder:       peer,
			SlotframeHandle: m.cfg.SlotframeHandle,
			TransactionId:   m.nextTid(),
			Options:         opts,
			NumCells:        1,
			Cells:           cells,
		},
	}
	m.transmit(tr)
	return tr
}

func (m *Msf) transmit(tr *transaction) {
	tr.attempts++
	m.stats.RequestsSent++
	m.log.Debugf("6P send %s", tr.request)
	m.radio.Send(packet.NewSixP(tr.request))
	tr.timeout = m.q.ScheduleAfter(m.cfg.SixPTimeout, m.nodeId, "sixp-timeout", func() {
		tr.timeout = nil
		m.onTimeout(tr)
	})
}

// finish ends a transaction: pending events are cancelled and reserved slot offsets released.
func (m *Msf) finish(tr *transaction) {
	tr.timeout.Cancel()
	tr.retry.Cancel()
	tr.timeout, tr.retry = nil, nil
	m.unreserve(tr.request)
	if m.tx == tr {
		m.tx = nil
	}
	if m.clears[tr.peer] == tr {
		delete(m.clears, tr.peer)
		if tr.peer == m.parent {
			m.ensureCells()
		}
	}
}

func (m *Msf) unreserve(req *packet.SixP) {
	if req.Command != packet.SixPAdd {
		return
	}
	sf := m.slotframe()
	for _, c := range req.Cells {
		sf.Unreserve(c.SlotOffset)
	}
}

func (m *Msf) startAdd(opts tsch.CellOption) {
	cells := m.propose()
	if len(cells) == 0 {
		m.reportFailure(m.parent, packet.SixPAdd, 0, "no free cell")
		return
	}
	m.tx = m.begin(m.parent, packet.SixPAdd, opts, cells)
}

func (m *Msf) startDelete(c tsch.Cell) {
	m.tx = m.begin(m.parent, packet.SixPDelete, c.Options, []packet.CellProposal{
		{SlotOffset: c.SlotOffset, ChannelOffset: c.ChannelOffset},
	})
}

// startClear releases all cells shared with peer: locally at once, at the peer through a CLEAR request.
func (m *Msf) startClear(peer types.NodeId) {
	m.removeCellsOf(peer)
	if m.clears[peer] != nil {
		return
	}
	m.clears[peer] = m.begin(peer, packet.SixPClear, 0, nil)
}

func (m *Msf) onTimeout(tr *transaction) {
	if tr.attempts < m.cfg.MaxAttempts {
		m.log.Debugf("6P timeout, retransmitting %s", tr.request)
		m.transmit(tr)
		return
	}
	toParent := tr.peer == m.parent
	if toParent && tr.request.Command == packet.SixPClear {
		// retried at the next housekeeping
		m.resync = true
	}
	m.finish(tr)
	m.reportFailure(tr.peer, tr.request.Command, tr.attempts, "timeout")
	if toParent && tr.request.Command != packet.SixPClear {
		m.resyncWithParent()
	}
}

// resyncWithParent drops the cells toward the parent and clears them at the parent, after a transaction
// whose outcome at the parent is unknown. Negotiation starts over once the CLEAR completes.
func (m *Msf) resyncWithParent() {
	m.log.Debugf("schedule with parent %d may be inconsistent, clearing", m.parent)
	m.resync = false
	m.startClear(m.parent)
}

// retryLater schedules a new attempt of a rejected request, with a new transaction id and, for ADD, new
// proposals.
func (m *Msf) retryLater(tr *transaction, reason string) {
	tr.timeout.Cancel()
	tr.timeout = nil
	if tr.attempts >= m.cfg.MaxAttempts {
		m.finish(tr)
		m.reportFailure(tr.peer, tr.request.Command, tr.attempts, reason)
		return
	}
	half := m.cfg.SixPTimeout / 2
	backoff := half + uint64(m.rand.Int63n(int64(half)+1))
	tr.retry = m.q.ScheduleAfter(backoff, m.nodeId, "sixp-retry", func() {
		tr.retry = nil
		m.unreserve(tr.request)
		req := *tr.request
		req.TransactionId = m.nextTid()
		if req.Command == packet.SixPAdd {
			req.Cells = m.propose()
			if len(req.Cells) == 0 {
				tr.request = &req
				m.finish(tr)
				m.reportFailure(tr.peer, req.Command, tr.attempts, "no free cell")
				return
			}
		}
		tr.request = &req
		m.transmit(tr)
	})
}

// OnReceiveSixP handles a 6P message addressed to this node.
func (m *Msf) OnReceiveSixP(msg *packet.SixP) {
	if msg.Kind == packet.SixPRequest {
		m.onRequest(msg)
	} else {
		m.onResponse(msg)
	}
}

func (m *Msf) onRequest(req *packet.SixP) {
	m.stats.RequestsReceived++
	if prev, ok := m.responses[req.Requester]; ok && m.isRetransmission(req, prev) {
		m.log.Debugf("6P retransmitted request %s, repeating response", req)
		m.radio.Send(packet.NewSixP(prev.rsp))
		return
	}

	var resp *packet.SixP
	if m.tx != nil && m.tx.peer == req.Requester && req.Command != packet.SixPClear {
		resp = req.NewResponse(packet.SixPErrBusy, nil)
	} else {
		switch req.Command {
		case packet.SixPAdd:
			resp = m.respondAdd(req)
		case packet.SixPDelete:
			resp = m.respondDelete(req)
		case packet.SixPClear:
			m.removeCellsOf(req.Requester)
			resp = req.NewResponse(packet.SixPSuccess, nil)
		}
	}
	m.log.Debugf("6P respond %s", resp)
	m.responses[req.Requester] = cachedResponse{rsp: resp, at: m.q.Now()}
	m.radio.Send(packet.NewSixP(resp))
}

type cachedResponse struct {
	rsp *packet.SixP
	at  uint64
}

// isRetransmission returns true if req repeats the request answered by prev. Transaction ids wrap, so only
// a request within the retransmission window of the requester qualifies.
func (m *Msf) isRetransmission(req *packet.SixP, prev cachedResponse) bool {
	window := m.cfg.SixPTimeout * uint64(m.cfg.MaxAttempts)
	return prev.rsp.TransactionId == req.TransactionId && prev.rsp.Command == req.Command &&
		m.q.Now()-prev.at <= window
}

// respondAdd installs the first proposal that is free in this node's schedule, with mirrored options.
func (m *Msf) respondAdd(req *packet.SixP) *packet.SixP {
	for _, p := range req.Cells {
		if p.SlotOffset <= 0 || p.SlotOffset >= m.slotframe().Length || !m.isFree(p.SlotOffset) {
			continue
		}
		m.installCell(tsch.Cell{
			SlotframeHandle: m.cfg.SlotframeHandle,
			SlotOffset:      p.SlotOffset,
			ChannelOffset:   p.ChannelOffset,
			Options:         req.Options.Mirror(),
			Peer:            req.Requester,
		})
		return req.NewResponse(packet.SixPSuccess, []packet.CellProposal{p})
	}
	return req.NewResponse(packet.SixPErrNoRes, nil)
}

func (m *Msf) respondDelete(req *packet.SixP) *packet.SixP {
	if len(req.Cells) != 1 {
		return req.NewResponse(packet.SixPErrCellList, nil)
	}
	p := req.Cells[0]
	c, ok := m.slotframe().GetCell(p.SlotOffset)
	if !ok || c.Peer != req.Requester || c.ChannelOffset != p.ChannelOffset {
		return req.NewResponse(packet.SixPErrCellList, nil)
	}
	m.removeCell(p.SlotOffset)
	return req.NewResponse(packet.SixPSuccess, req.Cells)
}

func (m *Msf) onResponse(rsp *packet.SixP) {
	if tr := m.clears[rsp.Responder]; tr != nil && rsp.Command == packet.SixPClear &&
		rsp.TransactionId == tr.request.TransactionId {
		m.log.Debugf("6P CLEAR with %d done", tr.peer)
		m.finish(tr)
		return
	}

	tr := m.tx
	if tr == nil || tr.peer != rsp.Responder || tr.request.TransactionId != rsp.TransactionId ||
		tr.request.Command != rsp.Command || tr.timeout == nil {
		m.onUnexpectedResponse(rsp)
		return
	}

	switch {
	case rsp.ReturnCode == packet.SixPSuccess:
		m.finish(tr)
		m.complete(tr.request, rsp)
		m.ensureCells()
	case rsp.Command == packet.SixPDelete && rsp.ReturnCode == packet.SixPErrCellList:
		// the parent does not know the cell: release it here too
		m.finish(tr)
		m.removeCell(tr.request.Cells[0].SlotOffset)
		m.ensureCells()
	default:
		m.log.Debugf("6P %s rejected: %s", tr.request, rsp.ReturnCode)
		m.retryLater(tr, "rejected: "+rsp.ReturnCode.String())
	}
}

func (m *Msf) complete(req *packet.SixP, rsp *packet.SixP) {
	switch req.Command {
	case packet.SixPAdd:
		if len(rsp.Cells) != 1 || !containsProposal(req.Cells, rsp.Cells[0]) {
			m.log.Warnf("6P ADD response with unexpected cells %v", rsp.Cells)
			return
		}
		p := rsp.Cells[0]
		m.installCell(tsch.Cell{
			SlotframeHandle: m.cfg.SlotframeHandle,
			SlotOffset:      p.SlotOffset,
			ChannelOffset:   p.ChannelOffset,
			Options:         req.Options,
			Peer:            req.Responder,
		})
	case packet.SixPDelete:
		m.removeCell(req.Cells[0].SlotOffset)
	}
}

func containsProposal(cells []packet.CellProposal, p packet.CellProposal) bool {
	for _, c := range cells {
		if c == p {
			return true
		}
	}
	return false
}

// onUnexpectedResponse handles a response that matches no pending transaction. A successful ADD from a
// node that is not the parent left a cell at that node, which is released with a CLEAR.
func (m *Msf) onUnexpectedResponse(rsp *packet.SixP) {
	if rsp.Command == packet.SixPAdd && rsp.ReturnCode == packet.SixPSuccess && rsp.Responder != m.parent {
		m.log.Debugf("late 6P ADD success from former parent %d, clearing", rsp.Responder)
		m.startClear(rsp.Responder)
		return
	}
	m.log.Debugf("ignoring unexpected 6P response %s", rsp)
}
