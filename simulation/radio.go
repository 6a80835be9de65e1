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
	"github.com/openthread/ot-tsch-sim/packet"
	. "github.com/openthread/ot-tsch-sim/types"
)

// RadioStats count the frames handled by the radio medium.
type RadioStats struct {
	ControlSent      uint64
	ControlDelivered uint64
	ControlLost      uint64
	DataSent         uint64
	DataDelivered    uint64
	DataLost         uint64
	DataNoRxCell     uint64
}

// moteRadio is the radio of one mote toward the shared medium.
type moteRadio struct {
	s  *Simulation
	id NodeId
}

// Send delivers a control frame, sent in the minimal shared cell on channel 0, one slot later. Each receiver
// draws its own delivery, in id order.
func (r *moteRadio) Send(p *packet.Packet) {
	s := r.s
	s.radioStats.ControlSent++
	for _, dst := range s.GetNodes() {
		if dst == r.id || (!p.IsBroadcast() && dst != p.Dst) {
			continue
		}
		if !s.gens.Deliver(s.rm.GetPdr(r.id, dst, 0)) {
			s.radioStats.ControlLost++
			continue
		}
		s.radioStats.ControlDelivered++
		receiver := s.motes[dst]
		s.q.ScheduleAfter(s.cfg.SlotDurationUs, dst, "radio-rx", func() {
			receiver.OnReceive(p)
		})
	}
}

// SendData transmits a data frame in the current slot on the physical channel derived from the channel
// offset. It returns true if the frame was acknowledged: the receiver listened in a matching RX cell, the
// delivery draw succeeded and the frame could be queued.
func (r *moteRadio) SendData(p *packet.Packet, channelOffset ChannelId) bool {
	s := r.s
	s.radioStats.DataSent++
	receiver := s.motes[p.Dst]
	if receiver == nil {
		s.radioStats.DataLost++
		return false
	}
	cell, ok := receiver.HasRxCellFrom(r.id, s.asn)
	if !ok || cell.ChannelOffset != channelOffset {
		s.radioStats.DataNoRxCell++
		return false
	}
	ch := s.physicalChannel(channelOffset)
	if !s.gens.Deliver(s.rm.GetPdr(r.id, p.Dst, ch)) {
		s.radioStats.DataLost++
		return false
	}
	cell.Used++
	if !receiver.OnReceiveData(p) {
		return false
	}
	s.radioStats.DataDelivered++
	return true
}

// physicalChannel implements channel hopping over the available channels.
func (s *Simulation) physicalChannel(channelOffset ChannelId) ChannelId {
	return ChannelId((s.asn + uint64(channelOffset)) % uint64(s.cfg.NumChannels))
}
