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

// Package packet defines the messages exchanged between simulated nodes, and the radio interface nodes use
// to send them. Nodes never touch each other's state; all cross-node effects go through these messages.
package packet

import (
	"fmt"

	"github.com/openthread/ot-tsch-sim/types"
)

type Type int

const (
	TypeDio Type = iota
	TypeDao
	TypeSixP
	TypeData
)

func (t Type) String() string {
	switch t {
	case TypeDio:
		return "DIO"
	case TypeDao:
		return "DAO"
	case TypeSixP:
		return "6P"
	case TypeData:
		return "DATA"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Packet is the envelope of every frame. Exactly one of the payload pointers matches Type.
type Packet struct {
	Type Type
	Src  types.NodeId
	Dst  types.NodeId // types.BroadcastNodeId for broadcast

	Dio  *Dio
	Dao  *Dao
	SixP *SixP
	Data *Data
}

func (p *Packet) IsBroadcast() bool {
	return p.Dst == types.BroadcastNodeId
}

func (p *Packet) String() string {
	switch p.Type {
	case TypeDio:
		return fmt.Sprintf("DIO %d->* %s", p.Src, p.Dio)
	case TypeDao:
		return fmt.Sprintf("DAO %d->%d %s", p.Src, p.Dst, p.Dao)
	case TypeSixP:
		return fmt.Sprintf("6P %d->%d %s", p.Src, p.Dst, p.SixP)
	default:
		return fmt.Sprintf("%s %d->%d", p.Type, p.Src, p.Dst)
	}
}

// Metrics is the metric snapshot carried in a DIO, describing the advertiser.
type Metrics struct {
	HopCount       int     // hops from the advertiser to the root
	ResidualEnergy float64 // advertiser battery fraction in [0, 1]
}

// Dio is the downward advertisement.
type Dio struct {
	Source    types.NodeId
	Rank      types.Rank
	DodagId   types.NodeId
	Metrics   Metrics
	Timestamp uint64
}

func (d *Dio) String() string {
	return fmt.Sprintf("{src=%d rank=%s dodag=%d hops=%d energy=%.2f}", d.Source, d.Rank, d.DodagId,
		d.Metrics.HopCount, d.Metrics.ResidualEnergy)
}

// IsPoisoning returns true if the DIO advertises an infinite rank, i.e. the advertiser has detached.
func (d *Dio) IsPoisoning() bool {
	return d.Rank.IsInfinite()
}

// Dao is the upward advertisement: Source is reachable through Parent.
type Dao struct {
	Source    types.NodeId
	Parent    types.NodeId
	DodagId   types.NodeId
	Timestamp uint64
}

func (d *Dao) String() string {
	return fmt.Sprintf("{src=%d parent=%d dodag=%d}", d.Source, d.Parent, d.DodagId)
}

// Data is an application frame sent toward the root.
type Data struct {
	Origin    types.NodeId
	Seq       uint64
	CreatedAt uint64
	Hops      int
}

func NewDio(dio *Dio) *Packet {
	return &Packet{Type: TypeDio, Src: dio.Source, Dst: types.BroadcastNodeId, Dio: dio}
}

func NewDao(dst types.NodeId, src types.NodeId, dao *Dao) *Packet {
	return &Packet{Type: TypeDao, Src: src, Dst: dst, Dao: dao}
}

func NewSixP(msg *SixP) *Packet {
	src, dst := msg.Requester, msg.Responder
	if msg.Kind == SixPResponse {
		src, dst = msg.Responder, msg.Requester
	}
	return &Packet{Type: TypeSixP, Src: src, Dst: dst, SixP: msg}
}

func NewData(src, dst types.NodeId, data *Data) *Packet {
	return &Packet{Type: TypeData, Src: src, Dst: dst, Data: data}
}

// Radio is the transmit interface of a node, provided by the delivery collaborator.
type Radio interface {
	// Send transmits a control frame over the minimal shared cell. It reaches the destination(s) one slot later,
	// subject to a delivery draw per receiver.
	Send(p *Packet)

	// SendData transmits a data frame in the current slot on the channel offset of a dedicated cell.
	// Returns true if the frame was acknowledged.
	SendData(p *Packet, channelOffset types.ChannelId) bool
}
