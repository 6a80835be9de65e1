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

package mote

import (
	"math/rand"

	"github.com/openthread/ot-tsch-sim/energy"
	"github.com/openthread/ot-tsch-sim/event"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/packet"
	"github.com/openthread/ot-tsch-sim/radiomodel"
	"github.com/openthread/ot-tsch-sim/rpl"
	"github.com/openthread/ot-tsch-sim/sf"
	"github.com/openthread/ot-tsch-sim/tsch"
	"github.com/openthread/ot-tsch-sim/types"
	"github.com/openthread/ot-tsch-sim/visualize"
)

const (
	DefaultTxQueueSize = 10

	// MaxDataAttempts is the number of transmissions of a data frame before it is dropped.
	MaxDataAttempts = 4
)

// Config is the configuration of one mote.
type Config struct {
	Id                types.NodeId
	IsRoot            bool
	DodagId           types.NodeId
	OfName            string
	Of                rpl.OfConfig
	Dodag             rpl.DodagConfig
	Msf               sf.Config
	SlotframeLength   int
	SlotDurationUs    uint64
	TxQueueSize       int
	BatteryCapacityMj float64
	MainsPowered      bool
	LogDir            string
}

func DefaultConfig(id types.NodeId, isRoot bool) Config {
	return Config{
		Id:                id,
		IsRoot:            isRoot,
		DodagId:           0,
		OfName:            rpl.OfNameOF0,
		Of:                rpl.DefaultOfConfig(),
		Dodag:             rpl.DefaultDodagConfig(),
		Msf:               sf.DefaultConfig(),
		SlotframeLength:   types.DefaultSlotframeLength,
		SlotDurationUs:    types.DefaultSlotDurationUs,
		TxQueueSize:       DefaultTxQueueSize,
		BatteryCapacityMj: energy.BatteryAaCapacityMj,
		MainsPowered:      isRoot,
	}
}

// Stats are the data-plane counters of a mote.
type Stats struct {
	DataGenerated   int
	DataForwarded   int
	DataSent        int
	DataDelivered   int // at the root: frames of all origins that arrived
	DataDropped     int // retries exhausted
	QueueOverflows  int
	TxAttempts      int
	ControlSent     int
	ControlReceived int
	LatencySumUs    uint64
}

// Mote is one simulated node: its schedule, DODAG manager, cell scheduler and battery, plus the per-slot
// link layer that moves data frames toward the root over the dedicated TX cells.
type Mote struct {
	Id       types.NodeId
	Logger   *logger.NodeLogger
	Schedule *tsch.Schedule
	Dodag    *rpl.Dodag
	Msf      *sf.Msf
	Battery  *energy.Battery

	cfg   Config
	q     *event.Queue
	radio packet.Radio
	rm    radiomodel.RadioModel
	vis   visualize.Visualizer

	queue       []*packet.Packet
	headAttempt int
	dataSeq     uint64

	slotActivity energy.SlotActivity
	controlTx    bool
	controlRx    bool

	stats Stats
}

// New creates a mote. The radio delivers what the mote sends; the radio model only serves link estimates.
func New(cfg Config, q *event.Queue, radio packet.Radio, rm radiomodel.RadioModel, r *rand.Rand,
	vis visualize.Visualizer) (*Mote, error) {
	m := &Mote{
		Id:      cfg.Id,
		Logger:  logger.NewNodeLogger(cfg.Id, q, cfg.LogDir),
		Battery: energy.NewBattery(cfg.Id, cfg.BatteryCapacityMj, cfg.MainsPowered),
		cfg:     cfg,
		q:       q,
		radio:   radio,
		rm:      rm,
		vis:     vis,
	}
	if m.cfg.TxQueueSize <= 0 {
		m.cfg.TxQueueSize = DefaultTxQueueSize
	}

	m.Schedule = tsch.NewSchedule(cfg.Id)
	m.Schedule.AddSlotframe(types.SlotframeHandleMinimal, cfg.SlotframeLength)
	m.Schedule.InstallMinimalCell(types.SlotframeHandleMinimal)
	m.Schedule.AddSlotframe(cfg.Msf.SlotframeHandle, cfg.SlotframeLength)

	of, err := rpl.NewObjectiveFunction(cfg.OfName, cfg.Id, cfg.IsRoot, cfg.Of, m, q)
	if err != nil {
		return nil, err
	}
	link := &linkRadio{m}
	m.Dodag = rpl.NewDodag(cfg.Id, cfg.IsRoot, cfg.DodagId, cfg.Dodag, of, q, link, m.Battery, r, vis, m.Logger)
	m.Msf = sf.NewMsf(cfg.Id, cfg.IsRoot, cfg.Msf, m.Schedule, q, link, r, vis, m.Logger)
	m.Dodag.SetParentListener(m.Msf)
	m.Logger.Debugf("mote created: root=%t of=%s", cfg.IsRoot, of.Name())
	return m, nil
}

func (m *Mote) String() string {
	return types.GetNodeName(m.Id)
}

func (m *Mote) IsRoot() bool {
	return m.cfg.IsRoot
}

func (m *Mote) Start() {
	m.Dodag.Start()
	m.Msf.Start()
}

func (m *Mote) Stop() {
	m.Dodag.Stop()
	m.Msf.Stop()
	m.Logger.Close()
}

// LinkPdr estimates the link toward a neighbor from the radio model, on channel 0.
func (m *Mote) LinkPdr(neighbor types.NodeId) float64 {
	return m.rm.GetPdr(m.Id, neighbor, 0)
}

// linkRadio notes control transmissions for the energy accounting of the current slot.
type linkRadio struct {
	m *Mote
}

func (l *linkRadio) Send(p *packet.Packet) {
	l.m.controlTx = true
	l.m.stats.ControlSent++
	l.m.radio.Send(p)
}

func (l *linkRadio) SendData(p *packet.Packet, ch types.ChannelId) bool {
	return l.m.radio.SendData(p, ch)
}

// OnReceive dispatches a delivered control packet. Unicast packets for other nodes are ignored.
func (m *Mote) OnReceive(p *packet.Packet) {
	if !p.IsBroadcast() && p.Dst != m.Id {
		return
	}
	m.controlRx = true
	m.stats.ControlReceived++
	switch p.Type {
	case packet.TypeDio:
		m.Dodag.OnReceiveDio(p.Dio)
	case packet.TypeDao:
		m.Dodag.OnReceiveDao(p.Dao)
	case packet.TypeSixP:
		m.Msf.OnReceiveSixP(p.SixP)
	default:
		m.Logger.Warnf("unexpected control packet %s", p)
	}
}

// GenerateData creates an application frame toward the root and queues it.
func (m *Mote) GenerateData() {
	if m.cfg.IsRoot {
		return
	}
	m.dataSeq++
	m.stats.DataGenerated++
	m.enqueue(packet.NewData(m.Id, types.InvalidNodeId, &packet.Data{
		Origin:    m.Id,
		Seq:       m.dataSeq,
		CreatedAt: m.q.Now(),
	}))
}

func (m *Mote) enqueue(p *packet.Packet) bool {
	if len(m.queue) >= m.cfg.TxQueueSize {
		m.stats.QueueOverflows++
		m.Logger.Debugf("TX queue full, dropping %s", p)
		return false
	}
	m.queue = append(m.queue, p)
	return true
}

func (m *Mote) dequeue() {
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.headAttempt = 0
}

func (m *Mote) QueueLen() int {
	return len(m.queue)
}

// OnReceiveData accepts a data frame received in an RX cell. The root delivers it, other nodes queue it for
// forwarding. Returns false if the frame could not be queued.
func (m *Mote) OnReceiveData(p *packet.Packet) bool {
	m.raiseActivity(energy.ActivityRxAck)
	d := *p.Data
	d.Hops++
	if m.cfg.IsRoot {
		latency := m.q.Now() - d.CreatedAt
		m.stats.DataDelivered++
		m.stats.LatencySumUs += latency
		m.vis.OnDataDelivered(d.Origin, latency, d.Hops)
		return true
	}
	if !m.enqueue(packet.NewData(m.Id, types.InvalidNodeId, &d)) {
		return false
	}
	m.stats.DataForwarded++
	return true
}

// OnSlot runs the link layer for the absolute slot number asn. In a dedicated TX cell toward the parent
// the head of the data queue is transmitted; cell usage is counted for the load estimate.
func (m *Mote) OnSlot(asn uint64) {
	cell, ok := m.Schedule.GetActiveCell(asn)
	if !ok {
		return
	}
	switch {
	case cell.IsShared():
		m.raiseActivity(energy.ActivityIdleListen)
	case cell.IsDedicatedTx():
		cell.Elapsed++
		if cell.Peer == m.Dodag.Parent() && len(m.queue) > 0 {
			cell.Used++
			m.transmitHead(cell)
		}
	case cell.IsRx():
		cell.Elapsed++
		m.raiseActivity(energy.ActivityIdleListen)
	}
}

// raiseActivity records the radio activity of the current slot; listening gives way to any frame exchange.
func (m *Mote) raiseActivity(a energy.SlotActivity) {
	if m.slotActivity == energy.ActivitySleep || m.slotActivity == energy.ActivityIdleListen {
		m.slotActivity = a
	}
}

func (m *Mote) transmitHead(cell *tsch.Cell) {
	p := m.queue[0]
	p.Src, p.Dst = m.Id, cell.Peer
	m.raiseActivity(energy.ActivityTxAck)
	m.stats.TxAttempts++
	m.headAttempt++
	if m.radio.SendData(p, cell.ChannelOffset) {
		m.stats.DataSent++
		m.dequeue()
		return
	}
	if m.headAttempt >= MaxDataAttempts {
		m.stats.DataDropped++
		m.Logger.Debugf("dropping %s after %d attempts", p, m.headAttempt)
		m.dequeue()
	}
}

// EndSlot charges the battery for the radio activity of the slot that just ended. Control frames sent or
// heard since the previous slot count as a shared-cell exchange.
func (m *Mote) EndSlot() {
	activity := m.slotActivity
	switch {
	case activity != energy.ActivitySleep && activity != energy.ActivityIdleListen:
	case m.controlTx:
		activity = energy.ActivityTxNoAck
	case m.controlRx:
		activity = energy.ActivityRxNoAck
	}
	m.controlTx, m.controlRx = false, false
	m.Battery.ChargeSlot(activity, m.cfg.SlotDurationUs)
	m.slotActivity = energy.ActivitySleep
}

// HasRxCellFrom returns true if the cell active at asn is a dedicated RX cell from peer.
func (m *Mote) HasRxCellFrom(peer types.NodeId, asn uint64) (*tsch.Cell, bool) {
	cell, ok := m.Schedule.GetActiveCell(asn)
	if !ok || !cell.IsRx() || cell.IsShared() || cell.Peer != peer {
		return nil, false
	}
	return cell, true
}

func (m *Mote) Stats() Stats {
	return m.stats
}
