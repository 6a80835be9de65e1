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
	"os"
	"path/filepath"

	"github.com/openthread/ot-tsch-sim/mote"
	"github.com/openthread/ot-tsch-sim/tsch"
	. "github.com/openthread/ot-tsch-sim/types"
)

func removeAllFiles(globPath string) error {
	files, err := filepath.Glob(globPath)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

func mergeNodeCounters(counters ...NodeCounters) NodeCounters {
	res := make(NodeCounters)
	for _, c := range counters {
		for k, v := range c {
			res[k] = v
		}
	}
	return res
}

// getMoteCounters collects the counters of a mote, prefixed by the layer they belong to.
func getMoteCounters(m *mote.Mote) NodeCounters {
	ms := m.Stats()
	data := NodeCounters{
		"data.Generated":      uint64(ms.DataGenerated),
		"data.Forwarded":      uint64(ms.DataForwarded),
		"data.Sent":           uint64(ms.DataSent),
		"data.Delivered":      uint64(ms.DataDelivered),
		"data.Dropped":        uint64(ms.DataDropped),
		"data.QueueOverflows": uint64(ms.QueueOverflows),
		"data.LatencySumUs":   ms.LatencySumUs,
		"mac.TxAttempts":      uint64(ms.TxAttempts),
		"mac.ControlSent":     uint64(ms.ControlSent),
		"mac.ControlReceived": uint64(ms.ControlReceived),
	}
	ds := m.Dodag.Stats()
	rpl := NodeCounters{
		"rpl.ParentChanges": uint64(ds.ParentChanges),
		"rpl.DiosSent":      uint64(ds.DiosSent),
		"rpl.DaosSent":      uint64(ds.DaosSent),
		"rpl.Detaches":      uint64(ds.Detaches),
	}
	ss := m.Msf.Stats()
	msf := NodeCounters{
		"msf.RequestsSent":        uint64(ss.RequestsSent),
		"msf.RequestsReceived":    uint64(ss.RequestsReceived),
		"msf.CellsAdded":          uint64(ss.CellsAdded),
		"msf.CellsRemoved":        uint64(ss.CellsRemoved),
		"msf.NegotiationFailures": uint64(ss.NegotiationFailures),
	}
	return mergeNodeCounters(data, rpl, msf)
}

// countDedicatedCells returns the number of negotiated TX and RX cells of a mote.
func countDedicatedCells(s *tsch.Schedule) (tx int, rx int) {
	for _, c := range s.AllCells() {
		if c.SlotframeHandle != SlotframeHandleNegotiated {
			continue
		}
		if c.IsTx() {
			tx++
		}
		if c.IsRx() {
			rx++
		}
	}
	return
}
