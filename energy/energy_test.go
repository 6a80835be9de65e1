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

package energy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatteryChargeSlot(t *testing.T) {
	b := NewBattery(1, BatteryAaCapacityMj, false)
	assert.Equal(t, 1.0, b.ResidualEnergy())

	b.ChargeSlot(ActivitySleep, 10000)
	c := b.Consumption()
	assert.Equal(t, 0.0, c.Tx)
	assert.Equal(t, 0.0, c.Rx)
	assert.InDelta(t, 10000*RadioSleepConsumption, c.Sleep, 1e-12)

	b.ChargeSlot(ActivityTxAck, 10000)
	c2 := b.Consumption()
	assert.InDelta(t, float64(frameTimeUs)*RadioTxConsumption, c2.Tx, 1e-12)
	assert.True(t, c2.Rx > 0)
	assert.True(t, b.ResidualEnergy() < 1.0)

	// short slots are clipped to the slot duration
	b2 := NewBattery(2, BatteryAaCapacityMj, false)
	b2.ChargeSlot(ActivityTxAck, 1000)
	assert.Equal(t, uint64(1000), b2.radio.SpentTx+b2.radio.SpentRx+b2.radio.SpentSleep)
}

func TestBatterySetResidualEnergy(t *testing.T) {
	b := NewBattery(3, BatteryAaCapacityMj, true)
	b.ChargeSlot(ActivityRxAck, 10000)
	assert.Equal(t, 1.0, b.ResidualEnergy())
	assert.True(t, b.IsMainsPowered())

	b.SetResidualEnergy(0.15)
	assert.False(t, b.IsMainsPowered())
	assert.InDelta(t, 0.15, b.ResidualEnergy(), 1e-9)

	b.ChargeSlot(ActivityIdleListen, 10000)
	assert.True(t, b.ResidualEnergy() < 0.15)

	assert.Panics(t, func() {
		b.SetResidualEnergy(1.5)
	})
}

func TestEnergyAnalyser(t *testing.T) {
	ea := NewEnergyAnalyser()
	b1 := NewBattery(1, BatteryAaCapacityMj, false)
	b2 := NewBattery(2, BatteryAaCapacityMj, false)
	ea.AddNode(b2)
	ea.AddNode(b1)
	ea.AddNode(b1)
	assert.Nil(t, ea.GetLatestEnergyOfNodes())

	b1.ChargeSlot(ActivityTxNoAck, 10000)
	ea.StoreNetworkEnergy(10000)
	latest := ea.GetLatestEnergyOfNodes()
	require.Len(t, latest, 2)
	assert.Equal(t, 1, latest[0].NodeId)
	assert.Equal(t, 2, latest[1].NodeId)
	assert.InDelta(t, latest[0].Tx/2, ea.GetNetworkEnergyHistory()[0].EnergyConsTx, 1e-12)

	dir := t.TempDir()
	require.Nil(t, ea.SaveEnergyDataToFile(dir, "", 10000))
	data, err := os.ReadFile(filepath.Join(dir, "energy_nodes.txt"))
	require.Nil(t, err)
	assert.True(t, strings.Contains(string(data), "Residual"))
	assert.Equal(t, 4, len(strings.Split(strings.TrimSpace(string(data)), "\n")))
}
