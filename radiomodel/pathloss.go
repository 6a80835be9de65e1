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

package radiomodel

import (
	"math"

	"github.com/openthread/ot-tsch-sim/types"
)

// DbValue is a signal power or gain, in dB or dBm.
type DbValue = float64

const (
	defaultTxPowerDbm          DbValue = 0.0
	defaultNoiseFloorIndoorDbm DbValue = -95.0
	defaultRxSensitivityDbm    DbValue = -100.0

	maxFrameLenBytes  = 127  // IEEE 802.15.4 aMaxPhyPacketSize
	distMinimumMeters = 0.01 // below this, no path loss is applied
)

// reference: IEEE 802.15.4-2006,E.4.1.8 Bit Error Rate (BER) calculations
var binomialCoeff = []float64{120, -560, 1820, -4368, 8008, -11440, 12870, -11440, 8008, -4368, 1820,
	-560, 120, -16, 1}

// PathlossParams stores model parameters for the Pathloss radio model.
type PathlossParams struct {
	TxPowerDbm       DbValue // transmit power of every node
	RxSensitivityDbm DbValue // frames below this RSSI are never received
	NoiseFloorDbm    DbValue // ambient noise
	ExponentDb       DbValue // the exponent (dB) in the ITU indoor model
	FixedLossDb      DbValue // the fixed loss (dB) term in the ITU indoor model
	FrameLenBytes    int     // frame length used to convert BER into PDR
}

// newPathlossParams gets the ITU-T indoor model parameters for 2.4 GHz.
func newPathlossParams() PathlossParams {
	return PathlossParams{
		TxPowerDbm:       defaultTxPowerDbm,
		RxSensitivityDbm: defaultRxSensitivityDbm,
		NoiseFloorDbm:    defaultNoiseFloorIndoorDbm,
		ExponentDb:       30.0,
		FixedLossDb:      paround(20.0*math.Log10(2400) - 28.0),
		FrameLenBytes:    maxFrameLenBytes,
	}
}

// Pathloss computes the PDR of a link from node distance: ITU indoor path loss gives the RSSI, the SNR then
// gives the bit error rate and the frame success probability.
type Pathloss struct {
	Name   string
	Params PathlossParams

	positions map[types.NodeId]Position
	links     linkOverrides
}

func NewPathloss() *Pathloss {
	return &Pathloss{
		Name:      ClassPathloss,
		Params:    newPathlossParams(),
		positions: map[types.NodeId]Position{},
		links:     linkOverrides{},
	}
}

func (rm *Pathloss) AddNode(id types.NodeId, pos Position) {
	rm.positions[id] = pos
}

func (rm *Pathloss) GetPdr(src, dst types.NodeId, ch types.ChannelId) float64 {
	if src == dst {
		return 0.0
	}
	if pdr, ok := rm.links.get(src, dst, ch); ok {
		return pdr
	}
	p1, ok1 := rm.positions[src]
	p2, ok2 := rm.positions[dst]
	if !ok1 || !ok2 {
		return 0.0
	}
	rssi := computeIndoorRssiItu(p1.DistanceTo(p2), rm.Params.TxPowerDbm, &rm.Params)
	if rssi < rm.Params.RxSensitivityDbm {
		return 0.0
	}
	snrDb := rssi - rm.Params.NoiseFloorDbm
	return paround(computePacketSuccessRate(snrDb, rm.Params.FrameLenBytes*8))
}

func (rm *Pathloss) SetPdrBothDirections(a, b types.NodeId, ch types.ChannelId, pdr float64) {
	rm.links.set(a, b, ch, clipPdr(pdr))
}

func (rm *Pathloss) GetName() string {
	return rm.Name
}

// paround is a custom parameter rounding function (2 digits)
func paround(param float64) float64 {
	return math.Round(param*100.0) / 100.0
}

// computeIndoorRssiItu computes the RSSI for a receiver at distance dist (m), using a simple indoor exponent
// loss model. See https://en.wikipedia.org/wiki/ITU_model_for_indoor_attenuation
func computeIndoorRssiItu(dist float64, txPower DbValue, params *PathlossParams) DbValue {
	pathloss := 0.0
	if dist >= distMinimumMeters {
		pathloss = params.ExponentDb*math.Log10(dist) + params.FixedLossDb
		if pathloss < 0.0 {
			pathloss = 0.0
		}
	}
	return txPower - pathloss
}

func computePacketSuccessRate(snrDb DbValue, nbits int) float64 {
	// if snrDb >= 6.0, pSuccess for any regular 15.4 frame is =~ 1.0 always.
	if snrDb >= 6.0 {
		return 1.0
	}
	ber := 0.0
	snr := math.Pow(10, snrDb/10.0)
	for idx, coeff := range binomialCoeff {
		k := float64(idx + 2)
		ber += coeff * math.Exp(20.0*snr*(1.0/k-1.0))
	}
	ber = ber * 8.0 / 15.0 / 16.0
	ber = math.Max(0.0, math.Min(ber, 1.0))
	return math.Pow(1.0-ber, float64(nbits))
}
