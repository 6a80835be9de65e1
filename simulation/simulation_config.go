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

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-tsch-sim/mote"
	"github.com/openthread/ot-tsch-sim/radiomodel"
	"github.com/openthread/ot-tsch-sim/rpl"
	"github.com/openthread/ot-tsch-sim/sf"
	. "github.com/openthread/ot-tsch-sim/types"
)

const (
	DefaultNumMotes      = 6
	DefaultRunSlotframes = 1000
	DefaultOutputDir     = "output"

	// RootId is the id of the DODAG root; motes are numbered 0 .. NumMotes-1.
	RootId NodeId = 0
)

type RplConfig struct {
	Of                        string    `yaml:"of"`
	Weights                   []float64 `yaml:"weights,flow"`
	AcceptableLowestPdr       float64   `yaml:"acceptableLowestPdr"`
	ParentSwitchRankThreshold int       `yaml:"parentSwitchRankThreshold"`
	DioIntervalMin            int       `yaml:"dioIntervalMin"`
	DioIntervalDoublings      int       `yaml:"dioIntervalDoublings"`
	DioRedundancy             int       `yaml:"dioRedundancy"`
	CandidateLifetimeSec      float64   `yaml:"candidateLifetimeSec"`
	ReevaluationPeriodSec     float64   `yaml:"reevaluationPeriodSec"`
	DaoPeriodSec              float64   `yaml:"daoPeriodSec"`
}

type MsfConfig struct {
	HighWater              float64 `yaml:"highWater"`
	LowWater               float64 `yaml:"lowWater"`
	MaxRetries             int     `yaml:"maxRetries"`
	SixPTimeoutSlots       int     `yaml:"sixpTimeoutSlots"`
	CellListSize           int     `yaml:"cellListSize"`
	HousekeepingSlotframes int     `yaml:"housekeepingSlotframes"`
}

type LinkConfig struct {
	A   NodeId  `yaml:"a"`
	B   NodeId  `yaml:"b"`
	Pdr float64 `yaml:"pdr"`
}

type ConnectivityConfig struct {
	Class string       `yaml:"class"`
	Pdr   float64      `yaml:"pdr"`
	Links []LinkConfig `yaml:"links"`
}

type MoteConfig struct {
	Id             NodeId   `yaml:"id"`
	ResidualEnergy *float64 `yaml:"residualEnergy,omitempty"`
	X              float64  `yaml:"x"`
	Y              float64  `yaml:"y"`
}

type TrafficConfig struct {
	PeriodSec float64 `yaml:"periodSec"`
}

type ObserversConfig struct {
	Statslog bool   `yaml:"statslog"`
	Metrics  string `yaml:"metrics"` // listen address of the /metrics endpoint, empty for none
	Replay   bool   `yaml:"replay"`
}

type Config struct {
	Id              int                `yaml:"id"`
	Seed            int64              `yaml:"seed"`
	NumMotes        int                `yaml:"numMotes"`
	SlotDurationUs  uint64             `yaml:"slotDurationUs"`
	SlotframeLength int                `yaml:"slotframeLength"`
	NumChannels     int                `yaml:"numChannels"`
	RunSlotframes   uint64             `yaml:"runSlotframes"`
	OutputDir       string             `yaml:"outputDir"`
	LogLevel        string             `yaml:"logLevel"`
	Rpl             RplConfig          `yaml:"rpl"`
	Msf             MsfConfig          `yaml:"msf"`
	Connectivity    ConnectivityConfig `yaml:"connectivity"`
	Motes           []MoteConfig       `yaml:"motes"`
	Traffic         TrafficConfig      `yaml:"traffic"`
	TxQueueSize     int                `yaml:"txQueueSize"`
	Observers       ObserversConfig    `yaml:"observers"`
}

func DefaultConfig() *Config {
	dodag := rpl.DefaultDodagConfig()
	msf := sf.DefaultConfig()
	return &Config{
		Id:              0,
		Seed:            0,
		NumMotes:        DefaultNumMotes,
		SlotDurationUs:  DefaultSlotDurationUs,
		SlotframeLength: DefaultSlotframeLength,
		NumChannels:     DefaultNumChannels,
		RunSlotframes:   DefaultRunSlotframes,
		OutputDir:       DefaultOutputDir,
		LogLevel:        "info",
		Rpl: RplConfig{
			Of:                        rpl.OfNameOF0,
			AcceptableLowestPdr:       rpl.DefaultAcceptableLowestPdr,
			ParentSwitchRankThreshold: int(rpl.DefaultParentSwitchRankThreshold),
			DioIntervalMin:            dodag.DioIntervalMin,
			DioIntervalDoublings:      dodag.DioIntervalDoublings,
			DioRedundancy:             dodag.DioRedundancy,
			CandidateLifetimeSec:      float64(dodag.CandidateLifetime) / float64(Second),
			ReevaluationPeriodSec:     float64(dodag.ReevaluationPeriod) / float64(Second),
			DaoPeriodSec:              float64(dodag.DaoPeriod) / float64(Second),
		},
		Msf: MsfConfig{
			HighWater:              msf.HighWater,
			LowWater:               msf.LowWater,
			MaxRetries:             msf.MaxAttempts,
			SixPTimeoutSlots:       int(msf.SixPTimeout / DefaultSlotDurationUs),
			CellListSize:           msf.CellListSize,
			HousekeepingSlotframes: int(msf.HousekeepingPeriod / (DefaultSlotframeLength * DefaultSlotDurationUs)),
		},
		Connectivity: ConnectivityConfig{
			Class: radiomodel.ClassFullyMeshed,
			Pdr:   1.0,
		},
		TxQueueSize: mote.DefaultTxQueueSize,
		Observers: ObserversConfig{
			Statslog: true,
		},
	}
}

// LoadConfigFile reads a YAML config file on top of the defaults and validates it.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrConfig, "parsing config file %s: %v", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func inUnitRange(v float64) bool {
	return v >= 0.0 && v <= 1.0
}

// Validate checks the configuration; every error wraps types.ErrConfig.
func (cfg *Config) Validate() error {
	if cfg.NumMotes < 1 {
		return ConfigErrorf("numMotes must be at least 1, got %d", cfg.NumMotes)
	}
	if cfg.SlotDurationUs == 0 {
		return ConfigErrorf("slotDurationUs must be positive")
	}
	if cfg.SlotframeLength < 2 {
		return ConfigErrorf("slotframeLength must be at least 2, got %d", cfg.SlotframeLength)
	}
	if cfg.NumChannels < 1 {
		return ConfigErrorf("numChannels must be at least 1, got %d", cfg.NumChannels)
	}
	if cfg.TxQueueSize < 1 {
		return ConfigErrorf("txQueueSize must be at least 1, got %d", cfg.TxQueueSize)
	}
	if cfg.Traffic.PeriodSec < 0 {
		return ConfigErrorf("traffic periodSec must not be negative")
	}
	if err := cfg.validateRpl(); err != nil {
		return err
	}
	if err := cfg.validateMsf(); err != nil {
		return err
	}
	return cfg.validateConnectivity()
}

func (cfg *Config) validateRpl() error {
	r := &cfg.Rpl
	if err := rpl.ValidateWeights(r.Of, r.Weights); err != nil {
		return err
	}
	if !inUnitRange(r.AcceptableLowestPdr) {
		return ConfigErrorf("acceptableLowestPdr %v outside [0,1]", r.AcceptableLowestPdr)
	}
	if r.ParentSwitchRankThreshold < 0 || r.ParentSwitchRankThreshold >= int(InfiniteRank) {
		return ConfigErrorf("invalid parentSwitchRankThreshold %d", r.ParentSwitchRankThreshold)
	}
	if r.DioIntervalMin < 1 || r.DioIntervalDoublings < 0 || r.DioRedundancy < 0 {
		return ConfigErrorf("invalid DIO trickle parameters (%d, %d, %d)", r.DioIntervalMin,
			r.DioIntervalDoublings, r.DioRedundancy)
	}
	if r.CandidateLifetimeSec <= 0 || r.ReevaluationPeriodSec <= 0 || r.DaoPeriodSec <= 0 {
		return ConfigErrorf("RPL periods must be positive")
	}
	return nil
}

func (cfg *Config) validateMsf() error {
	m := &cfg.Msf
	if !inUnitRange(m.HighWater) || !inUnitRange(m.LowWater) {
		return ConfigErrorf("MSF thresholds outside [0,1]: low %v high %v", m.LowWater, m.HighWater)
	}
	if m.LowWater >= m.HighWater {
		return ConfigErrorf("MSF lowWater %v must be below highWater %v", m.LowWater, m.HighWater)
	}
	if m.MaxRetries < 1 {
		return ConfigErrorf("MSF maxRetries must be at least 1, got %d", m.MaxRetries)
	}
	if m.SixPTimeoutSlots < 1 || m.CellListSize < 1 || m.HousekeepingSlotframes < 1 {
		return ConfigErrorf("invalid MSF parameters %+v", *m)
	}
	return nil
}

func (cfg *Config) isNodeId(id NodeId) bool {
	return id >= 0 && id < cfg.NumMotes
}

func (cfg *Config) validateConnectivity() error {
	c := &cfg.Connectivity
	switch c.Class {
	case radiomodel.ClassFullyMeshed, radiomodel.ClassLinear, radiomodel.ClassPathloss:
	default:
		return ConfigErrorf("unknown connectivity class: %s", c.Class)
	}
	if !inUnitRange(c.Pdr) {
		return ConfigErrorf("connectivity pdr %v outside [0,1]", c.Pdr)
	}
	for _, l := range c.Links {
		if !cfg.isNodeId(l.A) || !cfg.isNodeId(l.B) || l.A == l.B {
			return ConfigErrorf("link (%d, %d) refers to unknown node ids", l.A, l.B)
		}
		if !inUnitRange(l.Pdr) {
			return ConfigErrorf("link (%d, %d) pdr %v outside [0,1]", l.A, l.B, l.Pdr)
		}
	}
	for _, m := range cfg.Motes {
		if !cfg.isNodeId(m.Id) {
			return ConfigErrorf("mote entry refers to unknown node id %d", m.Id)
		}
		if m.ResidualEnergy != nil && !inUnitRange(*m.ResidualEnergy) {
			return ConfigErrorf("mote %d residualEnergy %v outside [0,1]", m.Id, *m.ResidualEnergy)
		}
	}
	return nil
}

func secondsToUs(sec float64) uint64 {
	return uint64(sec * float64(Second))
}

// moteConfig derives the configuration of mote id.
func (cfg *Config) moteConfig(id NodeId) mote.Config {
	isRoot := id == RootId
	mc := mote.DefaultConfig(id, isRoot)
	mc.DodagId = RootId
	mc.OfName = cfg.Rpl.Of
	mc.Of = rpl.OfConfig{
		Weights:                   rpl.Weights(cfg.Rpl.Weights),
		AcceptableLowestPdr:       cfg.Rpl.AcceptableLowestPdr,
		ParentSwitchRankThreshold: Rank(cfg.Rpl.ParentSwitchRankThreshold),
	}
	mc.Dodag = rpl.DodagConfig{
		DioIntervalMin:       cfg.Rpl.DioIntervalMin,
		DioIntervalDoublings: cfg.Rpl.DioIntervalDoublings,
		DioRedundancy:        cfg.Rpl.DioRedundancy,
		CandidateLifetime:    secondsToUs(cfg.Rpl.CandidateLifetimeSec),
		ReevaluationPeriod:   secondsToUs(cfg.Rpl.ReevaluationPeriodSec),
		DaoPeriod:            secondsToUs(cfg.Rpl.DaoPeriodSec),
	}
	mc.Msf = sf.Config{
		SlotframeHandle:    SlotframeHandleNegotiated,
		NumChannels:        cfg.NumChannels,
		CellListSize:       cfg.Msf.CellListSize,
		MaxAttempts:        cfg.Msf.MaxRetries,
		SixPTimeout:        uint64(cfg.Msf.SixPTimeoutSlots) * cfg.SlotDurationUs,
		HighWater:          cfg.Msf.HighWater,
		LowWater:           cfg.Msf.LowWater,
		HousekeepingPeriod: uint64(cfg.Msf.HousekeepingSlotframes*cfg.SlotframeLength) * cfg.SlotDurationUs,
		RxCell:             true,
	}
	mc.SlotframeLength = cfg.SlotframeLength
	mc.SlotDurationUs = cfg.SlotDurationUs
	mc.TxQueueSize = cfg.TxQueueSize
	if cfg.OutputDir != "" {
		mc.LogDir = cfg.OutputDir
	}
	return mc
}

// moteEntry returns the per-mote settings of id, or the zero entry.
func (cfg *Config) moteEntry(id NodeId) MoteConfig {
	for _, m := range cfg.Motes {
		if m.Id == id {
			return m
		}
	}
	return MoteConfig{Id: id}
}
