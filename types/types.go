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

package types

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

type NodeId = int
type ChannelId = int

const (
	MaxNodeId       NodeId = 0xffff
	InvalidNodeId   NodeId = -2
	BroadcastNodeId NodeId = -1
)

const (
	// Ever is the timestamp that is never reached.
	Ever uint64 = math.MaxUint64 / 2

	// InvalidTimestamp marks an unset timestamp.
	InvalidTimestamp uint64 = math.MaxUint64
)

// time values are in microseconds, like the rest of the simulator.
const (
	Microsecond uint64 = 1
	Millisecond        = 1000 * Microsecond
	Second             = 1000 * Millisecond
)

const (
	DefaultSlotDurationUs  = 10 * Millisecond
	DefaultSlotframeLength = 101
	DefaultNumChannels     = 16
)

// Slotframe handles used by every node.
const (
	SlotframeHandleMinimal    = 0
	SlotframeHandleNegotiated = 1
)

// ErrConfig is the root of all configuration errors. Use errors.Is to check.
var ErrConfig = errors.New("config error")

// ConfigErrorf creates a new configuration error, wrapping ErrConfig.
func ConfigErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// DodagState is the attachment state of a node in the DODAG.
type DodagState int

const (
	Unattached DodagState = 0
	Attached   DodagState = 1
)

func (s DodagState) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attached:
		return "attached"
	default:
		return fmt.Sprintf("invalid(%d)", int(s))
	}
}

// GetNodeName returns the display name of a node.
func GetNodeName(id NodeId) string {
	return fmt.Sprintf("Node<%d>", id)
}
