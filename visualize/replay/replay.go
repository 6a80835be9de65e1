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

package visualize_replay

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/tsch"
	. "github.com/openthread/ot-tsch-sim/types"
	. "github.com/openthread/ot-tsch-sim/visualize"
)

var (
	marshalOptions = prototext.MarshalOptions{
		Multiline: false,
	}
)

// Replay writes every simulation event as one compact text-format line to a file, from a separate goroutine.
type Replay struct {
	f              *os.File
	fileWriter     *bufio.Writer
	pendingChan    chan *structpb.Struct
	fileWriterDone chan struct{}
	timestampUs    uint64
	clock          Clock
	closed         bool
}

// NewReplay creates the replay file and starts its writer goroutine.
func NewReplay(filename string) (*Replay, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "creating replay file %s", filename)
	}

	rep := &Replay{
		f:              f,
		fileWriter:     bufio.NewWriterSize(f, 8192),
		pendingChan:    make(chan *structpb.Struct, 10000),
		fileWriterDone: make(chan struct{}),
	}

	go rep.fileWriterRoutine()

	return rep, nil
}

func (rep *Replay) append(event string, fields map[string]interface{}) {
	if rep.closed {
		return
	}
	fields["event"] = event
	fields["timestamp"] = rep.now()
	entry, err := structpb.NewStruct(fields)
	if err != nil {
		logger.Errorf("replay entry %s dropped: %v", event, err)
		return
	}
	rep.pendingChan <- entry
}

// now is the time of the event being recorded: the clock if set, else the last AdvanceTime.
func (rep *Replay) now() uint64 {
	if rep.clock != nil {
		return rep.clock.Now()
	}
	return rep.timestampUs
}

// Close flushes all pending entries and closes the file.
func (rep *Replay) Close() {
	if rep.closed {
		return
	}
	rep.closed = true
	close(rep.pendingChan)
	<-rep.fileWriterDone
}

func (rep *Replay) fileWriterRoutine() {
	var err error

	defer func() {
		close(rep.fileWriterDone)

		if err != nil {
			logger.Errorf("replay write routine quit unexpectedly: %v", err)
		}
	}()

	defer rep.f.Close()

	for e := range rep.pendingChan {
		var data []byte

		if data, err = marshalOptions.Marshal(e); err != nil {
			break
		}

		if _, err = rep.fileWriter.Write(data); err != nil {
			break
		}

		if _, err = rep.fileWriter.Write([]byte{'\n'}); err != nil {
			break
		}
	}

	if err != nil {
		// drain so that senders never block on a dead writer
		for range rep.pendingChan {
		}
		return
	}
	err = rep.fileWriter.Flush()
}

// ReadReplayFile parses all entries of a replay file.
func ReadReplayFile(filename string) ([]*structpb.Struct, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening replay file %s", filename)
	}
	defer f.Close()

	var entries []*structpb.Struct
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		entry := &structpb.Struct{}
		if err = prototext.Unmarshal(scanner.Bytes(), entry); err != nil {
			return nil, errors.Wrapf(err, "replay file %s line %d", filename, line)
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

type replayVisualizer struct {
	rep *Replay
}

// NewReplayVisualizer creates a Visualizer that records all events to a replay file.
func NewReplayVisualizer(filename string) (Visualizer, error) {
	rep, err := NewReplay(filename)
	if err != nil {
		return nil, err
	}
	return &replayVisualizer{rep: rep}, nil
}

func (rv *replayVisualizer) Init() {
}

func (rv *replayVisualizer) SetClock(clock Clock) {
	rv.rep.clock = clock
}

func (rv *replayVisualizer) Stop() {
	rv.rep.Close()
}

func (rv *replayVisualizer) AddNode(nodeid NodeId, isRoot bool) {
	rv.rep.append("addNode", map[string]interface{}{"node": nodeid, "root": isRoot})
}

func (rv *replayVisualizer) SetParent(nodeid NodeId, parent NodeId) {
	rv.rep.append("setParent", map[string]interface{}{"node": nodeid, "parent": parent})
}

func (rv *replayVisualizer) SetRank(nodeid NodeId, rank Rank) {
	rv.rep.append("setRank", map[string]interface{}{"node": nodeid, "rank": int(rank)})
}

func (rv *replayVisualizer) SetDodagState(nodeid NodeId, state DodagState) {
	rv.rep.append("setDodagState", map[string]interface{}{"node": nodeid, "state": state.String()})
}

func (rv *replayVisualizer) AddCell(nodeid NodeId, cell tsch.Cell) {
	rv.rep.append("addCell", cellFields(nodeid, cell))
}

func (rv *replayVisualizer) RemoveCell(nodeid NodeId, cell tsch.Cell) {
	rv.rep.append("removeCell", cellFields(nodeid, cell))
}

func (rv *replayVisualizer) OnNegotiationFailed(f NegotiationFailure) {
	rv.rep.append("negotiationFailed", map[string]interface{}{
		"node":     f.NodeId,
		"peer":     f.Peer,
		"command":  f.Command.String(),
		"attempts": f.Attempts,
		"reason":   f.Reason,
	})
}

func (rv *replayVisualizer) OnDataDelivered(origin NodeId, latencyUs uint64, hops int) {
	rv.rep.append("dataDelivered", map[string]interface{}{"origin": origin, "latencyUs": latencyUs, "hops": hops})
}

func (rv *replayVisualizer) AdvanceTime(ts uint64) {
	rv.rep.timestampUs = ts
}

func cellFields(nodeid NodeId, cell tsch.Cell) map[string]interface{} {
	return map[string]interface{}{
		"node":      nodeid,
		"slotframe": int(cell.SlotframeHandle),
		"slot":      int(cell.SlotOffset),
		"channel":   int(cell.ChannelOffset),
		"options":   cell.Options.String(),
		"peer":      cell.Peer,
	}
}
