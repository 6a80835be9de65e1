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

package cli

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/mote"
	"github.com/openthread/ot-tsch-sim/progctx"
	"github.com/openthread/ot-tsch-sim/simulation"
	. "github.com/openthread/ot-tsch-sim/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes CLI commands on a simulation. All commands run in the caller's goroutine, which must be
// the only one driving the simulation.
type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// RunCommand parses and executes one command line, writing its output. It returns the program context error,
// which is non-nil once the program is exiting.
func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if rt.sim.IsStopped() && cmd.Help == nil && cmd.Exit == nil {
		cc.errorf("simulation is stopped")
		return
	}

	if cmd.Audit != nil {
		rt.executeAudit(cc)
	} else if cmd.Cells != nil {
		rt.executeCells(cc, cmd.Cells)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cmd.Energy)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Link != nil {
		rt.executeLink(cc, cmd.Link)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Node != nil {
		rt.executeNode(cc, cmd.Node)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc)
	} else if cmd.Parent != nil {
		rt.executeParent(cc, cmd.Parent)
	} else if cmd.Radio != nil {
		rt.executeRadio(cc)
	} else if cmd.Rank != nil {
		rt.executeRank(cc, cmd.Rank)
	} else if cmd.Routes != nil {
		rt.executeRoutes(cc, cmd.Routes)
	} else if cmd.Time != nil {
		rt.executeTime(cc)
	} else if cmd.Unwatch != nil {
		rt.executeUnwatch(cc, cmd.Unwatch)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// parseGoDuration returns the simulated time in us that a 'go' argument stands for. A bare number is in
// seconds and the "sf" suffix counts slotframes.
func (rt *CmdRunner) parseGoDuration(arg string) (uint64, error) {
	if strings.HasSuffix(arg, "sf") {
		n, err := strconv.ParseUint(strings.TrimSuffix(arg, "sf"), 10, 64)
		if err != nil {
			return 0, errors.Errorf("could not parse number of slotframes: %s", arg)
		}
		cfg := rt.sim.Config()
		return n * uint64(cfg.SlotframeLength) * cfg.SlotDurationUs, nil
	}
	d, err := time.ParseDuration(arg)
	if err != nil {
		d, err = time.ParseDuration(arg + "s") // try parsing as seconds
		if err != nil {
			return 0, errors.Errorf("could not parse time duration: %s", arg)
		}
	}
	if d < 0 {
		return 0, errors.Errorf("negative time duration: %s", arg)
	}
	return uint64(d / time.Microsecond), nil
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Ever != nil {
		for rt.ctx.Err() == nil { // run forever but stop if rt.ctx.Err indicates "done"
			if err := rt.sim.Go(Second * 3600); err != nil {
				cc.error(err)
				return
			}
		}
		return
	}

	dur, err := rt.parseGoDuration(cmd.Time)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(rt.sim.Go(dur))
}

func (rt *CmdRunner) getMote(cc *CommandContext, sel NodeSelector) *mote.Mote {
	m := rt.sim.GetMote(sel.Id)
	if m == nil {
		cc.errorf("node %d not found", sel.Id)
	}
	return m
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.sim.Stop()
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext) {
	rt.sim.VisitNodesInOrder(func(m *mote.Mote) {
		var line strings.Builder
		line.WriteString(fmt.Sprintf("id=%d\tstate=%s\trank=%s\tparent=%s\thops=%d", m.Id, m.Dodag.State(),
			m.Dodag.Rank(), parentString(m.Dodag.Parent()), m.Dodag.HopCount()))
		if m.Battery.IsMainsPowered() {
			line.WriteString("\tenergy=mains")
		} else {
			line.WriteString(fmt.Sprintf("\tenergy=%.3f", m.Battery.ResidualEnergy()))
		}
		cc.outputf("%s\n", line.String())
	})
}

func (rt *CmdRunner) executeNode(cc *CommandContext, cmd *NodeCmd) {
	m := rt.getMote(cc, cmd.Node)
	if m == nil {
		return
	}
	dodagStats := m.Dodag.Stats()
	msfStats := m.Msf.Stats()
	cc.outputf("id=%d root=%v\n", m.Id, m.IsRoot())
	cc.outputf("state=%s rank=%s parent=%s hops=%d of=%s\n", m.Dodag.State(), m.Dodag.Rank(),
		parentString(m.Dodag.Parent()), m.Dodag.HopCount(), m.Dodag.ObjectiveFunction().Name())
	cc.outputf("candidates=%v\n", m.Dodag.CandidateIds())
	cc.outputf("parentChanges=%d detaches=%d\n", dodagStats.ParentChanges, dodagStats.Detaches)
	cc.outputf("cellsAdded=%d cellsRemoved=%d negotiationFailures=%d negotiating=%v\n", msfStats.CellsAdded,
		msfStats.CellsRemoved, msfStats.NegotiationFailures, m.Msf.IsNegotiating())
	cc.outputf("queue=%d\n", m.QueueLen())
}

type cellEntry struct {
	Node      NodeId `yaml:"node"`
	Slotframe int    `yaml:"slotframe"`
	Slot      int    `yaml:"slot"`
	Channel   int    `yaml:"channel"`
	Options   string `yaml:"options"`
	Peer      string `yaml:"peer"`
	Elapsed   int    `yaml:"elapsed"`
	Used      int    `yaml:"used"`
}

func (rt *CmdRunner) executeCells(cc *CommandContext, cmd *CellsCmd) {
	var motes []*mote.Mote
	if len(cmd.Nodes) == 0 {
		rt.sim.VisitNodesInOrder(func(m *mote.Mote) {
			motes = append(motes, m)
		})
	} else {
		for _, id := range selectedIds(cmd.Nodes) {
			m := rt.getMote(cc, NodeSelector{Id: id})
			if m == nil {
				return
			}
			motes = append(motes, m)
		}
	}

	var entries []cellEntry
	for _, m := range motes {
		for _, c := range m.Schedule.AllCells() {
			entries = append(entries, cellEntry{
				Node:      m.Id,
				Slotframe: c.SlotframeHandle,
				Slot:      c.SlotOffset,
				Channel:   c.ChannelOffset,
				Options:   c.Options.String(),
				Peer:      parentString(c.Peer),
				Elapsed:   c.Elapsed,
				Used:      c.Used,
			})
		}
	}
	cc.outputItemsAsYaml(entries)
}

func (rt *CmdRunner) executeParent(cc *CommandContext, cmd *ParentCmd) {
	if m := rt.getMote(cc, cmd.Node); m != nil {
		cc.outputf("%s\n", parentString(m.Dodag.Parent()))
	}
}

func (rt *CmdRunner) executeRank(cc *CommandContext, cmd *RankCmd) {
	if m := rt.getMote(cc, cmd.Node); m != nil {
		cc.outputf("%s\n", m.Dodag.Rank())
	}
}

func (rt *CmdRunner) executeRoutes(cc *CommandContext, cmd *RoutesCmd) {
	root := rt.sim.GetMote(simulation.RootId)
	if cmd.Dst != nil {
		path, ok := root.Dodag.RouteTo(cmd.Dst.Id)
		if !ok {
			cc.errorf("no route to node %d", cmd.Dst.Id)
			return
		}
		cc.outputf("%s\n", strings.Trim(fmt.Sprint(path), "[]"))
		return
	}
	routes := root.Dodag.Routes()
	for _, id := range rt.sim.GetNodes() {
		if parent, ok := routes[id]; ok {
			cc.outputf("node=%-4d parent=%d\n", id, parent)
		}
	}
}

func (rt *CmdRunner) executeAudit(cc *CommandContext) {
	if err := rt.sim.AuditDodag(); err != nil {
		cc.error(err)
		return
	}
	cc.outputf("attached=%d/%d\n", rt.sim.CountAttached(), len(rt.sim.GetNodes()))
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	km := rt.sim.Kpi()
	if cmd.Save != nil {
		if len(cmd.Name) > 0 {
			km.SaveFile(cmd.Name)
		} else {
			km.SaveDefaultFile()
		}
		return
	}
	data := km.Data()
	cc.outputf("status=%s\n", data.Status)
	cc.outputf("period=%.3fs\n", data.TimeSec.PeriodSec)
	cc.outputItemsAsYaml(data.Network)
}

func (rt *CmdRunner) executeLink(cc *CommandContext, cmd *LinkCmd) {
	if cmd.Pdr != nil {
		cc.error(rt.sim.SetLinkPdr(cmd.A.Id, cmd.B.Id, *cmd.Pdr))
		return
	}
	for _, sel := range []NodeSelector{cmd.A, cmd.B} {
		if rt.getMote(cc, sel) == nil {
			return
		}
	}
	rm := rt.sim.RadioModel()
	cc.outputf("%d->%d %.3f\n", cmd.A.Id, cmd.B.Id, rm.GetPdr(cmd.A.Id, cmd.B.Id, 0))
	cc.outputf("%d->%d %.3f\n", cmd.B.Id, cmd.A.Id, rm.GetPdr(cmd.B.Id, cmd.A.Id, 0))
}

func (rt *CmdRunner) executeRadio(cc *CommandContext) {
	cc.outputf("model=%s\n", rt.sim.RadioModel().GetName())
	stats := rt.sim.RadioStats()
	statsVal := reflect.ValueOf(stats)
	statsTyp := reflect.TypeOf(stats)
	for i := 0; i < statsVal.NumField(); i++ {
		cc.outputf("%-40s %v\n", statsTyp.Field(i).Name, statsVal.Field(i).Uint())
	}
}

func (rt *CmdRunner) executeCounters(cc *CommandContext) {
	rt.sim.VisitNodesInOrder(func(m *mote.Mote) {
		stats := m.Stats()
		statsVal := reflect.ValueOf(stats)
		statsTyp := reflect.TypeOf(stats)
		cc.outputf("node %d\n", m.Id)
		for i := 0; i < statsVal.NumField(); i++ {
			cc.outputf("  %-38s %v\n", statsTyp.Field(i).Name, statsVal.Field(i).Interface())
		}
	})
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, cmd *EnergyCmd) {
	ea := rt.sim.EnergyAnalyser()
	if cmd.Save != nil {
		dir := rt.sim.Config().OutputDir
		if dir == "" {
			dir = "."
		}
		cc.error(ea.SaveEnergyDataToFile(dir, cmd.Name, rt.sim.Now()))
		return
	}
	if cmd.Residual != nil {
		cc.error(rt.sim.SetResidualEnergy(cmd.Residual.Node.Id, cmd.Residual.Fraction))
		return
	}
	rt.sim.VisitNodesInOrder(func(m *mote.Mote) {
		nc := m.Battery.Consumption()
		residual := "mains"
		if !m.Battery.IsMainsPowered() {
			residual = fmt.Sprintf("%.3f", m.Battery.ResidualEnergy())
		}
		cc.outputf("node=%-4d residual=%s tx=%.3fmJ rx=%.3fmJ sleep=%.3fmJ\n", m.Id, residual, nc.Tx, nc.Rx,
			nc.Sleep)
	})
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	level := logger.DefaultLevel
	if len(cmd.Level) > 0 {
		var err error
		if level, err = logger.ParseLevelString(cmd.Level); err != nil {
			cc.error(err)
			return
		}
	}

	nodesToWatch := cmd.Nodes
	if len(cmd.All) > 0 {
		nodesToWatch = nil
		for _, id := range rt.sim.GetNodes() {
			nodesToWatch = append(nodesToWatch, NodeSelector{Id: id})
		}
	} else if len(cmd.Nodes) == 0 {
		// variant: 'watch'
		cc.outputf("%v\n", strings.Trim(fmt.Sprintf("%v", rt.sim.GetWatchingNodes()), "[]"))
		return
	}

	for _, id := range selectedIds(nodesToWatch) {
		cc.error(rt.sim.WatchNode(id, level))
	}
}

func (rt *CmdRunner) executeUnwatch(cc *CommandContext, cmd *UnwatchCmd) {
	// if no node-number(s) given, unwatch all.
	if len(cmd.Nodes) == 0 {
		for _, id := range rt.sim.GetWatchingNodes() {
			rt.sim.UnwatchNode(id)
		}
		return
	}
	for _, sel := range cmd.Nodes {
		if rt.sim.GetMote(sel.Id) == nil {
			cc.outputf("Warn: node %d not found, skipping\n", sel.Id)
			continue
		}
		rt.sim.UnwatchNode(sel.Id)
	}
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	cc.outputf("%d\n", rt.sim.Now())
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

func parentString(id NodeId) string {
	if id == InvalidNodeId || id == BroadcastNodeId {
		return "-"
	}
	return strconv.Itoa(id)
}
