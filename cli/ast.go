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
	"sort"
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Audit    *AuditCmd    `  @@` //nolint
	Cells    *CellsCmd    `| @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Energy   *EnergyCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	Link     *LinkCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Node     *NodeCmd     `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Parent   *ParentCmd   `| @@` //nolint
	Radio    *RadioCmd    `| @@` //nolint
	Rank     *RankCmd     `| @@` //nolint
	Routes   *RoutesCmd   `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Unwatch  *UnwatchCmd  `| @@` //nolint
	Watch    *WatchCmd    `| @@` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`                                          //nolint
	Time string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"|"sf"]) ` //nolint
	Ever *EverFlag `| @@ )`                                        //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// selectedIds returns the ids of the selectors without duplicates, in ascending order.
func selectedIds(sels []NodeSelector) []int {
	seen := make(map[int]struct{}, len(sels))
	ids := make([]int, 0, len(sels))
	for _, ns := range sels {
		if _, ok := seen[ns.Id]; !ok {
			seen[ns.Id] = struct{}{}
			ids = append(ids, ns.Id)
		}
	}
	sort.Ints(ids)
	return ids
}

// noinspection GoStructTag
type NodeCmd struct {
	Cmd  struct{}     `"node"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type CellsCmd struct {
	Cmd   struct{}       `"cells"`     //nolint
	Nodes []NodeSelector `[ ( @@ )+ ]` //nolint
}

// noinspection GoStructTag
type ParentCmd struct {
	Cmd  struct{}     `"parent"` //nolint
	Node NodeSelector `@@`       //nolint
}

// noinspection GoStructTag
type RankCmd struct {
	Cmd  struct{}     `"rank"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type RoutesCmd struct {
	Cmd struct{}      `"routes"` //nolint
	Dst *NodeSelector `[ @@ ]`   //nolint
}

// noinspection GoStructTag
type AuditCmd struct {
	Cmd struct{} `"audit"` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd  struct{}  `"kpi"`       //nolint
	Save *SaveFlag `( @@ )?`     //nolint
	Name string    `[ @String ]` //nolint
}

// noinspection GoStructTag
type LinkCmd struct {
	Cmd struct{}     `"link"`            //nolint
	A   NodeSelector `@@`                //nolint
	B   NodeSelector `@@`                //nolint
	Pdr *float64     `[ (@Int|@Float) ]` //nolint
}

// noinspection GoStructTag
type RadioCmd struct {
	Cmd struct{} `"radio"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd struct{} `"counters"` //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd      struct{}      `"energy"`      //nolint
	Save     *SaveFlag     `( @@`          //nolint
	Name     string        `  [ @String ]` //nolint
	Residual *ResidualFlag `| @@ )?`       //nolint
}

// noinspection GoStructTag
type ResidualFlag struct {
	Dummy    struct{}     `"residual"`    //nolint
	Node     NodeSelector `@@`            //nolint
	Fraction float64      `(@Int|@Float)` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                  //nolint
	Level string   `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"T"|"D"|"I"|"N"|"W"|"E"|"C" )]` //nolint
}

// noinspection GoStructTag
type WatchCmd struct {
	Cmd   struct{}       `"watch"`                                                                                             //nolint
	All   string         `[ @"all" ]`                                                                                          //nolint
	Nodes []NodeSelector `[ ( @@ )+ ]`                                                                                         //nolint
	Level string         `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"off"|"none"|"T"|"D"|"I"|"N"|"W"|"E"|"C" )]` //nolint
}

// noinspection GoStructTag
type UnwatchCmd struct {
	Cmd   struct{}       `"unwatch"`           //nolint
	Nodes []NodeSelector `( "all" | ( @@ )+ )` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}
