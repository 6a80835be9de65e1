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

package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"google.golang.org/protobuf/encoding/prototext"

	"github.com/openthread/ot-tsch-sim/logger"
	visualizeReplay "github.com/openthread/ot-tsch-sim/visualize/replay"
)

var args struct {
	ReplayFile string
	Dump       bool
	Event      string
}

func parseArgs() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-dump] [-event <name>] <tsch_sim_file.replay>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  Summarizes or dumps the events of a prior simulation from its .replay file.\n")
		flag.PrintDefaults()
	}
	flag.BoolVar(&args.Dump, "dump", false, "print every event instead of a summary.")
	flag.StringVar(&args.Event, "event", "", "only consider events with this name, e.g. setParent.")
	flag.Parse()

	if len(flag.Args()) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	args.ReplayFile = flag.Arg(0)
}

func main() {
	parseArgs()
	logger.SetLevel(logger.InfoLevel)

	entries, err := visualizeReplay.ReadReplayFile(args.ReplayFile)
	logger.FatalIfError(err)

	counts := map[string]int{}
	for _, e := range entries {
		name := e.Fields["event"].GetStringValue()
		if args.Event != "" && name != args.Event {
			continue
		}
		counts[name]++
		if args.Dump {
			fmt.Println(prototext.MarshalOptions{}.Format(e))
		}
	}
	if args.Dump {
		return
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	lastTs := 0.0
	if len(entries) > 0 {
		lastTs = entries[len(entries)-1].Fields["timestamp"].GetNumberValue()
	}
	fmt.Printf("%d events up to %.3fs\n", len(entries), lastTs/1e6)
	for _, name := range names {
		fmt.Printf("%-20s %d\n", name, counts[name])
	}
}
