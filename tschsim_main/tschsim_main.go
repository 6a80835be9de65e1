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

// Package tschsim_main runs a TSCH network simulation, either for a configured number of slotframes or
// under control of the interactive CLI.
package tschsim_main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openthread/ot-tsch-sim/cli"
	"github.com/openthread/ot-tsch-sim/logger"
	"github.com/openthread/ot-tsch-sim/progctx"
	"github.com/openthread/ot-tsch-sim/simulation"
	"github.com/openthread/ot-tsch-sim/visualize"
	visualizeMetrics "github.com/openthread/ot-tsch-sim/visualize/metrics"
	visualizeMulti "github.com/openthread/ot-tsch-sim/visualize/multi"
	visualizeReplay "github.com/openthread/ot-tsch-sim/visualize/replay"
	visualizeStatslog "github.com/openthread/ot-tsch-sim/visualize/statslog"
)

type MainArgs struct {
	ConfigFile  string
	Seed        int64
	NumMotes    int
	Slotframes  uint64
	OutputDir   string
	LogLevel    string
	LogFile     string
	WatchLevel  string
	Interactive bool
	MetricsAddr string
	NoStatslog  bool
	Replay      bool
}

func parseArgs(argv []string) (*MainArgs, error) {
	args := &MainArgs{}
	fs := flag.NewFlagSet("tsch-sim", flag.ContinueOnError)
	fs.StringVar(&args.ConfigFile, "config", "", "YAML simulation config file; defaults are used if not given.")
	fs.Int64Var(&args.Seed, "seed", -1, "random seed, overrides the config file.")
	fs.IntVar(&args.NumMotes, "motes", 0, "number of motes including the root, overrides the config file.")
	fs.Uint64Var(&args.Slotframes, "slotframes", 0, "number of slotframes to run, overrides the config file.")
	fs.StringVar(&args.OutputDir, "output", "", "output directory for KPI, energy, stats and log files.")
	fs.StringVar(&args.LogLevel, "log", "", "set logging level: trace, debug, info, note, warn, error.")
	fs.StringVar(&args.LogFile, "logfile", "", "also write the simulator log to this file.")
	fs.StringVar(&args.WatchLevel, "watch", "off", "set watch level for all motes: off, trace, debug, info, note, warn, error.")
	fs.BoolVar(&args.Interactive, "i", false, "run the interactive CLI instead of a batch run.")
	fs.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. localhost:9100.")
	fs.BoolVar(&args.NoStatslog, "no-statslog", false, "do not generate the stats CSV file.")
	fs.BoolVar(&args.Replay, "replay", false, "generate a replay file of all simulation events.")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", fs.Args())
	}
	return args, nil
}

// buildConfig loads the config file, if any, and applies the command line overrides.
func buildConfig(args *MainArgs) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		if cfg, err = simulation.LoadConfigFile(args.ConfigFile); err != nil {
			return nil, err
		}
	}
	if args.Seed >= 0 {
		cfg.Seed = args.Seed
	}
	if args.NumMotes > 0 {
		cfg.NumMotes = args.NumMotes
	}
	if args.Slotframes > 0 {
		cfg.RunSlotframes = args.Slotframes
	}
	if args.OutputDir != "" {
		cfg.OutputDir = args.OutputDir
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
	if args.MetricsAddr != "" {
		cfg.Observers.Metrics = args.MetricsAddr
	}
	if args.NoStatslog {
		cfg.Observers.Statslog = false
	}
	if args.Replay {
		cfg.Observers.Replay = true
	}
	return cfg, cfg.Validate()
}

// Main runs the simulator with the given command line arguments. It returns when the run is complete, the CLI
// exits or a signal is received.
func Main(ctx *progctx.ProgCtx, argv []string, cliOptions *cli.CliOptions) error {
	args, err := parseArgs(argv)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(args)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevelString(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "log level")
	}
	logger.SetLevel(level)
	if args.LogFile != "" {
		logger.SetOutput([]string{"stderr", args.LogFile})
	}
	ctx.Defer(logger.Sync)
	watchLevel, err := logger.ParseLevelString(args.WatchLevel)
	if err != nil {
		return errors.Wrapf(err, "watch level")
	}

	handleSignals(ctx)

	vis, err := createVisualizer(ctx, cfg)
	if err != nil {
		return err
	}

	sim, err := simulation.NewSimulation(ctx, cfg, vis)
	if err != nil {
		vis.Stop()
		return err
	}
	for _, id := range sim.GetNodes() {
		logger.PanicIfError(sim.WatchNode(id, watchLevel))
	}

	if args.Interactive {
		ctx.Defer(func() {
			_ = os.Stdin.Close()
		})
		rt := cli.NewCmdRunner(ctx, sim)
		if cliOptions == nil {
			cliOptions = cli.DefaultCliOptions()
		}
		cliOptions.Commands = newCommandList()
		logger.SetStdoutCallback(cli.Cli)
		err = cli.Cli.Run(rt, cliOptions)
	} else {
		logger.Infof("running %d slotframes", cfg.RunSlotframes)
		err = sim.RunSlotframes(cfg.RunSlotframes)
		if err == nil {
			logSummary(sim)
		}
	}

	sim.Stop()
	if err == simulation.CommandInterruptedError {
		err = nil
	}
	ctx.Cancel(errors.Wrapf(err, "simulation exit"))
	logger.Debugf("waiting for tsch-sim to stop gracefully ...")
	ctx.Wait()
	return err
}

func newCommandList() []string {
	return []string{"audit", "cells", "counters", "energy", "exit", "go", "help", "kpi", "link", "log", "node",
		"nodes", "parent", "radio", "rank", "routes", "time", "unwatch", "watch"}
}

func logSummary(sim *simulation.Simulation) {
	kpi := sim.Kpi().Data()
	logger.Infof("simulated %.1fs: %d/%d motes attached, pdr %.3f, avg latency %.1fms, audit: %s",
		float64(sim.Now())/1e6, kpi.Network.Attached, len(sim.GetNodes()), kpi.Network.Pdr,
		kpi.Network.AvgLatencyMs, kpi.Network.Audit)
}

// createVisualizer builds the observers selected in the config.
func createVisualizer(ctx *progctx.ProgCtx, cfg *simulation.Config) (visualize.Visualizer, error) {
	mv := visualizeMulti.NewMultiVisualizer()
	if cfg.Observers.Statslog && cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0775); err != nil {
			return nil, errors.Wrapf(err, "creating output directory %s", cfg.OutputDir)
		}
		mv.AddVisualizer(visualizeStatslog.NewStatslogVisualizer(cfg.OutputDir, cfg.Id))
	}
	if cfg.Observers.Replay && cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0775); err != nil {
			return nil, errors.Wrapf(err, "creating output directory %s", cfg.OutputDir)
		}
		rv, err := visualizeReplay.NewReplayVisualizer(fmt.Sprintf("%s/%d.replay", cfg.OutputDir, cfg.Id))
		if err != nil {
			return nil, err
		}
		mv.AddVisualizer(rv)
	}
	if cfg.Observers.Metrics != "" {
		reg := prometheus.NewRegistry()
		metricsVis, err := visualizeMetrics.NewMetricsVisualizer(reg)
		if err != nil {
			return nil, err
		}
		mv.AddVisualizer(metricsVis)
		serveMetrics(ctx, cfg.Observers.Metrics, reg)
	}
	if mv.Len() == 0 {
		return visualize.NewNopVisualizer(), nil
	}
	return mv, nil
}

// serveMetrics serves the registry on /metrics until the program context is cancelled.
func serveMetrics(ctx *progctx.ProgCtx, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx.Go("metrics", func() {
		logger.Infof("serving metrics on http://%s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server stopped unexpectedly: %v", err)
		}
	})
	ctx.Defer(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
