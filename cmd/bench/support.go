// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zintix-labs/wrand/bench"
	"github.com/zintix-labs/wrand/config"
	"github.com/zintix-labs/wrand/server/logger"
	"github.com/zintix-labs/wrand/stats"
)

var opt = new(flags)

type flags struct {
	cfg       *config.Config
	pprofmode string
	progress  bool
	verbose   bool // 明確給了 -log-mode 才輸出引擎 log (重建 log 量很大)
}

// bindVar 讀取設定檔後以 flag 覆寫；未出現的 flag 不覆寫設定檔的值
func bindVar() error {
	var (
		path    string
		engines string
	)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "yaml config file")
	fs.StringVar(&engines, "engines", "", "comma separated engines: static,dynamic,fast_replacement,fast_removal")
	n := fs.Int("n", 0, "items per scenario")
	workers := fs.Int("workers", 0, "number of workers")
	seed := fs.Int64("seed", 0, "int64 seed for random number generator")
	prng := fs.String("prng", "", "pcg64 | pcg32 | mt19937")
	fit := fs.Int("fit", -1, "draws for goodness of fit per engine (0 disables)")
	report := fs.String("report", "", "write report to file (.zst for zstd)")
	format := fs.String("format", "", "table | yaml | json")
	logMode := fs.String("log-mode", "", "log mode: dev | prod | silence")
	fs.StringVar(&opt.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	fs.BoolVar(&opt.progress, "progress", true, "show progress bar on stderr")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg := config.Default()
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
	}
	if engines != "" {
		cfg.Bench.Engines = strings.Split(engines, ",")
	}
	if *n > 0 {
		cfg.Bench.Iterations = *n
	}
	if *workers > 0 {
		cfg.Bench.Workers = *workers
	}
	if *seed > 0 {
		cfg.Seed = *seed
	}
	if *prng != "" {
		cfg.PRNG = *prng
	}
	if *fit >= 0 {
		cfg.Bench.FitDraws = *fit
	}
	if *report != "" {
		cfg.Bench.Report = *report
	}
	if *format != "" {
		cfg.Bench.Format = *format
	}
	if *logMode != "" {
		cfg.LogMode = *logMode
		opt.verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ResolveSeed()
	opt.cfg = cfg
	return nil
}

// executeBench 跑完所有引擎與情境後輸出報告
func executeBench() error {
	cfg := opt.cfg
	kinds, err := cfg.Kinds()
	if err != nil {
		return err
	}
	mode := logger.ModeSilence
	if opt.verbose {
		mode = cfg.Mode()
	}
	log := logger.NewDefaultLogger(mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o := bench.Options{
		Kinds:      kinds,
		Iterations: cfg.Bench.Iterations,
		Workers:    cfg.Bench.Workers,
		FitDraws:   cfg.Bench.FitDraws,
		PRNG:       cfg.PRNG,
		Seed:       cfg.Seed,
		Log:        log,
	}
	if opt.progress {
		o.Progress = os.Stderr
	}
	rep, err := bench.Run(ctx, o)
	if err != nil {
		return err
	}

	render, err := stats.RenderFor(cfg.Bench.Format)
	if err != nil {
		return err
	}
	if err := render.Write(os.Stdout, rep); err != nil {
		return err
	}
	if cfg.Bench.Report != "" {
		if err := rep.WriteFile(cfg.Bench.Report, render); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", cfg.Bench.Report)
	}
	return nil
}
