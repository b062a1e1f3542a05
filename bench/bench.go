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

// Package bench 對各抽樣引擎執行測速情境與分布檢定，並輸出報告。
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/errgroup"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
	"github.com/zintix-labs/wrand/sdk/sampler"
	"github.com/zintix-labs/wrand/stats"
)

// fitKeys 分布檢定使用的 key 數，第 i 個 key 權重為 i
const fitKeys = 16

// fitBatch 每批抽樣次數；耗時以批為單位量測後平均到每次抽樣
const fitBatch = 64

// Options 控制一次 bench 執行
type Options struct {
	Kinds      []sampler.Kind
	Scenarios  []Scenario // nil 表示 Scenarios()
	Iterations int
	Workers    int
	FitDraws   int // 0 表示不做分布檢定
	PRNG       string // pcg64 (預設) | pcg32 | mt19937
	Seed       int64
	Log        *slog.Logger
	Progress   io.Writer // nil 表示不顯示進度條
}

// rebuildCounter 由會重建衍生結構的引擎實作
type rebuildCounter interface {
	Rebuilds() int
}

type job struct {
	engine   int
	scenario int // -1 表示分布檢定
	kind     sampler.Kind
	core     *core.Core
}

// Run 依 Options 執行所有 (引擎 × 情境) 組合。
//
// 每個組合使用自己的 *core.Core，亂數串流在啟動 worker 前依固定順序派發，
// 因此相同 Seed 的抽樣結果與 worker 數、排程順序無關。
func Run(ctx context.Context, opt Options) (*Report, error) {
	if len(opt.Kinds) == 0 {
		opt.Kinds = sampler.Kinds()
	}
	if opt.Scenarios == nil {
		opt.Scenarios = Scenarios()
	}
	if opt.Iterations < 1 {
		return nil, errs.NewWarn("iterations must > 0")
	}
	if opt.FitDraws < 0 {
		return nil, errs.NewWarn("fit draws must >= 0")
	}
	opt.Workers = max(1, opt.Workers)
	if opt.Log == nil {
		opt.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	factory, ok := core.Factory(opt.PRNG)
	if !ok {
		return nil, errs.Warnf("unknown prng: %q", opt.PRNG)
	}
	if opt.PRNG == "" {
		opt.PRNG = "pcg64"
	}

	streams := core.NewStreams(factory, opt.Seed)
	rep := &Report{
		Seed:       opt.Seed,
		PRNG:       opt.PRNG,
		Iterations: opt.Iterations,
		Workers:    opt.Workers,
		Engines:    make([]EngineReport, len(opt.Kinds)),
	}

	var jobs []job
	for e, k := range opt.Kinds {
		rep.Engines[e] = EngineReport{Engine: k.String(), Results: make([]Result, len(opt.Scenarios))}
		for s := range opt.Scenarios {
			jobs = append(jobs, job{engine: e, scenario: s, kind: k, core: streams.Next()})
		}
		if opt.FitDraws > 0 {
			jobs = append(jobs, job{engine: e, scenario: -1, kind: k, core: streams.Next()})
		}
	}

	bar := pb.New(len(jobs))
	if opt.Progress == nil {
		bar.SetWriter(io.Discard)
	} else {
		bar.SetWriter(opt.Progress)
	}
	bar.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer bar.Increment()
			er := &rep.Engines[j.engine]
			if j.scenario < 0 {
				fit, lat, err := runFit(j, opt)
				if err != nil {
					return err
				}
				er.Fit, er.Latency = fit, lat
				return nil
			}
			res, err := runScenario(j, opt)
			if err != nil {
				return err
			}
			er.Results[j.scenario] = res
			return nil
		})
	}
	err := g.Wait()
	rep.Elapsed = time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func newEngine(j job, opt Options) (sampler.Randomizer[int], error) {
	return sampler.New[int](j.kind, sampler.WithCore(j.core), sampler.WithLogger(opt.Log))
}

func runScenario(j job, opt Options) (Result, error) {
	sc := opt.Scenarios[j.scenario]
	r, err := newEngine(j, opt)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	ops, err := sc.Run(r, opt.Iterations)
	used := time.Since(start)
	if err != nil {
		return Result{}, errs.WrapWithExtra(err, "scenario failed", fmt.Sprintf("%s/%s", j.kind, sc.Name))
	}

	res := Result{
		Scenario: sc.Name,
		Items:    opt.Iterations,
		Ops:      ops,
		Elapsed:  used,
	}
	if ops > 0 {
		res.NsPerOp = float64(used.Nanoseconds()) / float64(ops)
	}
	if rc, ok := r.(rebuildCounter); ok {
		res.Rebuilds = rc.Rebuilds()
	}
	opt.Log.Debug("bench scenario done",
		slog.String("engine", j.kind.String()),
		slog.String("scenario", sc.Name),
		slog.Int("ops", ops),
		slog.Duration("used", used),
	)
	return res, nil
}

// runFit 以權重 1..fitKeys 抽樣 FitDraws 次，做 chi-square 檢定並量測單次抽樣耗時
func runFit(j job, opt Options) (*stats.FitReport, stats.LatencyStat, error) {
	r, err := newEngine(j, opt)
	if err != nil {
		return nil, stats.LatencyStat{}, err
	}
	weights := make(map[int]int, fitKeys)
	for i := 1; i <= fitKeys; i++ {
		weights[i] = i
		if err := r.Add(i, i); err != nil {
			return nil, stats.LatencyStat{}, err
		}
	}

	tally := stats.NewTally[int]()
	lat := make([]float64, 0, opt.FitDraws/fitBatch+1)
	for left := opt.FitDraws; left > 0; {
		n := min(fitBatch, left)
		start := time.Now()
		for i := 0; i < n; i++ {
			k, err := r.NextWithReplacement()
			if err != nil {
				return nil, stats.LatencyStat{}, err
			}
			tally.Observe(k)
		}
		lat = append(lat, float64(time.Since(start).Nanoseconds())/float64(n))
		left -= n
	}
	return stats.GoodnessOfFit(tally, maps.All(weights)), stats.EstimateLatency(lat), nil
}
