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

package bench

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/stats"
)

// Result 單一 (引擎 × 情境) 的量測結果
type Result struct {
	Scenario string        `json:"Scenario" yaml:"scenario"`
	Items    int           `json:"Items" yaml:"items"`
	Ops      int           `json:"Ops" yaml:"ops"`
	Elapsed  time.Duration `json:"Elapsed" yaml:"elapsed"`
	NsPerOp  float64       `json:"NsPerOp" yaml:"ns_per_op"`
	Rebuilds int           `json:"Rebuilds" yaml:"rebuilds"` // 僅會重建衍生結構的引擎有值
}

// EngineReport 單一引擎的所有結果
type EngineReport struct {
	Engine  string            `json:"Engine" yaml:"engine"`
	Results []Result          `json:"Results" yaml:"results"`
	Fit     *stats.FitReport  `json:"Fit,omitempty" yaml:"fit,omitempty"`
	Latency stats.LatencyStat `json:"Latency" yaml:"latency"`
}

// Report 一次 bench 執行的完整報告
type Report struct {
	Seed       int64          `json:"Seed" yaml:"seed"`
	PRNG       string         `json:"PRNG" yaml:"prng"`
	Iterations int            `json:"Iterations" yaml:"iterations"`
	Workers    int            `json:"Workers" yaml:"workers"`
	Elapsed    time.Duration  `json:"Elapsed" yaml:"elapsed"`
	Engines    []EngineReport `json:"Engines" yaml:"engines"`
}

// Table 以表格輸出報告 (滿足 stats.Tabler)
func (r *Report) Table() string {
	p := stats.Printer()
	var sb strings.Builder
	ops := 0
	for _, e := range r.Engines {
		for _, res := range e.Results {
			ops += res.Ops
		}
	}
	sb.WriteString(p.Sprintf("seed: %d  prng: %s  iterations: %d  workers: %d\n", r.Seed, r.PRNG, r.Iterations, r.Workers))
	sb.WriteString(stats.FormatDuration(r.Elapsed, ops))

	for _, e := range r.Engines {
		keys := make([]string, 0, len(e.Results))
		msg := make(map[string]string, len(e.Results))
		for _, res := range e.Results {
			keys = append(keys, res.Scenario)
			v := p.Sprintf("%s  (%.1f ns/op)", res.Elapsed.Round(time.Microsecond), res.NsPerOp)
			if res.Rebuilds > 0 {
				v += p.Sprintf("  rebuilds=%d", res.Rebuilds)
			}
			msg[res.Scenario] = v
		}
		if e.Latency.Samples > 0 {
			lk, lm := e.Latency.Fields()
			for _, k := range lk {
				keys = append(keys, "draw "+k)
				msg["draw "+k] = lm[k]
			}
		}
		sb.WriteString("\n")
		sb.WriteString(stats.FormatTable(e.Engine, keys, msg))
		if e.Fit != nil {
			sb.WriteString(e.Fit.Table(e.Engine + " goodness of fit"))
		}
	}
	return sb.String()
}

// WriteFile 以 render 將報告寫入 path；副檔名為 .zst 時以 zstd 壓縮。
func (r *Report) WriteFile(path string, render stats.Render) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "failed to create report file")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errs.Wrap(cerr, "failed to close report file")
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		zw, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return errs.Wrap(zerr, "failed to create zstd writer")
		}
		defer func() {
			if cerr := zw.Close(); err == nil && cerr != nil {
				err = errs.Wrap(cerr, "failed to flush zstd report")
			}
		}()
		w = zw
	}
	if err := render.Write(w, r); err != nil {
		return errs.Wrap(err, "failed to render report")
	}
	return nil
}

// ReadFile 讀回 WriteFile 寫出的報告內容 (自動解壓 .zst)
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read report file")
	}
	if !strings.HasSuffix(path, ".zst") {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.Wrap(err, "failed to create zstd reader")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errs.Wrap(err, "failed to decode zstd report")
	}
	return out, nil
}
