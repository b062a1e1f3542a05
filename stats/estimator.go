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

package stats

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"lo"`
	Hi float64 `json:"Hi" yaml:"hi"`
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat" yaml:"hat"`
	CI  CI      `json:"CI" yaml:"ci"`
}

// Tally 累計每個 key 被抽中的次數
//
// 非併發安全，每個 worker 各自累計後以 Merge 合併。
type Tally[K comparable] struct {
	counts map[K]int
	n      int
}

// BinStat 單一 key 的觀測結果
type BinStat struct {
	Key      string    `json:"Key" yaml:"key"`
	Weight   int       `json:"Weight" yaml:"weight"`
	Expected float64   `json:"Expected" yaml:"expected"`
	Observed int       `json:"Observed" yaml:"observed"`
	Share    PointStat `json:"Share" yaml:"share"` // 觀測比例 (95% Clopper–Pearson)
}

// FitReport 抽樣分布對權重的適合度檢定 (Pearson chi-square)
type FitReport struct {
	Draws      int       `json:"Draws" yaml:"draws"`
	Bins       []BinStat `json:"Bins" yaml:"bins"`
	ChiSquare  float64   `json:"ChiSquare" yaml:"chi_square"`
	DF         int       `json:"DF" yaml:"df"`
	PValue     float64   `json:"PValue" yaml:"p_value"`
	Unexpected int       `json:"Unexpected" yaml:"unexpected"` // 抽到權重 0 或不存在的 key 的次數
}

// LatencyStat 單次操作耗時的分布 (奈秒)
type LatencyStat struct {
	Samples int       `json:"Samples" yaml:"samples"`
	Mean    PointStat `json:"Mean" yaml:"mean"`
	P50     PointStat `json:"P50" yaml:"p50"`
	P90     PointStat `json:"P90" yaml:"p90"`
	P99     PointStat `json:"P99" yaml:"p99"`
}

// ============================================================
// ** 對外 : 計數與檢定 **
// ============================================================

func NewTally[K comparable]() *Tally[K] {
	return &Tally[K]{counts: make(map[K]int)}
}

// Observe 記錄一次抽樣結果
func (t *Tally[K]) Observe(k K) {
	t.counts[k]++
	t.n++
}

// ObserveN 一次記錄 k 被抽中 c 次；c <= 0 忽略
func (t *Tally[K]) ObserveN(k K, c int) {
	if c <= 0 {
		return
	}
	t.counts[k] += c
	t.n += c
}

// Count 回傳 k 被抽中的次數
func (t *Tally[K]) Count(k K) int { return t.counts[k] }

// N 回傳總抽樣次數
func (t *Tally[K]) N() int { return t.n }

// Merge 將 o 的計數併入 t
func (t *Tally[K]) Merge(o *Tally[K]) {
	for k, c := range o.counts {
		t.counts[k] += c
	}
	t.n += o.n
}

// GoodnessOfFit 以 Pearson chi-square 檢定 t 的觀測次數是否符合 weights 的比例。
//
// 只有權重 > 0 的 key 進入檢定 (自由度 = key 數 - 1)。
// 抽到權重 0 或不在 weights 裡的 key 一律計入 Unexpected，此時 PValue 為 0。
func GoodnessOfFit[K comparable](t *Tally[K], weights iter.Seq2[K, int]) *FitReport {
	out := &FitReport{Draws: t.n, PValue: 1}

	// 權重由呼叫端提供，int 加總可能溢位，以 float64 累計
	total := 0.0
	known := make(map[K]int)
	for k, w := range weights {
		known[k] = w
		if w > 0 {
			total += float64(w)
		}
	}
	for k, c := range t.counts {
		if known[k] <= 0 {
			out.Unexpected += c
		}
	}

	bins := 0
	for k, w := range known {
		b := BinStat{Key: fmt.Sprint(k), Weight: w, Observed: t.counts[k]}
		if w > 0 && total > 0 {
			b.Expected = float64(t.n) * float64(w) / total
			if b.Expected > 0 {
				d := float64(b.Observed) - b.Expected
				out.ChiSquare += d * d / b.Expected
			}
			bins++
		}
		hat, ci := proportionCICP(b.Observed, t.n, 0.95)
		b.Share = PointStat{Hat: hat, CI: ci}
		out.Bins = append(out.Bins, b)
	}
	slices.SortFunc(out.Bins, func(a, b BinStat) int { return strings.Compare(a.Key, b.Key) })

	out.DF = bins - 1
	switch {
	case out.Unexpected > 0:
		out.PValue = 0
	case out.DF >= 1 && t.n > 0:
		out.PValue = distuv.ChiSquared{K: float64(out.DF)}.Survival(out.ChiSquare)
	}
	return out
}

// Pass 回報在顯著水準 alpha 下是否無法拒絕「分布符合權重」
func (f *FitReport) Pass(alpha float64) bool {
	return f.Unexpected == 0 && f.PValue >= alpha
}

// EstimateLatency 由每次操作耗時 (奈秒) 估計平均與分位數
func EstimateLatency(ns []float64) LatencyStat {
	n := len(ns)
	out := LatencyStat{Samples: n}
	if n == 0 {
		return out
	}

	sum, sq := 0.0, 0.0
	for _, v := range ns {
		sum += v
		sq += v * v
	}
	mean := sum / float64(n)
	se := 0.0
	if n > 1 {
		variance := (sq - sum*sum/float64(n)) / float64(n-1)
		if variance < 0 {
			variance = 0
		}
		se = math.Sqrt(variance) / math.Sqrt(float64(n))
	}
	out.Mean = PointStat{Hat: mean, CI: CI{Lo: max(mean-1.96*se, 0), Hi: mean + 1.96*se}}

	sorted := slices.Clone(ns)
	sort.Float64s(sorted)
	at := func(q float64) PointStat {
		lo, hi := quantileCI(sorted, q, 0.95)
		return PointStat{Hat: quantilePoint(sorted, q), CI: CI{Lo: lo, Hi: hi}}
	}
	out.P50 = at(0.50)
	out.P90 = at(0.90)
	out.P99 = at(0.99)
	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 想估「第 q 分位」的上下界。把 order statistic 的秩視為二項 → Beta 反推 p 範圍，再把 p 轉回樣本索引。
//
// data 必須已排序。回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return data[0], data[0]
	}

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := min(max(int(pLo*float64(n)), 0), n-1)
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	ui = min(max(ui, 0), n-1)
	return data[li], data[ui]
}

// quantilePoint 最近秩法；data 必須已排序
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	idx := min(max(int(q*float64(n)), 0), n-1)
	return data[idx]
}
