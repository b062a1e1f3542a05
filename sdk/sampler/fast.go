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

package sampler

import (
	"iter"
	"log/slog"
)

// aliasEngine 是兩個 Alias Method 引擎共用的實作。
//
// 項目以 slot 陣列保存 (keys / weights / dead)，AliasTable 的索引即 slot 位置。
// 任何改變權重分布的操作 (Add / SetWeight / 實體移除) 都會標記 stale，
// 下一次抽樣前整表重建。
//
// lazy == true 時 (FastRemoval)，表仍有效期間的移除只做邏輯刪除：
// slot 標記為 dead、權重計入 deadWeight，抽樣抽到 dead slot 時重抽。
// deadWeight / tableTotal 達到門檻後才標記 stale，重建時壓縮掉 dead slot。
type aliasEngine[K comparable] struct {
	cfg   options
	check validator[K]
	lazy  bool
	name  string

	keys    []K
	weights []int
	dead    []bool
	index   map[K]int // 只含存活的 key
	total   int64     // 存活項目權重總和

	table      *AliasTable
	tableTotal int64
	deadWeight int64
	stale      bool
	rebuilds   int
}

func newAliasEngine[K comparable](name string, lazy bool, opts []Option) aliasEngine[K] {
	return aliasEngine[K]{
		cfg:   buildOptions(opts),
		check: newValidator[K](),
		lazy:  lazy,
		name:  name,
		index: make(map[K]int),
		stale: true,
	}
}

func (a *aliasEngine[K]) Count() int { return len(a.index) }

func (a *aliasEngine[K]) TotalWeight() int64 { return a.total }

func (a *aliasEngine[K]) Contains(key K) bool {
	if a.check.key(key) != nil {
		return false
	}
	_, ok := a.index[key]
	return ok
}

func (a *aliasEngine[K]) Clear() {
	clear(a.keys)
	a.keys = a.keys[:0]
	a.weights = a.weights[:0]
	a.dead = a.dead[:0]
	clear(a.index)
	a.total = 0
	a.table = nil
	a.tableTotal = 0
	a.deadWeight = 0
	a.stale = true
}

func (a *aliasEngine[K]) AddOne(key K) error {
	return a.Add(key, 1)
}

func (a *aliasEngine[K]) Add(key K, weight int) error {
	if err := a.check.key(key); err != nil {
		return err
	}
	if err := a.check.weight(key, weight); err != nil {
		return err
	}
	if _, ok := a.index[key]; ok {
		return duplicate(key)
	}
	total, err := addTotal(a.total, int64(weight))
	if err != nil {
		return err
	}
	a.index[key] = len(a.keys)
	a.keys = append(a.keys, key)
	a.weights = append(a.weights, weight)
	a.dead = append(a.dead, false)
	a.total = total
	a.stale = true
	return nil
}

func (a *aliasEngine[K]) Remove(key K) bool {
	if a.check.key(key) != nil {
		return false
	}
	i, ok := a.index[key]
	if !ok {
		return false
	}
	a.removeAt(i)
	return true
}

func (a *aliasEngine[K]) GetWeight(key K) (int, error) {
	if err := a.check.key(key); err != nil {
		return 0, err
	}
	i, ok := a.index[key]
	if !ok {
		return 0, notFound(key)
	}
	return a.weights[i], nil
}

func (a *aliasEngine[K]) SetWeight(key K, weight int) error {
	if err := a.check.key(key); err != nil {
		return err
	}
	if err := a.check.weight(key, weight); err != nil {
		return err
	}
	i, ok := a.index[key]
	if weight == 0 {
		if ok {
			a.removeAt(i)
		}
		return nil
	}
	if !ok {
		return a.Add(key, weight)
	}
	total, err := addTotal(a.total, int64(weight-a.weights[i]))
	if err != nil {
		return err
	}
	a.weights[i] = weight
	a.total = total
	a.stale = true
	return nil
}

func (a *aliasEngine[K]) NextWithReplacement() (K, error) {
	i, err := a.pick()
	if err != nil {
		var zero K
		return zero, err
	}
	return a.keys[i], nil
}

func (a *aliasEngine[K]) NextWithRemoval() (K, error) {
	i, err := a.pick()
	if err != nil {
		var zero K
		return zero, err
	}
	key := a.keys[i]
	a.removeAt(i)
	return key, nil
}

func (a *aliasEngine[K]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for i, k := range a.keys {
			if a.dead[i] {
				continue
			}
			if !yield(k) {
				return
			}
		}
	}
}

func (a *aliasEngine[K]) All() iter.Seq2[K, int] {
	return func(yield func(K, int) bool) {
		for i, k := range a.keys {
			if a.dead[i] {
				continue
			}
			if !yield(k, a.weights[i]) {
				return
			}
		}
	}
}

// Rebuilds 回傳 Alias Table 的重建次數
func (a *aliasEngine[K]) Rebuilds() int { return a.rebuilds }

// pick 回傳抽中的 slot 位置
func (a *aliasEngine[K]) pick() (int, error) {
	if len(a.index) == 0 || a.total == 0 {
		return -1, empty(len(a.index))
	}
	if a.stale || a.table == nil {
		if err := a.rebuild(); err != nil {
			return -1, err
		}
	}
	for {
		i := a.table.Pick(a.cfg.core)
		// 表有效期間存活權重 = tableTotal - deadWeight > 0，重抽必定終止
		if !a.dead[i] {
			return i, nil
		}
	}
}

// removeAt 移除 slot i 上的存活項目
func (a *aliasEngine[K]) removeAt(i int) {
	w := a.weights[i]
	delete(a.index, a.keys[i])
	a.total -= int64(w)

	if a.lazy && !a.stale && a.table != nil {
		a.dead[i] = true
		a.deadWeight += int64(w)
		if a.cfg.reached(a.deadWeight, a.tableTotal) {
			a.stale = true
		}
		return
	}

	last := len(a.keys) - 1
	if i != last {
		a.keys[i] = a.keys[last]
		a.weights[i] = a.weights[last]
		a.dead[i] = a.dead[last]
		if !a.dead[i] {
			a.index[a.keys[i]] = i
		}
	}
	var zero K
	a.keys[last] = zero
	a.keys = a.keys[:last]
	a.weights = a.weights[:last]
	a.dead = a.dead[:last]
	a.stale = true
}

// rebuild 壓縮掉 dead slot 並重建 Alias Table
func (a *aliasEngine[K]) rebuild() error {
	if a.deadWeight > 0 || len(a.keys) != len(a.index) {
		n := 0
		for i, k := range a.keys {
			if a.dead[i] {
				continue
			}
			a.keys[n] = k
			a.weights[n] = a.weights[i]
			a.dead[n] = false
			a.index[k] = n
			n++
		}
		clear(a.keys[n:])
		a.keys = a.keys[:n]
		a.weights = a.weights[:n]
		a.dead = a.dead[:n]
	}

	table, err := BuildAliasTable(a.weights)
	if err != nil {
		return err
	}
	a.table = table
	a.tableTotal = table.Total
	a.deadWeight = 0
	a.stale = false
	a.rebuilds++
	a.cfg.log.Debug("alias table rebuilt",
		slog.String("engine", a.name),
		slog.Int("count", len(a.keys)),
		slog.Int64("total", table.Total),
		slog.Int64("height_per_box", table.HeightPerBox),
		slog.Int("rebuilds", a.rebuilds),
	)
	return nil
}

// FastReplacement 是以 Alias Table 抽樣的引擎，適合抽出放回為主的工作負載。
//
//   - 抽樣：表有效時 O(1)。
//   - 任何變動 (含 NextWithRemoval) 都會讓表失效，下一次抽樣 O(n log n) 重建。
type FastReplacement[K comparable] struct {
	aliasEngine[K]
}

var _ Randomizer[int] = (*FastReplacement[int])(nil)

// NewFastReplacement 建立空的 FastReplacement 抽樣器
func NewFastReplacement[K comparable](opts ...Option) *FastReplacement[K] {
	return &FastReplacement[K]{newAliasEngine[K](KindFastReplacement.String(), false, opts)}
}

// FastRemoval 是以 Alias Table 抽樣、針對抽出移除最佳化的引擎。
//
// 表有效期間的移除 (NextWithRemoval / Remove / SetWeight(key, 0)) 只做邏輯刪除，
// 之後的抽樣抽到已刪除的項目就重抽。被刪除的權重佔建表總權重的比例達到
// 門檻 (預設 1/2，見 WithRebuildRatio) 時，下一次抽樣前整表重建。
// 每次抽樣的期望重抽次數因此不超過 1/(1-門檻)。
//
// Add 與 SetWeight 改變權重分布，仍會讓表立即失效。
type FastRemoval[K comparable] struct {
	aliasEngine[K]
}

var _ Randomizer[int] = (*FastRemoval[int])(nil)

// NewFastRemoval 建立空的 FastRemoval 抽樣器
func NewFastRemoval[K comparable](opts ...Option) *FastRemoval[K] {
	return &FastRemoval[K]{newAliasEngine[K](KindFastRemoval.String(), true, opts)}
}

// DeadWeight 回傳目前被邏輯刪除、尚未重建清除的權重
func (f *FastRemoval[K]) DeadWeight() int64 { return f.deadWeight }
