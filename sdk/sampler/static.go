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
	"sort"
)

// Static 是最簡單的基準引擎：項目陣列 + 累積權重陣列。
//
//   - Add：O(1)，標記累積陣列過期。
//   - Remove / SetWeight：以 swap-remove 移除，標記過期。
//   - 抽樣：若過期先以 O(n) 重建累積陣列，之後 O(log n) 二分搜尋。
//
// 適合「先建好、再大量抽放回」的場景；Add 與抽樣交錯時每次都要重建。
type Static[K comparable] struct {
	cfg   options
	check validator[K]

	keys       []K
	weights    []int
	index      map[K]int
	cumulative []int64
	total      int64
	stale      bool
	rebuilds   int
}

var _ Randomizer[int] = (*Static[int])(nil)

// NewStatic 建立空的 Static 抽樣器
func NewStatic[K comparable](opts ...Option) *Static[K] {
	return &Static[K]{
		cfg:   buildOptions(opts),
		check: newValidator[K](),
		index: make(map[K]int),
		stale: true,
	}
}

func (s *Static[K]) Count() int { return len(s.keys) }

func (s *Static[K]) TotalWeight() int64 { return s.total }

func (s *Static[K]) Contains(key K) bool {
	_, ok := s.index[key]
	return ok
}

func (s *Static[K]) Clear() {
	clear(s.index)
	s.keys = s.keys[:0]
	s.weights = s.weights[:0]
	s.cumulative = s.cumulative[:0]
	s.total = 0
	s.stale = true
}

func (s *Static[K]) AddOne(key K) error {
	return s.Add(key, 1)
}

func (s *Static[K]) Add(key K, weight int) error {
	if err := s.check.key(key); err != nil {
		return err
	}
	if err := s.check.weight(key, weight); err != nil {
		return err
	}
	if _, ok := s.index[key]; ok {
		return duplicate(key)
	}
	total, err := addTotal(s.total, int64(weight))
	if err != nil {
		return err
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.weights = append(s.weights, weight)
	s.total = total
	s.stale = true
	return nil
}

func (s *Static[K]) Remove(key K) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.removeAt(i)
	return true
}

func (s *Static[K]) GetWeight(key K) (int, error) {
	if err := s.check.key(key); err != nil {
		return 0, err
	}
	i, ok := s.index[key]
	if !ok {
		return 0, notFound(key)
	}
	return s.weights[i], nil
}

func (s *Static[K]) SetWeight(key K, weight int) error {
	if err := s.check.key(key); err != nil {
		return err
	}
	if err := s.check.weight(key, weight); err != nil {
		return err
	}
	i, ok := s.index[key]
	if weight == 0 {
		if ok {
			s.removeAt(i)
		}
		return nil
	}
	if !ok {
		return s.Add(key, weight)
	}
	total, err := addTotal(s.total, int64(weight-s.weights[i]))
	if err != nil {
		return err
	}
	s.weights[i] = weight
	s.total = total
	s.stale = true
	return nil
}

func (s *Static[K]) NextWithReplacement() (K, error) {
	i, err := s.pick()
	if err != nil {
		var zero K
		return zero, err
	}
	return s.keys[i], nil
}

func (s *Static[K]) NextWithRemoval() (K, error) {
	i, err := s.pick()
	if err != nil {
		var zero K
		return zero, err
	}
	key := s.keys[i]
	s.removeAt(i)
	return key, nil
}

func (s *Static[K]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, k := range s.keys {
			if !yield(k) {
				return
			}
		}
	}
}

func (s *Static[K]) All() iter.Seq2[K, int] {
	return func(yield func(K, int) bool) {
		for i, k := range s.keys {
			if !yield(k, s.weights[i]) {
				return
			}
		}
	}
}

// Rebuilds 回傳累積陣列重建次數
func (s *Static[K]) Rebuilds() int { return s.rebuilds }

// pick 回傳抽中的陣列位置
func (s *Static[K]) pick() (int, error) {
	if len(s.keys) == 0 || s.total == 0 {
		return -1, empty(len(s.keys))
	}
	if s.stale {
		s.rebuild()
	}
	r := s.cfg.core.Int64N(s.total)
	// 第一個累積值 > r 的位置；權重 0 的項目累積值與前一項相同，永遠不會被選中
	return sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > r
	}), nil
}

func (s *Static[K]) rebuild() {
	if cap(s.cumulative) >= len(s.weights) {
		s.cumulative = s.cumulative[:len(s.weights)]
	} else {
		s.cumulative = make([]int64, len(s.weights))
	}
	acc := int64(0)
	for i, w := range s.weights {
		acc += int64(w)
		s.cumulative[i] = acc
	}
	s.stale = false
	s.rebuilds++
	s.cfg.log.Debug("static cumulative array rebuilt",
		slog.Int("count", len(s.keys)),
		slog.Int64("total", acc),
		slog.Int("rebuilds", s.rebuilds),
	)
}

// removeAt 以最後一項填補位置 i
func (s *Static[K]) removeAt(i int) {
	last := len(s.keys) - 1
	s.total -= int64(s.weights[i])
	delete(s.index, s.keys[i])
	if i != last {
		s.keys[i] = s.keys[last]
		s.weights[i] = s.weights[last]
		s.index[s.keys[i]] = i
	}
	var zero K
	s.keys[last] = zero
	s.keys = s.keys[:last]
	s.weights = s.weights[:last]
	s.stale = true
}
