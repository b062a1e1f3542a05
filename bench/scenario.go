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
	"github.com/zintix-labs/wrand/sdk/sampler"
)

// Scenario 是一組固定的操作序列，對 n 個整數 key 執行。
//
// Run 回傳實際執行的操作數 (Add 與抽樣各算一次)。
type Scenario struct {
	Name string
	Run  func(r sampler.Randomizer[int], n int) (ops int, err error)
}

// Scenarios 回傳標準測速情境：
//
//	add+replace/1000   Add()xN + NextWithReplacement()xN/1000
//	add+replace        Add()xN + NextWithReplacement()xN
//	add+replace x10    Add()xN + NextWithReplacement()x10N
//	interleaved        ( Add() + NextWithReplacement() )xN
//	add+removal        Add()xN + NextWithRemoval()xN
//
// 第 i 個 key 的權重為 i，與抽樣器種類無關。
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "add+replace/1000", Run: func(r sampler.Randomizer[int], n int) (int, error) {
			return addThenDraw(r, n, max(1, n/1000), false)
		}},
		{Name: "add+replace", Run: func(r sampler.Randomizer[int], n int) (int, error) {
			return addThenDraw(r, n, n, false)
		}},
		{Name: "add+replace x10", Run: func(r sampler.Randomizer[int], n int) (int, error) {
			return addThenDraw(r, n, 10*n, false)
		}},
		{Name: "interleaved", Run: interleaved},
		{Name: "add+removal", Run: func(r sampler.Randomizer[int], n int) (int, error) {
			return addThenDraw(r, n, n, true)
		}},
	}
}

func fill(r sampler.Randomizer[int], n int) error {
	for i := 1; i <= n; i++ {
		if err := r.Add(i, i); err != nil {
			return err
		}
	}
	return nil
}

func addThenDraw(r sampler.Randomizer[int], n, draws int, remove bool) (int, error) {
	r.Clear()
	if err := fill(r, n); err != nil {
		return 0, err
	}
	next := r.NextWithReplacement
	if remove {
		next = r.NextWithRemoval
	}
	for i := 0; i < draws; i++ {
		if _, err := next(); err != nil {
			return n + i, err
		}
	}
	return n + draws, nil
}

func interleaved(r sampler.Randomizer[int], n int) (int, error) {
	r.Clear()
	for i := 1; i <= n; i++ {
		if err := r.Add(i, i); err != nil {
			return 2 * (i - 1), err
		}
		if _, err := r.NextWithReplacement(); err != nil {
			return 2*i - 1, err
		}
	}
	return 2 * n, nil
}
