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

// Package sampler 提供可變動的加權抽樣器。
//
// 本檔案 (aliastable.go) 實作整數版的 Alias Method 建表。
//
// 演算法原理：
//   - 準備 n 個等高的箱子 (box)，每個箱子只放「自己 (primary)」和「別名 (alias)」兩個選項。
//   - 抽樣時先均勻選箱子，再在箱高內均勻取一個偏移，落在 primary 區段就回傳 primary，否則回傳 alias。
//
// 整數化 (避免浮點誤差)：
//   - 平均權重 total/n 不一定是整數。令 g = gcd(n, total)，
//     把所有權重乘上 n/g，箱高 heightPerBox = total/g 就恰好是「放大後的平均權重」，且為整數。
//   - 放大後的權重總和 = n * heightPerBox，建表過程完全不需要小數。
//   - 放大後的權重最大約為 total * n，可能超出 int64，因此以 128 位元 (u128) 保存；
//     箱高與 Split 都小於等於 total，仍是 int64。
//
// 特性：
//   - 建表時間：O(n log n) (light 池以最小堆維護，每次取最輕者)。
//   - 抽樣時間：O(1)，固定作 2 次亂數。
//   - 空間複雜度：O(n)，與權重總和無關。
package sampler

import (
	"container/heap"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
)

// Box 是 Alias Table 中的一個箱子。
//
// 偏移量 < Split 時抽中 Primary，否則抽中 Alias。
// Alias == -1 表示整個箱子都屬於 Primary (此時 Split == 箱高)。
type Box struct {
	Primary int
	Alias   int
	Split   int64
}

// AliasTable 為整數 Alias Method 的結果。
//
// 第 i 個箱子的 Primary 一定是 i，因此每個索引恰好被指派到一個箱子。
type AliasTable struct {
	Boxes        []Box
	HeightPerBox int64
	Total        int64
}

// Size 回傳箱子數量
func (at *AliasTable) Size() int {
	return len(at.Boxes)
}

// BuildAliasTable 根據非負整數權重建立 AliasTable。
//
// 錯誤：
//   - 任一權重 < 0：errs.ErrInvalidWeight
//   - 權重總和為 0 (含空輸入)：errs.ErrEmptyCollection
//   - 權重總和超出 int64：errs.ErrWeightOverflow
//
// 演算法流程：
// 1) total = sum(weights)，g = gcd(n, total)，mult = n/g，heightPerBox = total/g。
// 2) scaled[i] = weights[i] * mult；scaled < heightPerBox 放入 light (最小堆)，否則放入 heavy。
// 3) 取出最輕的 light 項 l，以 heavy 頂端 h 補滿 l 的箱子：Split = scaled[l]，Alias = h。
// 4) h 扣掉借出的量；若已低於箱高就移入 light，否則留在 heavy。
// 5) light 清空後，剩下的 heavy 放大權重必定恰好等於箱高，各自佔滿自己的箱子。
func BuildAliasTable(weights []int) (*AliasTable, error) {
	n := len(weights)
	total := int64(0)
	for i, w := range weights {
		if w < 0 {
			return nil, errs.ErrInvalidWeight.Withf("index=%d weight=%d", i, w)
		}
		t, err := addTotal(total, int64(w))
		if err != nil {
			return nil, err
		}
		total = t
	}
	if total == 0 {
		return nil, empty(n)
	}

	g := gcd(int64(n), total)
	mult := int64(n) / g
	height := total / g

	scaled := make([]u128, n)
	light := make(lightHeap, 0, n)
	heavy := make([]int, 0, n)
	for i, w := range weights {
		scaled[i] = mul128(int64(w), mult)
		if scaled[i].less(height) {
			light = append(light, weightItem{idx: i, scaled: int64(scaled[i].lo)})
		} else {
			heavy = append(heavy, i)
		}
	}
	heap.Init(&light)

	boxes := make([]Box, n)
	for light.Len() > 0 {
		l := heap.Pop(&light).(weightItem)
		if len(heavy) == 0 {
			// sum(scaled) == n*height，整數運算下不可能發生
			return nil, errs.Fatalf("alias table: no heavy item left for index %d", l.idx)
		}
		h := heavy[len(heavy)-1]
		boxes[l.idx] = Box{Primary: l.idx, Alias: h, Split: l.scaled}

		scaled[h] = scaled[h].sub(height - l.scaled)
		if scaled[h].less(height) {
			heavy = heavy[:len(heavy)-1]
			heap.Push(&light, weightItem{idx: h, scaled: int64(scaled[h].lo)})
		}
	}
	for _, h := range heavy {
		if scaled[h] != (u128{lo: uint64(height)}) {
			return nil, errs.Fatalf("alias table: index %d left with %s, want %d", h, scaled[h], height)
		}
		boxes[h] = Box{Primary: h, Alias: -1, Split: height}
	}

	return &AliasTable{
		Boxes:        boxes,
		HeightPerBox: height,
		Total:        total,
	}, nil
}

// Pick 從 AliasTable 中抽取一個索引，若表為空則回傳 -1。
//
//  1. c.IntN(Size) 均勻選擇箱子。
//  2. c.Int64N(HeightPerBox) 在箱高內均勻取偏移。
//  3. 偏移 < Split 回傳 Primary，否則回傳 Alias。
func (at *AliasTable) Pick(c *core.Core) int {
	if len(at.Boxes) == 0 {
		return -1
	}
	b := at.Boxes[c.IntN(len(at.Boxes))]
	if c.Int64N(at.HeightPerBox) < b.Split {
		return b.Primary
	}
	return b.Alias
}

// gcd 輾轉相除法，a、b 皆為非負
func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// u128 為放大後的權重，兩個非負 int64 的乘積一定放得下
type u128 struct {
	hi, lo uint64
}

func mul128(a, b int64) u128 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return u128{hi: hi, lo: lo}
}

// less 回傳 x < v (v >= 0)
func (x u128) less(v int64) bool {
	return x.hi == 0 && x.lo < uint64(v)
}

// sub 回傳 x - v，呼叫端保證 x >= v >= 0
func (x u128) sub(v int64) u128 {
	lo, borrow := bits.Sub64(x.lo, uint64(v), 0)
	return u128{hi: x.hi - borrow, lo: lo}
}

func (x u128) String() string {
	if x.hi == 0 {
		return strconv.FormatUint(x.lo, 10)
	}
	return fmt.Sprintf("0x%x%016x", x.hi, x.lo)
}
