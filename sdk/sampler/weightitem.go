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

// weightItem 是 alias 建表時 light 池的基本單元。
// 它封裝了原始索引 (idx) 與放大後的權重 (scaled)。
type weightItem struct {
	idx    int   // 原始數據的 Index
	scaled int64 // 乘上 n/gcd 之後的權重，light 項小於箱高，int64 放得下
}

// lightHeap 實作了 heap.Interface 的 Min-Heap。
//
// 建表時每次都取出最輕的 light 項，讓它借用 heavy 的權重補滿箱子。
// 相同權重時以索引排序，讓相同輸入得到相同的表。
type lightHeap []weightItem

func (h lightHeap) Len() int { return len(h) }

func (h lightHeap) Less(i, j int) bool {
	if h[i].scaled != h[j].scaled {
		return h[i].scaled < h[j].scaled
	}
	return h[i].idx < h[j].idx
}

func (h lightHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *lightHeap) Push(x any) {
	*h = append(*h, x.(weightItem))
}

func (h *lightHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
