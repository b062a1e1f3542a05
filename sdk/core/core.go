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

// Package core 提供抽樣器使用的均勻亂數來源。
//
// 抽樣器本身從不建立亂數：一律由呼叫端注入 *Core（或由 Streams 派發），
// 讓每個執行緒 / worker 持有獨立的亂數串流。
package core

import (
	"crypto/rand"
	"math"
	"math/big"
	"math/bits"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 為什麼要求同時提供 4 個方法（Uint64 / Float64 / UintN / IntN），而不是只要求 Uint64？
//   - 有些 PRNG 的原生輸出寬度是 32-bit，直接產生 bounded 整數更快。
//   - bounded 生成交由 PRNG 自己實作，能讓每個 PRNG 用最合適的策略。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作同一版本下，New(seed) 必須是決定性的。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory (PCG64)
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32Factory 建立 32-bit 輸出的 PCG32。
type PCG32Factory struct{}

func (PCG32Factory) New(seed int64) PRNG {
	return NewPCG32WithSeed(seed)
}

// MT19937Factory 建立 gonum 的 Mersenne Twister 來源。
type MT19937Factory struct{}

func (MT19937Factory) New(seed int64) PRNG {
	return NewMT19937WithSeed(seed)
}

// Factory 依名稱取得 PRNGFactory：pcg64 (預設) / pcg32 / mt19937。
func Factory(name string) (PRNGFactory, bool) {
	switch name {
	case "", "pcg64":
		return Default(), true
	case "pcg32":
		return PCG32Factory{}, true
	case "mt19937":
		return MT19937Factory{}, true
	default:
		return nil, false
	}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
//
// Core 不是併發安全的：每個 goroutine 應持有自己的 Core（見 Streams）。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewWithSeed 以預設 PRNG 與指定 seed 建立 Core。
func NewWithSeed(seed int64) *Core {
	return New(Default().New(seed))
}

// NewDefault 以加密亂數產生 seed 並建立預設 Core。
func NewDefault() *Core {
	return NewWithSeed(CryptoSeed())
}

// CryptoSeed 以 crypto/rand 產生非負 int64 seed。
func CryptoSeed() int64 {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		// crypto/rand 失敗代表系統熵來源不可用，無法安全繼續
		panic("core: crypto seed unavailable: " + err.Error())
	}
	return seed.Int64()
}

// Next 回傳非負 int 亂數。
func (c *Core) Next() int {
	return int(c.Uint64() >> 1 & math.MaxInt)
}

// Int64N 回傳 [0,n) 的 int64 亂數，若 n <= 0 回傳 -1。
//
// 權重總和可能超過 32-bit，抽樣器一律以此方法抽取 [0, TotalWeight)。
func (c *Core) Int64N(n int64) int64 {
	if n <= 0 {
		return -1
	}
	return int64(uint64n(c.Uint64, uint64(n)))
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	idx := c.IntN(len(src))
	return src[idx]
}

// ShuffleInts 使用 Fisher-Yates 對 []int 進行就地隨機重排。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}

// uint64n 回傳 [0,n) 的無偏亂數（基於乘法高位與拒絕採樣）。
func uint64n(next func() uint64, n uint64) uint64 {
	if n&(n-1) == 0 { // n is power of two, can mask
		return next() & (n - 1)
	}
	hi, lo := bits.Mul64(next(), n)
	if lo < n {
		thresh := -n % n
		for lo < thresh {
			hi, lo = bits.Mul64(next(), n)
		}
	}
	return hi
}
