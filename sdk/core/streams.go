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

package core

import (
	"sync"
)

const mask63 = uint64(1<<63) - 1

// Streams 派發彼此獨立的亂數串流。
//
// 每個 goroutine / worker 應呼叫 Next (或以固定 id 呼叫 For) 取得自己的 *Core，
// 之後的取樣完全不經過鎖；鎖只保護「取種子」這一步，
// 確保不同串流不會拿到相同的 seed 而產生相同序列。
type Streams struct {
	mu       sync.Mutex
	factory  PRNGFactory
	baseSeed int64
	seeds    *seedMaker
	named    map[string]*Core
}

// NewStreams 以 factory 與 baseSeed 建立串流派發器；factory 為 nil 時使用 PCG64。
func NewStreams(factory PRNGFactory, baseSeed int64) *Streams {
	if factory == nil {
		factory = Default()
	}
	return &Streams{
		factory:  factory,
		baseSeed: baseSeed,
		seeds:    newSeedMaker(baseSeed),
		named:    make(map[string]*Core),
	}
}

// BaseSeed 回傳初始種子，用於重播。
func (s *Streams) BaseSeed() int64 {
	return s.baseSeed
}

// Next 取得一條新的獨立串流。
func (s *Streams) Next() *Core {
	s.mu.Lock()
	seed := s.seeds.next()
	s.mu.Unlock()
	return New(s.factory.New(seed))
}

// For 以邏輯身分 (worker id / task id) 取得串流；同一 id 永遠拿到同一個 *Core。
//
// 回傳的 *Core 仍然不是併發安全的，同一 id 只能由一個 goroutine 使用。
func (s *Streams) For(id string) *Core {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.named[id]; ok {
		return c
	}
	c := New(s.factory.New(s.seeds.next()))
	s.named[id] = c
	return c
}

// Release 釋放某個 id 的串流，之後同 id 會拿到新的串流。
func (s *Streams) Release(id string) {
	s.mu.Lock()
	delete(s.named, id)
	s.mu.Unlock()
}

// seedMaker 以全週期 LCG (mod 2^63) 推進狀態，再以可逆 mix63 打散。
// 呼叫端負責加鎖。
type seedMaker struct {
	state uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	return &seedMaker{state: uint64(seed) & mask63}
}

func (s *seedMaker) next() int64 {
	s.state = (s.state*6364136223846793005 + 1442695040888963407) & mask63
	return int64(mix63(s.state)) // 一定非負
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
