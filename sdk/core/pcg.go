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
	"encoding/binary"
	"errors"
	"math/bits"
	r2 "math/rand/v2"
)

const (
	golden     = 0x9e3779b97f4a7c15
	pcgMul     = 6364136223846793005
	pcgStream  = 1
	pcg32Bytes = 16
)

var errPCG32State = errors.New("pcg32: invalid snapshot length")

// ranged 以 64-bit 輸出函式補齊 RAND 的 Float64 / UintN / IntN。
type ranged struct {
	next func() uint64
}

func (g ranged) Float64() float64 {
	return float64(g.next()>>11) / (1 << 53)
}

func (g ranged) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(uint64n(g.next, uint64(max)))
}

func (g ranged) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return int(uint64n(g.next, uint64(max)))
}

// splitmix64 用於把單一 seed 展開成多個互不相關的 64-bit 狀態。
func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// PCG64 是預設來源，底層為 math/rand/v2 的 128-bit PCG。
type PCG64 struct {
	ranged
	src *r2.PCG
}

func NewPCG64WithSeed(seed int64) *PCG64 {
	x := uint64(seed) ^ golden
	src := r2.NewPCG(splitmix64(x), splitmix64(x^0xda942042e4dd58b5))
	return &PCG64{ranged: ranged{next: src.Uint64}, src: src}
}

func (p *PCG64) Uint64() uint64 { return p.src.Uint64() }

func (p *PCG64) Snapshot() ([]byte, error) { return p.src.MarshalBinary() }

func (p *PCG64) Restore(b []byte) error { return p.src.UnmarshalBinary(b) }

// PCG32 為 64-bit 狀態、32-bit 輸出的 XSH RR 變體。
//
// Float64 只有 32-bit 精度；Uint64 由連續兩次輸出拼接。
type PCG32 struct {
	ranged
	state, inc uint64
}

func NewPCG32WithSeed(seed int64) *PCG32 {
	p := &PCG32{inc: pcgStream<<1 | 1}
	p.ranged = ranged{next: p.Uint64}
	p.step()
	p.state += uint64(seed)
	p.step()
	return p
}

func (p *PCG32) step() uint32 {
	old := p.state
	p.state = old*pcgMul + p.inc
	x := uint32(((old >> 18) ^ old) >> 27)
	return bits.RotateLeft32(x, -int(old>>59))
}

func (p *PCG32) Uint32() uint32 { return p.step() }

func (p *PCG32) Uint64() uint64 {
	hi := uint64(p.step())
	return hi<<32 | uint64(p.step())
}

func (p *PCG32) Float64() float64 {
	return float64(p.step()) / (1 << 32)
}

// IntN 在 32-bit 範圍內只消耗一次輸出。
func (p *PCG32) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	if uint64(max) > 1<<32-1 {
		return p.ranged.IntN(max)
	}
	n := uint32(max)
	floor := -n % n
	for {
		if v := p.step(); v >= floor {
			return int(v % n)
		}
	}
}

// Snapshot 以 big-endian 依序寫入 state 與 inc。
func (p *PCG32) Snapshot() ([]byte, error) {
	b := binary.BigEndian.AppendUint64(make([]byte, 0, pcg32Bytes), p.state)
	return binary.BigEndian.AppendUint64(b, p.inc), nil
}

func (p *PCG32) Restore(b []byte) error {
	if len(b) != pcg32Bytes {
		return errPCG32State
	}
	p.state, p.inc = binary.BigEndian.Uint64(b), binary.BigEndian.Uint64(b[8:])
	return nil
}
