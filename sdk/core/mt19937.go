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
	"gonum.org/v1/gonum/mathext/prng"
)

// MT19937 以 gonum 的 Mersenne Twister 為底層，bounded 取樣由 ranged 補上。
type MT19937 struct {
	ranged
	src *prng.MT19937
}

func NewMT19937WithSeed(seed int64) *MT19937 {
	src := prng.NewMT19937()
	src.Seed(splitmix64(uint64(seed)))
	return &MT19937{ranged: ranged{next: src.Uint64}, src: src}
}

func (m *MT19937) Uint64() uint64 { return m.src.Uint64() }

func (m *MT19937) Snapshot() ([]byte, error) { return m.src.MarshalBinary() }

func (m *MT19937) Restore(data []byte) error { return m.src.UnmarshalBinary(data) }
