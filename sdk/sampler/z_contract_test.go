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
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
)

// 以下測試對所有引擎執行同一組行為檢查

func newInts(t *testing.T, kind Kind, seed int64, opts ...Option) Randomizer[int] {
	t.Helper()
	r, err := New[int](kind, append([]Option{WithCore(core.NewWithSeed(seed))}, opts...)...)
	require.NoError(t, err)
	return r
}

func forEachKind(t *testing.T, fn func(t *testing.T, kind Kind)) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) { fn(t, k) })
	}
}

func TestEmptyRandomizer(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 1)
		require.Zero(t, r.Count())
		require.Zero(t, r.TotalWeight())
		_, err := r.NextWithReplacement()
		require.ErrorIs(t, err, errs.ErrEmptyCollection)
		_, err = r.NextWithRemoval()
		require.ErrorIs(t, err, errs.ErrEmptyCollection)
		require.False(t, r.Remove(1))
		require.False(t, r.Contains(1))
		require.Empty(t, Collect(r))
	})
}

func TestAddAndLookupErrors(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 1)
		require.NoError(t, r.Add(1, 3))
		require.NoError(t, r.AddOne(2))

		require.ErrorIs(t, r.Add(1, 5), errs.ErrDuplicateKey)
		require.ErrorIs(t, r.Add(3, -1), errs.ErrInvalidWeight)
		require.ErrorIs(t, r.SetWeight(1, -2), errs.ErrInvalidWeight)
		require.Equal(t, 2, r.Count())
		require.EqualValues(t, 4, r.TotalWeight())

		w, err := r.GetWeight(1)
		require.NoError(t, err)
		require.Equal(t, 3, w)

		_, err = r.GetWeight(9)
		require.ErrorIs(t, err, errs.ErrKeyNotFound)

		// 錯誤訊息帶有 key 方便追查，但比對仍以錯誤碼為準
		require.Contains(t, err.Error(), "key=9")
		var e *errs.E
		require.True(t, errors.As(err, &e))
		require.Equal(t, errs.CodeKeyNotFound, e.Code)
	})
}

func TestWeightOverflow(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 1)
		require.NoError(t, r.Add(1, math.MaxInt))
		require.ErrorIs(t, r.Add(2, 1), errs.ErrWeightOverflow)
		require.False(t, r.Contains(2))
		require.EqualValues(t, int64(math.MaxInt), r.TotalWeight())
	})
}

func TestNullKeys(t *testing.T) {
	byValue := func(a, b *int) int { return *a - *b }
	engines := map[string]Randomizer[*int]{
		"static":           NewStatic[*int](),
		"dynamic":          NewDynamicFunc(byValue),
		"fast_replacement": NewFastReplacement[*int](),
		"fast_removal":     NewFastRemoval[*int](),
	}
	for name, r := range engines {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, r.Add(nil, 1), errs.ErrNullKey)
			require.ErrorIs(t, r.AddOne(nil), errs.ErrNullKey)
			require.ErrorIs(t, r.SetWeight(nil, 1), errs.ErrNullKey)
			_, err := r.GetWeight(nil)
			require.ErrorIs(t, err, errs.ErrNullKey)
			require.False(t, r.Contains(nil))
			require.False(t, r.Remove(nil))

			v := 7
			require.NoError(t, r.Add(&v, 1))
			got, err := r.NextWithReplacement()
			require.NoError(t, err)
			require.Same(t, &v, got)
		})
	}

	anyKeys := NewStatic[any]()
	require.ErrorIs(t, anyKeys.Add(nil, 1), errs.ErrNullKey)
	require.ErrorIs(t, anyKeys.Add((*int)(nil), 1), errs.ErrNullKey)
	require.NoError(t, anyKeys.Add(0, 1))
}

func TestZeroWeightItems(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 2)
		require.NoError(t, r.Add(1, 0))
		require.Equal(t, 1, r.Count())
		require.True(t, r.Contains(1))
		_, err := r.NextWithReplacement()
		require.ErrorIs(t, err, errs.ErrEmptyCollection)

		require.NoError(t, r.Add(2, 5))
		for i := 0; i < 100; i++ {
			k, err := r.NextWithReplacement()
			require.NoError(t, err)
			require.Equal(t, 2, k)
		}
	})
}

func TestNextWithRemovalSkipsZeroWeight(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 3)
		require.NoError(t, r.Add(1, 1))
		require.NoError(t, r.Add(2, 0))

		k, err := r.NextWithRemoval()
		require.NoError(t, err)
		require.Equal(t, 1, k)
		require.Equal(t, 1, r.Count())
		require.Zero(t, r.TotalWeight())
		require.True(t, r.Contains(2))

		_, err = r.NextWithRemoval()
		require.ErrorIs(t, err, errs.ErrEmptyCollection)
	})
}

func TestSetWeightSemantics(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 4)

		// 不存在 → 加入
		require.NoError(t, r.SetWeight(1, 4))
		require.True(t, r.Contains(1))
		require.EqualValues(t, 4, r.TotalWeight())

		// 存在 → 更新
		require.NoError(t, r.SetWeight(1, 10))
		require.EqualValues(t, 10, r.TotalWeight())
		w, _ := r.GetWeight(1)
		require.Equal(t, 10, w)

		// 0 → 移除；不存在的 key 設 0 不是錯誤
		require.NoError(t, r.SetWeight(1, 0))
		require.False(t, r.Contains(1))
		require.Zero(t, r.Count())
		require.NoError(t, r.SetWeight(42, 0))
		require.Zero(t, r.Count())
	})
}

func TestRemovalDrainsEveryKey(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 5)
		for i := 1; i <= 10; i++ {
			require.NoError(t, r.Add(i, i))
		}
		var drawn []int
		for i := 0; i < 10; i++ {
			k, err := r.NextWithRemoval()
			require.NoError(t, err)
			drawn = append(drawn, k)
			require.Equal(t, 9-i, r.Count())
		}
		slices.Sort(drawn)
		require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, drawn)
		require.Zero(t, r.TotalWeight())
		_, err := r.NextWithRemoval()
		require.ErrorIs(t, err, errs.ErrEmptyCollection)
	})
}

func TestEqualWeightsSplitEvenly(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 6)
		require.NoError(t, r.Add(1, 1))
		require.NoError(t, r.Add(2, 1))
		ones := 0
		for i := 0; i < 10000; i++ {
			k, err := r.NextWithReplacement()
			require.NoError(t, err)
			if k == 1 {
				ones++
			}
		}
		require.GreaterOrEqual(t, ones, 4700)
		require.LessOrEqual(t, ones, 5300)
	})
}

func TestHeavyWeightDominates(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 7)
		require.NoError(t, r.Add(1, 1))
		require.NoError(t, r.Add(2, 999999))
		heavy := 0
		for i := 0; i < 1000; i++ {
			k, _ := r.NextWithReplacement()
			if k == 2 {
				heavy++
			}
		}
		require.GreaterOrEqual(t, heavy, 990)
	})
}

func TestFirstRemovalFollowsWeights(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		c := core.NewWithSeed(8)
		heavyFirst := 0
		for i := 0; i < 4000; i++ {
			r, err := New[int](kind, WithCore(c))
			require.NoError(t, err)
			require.NoError(t, r.Add(1, 1))
			require.NoError(t, r.Add(2, 3))
			first, err := r.NextWithRemoval()
			require.NoError(t, err)
			if first == 2 {
				heavyFirst++
			}
			second, err := r.NextWithRemoval()
			require.NoError(t, err)
			require.Equal(t, 3-first, second)
		}
		require.InDelta(t, 0.75, float64(heavyFirst)/4000, 0.03)
	})
}

// 新加入或改過權重的項目必須立即反映在下一次抽樣
func TestMutationsVisibleToNextDraw(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 9)
		for i := 0; i < 50; i++ {
			require.NoError(t, r.Add(i, 1))
			k, err := r.NextWithReplacement()
			require.NoError(t, err)
			require.True(t, r.Contains(k))
		}
		require.NoError(t, r.Add(1000, 1_000_000_000))
		k, err := r.NextWithReplacement()
		require.NoError(t, err)
		require.Equal(t, 1000, k)

		require.NoError(t, r.SetWeight(1000, 1))
		require.NoError(t, r.SetWeight(7, 1_000_000_000))
		k, err = r.NextWithReplacement()
		require.NoError(t, err)
		require.Equal(t, 7, k)

		require.True(t, r.Remove(7))
		for i := 0; i < 200; i++ {
			k, err = r.NextWithReplacement()
			require.NoError(t, err)
			require.NotEqual(t, 7, k)
		}
	})
}

// 權重總和超過 2^32 乃至接近 int64 上限時，能加入就必須能抽
func TestLargeTotalsDraw(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 11)
		require.NoError(t, r.Add(1, 1<<62))
		require.NoError(t, r.Add(2, 1))
		k, err := r.NextWithReplacement()
		require.NoError(t, err)
		require.Equal(t, 1, k)

		require.NoError(t, r.SetWeight(2, math.MaxInt-(1<<62)))
		require.EqualValues(t, int64(math.MaxInt), r.TotalWeight())
		_, err = r.NextWithReplacement()
		require.NoError(t, err)

		cases := []struct {
			name   string
			heavy  int
			light  int
			expect float64
		}{
			{"above 2^32", 3 << 32, 1 << 32, 0.75},
			{"near 2^62", 3 << 60, 1<<60 - 1, 0.75},
			{"odd total", math.MaxInt/4*3 + 1, math.MaxInt / 4, 0.75},
		}
		for _, tc := range cases {
			r.Clear()
			require.NoError(t, r.Add(1, tc.heavy))
			require.NoError(t, r.Add(2, tc.light))
			require.NoError(t, r.Add(3, 1))

			heavy := 0
			const draws = 8000
			for i := 0; i < draws; i++ {
				k, err := r.NextWithReplacement()
				require.NoError(t, err, tc.name)
				if k == 1 {
					heavy++
				}
			}
			require.InDelta(t, tc.expect, float64(heavy)/draws, 0.03, tc.name)

			drained := 0
			for r.Count() > 0 {
				_, err := r.NextWithRemoval()
				require.NoError(t, err, tc.name)
				drained++
			}
			require.Equal(t, 3, drained, tc.name)
		}
	})
}

func TestEnumerationAndClear(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 10)
		want := map[int]int{}
		for i := 0; i < 40; i++ {
			require.NoError(t, r.Add(i*3, i%4))
			want[i*3] = i % 4
		}
		for i := 0; i < 40; i += 5 {
			require.True(t, r.Remove(i*3))
			delete(want, i*3)
		}
		// 讓 FastRemoval 產生邏輯刪除的 slot
		for i := 0; i < 5; i++ {
			k, err := r.NextWithRemoval()
			require.NoError(t, err)
			delete(want, k)
		}

		got := maps.Collect(r.All())
		require.Equal(t, want, got)
		keys := Collect(r)
		require.Len(t, keys, len(want))
		require.ElementsMatch(t, slices.Collect(maps.Keys(want)), keys)

		// 提前中止走訪
		n := 0
		for range r.Keys() {
			n++
			break
		}
		require.Equal(t, 1, n)

		r.Clear()
		require.Zero(t, r.Count())
		require.Zero(t, r.TotalWeight())
		require.Empty(t, Collect(r))
		require.NoError(t, r.Add(3, 1))
		k, err := r.NextWithReplacement()
		require.NoError(t, err)
		require.Equal(t, 3, k)
	})
}

func TestChiSquareGoodnessOfFit(t *testing.T) {
	weights := []int{1, 2, 3, 4, 5, 6, 7, 8}
	const draws = 80000
	total := 0
	for _, w := range weights {
		total += w
	}
	crit := distuv.ChiSquared{K: float64(len(weights) - 1)}.Quantile(0.999)

	forEachKind(t, func(t *testing.T, kind Kind) {
		r := newInts(t, kind, 11)
		for i, w := range weights {
			require.NoError(t, r.Add(i, w))
		}
		observed := make([]float64, len(weights))
		for i := 0; i < draws; i++ {
			k, err := r.NextWithReplacement()
			require.NoError(t, err)
			observed[k]++
		}
		stat := 0.0
		for i, w := range weights {
			expected := float64(draws) * float64(w) / float64(total)
			d := observed[i] - expected
			stat += d * d / expected
		}
		require.Less(t, stat, crit, fmt.Sprintf("chi-square %.2f exceeds %.2f", stat, crit))
	})
}
