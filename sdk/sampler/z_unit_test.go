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
	"bytes"
	"log/slog"
	"math"
	"math/bits"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// checkDistribution 驗證抽樣結果的分佈是否符合預期權重
func checkDistribution(t *testing.T, name string, weights []int, samples []int, tolerance float64) {
	t.Helper()
	totalW := 0
	for _, w := range weights {
		totalW += w
	}
	if totalW == 0 {
		return
	}

	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}

	totalSamples := len(samples)
	for i, w := range weights {
		if w == 0 {
			require.Zero(t, counts[i], "[%s] index %d has weight 0", name, i)
			continue
		}
		expectedProb := float64(w) / float64(totalW)
		actualProb := float64(counts[i]) / float64(totalSamples)
		require.InDelta(t, expectedProb, actualProb, tolerance, "[%s] index %d", name, i)
	}
}

// checkBoxes 驗證每個 index 在所有箱子中分到的量恰好等於放大後的權重。
// 放大後的權重可能超出 int64，累加一律以 u128 進行。
func checkBoxes(t *testing.T, weights []int, at *AliasTable) {
	t.Helper()
	n := len(weights)
	require.Equal(t, n, at.Size(), "box count")
	require.Zero(t, at.Total%at.HeightPerBox, "total %d is not a multiple of height %d", at.Total, at.HeightPerBox)

	mult := int64(n) / (at.Total / at.HeightPerBox)
	got := make([]u128, n)
	add := func(i int, v int64) {
		lo, carry := bits.Add64(got[i].lo, uint64(v), 0)
		got[i] = u128{hi: got[i].hi + carry, lo: lo}
	}
	for i, b := range at.Boxes {
		require.Equal(t, i, b.Primary, "box %d", i)
		require.True(t, b.Split >= 0 && b.Split <= at.HeightPerBox,
			"box %d: split %d out of [0,%d]", i, b.Split, at.HeightPerBox)
		require.Equal(t, b.Alias == -1, b.Split == at.HeightPerBox,
			"box %d: alias %d with split %d", i, b.Alias, b.Split)
		add(b.Primary, b.Split)
		if b.Alias >= 0 {
			add(b.Alias, at.HeightPerBox-b.Split)
		}
	}
	for i, w := range weights {
		want := mul128(int64(w), mult)
		require.Equal(t, want, got[i], "index %d: assigned %s, want %s", i, got[i], want)
	}
}

// -----------------------------------------------------------------------------
// BuildAliasTable
// -----------------------------------------------------------------------------

func TestBuildAliasTableErrors(t *testing.T) {
	cases := []struct {
		name    string
		weights []int
		want    error
	}{
		{"nil", nil, errs.ErrEmptyCollection},
		{"all zero", []int{0, 0, 0}, errs.ErrEmptyCollection},
		{"negative", []int{1, -1}, errs.ErrInvalidWeight},
		{"sum overflow", []int{math.MaxInt, 1}, errs.ErrWeightOverflow},
	}
	for _, tc := range cases {
		_, err := BuildAliasTable(tc.weights)
		require.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestBuildAliasTableIntegerHeight(t *testing.T) {
	// n=3, total=4, gcd=1 → 權重放大 3 倍，箱高 4
	at, err := BuildAliasTable([]int{1, 1, 2})
	require.NoError(t, err)
	require.EqualValues(t, 4, at.HeightPerBox)
	require.EqualValues(t, 4, at.Total)
	checkBoxes(t, []int{1, 1, 2}, at)

	// n=4, total=8, gcd=4 → 不需放大，箱高即平均權重 2
	at, err = BuildAliasTable([]int{2, 2, 2, 2})
	require.NoError(t, err)
	require.EqualValues(t, 2, at.HeightPerBox)
	for i, b := range at.Boxes {
		require.Equal(t, -1, b.Alias, "uniform weights must fill own box %d", i)
	}
}

func TestBuildAliasTableBoxes(t *testing.T) {
	tables := [][]int{
		{1},
		{0, 5},
		{1, 999999},
		{3, 0, 7, 1, 1, 9, 0, 2},
		{100, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{math.MaxInt32, 1, 2, 3},
		// 放大後的權重超出 int64
		{1 << 62, 1},
		{math.MaxInt / 2, math.MaxInt / 2, 1},
		{math.MaxInt - 6, 1, 2, 3},
		{1 << 40, 3, 1 << 33, 7, 1<<50 + 1},
	}
	for _, ws := range tables {
		at, err := BuildAliasTable(ws)
		require.NoError(t, err, "%v", ws)
		checkBoxes(t, ws, at)
	}
}

func TestAliasTablePickDistribution(t *testing.T) {
	weights := []int{10, 0, 30, 60}
	at, err := BuildAliasTable(weights)
	require.NoError(t, err)
	c := core.NewWithSeed(42)
	samples := make([]int, 100000)
	for i := range samples {
		samples[i] = at.Pick(c)
	}
	checkDistribution(t, "alias", weights, samples, 0.01)

	empty := &AliasTable{}
	require.Equal(t, -1, empty.Pick(c))
}

func TestLightHeapOrder(t *testing.T) {
	at, err := BuildAliasTable([]int{5, 1, 3, 1, 20})
	require.NoError(t, err)
	// 最輕的項目最先被處理，一定使用原始的 heavy 當 alias
	require.Equal(t, 4, at.Boxes[1].Alias, "lightest item must borrow from the heaviest")
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

func TestRebuildRatio(t *testing.T) {
	o := buildOptions(nil)
	require.True(t, o.reached(5, 10), "default ratio must be 1/2")
	require.False(t, o.reached(4, 10), "default ratio must be 1/2")

	o = buildOptions([]Option{WithRebuildRatio(0, 3), WithRebuildRatio(4, 3), WithRebuildRatio(-1, -1)})
	require.EqualValues(t, 1, o.ratioNum, "invalid ratios must be ignored")
	require.EqualValues(t, 2, o.ratioDen, "invalid ratios must be ignored")

	o = buildOptions([]Option{WithRebuildRatio(1, 4)})
	require.True(t, o.reached(25, 100))
	require.False(t, o.reached(24, 100))
	require.True(t, o.reached(math.MaxInt64/3, math.MaxInt64), "large operands must not overflow")
}

func TestLoggerReceivesRebuilds(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewFastRemoval[string](WithLogger(log), WithCore(core.NewWithSeed(1)))
	require.NoError(t, r.Add("a", 1))
	_, err := r.NextWithReplacement()
	require.NoError(t, err)
	require.Contains(t, buf.String(), "alias table rebuilt")
	require.Contains(t, buf.String(), "engine=fast_removal")
}

// -----------------------------------------------------------------------------
// Kind
// -----------------------------------------------------------------------------

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	k, err := ParseKind(" Fast-Removal ")
	require.NoError(t, err)
	require.Equal(t, KindFastRemoval, k)

	_, err = ParseKind("treap")
	require.Error(t, err)
	_, err = New[int](Kind(99))
	require.Error(t, err)
	require.Equal(t, "unknown", Kind(99).String())
}

// -----------------------------------------------------------------------------
// Static
// -----------------------------------------------------------------------------

func TestStaticRebuildsOnlyWhenStale(t *testing.T) {
	s := NewStatic[int](WithCore(core.NewWithSeed(5)))
	for i := 1; i <= 10; i++ {
		require.NoError(t, s.Add(i, i))
	}
	for i := 0; i < 100; i++ {
		_, err := s.NextWithReplacement()
		require.NoError(t, err)
	}
	require.Equal(t, 1, s.Rebuilds())

	require.NoError(t, s.SetWeight(3, 30))
	_, _ = s.NextWithReplacement()
	require.Equal(t, 2, s.Rebuilds())
}

func TestStaticSwapRemoveKeepsIndex(t *testing.T) {
	s := NewStatic[string]()
	for i, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Add(k, i+1))
	}
	require.True(t, s.Remove("a"))
	for _, k := range []string{"b", "c", "d"} {
		i, ok := s.index[k]
		require.True(t, ok && s.keys[i] == k, "index of %s broken after swap-remove", k)
	}
	w, err := s.GetWeight("d")
	require.NoError(t, err)
	require.Equal(t, 4, w)
}

// -----------------------------------------------------------------------------
// Dynamic
// -----------------------------------------------------------------------------

func TestDynamicSequentialInsertStaysBalanced(t *testing.T) {
	d := NewDynamic[int]()
	for i := 0; i < 1023; i++ {
		require.NoError(t, d.Add(i, i%5))
	}
	require.NoError(t, d.verify())
	// 1023 個節點的完美平衡樹高為 10，AVL 上界約 1.44 log2(n)
	h := d.Height()
	require.True(t, h >= 10 && h <= 14, "unexpected height %d", h)

	got := slices.Collect(d.Keys())
	require.Len(t, got, 1023)
	require.True(t, slices.IsSorted(got), "in-order keys broken")
}

func TestDynamicDeleteAllShapes(t *testing.T) {
	// 刪除葉節點、單子節點、雙子節點與根，每一步都檢查不變量
	d := NewDynamic[int]()
	for _, k := range []int{50, 25, 75, 10, 30, 60, 90, 5, 27, 35, 95} {
		require.NoError(t, d.Add(k, k))
	}
	for _, k := range []int{5, 10, 50, 75, 25, 95, 27, 30, 35, 60, 90} {
		require.True(t, d.Remove(k), "remove %d", k)
		require.NoError(t, d.verify(), "after removing %d", k)
		require.False(t, d.Contains(k), "%d still present", k)
	}
	require.Zero(t, d.Count())
	require.Zero(t, d.TotalWeight())
	require.Zero(t, d.Height())
}

func TestDynamicArenaReuse(t *testing.T) {
	d := NewDynamic[int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Add(i, 1))
	}
	for i := 0; i < 100; i += 2 {
		d.Remove(i)
	}
	for i := 100; i < 150; i++ {
		require.NoError(t, d.Add(i, 2))
	}
	require.Len(t, d.nodes, 100, "arena must reuse freed nodes")
	require.NoError(t, d.verify())
	require.EqualValues(t, 50+100, d.TotalWeight())
}

func TestDynamicSetWeightUpdatesAncestors(t *testing.T) {
	d := NewDynamic[int]()
	for i := 1; i <= 31; i++ {
		require.NoError(t, d.Add(i, 1))
	}
	require.NoError(t, d.SetWeight(1, 100))
	require.NoError(t, d.SetWeight(31, 0))
	require.NoError(t, d.verify())
	require.EqualValues(t, 29+100, d.TotalWeight())
}

func TestDynamicCustomOrder(t *testing.T) {
	type point struct{ x, y int }
	d := NewDynamicFunc(func(a, b point) int {
		if a.x != b.x {
			return a.x - b.x
		}
		return a.y - b.y
	})
	require.NoError(t, d.Add(point{1, 2}, 3))
	require.NoError(t, d.Add(point{1, 1}, 3))
	require.ErrorIs(t, d.Add(point{1, 2}, 1), errs.ErrDuplicateKey)
	require.Equal(t, []point{{1, 1}, {1, 2}}, slices.Collect(d.Keys()))
}

// -----------------------------------------------------------------------------
// Fast engines
// -----------------------------------------------------------------------------

func TestFastRemovalRebuildThreshold(t *testing.T) {
	r := NewFastRemoval[int](WithCore(core.NewWithSeed(11)))
	for i := 0; i < 10; i++ {
		require.NoError(t, r.Add(i, 1))
	}
	_, err := r.NextWithReplacement()
	require.NoError(t, err)
	require.Equal(t, 1, r.Rebuilds())

	for i := 0; i < 5; i++ {
		_, err := r.NextWithRemoval()
		require.NoError(t, err)
	}
	// 移除 5/10 的權重：邏輯刪除，尚未重建
	require.Equal(t, 1, r.Rebuilds())
	require.EqualValues(t, 5, r.DeadWeight())
	require.Equal(t, 5, r.Count())

	_, err = r.NextWithReplacement()
	require.NoError(t, err)
	// 達到門檻，重建時壓縮掉 dead slot
	require.Equal(t, 2, r.Rebuilds())
	require.Zero(t, r.DeadWeight())
	require.Len(t, r.keys, 5)
}

func TestFastRemovalRebuildsLessThanReplacement(t *testing.T) {
	rep := NewFastReplacement[int](WithCore(core.NewWithSeed(3)))
	rem := NewFastRemoval[int](WithCore(core.NewWithSeed(3)))
	for i := 0; i < 10; i++ {
		require.NoError(t, rep.Add(i, 1))
		require.NoError(t, rem.Add(i, 1))
	}
	for i := 0; i < 9; i++ {
		_, _ = rep.NextWithRemoval()
		_, _ = rem.NextWithRemoval()
	}
	require.Equal(t, 9, rep.Rebuilds(), "fast replacement")
	require.Equal(t, 3, rem.Rebuilds(), "fast removal")
}

func TestFastRemovalLogicalRemoveAndReAdd(t *testing.T) {
	r := NewFastRemoval[string](WithCore(core.NewWithSeed(8)))
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, r.Add(k, 10))
	}
	_, _ = r.NextWithReplacement()
	require.True(t, r.Remove("b"))
	require.False(t, r.Contains("b"))
	require.Equal(t, 3, r.Count())
	require.EqualValues(t, 30, r.TotalWeight())

	for i := 0; i < 200; i++ {
		k, err := r.NextWithReplacement()
		require.NoError(t, err)
		require.NotEqual(t, "b", k)
	}
	require.NoError(t, r.Add("b", 5))
	require.Equal(t, []string{"a", "b", "c", "d"}, slices.Sorted(r.Keys()))
	w, err := r.GetWeight("b")
	require.NoError(t, err)
	require.Equal(t, 5, w)

	_, _ = r.NextWithReplacement()
	require.Len(t, r.keys, 4, "rebuild must drop the dead slot")
}
