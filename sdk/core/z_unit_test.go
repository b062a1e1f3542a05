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
	"slices"
	"sync"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	for _, name := range []string{"pcg64", "pcg32", "mt19937"} {
		f, ok := Factory(name)
		if !ok {
			t.Fatalf("factory %s missing", name)
		}
		c1 := New(f.New(7))
		c2 := New(f.New(7))
		for i := 0; i < 5; i++ {
			if c1.Uint64() != c2.Uint64() {
				t.Fatalf("[%s] Uint64 mismatch at %d", name, i)
			}
		}
		if c1.IntN(10) != c2.IntN(10) {
			t.Fatalf("[%s] IntN mismatch", name)
		}
		if c1.Int64N(1<<40) != c2.Int64N(1<<40) {
			t.Fatalf("[%s] Int64N mismatch", name)
		}
	}
	if _, ok := Factory("nope"); ok {
		t.Fatalf("unknown factory must not resolve")
	}
}

func TestBoundedRanges(t *testing.T) {
	c := NewWithSeed(3)
	if c.IntN(0) != -1 || c.Int64N(0) != -1 || c.Int64N(-5) != -1 {
		t.Fatalf("non-positive bounds must return -1")
	}
	const big = int64(1) << 40
	for i := 0; i < 1000; i++ {
		if v := c.Int64N(big); v < 0 || v >= big {
			t.Fatalf("Int64N out of range: %d", v)
		}
		if v := c.IntN(7); v < 0 || v >= 7 {
			t.Fatalf("IntN out of range: %d", v)
		}
		if v := c.Next(); v < 0 {
			t.Fatalf("Next must be non-negative: %d", v)
		}
	}
}

func TestCorePickAndShuffle(t *testing.T) {
	c := New(Default().New(9))
	if got := c.Pick(nil); got != -1 {
		t.Fatalf("expected -1 for empty pick, got %d", got)
	}

	src := []int{1, 2, 3, 4}
	c.ShuffleInts(src)
	want := []int{1, 2, 3, 4}
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestSnapshotRestore(t *testing.T) {
	for _, name := range []string{"pcg64", "pcg32", "mt19937"} {
		f, _ := Factory(name)
		c := New(f.New(21))
		c.Uint64()
		snap, err := c.Snapshot()
		if err != nil {
			t.Fatalf("[%s] snapshot: %v", name, err)
		}
		want := []uint64{c.Uint64(), c.Uint64(), c.Uint64()}

		r := New(f.New(99))
		if err := r.Restore(snap); err != nil {
			t.Fatalf("[%s] restore: %v", name, err)
		}
		got := []uint64{r.Uint64(), r.Uint64(), r.Uint64()}
		if !slices.Equal(want, got) {
			t.Fatalf("[%s] restored stream diverged: %v vs %v", name, want, got)
		}
	}
	if err := NewPCG32WithSeed(1).Restore([]byte{1, 2}); err == nil {
		t.Fatalf("expected error for short pcg32 snapshot")
	}
}

func TestStreamsAreIndependent(t *testing.T) {
	s := NewStreams(nil, 42)
	const n = 32
	firsts := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			firsts[i] = s.Next().Uint64()
		}(i)
	}
	wg.Wait()
	slices.Sort(firsts)
	if len(slices.Compact(firsts)) != n {
		t.Fatalf("two streams produced the same first value")
	}
}

func TestStreamsNamedAndReplay(t *testing.T) {
	s := NewStreams(Default(), 5)
	a := s.For("worker-1")
	if s.For("worker-1") != a {
		t.Fatalf("same id must map to the same core")
	}
	if s.For("worker-2") == a {
		t.Fatalf("different ids must not share a core")
	}
	s.Release("worker-1")
	if s.For("worker-1") == a {
		t.Fatalf("released id must receive a fresh core")
	}

	// 相同 baseSeed 的派發順序可重現
	r1 := NewStreams(Default(), s.BaseSeed())
	r2 := NewStreams(Default(), s.BaseSeed())
	if r1.Next().Uint64() != r2.Next().Uint64() {
		t.Fatalf("streams with the same base seed must replay")
	}
}
