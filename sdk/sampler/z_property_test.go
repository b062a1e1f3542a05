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
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
)

// op 由單一整數解碼：動作、key 與權重
type op struct {
	action int
	key    int
	weight int
}

func decodeOp(v int) op {
	return op{action: v % 6, key: (v / 6) % 24, weight: (v / 144) % 9}
}

// replay 對引擎與參考模型 (map) 套用同一串操作，回傳第一個不一致之處
func replay(r Randomizer[int], ops []int, verify func() error) error {
	model := map[int]int{}
	total := func() int64 {
		s := int64(0)
		for _, w := range model {
			s += int64(w)
		}
		return s
	}

	for step, v := range ops {
		o := decodeOp(v)
		_, exists := model[o.key]
		switch o.action {
		case 0, 1:
			err := r.Add(o.key, o.weight)
			if exists {
				if !errors.Is(err, errs.ErrDuplicateKey) {
					return fmt.Errorf("step %d: add %d expected duplicate, got %v", step, o.key, err)
				}
			} else {
				if err != nil {
					return fmt.Errorf("step %d: add %d: %v", step, o.key, err)
				}
				model[o.key] = o.weight
			}
		case 2:
			if got := r.Remove(o.key); got != exists {
				return fmt.Errorf("step %d: remove %d = %v, want %v", step, o.key, got, exists)
			}
			delete(model, o.key)
		case 3:
			if err := r.SetWeight(o.key, o.weight); err != nil {
				return fmt.Errorf("step %d: set %d: %v", step, o.key, err)
			}
			if o.weight == 0 {
				delete(model, o.key)
			} else {
				model[o.key] = o.weight
			}
		case 4, 5:
			var (
				k   int
				err error
			)
			if o.action == 4 {
				k, err = r.NextWithReplacement()
			} else {
				k, err = r.NextWithRemoval()
			}
			if total() == 0 {
				if !errors.Is(err, errs.ErrEmptyCollection) {
					return fmt.Errorf("step %d: expected empty, got %d, %v", step, k, err)
				}
				break
			}
			if err != nil {
				return fmt.Errorf("step %d: draw: %v", step, err)
			}
			if model[k] <= 0 {
				return fmt.Errorf("step %d: drew %d with weight %d", step, k, model[k])
			}
			if o.action == 5 {
				delete(model, k)
			}
		}

		if r.Count() != len(model) {
			return fmt.Errorf("step %d: count %d, want %d", step, r.Count(), len(model))
		}
		if r.TotalWeight() != total() {
			return fmt.Errorf("step %d: total %d, want %d", step, r.TotalWeight(), total())
		}
		if verify != nil {
			if err := verify(); err != nil {
				return fmt.Errorf("step %d: %v", step, err)
			}
		}
	}

	for k, w := range model {
		got, err := r.GetWeight(k)
		if err != nil || got != w {
			return fmt.Errorf("final: weight of %d = %d, %v; want %d", k, got, err, w)
		}
	}
	n := 0
	for k, w := range r.All() {
		if model[k] != w {
			return fmt.Errorf("final: enumerated %d=%d, want %d", k, w, model[k])
		}
		n++
	}
	if n != len(model) {
		return fmt.Errorf("final: enumerated %d keys, want %d", n, len(model))
	}
	return nil
}

func TestRandomOperationSequences(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.MaxSize = 300
	properties := gopter.NewProperties(parameters)

	opsGen := gen.SliceOf(gen.IntRange(0, 1<<20))

	for _, kind := range Kinds() {
		properties.Property(kind.String()+" matches reference model", prop.ForAll(
			func(ops []int, seed int64) string {
				r, err := New[int](kind, WithCore(core.NewWithSeed(seed)))
				if err != nil {
					return err.Error()
				}
				var verify func() error
				if d, ok := r.(*Dynamic[int]); ok {
					verify = d.verify
				}
				if err := replay(r, ops, verify); err != nil {
					return err.Error()
				}
				return ""
			},
			opsGen,
			gen.Int64(),
		))
	}

	properties.Property("fast_removal with eager threshold matches reference model", prop.ForAll(
		func(ops []int, num int) string {
			r := NewFastRemoval[int](WithCore(core.NewWithSeed(int64(num))), WithRebuildRatio(num, 8))
			if err := replay(r, ops, nil); err != nil {
				return err.Error()
			}
			return ""
		},
		opsGen,
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
