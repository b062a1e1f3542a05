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

// Package sampler 提供可變動的加權抽樣器 (weighted randomizer)。
//
// 本檔案 (define.go) 定義所有抽樣引擎共用的合約 Randomizer 與引擎種類 Kind。
//
// 引擎一覽：
//   - Static：累積權重陣列 + 二分搜尋，最簡單的基準實作。
//   - Dynamic：帶子樹權重的 AVL 樹，所有操作 O(log n)。
//   - FastReplacement：整數 Alias Table，抽樣 O(1)，任何變動後整表重建。
//   - FastRemoval：同上，但抽出移除時只做邏輯刪除，累積到門檻才重建。
//
// 所有引擎皆為單一寫入者：同一個實例不可被多個 goroutine 同時操作。
package sampler

import (
	"cmp"
	"iter"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/zintix-labs/wrand/errs"
)

// Randomizer 是所有抽樣引擎共同實作的介面。
//
// 權重為非負整數；權重 0 的項目可以存在、會計入 Count，但永遠不會被抽中。
type Randomizer[K comparable] interface {
	// Count 回傳目前的 key 數量 (含權重 0 的項目)
	Count() int
	// TotalWeight 回傳所有權重總和，O(1)
	TotalWeight() int64
	// Contains 回報 key 是否存在
	Contains(key K) bool
	// Clear 清空所有項目
	Clear()
	// AddOne 以權重 1 加入 key
	AddOne(key K) error
	// Add 加入 key；weight < 0、key 為 nil、key 已存在時回傳錯誤
	Add(key K, weight int) error
	// Remove 移除 key，不存在時回傳 false
	Remove(key K) bool
	// GetWeight 回傳 key 的權重，不存在時回傳 errs.ErrKeyNotFound
	GetWeight(key K) (int, error)
	// SetWeight 更新權重；key 不存在則加入，weight == 0 則移除
	SetWeight(key K, weight int) error
	// NextWithReplacement 依權重抽出一個 key，key 仍保留
	NextWithReplacement() (K, error)
	// NextWithRemoval 依權重抽出一個 key 並將其移除
	NextWithRemoval() (K, error)
	// Keys 走訪所有 key，不保證順序
	Keys() iter.Seq[K]
	// All 走訪所有 (key, weight)，不保證順序
	All() iter.Seq2[K, int]
}

// Kind 為抽樣引擎種類
type Kind uint8

const (
	KindStatic Kind = iota
	KindDynamic
	KindFastReplacement
	KindFastRemoval
)

var kindNames = map[Kind]string{
	KindStatic:          "static",
	KindDynamic:         "dynamic",
	KindFastReplacement: "fast_replacement",
	KindFastRemoval:     "fast_removal",
}

// Kinds 依固定順序列出所有引擎種類
func Kinds() []Kind {
	return []Kind{KindStatic, KindDynamic, KindFastReplacement, KindFastRemoval}
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind 解析引擎名稱，大小寫與 '-' / '_' 不拘
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, errs.Warnf("unknown randomizer kind: %q", s)
}

// New 依 Kind 建立抽樣器
func New[K cmp.Ordered](kind Kind, opts ...Option) (Randomizer[K], error) {
	switch kind {
	case KindStatic:
		return NewStatic[K](opts...), nil
	case KindDynamic:
		return NewDynamic[K](opts...), nil
	case KindFastReplacement:
		return NewFastReplacement[K](opts...), nil
	case KindFastRemoval:
		return NewFastRemoval[K](opts...), nil
	default:
		return nil, errs.Warnf("unknown randomizer kind: %d", kind)
	}
}

// Collect 以切片取出 r 的所有 key (順序不保證)
func Collect[K comparable](r Randomizer[K]) []K {
	out := make([]K, 0, r.Count())
	return slices.AppendSeq(out, r.Keys())
}

// -----------------------------------------------------------------------------
// 共用檢查
// -----------------------------------------------------------------------------

// nilCheck 依 K 的型別決定是否需要 nil 檢查；無法為 nil 的型別回傳 nil。
func nilCheck[K comparable]() func(K) bool {
	t := reflect.TypeFor[K]()
	switch t.Kind() {
	case reflect.Interface:
		return func(k K) bool {
			v := any(k)
			if v == nil {
				return true
			}
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
				return rv.IsNil()
			}
			return false
		}
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return func(k K) bool {
			return reflect.ValueOf(&k).Elem().IsNil()
		}
	default:
		return nil
	}
}

type validator[K comparable] struct {
	isNil func(K) bool
}

func newValidator[K comparable]() validator[K] {
	return validator[K]{isNil: nilCheck[K]()}
}

func (v validator[K]) key(key K) error {
	if v.isNil != nil && v.isNil(key) {
		return errs.ErrNullKey
	}
	return nil
}

func (v validator[K]) weight(key K, weight int) error {
	if weight < 0 {
		return errs.ErrInvalidWeight.Withf("key=%v weight=%d", key, weight)
	}
	return nil
}

// addTotal 檢查 total + delta 不溢位
func addTotal(total int64, delta int64) (int64, error) {
	if delta > 0 && total > math.MaxInt64-delta {
		return total, errs.ErrWeightOverflow.Withf("total=%d delta=%d", total, delta)
	}
	return total + delta, nil
}

func notFound[K comparable](key K) error {
	return errs.ErrKeyNotFound.Withf("key=%v", key)
}

func duplicate[K comparable](key K) error {
	return errs.ErrDuplicateKey.Withf("key=%v", key)
}

func empty(count int) error {
	return errs.ErrEmptyCollection.Withf("count=%d", count)
}
