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
	"io"
	"log/slog"
	"math/bits"

	"github.com/zintix-labs/wrand/sdk/core"
)

// Option 設定抽樣器
type Option func(*options)

type options struct {
	core     *core.Core
	log      *slog.Logger
	ratioNum uint64
	ratioDen uint64
}

// WithCore 注入亂數來源。未指定時以加密亂數 seed 建立一個 PCG64 Core。
//
// 同一個 Core 不可被多個 goroutine 共用，跨 goroutine 請使用 core.Streams。
func WithCore(c *core.Core) Option {
	return func(o *options) {
		if c != nil {
			o.core = c
		}
	}
}

// WithLogger 注入 logger，抽樣器只在重建結構時輸出 Debug 紀錄。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRebuildRatio 設定 FastRemoval 的重建門檻：
// 被邏輯刪除的權重 / 建表時的總權重 >= num/den 時，下一次抽樣前整表重建。
//
// 不合法的比例 (num <= 0、den <= 0、num > den) 會被忽略。其他引擎不使用此設定。
func WithRebuildRatio(num, den int) Option {
	return func(o *options) {
		if num <= 0 || den <= 0 || num > den {
			return
		}
		o.ratioNum, o.ratioDen = uint64(num), uint64(den)
	}
}

func buildOptions(opts []Option) options {
	o := options{ratioNum: 1, ratioDen: 2}
	for _, opt := range opts {
		opt(&o)
	}
	if o.core == nil {
		o.core = core.NewDefault()
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// reached 回報 part/whole >= num/den，以 128-bit 乘積比較避免溢位。
func (o options) reached(part, whole int64) bool {
	hi1, lo1 := bits.Mul64(uint64(part), o.ratioDen)
	hi2, lo2 := bits.Mul64(uint64(whole), o.ratioNum)
	if hi1 != hi2 {
		return hi1 > hi2
	}
	return lo1 >= lo2
}
