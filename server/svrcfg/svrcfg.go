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

package svrcfg

import (
	"log/slog"
	"strings"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
	"github.com/zintix-labs/wrand/sdk/sampler"
	"github.com/zintix-labs/wrand/server/logger"
	"github.com/zintix-labs/wrand/server/pool"
)

const (
	defaultAddr     = ":5808"
	defaultMaxDraw  = 10000
	defaultMaxPools = 1024
)

type SvrCfg struct {
	Log         *slog.Logger
	Addr        string
	DefaultKind sampler.Kind
	MaxDraw     int // 單次 draw / fit 請求的上限
	MaxPools    int
	Streams     *core.Streams
	Registry    *pool.Registry
}

// Valid 補齊預設值並建立 Registry (若未注入)
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 未注入時以 dev 模式非同步輸出
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}

	if strings.TrimSpace(sc.Addr) == "" {
		sc.Addr = defaultAddr
	}
	if sc.DefaultKind.String() == "unknown" {
		return errs.Warnf("invalid default kind: %d", sc.DefaultKind)
	}
	if sc.MaxDraw < 1 {
		sc.MaxDraw = defaultMaxDraw
	}
	if sc.MaxPools < 1 {
		sc.MaxPools = defaultMaxPools
	}
	if sc.Streams == nil {
		sc.Streams = core.NewStreams(nil, core.CryptoSeed())
	}
	if sc.Registry == nil {
		sc.Registry = pool.NewRegistry(sc.Streams, sc.MaxPools, sc.Log)
	}
	return nil
}
