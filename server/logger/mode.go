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

// Package logger 組裝服務與 CLI 使用的 slog.Logger。
//
// 抽樣器本身只吃 *slog.Logger (sampler.WithLogger)，不依賴本包；
// 本包只負責「依模式挑 handler」與非阻塞的 AsyncHandler。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zintix-labs/wrand/errs"
)

type LogMode uint8

const (
	ModeDev     LogMode = iota // text、Debug 以上、stderr
	ModeProd                   // json、Info 以上、stdout (給 Loki / Promtail)
	ModeSilence                // 全部丟棄
)

var modeNames = [...]string{ModeDev: "dev", ModeProd: "prod", ModeSilence: "silence"}

// ParseMode 解析設定檔 / flag 的 log 模式：dev | prod | silence
//
// 也接受 ModeDev / ModeProd / ModeSilence 寫法；空字串視為 dev。
func ParseMode(s string) (LogMode, error) {
	norm := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "Mode"))
	if norm == "" {
		return ModeDev, nil
	}
	for m, name := range modeNames {
		if name == norm {
			return LogMode(m), nil
		}
	}
	return ModeDev, errs.Warnf("unknown log mode: %q", s)
}

func (m LogMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// NewDefaultLogger 依模式建立 logger，輸出到該模式的預設位置
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(NewHandler(mode, nil))
}

// NewHandler 依模式建立 handler；w 為 nil 時 dev 寫 stderr、prod 寫 stdout。
func NewHandler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	case ModeProd:
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
