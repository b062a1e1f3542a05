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

// Package app 統一啟動與關閉多個長生命週期 Component。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

// App 並行執行所有 Component；收到 SIGINT/SIGTERM、ctx 結束或任一 Component 的 Run 返回時，
// 依註冊順序呼叫每個 Component 的 Shutdown。
type App struct {
	comps []Component
	log   *slog.Logger
}

func New() *App { return &App{log: slog.Default()} }

// NewWith 建立 App 並註冊 comps
func NewWith(comps ...Component) *App {
	a := New()
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// SetLogger 設定關閉錯誤的輸出；nil 忽略。
func (a *App) SetLogger(l *slog.Logger) {
	if l != nil {
		a.log = l
	}
}

// Run 等同 RunContext(context.Background())
func (a *App) Run() error {
	return a.RunContext(context.Background())
}

// RunContext 阻塞到下列任一情況，之後做優雅關閉：
//   - OS 終止信號或 ctx 結束：回傳 nil
//   - 任一 Component.Run 返回：回傳它的錯誤 (正常停止為 nil)
func (a *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func() { errCh <- c.Run() }()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var err error
	select {
	case sig := <-quit:
		a.log.Info("signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	case err = <-errCh:
	}
	a.shutdown(shutdownTimeout)
	return err
}

// shutdown 在 td 內依序關閉所有 Component，錯誤只記錄不中斷
func (a *App) shutdown(td time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), td)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Error("shutdown failed", slog.Any("err", err))
		}
	}
}
