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

package netsvr

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultAddr string = ":5808"

// ChiOption 調整 http.Server 參數
type ChiOption func(*http.Server)

// WithTimeouts 設定 read / write / idle timeout；<= 0 的值不變更
func WithTimeouts(read, write, idle time.Duration) ChiOption {
	return func(s *http.Server) {
		if read > 0 {
			s.ReadTimeout = read
		}
		if write > 0 {
			s.WriteTimeout = write
		}
		if idle > 0 {
			s.IdleTimeout = idle
		}
	}
}

// ChiAdapter 以 chi 實作 NetSvr；handler 與 middleware 都是標準 net/http 介面。
type ChiAdapter struct {
	router chi.Router
	server *http.Server // 子路由為 nil
	addr   string
}

// NewChiServer 建立監聽 addr 的 ChiAdapter。
//
// 預設 timeout：read 10s、write 10s (大量 draw / fit 請求受 MaxDraw 限制)、idle 120s。
func NewChiServer(addr string, opts ...ChiOption) *ChiAdapter {
	cr := chi.NewRouter()
	srv := &http.Server{
		Addr:              addr,
		Handler:           cr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	for _, o := range opts {
		o(srv)
	}
	return &ChiAdapter{router: cr, server: srv, addr: addr}
}

// NewChiServerDefault 建立監聽 :5808 的 ChiAdapter
func NewChiServerDefault() *ChiAdapter {
	return NewChiServer(defaultAddr)
}

// Ready 檢查是否為可啟動的根 server (子路由回傳 false)
func (c *ChiAdapter) Ready() bool {
	return c != nil && c.router != nil && c.server != nil &&
		strings.Contains(c.addr, ":") && c.server.Handler == c.router
}

// Run 阻塞直到 server 停止；經 Shutdown 正常關閉時回傳 nil。
func (c *ChiAdapter) Run() error {
	if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) { c.router.Use(mw) }

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) { c.router.Get(path, h) }

func (c *ChiAdapter) Post(path string, h http.HandlerFunc) { c.router.Post(path, h) }

func (c *ChiAdapter) Put(path string, h http.HandlerFunc) { c.router.Put(path, h) }

func (c *ChiAdapter) Delete(path string, h http.HandlerFunc) { c.router.Delete(path, h) }

// Group 掛一組子路由；回呼拿到的子 adapter 沒有 server，無法控制啟停。
func (c *ChiAdapter) Group(path string, fn func(subRouter NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

func (c *ChiAdapter) Address() string {
	return c.addr
}

// Handler 回傳根路由，供 httptest 直接驅動，不必實際監聽。
func (c *ChiAdapter) Handler() http.Handler {
	return c.router
}
