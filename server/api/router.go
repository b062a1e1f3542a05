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

package api

import (
	"log/slog"
	"net/http"

	v1 "github.com/zintix-labs/wrand/server/api/v1"
	"github.com/zintix-labs/wrand/server/netsvr"
	"github.com/zintix-labs/wrand/server/netsvr/middleware"
	"github.com/zintix-labs/wrand/server/svrcfg"
)

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerHealth(svr)               // 2. 健康檢查
	return registerV1API(svr, sCfg)   // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

func registerHealth(svr netsvr.NetSvr) {
	svr.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewPoolHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/pools", h.List)
		vOne.Put("/pools/{pool}", h.Create)
		vOne.Get("/pools/{pool}", h.Summary)
		vOne.Delete("/pools/{pool}", h.Drop)

		vOne.Get("/pools/{pool}/items", h.Items)
		vOne.Post("/pools/{pool}/items", h.Add)
		vOne.Put("/pools/{pool}/items/{key}", h.SetWeight)
		vOne.Get("/pools/{pool}/items/{key}", h.GetWeight)
		vOne.Delete("/pools/{pool}/items/{key}", h.Remove)

		vOne.Post("/pools/{pool}/draw", h.Draw)
		vOne.Post("/pools/{pool}/fit", h.Fit)
		vOne.Post("/pools/{pool}/clear", h.Clear)

		vOne.Post("/stat", v1.Stat)
	})
	return nil
}
