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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/server/api"
	"github.com/zintix-labs/wrand/server/app"
	"github.com/zintix-labs/wrand/server/netsvr"
	"github.com/zintix-labs/wrand/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證輸入的 SvrCfg（包含 logger、pool registry）。
//  2. 建立 HTTP server（netsvr），監聽 SvrCfg.Addr。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app.Run() 並回傳停止原因。
//
// 注意：Run 不綁定任何檔案路徑或環境變數；所有依賴都透過 SvrCfg 明確注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	return RunContext(context.Background(), sCfg)
}

// RunContext 與 Run 相同，ctx 取消時也會優雅關閉。
func RunContext(ctx context.Context, sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return serve(ctx, sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 允許呼叫端注入自訂的 NetSvr（自訂 listener、TLS、timeout 等）。
//
//   - svr 必須非 nil；若是 ChiAdapter 會要求 Ready() 為 true。
//   - 這一層只負責「註冊 routes + 啟動 app」，不接管整個系統的組裝方式。
func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}
	return serve(ctx, sCfg, svr)
}

func serve(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	// 註冊 Api
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	// 運行
	a := app.NewWith(svr)
	a.SetLogger(sCfg.Log)
	if c, ok := svr.(*netsvr.ChiAdapter); ok {
		addr := c.Address()
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		sCfg.Log.Info("[wrand] listening on http://" + addr)
	} else {
		sCfg.Log.Info("[wrand] listening")
	}
	if err := a.RunContext(ctx); err != nil {
		sCfg.Log.Error("app stopped:", slog.Any("err", err))
		return err
	}
	return nil
}
