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

// Package netsvr 把 HTTP 框架隔在介面後面：api 只看得到 NetRouter，
// 只有組裝層 (server.Run) 持有可啟停的 NetSvr。
package netsvr

import (
	"net/http"

	"github.com/zintix-labs/wrand/server/app"
)

// NetSvr = 路由 + 生命週期，可直接交給 app.App 管理。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 只負責掛路由；Group 回呼拿到的也是 NetRouter，碰不到 Run / Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
