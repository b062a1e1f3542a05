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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/wrand/config"
	"github.com/zintix-labs/wrand/sdk/core"
	"github.com/zintix-labs/wrand/sdk/sampler"
	"github.com/zintix-labs/wrand/server"
	"github.com/zintix-labs/wrand/server/logger"
	"github.com/zintix-labs/wrand/server/svrcfg"
)

// 抽樣服務入口：設定檔 + flag 覆寫
func main() {
	sCfg, closeLog, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	err = server.Run(sCfg)
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, func(), error) {
	path := flag.String("config", "", "yaml config file")
	logMode := flag.String("log-mode", "", "log mode: dev | prod | silence")
	addr := flag.String("addr", "", "listen address, e.g. :5808")
	kind := flag.String("kind", "", "default engine for new pools")
	seed := flag.Int64("seed", 0, "int64 base seed for pool random streams")
	prng := flag.String("prng", "", "pcg64 | pcg32 | mt19937")
	flag.Parse()

	cfg := config.Default()
	if *path != "" {
		c, err := config.Load(*path)
		if err != nil {
			return nil, nil, err
		}
		cfg = c
	}
	if *logMode != "" {
		cfg.LogMode = *logMode
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *kind != "" {
		cfg.Server.DefaultKind = *kind
	}
	if *seed > 0 {
		cfg.Seed = *seed
	}
	if *prng != "" {
		cfg.PRNG = *prng
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	closeLog := func() {}
	log := logger.NewDefaultLogger(cfg.Mode())
	if cfg.Server.AsyncLogBuf > 0 {
		l, ah := logger.NewAsync(cfg.Server.AsyncLogBuf, cfg.Mode())
		log, closeLog = l, ah.Close
	}
	defKind, _ := sampler.ParseKind(cfg.Server.DefaultKind)

	sCfg := &svrcfg.SvrCfg{
		Log:         log,
		Addr:        cfg.Server.Addr,
		DefaultKind: defKind,
		MaxDraw:     cfg.Server.MaxDraw,
		MaxPools:    cfg.Server.MaxPools,
		Streams:     core.NewStreams(cfg.Factory(), cfg.ResolveSeed()),
	}
	log.Info("[wrand] config loaded",
		"kind", defKind.String(), "prng", cfg.PRNG, "seed", cfg.Seed)
	return sCfg, closeLog, nil
}
