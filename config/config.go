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

// Package config 讀取 bench 與抽樣服務共用的 YAML 設定。
//
// 讀取順序：Default() → 設定檔 (Load) → CLI flag 覆寫 → Validate()。
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
	"github.com/zintix-labs/wrand/sdk/sampler"
	"github.com/zintix-labs/wrand/server/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogMode string `yaml:"log_mode"`
	Seed    int64  `yaml:"seed"` // 0 表示以加密亂數產生
	PRNG    string `yaml:"prng"`
	Server  Server `yaml:"server"`
	Bench   Bench  `yaml:"bench"`
}

type Server struct {
	Addr        string `yaml:"addr"`
	AsyncLogBuf int    `yaml:"async_log_buf"`
	DefaultKind string `yaml:"default_kind"` // 建立 pool 未指定 kind 時使用
	MaxDraw     int    `yaml:"max_draw"`     // 單次 draw 請求的上限
	MaxPools    int    `yaml:"max_pools"`
}

type Bench struct {
	Engines    []string `yaml:"engines"`
	Iterations int      `yaml:"iterations"`
	Workers    int      `yaml:"workers"`
	FitDraws   int      `yaml:"fit_draws"` // 0 表示不做分布檢定
	Report     string   `yaml:"report"`    // 報告輸出路徑，".zst" 結尾以 zstd 壓縮
	Format     string   `yaml:"format"`    // table | yaml | json
}

// Default 回傳預設設定
func Default() *Config {
	engines := make([]string, 0, len(sampler.Kinds()))
	for _, k := range sampler.Kinds() {
		engines = append(engines, k.String())
	}
	return &Config{
		LogMode: "dev",
		PRNG:    "pcg64",
		Server: Server{
			Addr:        ":5808",
			AsyncLogBuf: 8192,
			DefaultKind: sampler.KindDynamic.String(),
			MaxDraw:     10000,
			MaxPools:    1024,
		},
		Bench: Bench{
			Engines:    engines,
			Iterations: 10000,
			Workers:    1,
			Format:     "table",
		},
	}
}

// Load 讀取 YAML 設定檔；未出現的欄位保留預設值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse 解析 YAML 設定；未知欄位視為錯誤。
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 檢查設定值
func (c *Config) Validate() error {
	if _, err := logger.ParseMode(c.LogMode); err != nil {
		return err
	}
	if _, ok := core.Factory(c.PRNG); !ok {
		return errs.Warnf("unknown prng: %q (pcg64 | pcg32 | mt19937)", c.PRNG)
	}
	if c.Seed < 0 {
		return errs.Warnf("seed must be >= 0, got %d", c.Seed)
	}

	// server
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errs.NewWarn("server.addr is required")
	}
	if _, err := sampler.ParseKind(c.Server.DefaultKind); err != nil {
		return errs.WrapWithExtra(err, "invalid server.default_kind", c.Server.DefaultKind)
	}
	if c.Server.MaxDraw < 1 {
		return errs.Warnf("server.max_draw must > 0, got %d", c.Server.MaxDraw)
	}
	if c.Server.MaxPools < 1 {
		return errs.Warnf("server.max_pools must > 0, got %d", c.Server.MaxPools)
	}
	c.Server.AsyncLogBuf = max(0, c.Server.AsyncLogBuf)

	// bench
	if _, err := c.Kinds(); err != nil {
		return err
	}
	if c.Bench.Iterations < 1 {
		return errs.Warnf("bench.iterations must > 0, got %d", c.Bench.Iterations)
	}
	if c.Bench.Workers < 1 {
		return errs.Warnf("bench.workers must > 0, got %d", c.Bench.Workers)
	}
	if c.Bench.FitDraws < 0 {
		return errs.Warnf("bench.fit_draws must >= 0, got %d", c.Bench.FitDraws)
	}
	switch strings.ToLower(c.Bench.Format) {
	case "table", "yaml", "yml", "json":
	default:
		return errs.Warnf("unknown bench.format: %q (table | yaml | json)", c.Bench.Format)
	}
	return nil
}

// Kinds 解析 bench.engines；空清單代表全部引擎
func (c *Config) Kinds() ([]sampler.Kind, error) {
	if len(c.Bench.Engines) == 0 {
		return sampler.Kinds(), nil
	}
	out := make([]sampler.Kind, 0, len(c.Bench.Engines))
	for _, name := range c.Bench.Engines {
		k, err := sampler.ParseKind(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Mode 回傳 log 模式；Validate 通過後不會失敗
func (c *Config) Mode() logger.LogMode {
	m, _ := logger.ParseMode(c.LogMode)
	return m
}

// Factory 回傳設定的 PRNG 工廠，未知名稱退回 pcg64
func (c *Config) Factory() core.PRNGFactory {
	if f, ok := core.Factory(c.PRNG); ok {
		return f
	}
	return core.Default()
}

// ResolveSeed 回傳實際使用的 seed；未設定時產生一個並寫回，方便輸出後重現
func (c *Config) ResolveSeed() int64 {
	if c.Seed == 0 {
		c.Seed = core.CryptoSeed()
	}
	return c.Seed
}
