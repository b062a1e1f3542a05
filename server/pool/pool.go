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

// Package pool 管理抽樣服務中具名的抽樣器。
//
// 抽樣引擎本身是單一寫入者；每個 Pool 以自己的互斥鎖序列化所有操作，
// 不同 Pool 之間完全並行。亂數串流由 core.Streams 派發，每個 Pool 一條。
package pool

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/core"
	"github.com/zintix-labs/wrand/sdk/sampler"
	"github.com/zintix-labs/wrand/stats"
)

var (
	ErrPoolNotFound = errs.NewCode(errs.Warn, errs.CodeKeyNotFound, "pool not found")
	ErrPoolExists   = errs.NewCode(errs.Warn, errs.CodeDuplicateKey, "pool exists with another kind")
	ErrPoolLimit    = errs.NewCode(errs.Warn, errs.CodeLimitExceeded, "too many pools")
)

// Registry 保存所有 Pool
type Registry struct {
	mu      sync.RWMutex
	pools   map[string]*Pool
	max     int
	streams *core.Streams
	log     *slog.Logger
}

// NewRegistry 建立 Registry；maxPools <= 0 表示不限制
func NewRegistry(streams *core.Streams, maxPools int, log *slog.Logger) *Registry {
	if streams == nil {
		streams = core.NewStreams(nil, core.CryptoSeed())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		pools:   make(map[string]*Pool),
		max:     maxPools,
		streams: streams,
		log:     log,
	}
}

// Ensure 取得名為 name 的 Pool，不存在時以 kind 建立。
//
// 已存在且 kind 相同時回傳既有的 Pool (created == false)；kind 不同回傳 ErrPoolExists。
func (r *Registry) Ensure(name string, kind sampler.Kind) (p *Pool, created bool, err error) {
	if name == "" {
		return nil, false, errs.ErrNullKey.With("pool name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[name]; ok {
		if p.kind != kind {
			return nil, false, ErrPoolExists.Withf("pool=%s kind=%s", name, p.kind)
		}
		return p, false, nil
	}
	if r.max > 0 && len(r.pools) >= r.max {
		return nil, false, ErrPoolLimit.Withf("max=%d", r.max)
	}

	log := r.log.With(slog.String("pool", name))
	rnd, err := sampler.New[string](kind, sampler.WithCore(r.streams.Next()), sampler.WithLogger(log))
	if err != nil {
		return nil, false, err
	}
	p = &Pool{name: name, kind: kind, r: rnd, created: time.Now()}
	r.pools[name] = p
	log.Info("pool created", slog.String("kind", kind.String()))
	return p, true, nil
}

// Get 取得 Pool，不存在回傳 ErrPoolNotFound
func (r *Registry) Get(name string) (*Pool, error) {
	r.mu.RLock()
	p, ok := r.pools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrPoolNotFound.Withf("pool=%s", name)
	}
	return p, nil
}

// Drop 刪除 Pool，回報是否存在
func (r *Registry) Drop(name string) bool {
	r.mu.Lock()
	_, ok := r.pools[name]
	delete(r.pools, name)
	r.mu.Unlock()
	if ok {
		r.log.Info("pool dropped", slog.String("pool", name))
	}
	return ok
}

// Names 依字母順序列出所有 Pool 名稱
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.pools))
	for n := range r.pools {
		out = append(out, n)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Pool 是一個以字串為 key 的具名抽樣器
type Pool struct {
	mu      sync.Mutex
	name    string
	kind    sampler.Kind
	r       sampler.Randomizer[string]
	created time.Time
}

// Summary 是 Pool 的狀態摘要
type Summary struct {
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Count       int       `json:"count"`
	TotalWeight int64     `json:"total_weight"`
	Rebuilds    int       `json:"rebuilds"`
	Created     time.Time `json:"created"`
}

// Item 是一個 key 與其權重
type Item struct {
	Key    string `json:"key"`
	Weight int    `json:"weight"`
}

func (p *Pool) Name() string { return p.name }

func (p *Pool) Kind() sampler.Kind { return p.kind }

func (p *Pool) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Summary{
		Name:        p.name,
		Kind:        p.kind.String(),
		Count:       p.r.Count(),
		TotalWeight: p.r.TotalWeight(),
		Created:     p.created,
	}
	if rc, ok := p.r.(interface{ Rebuilds() int }); ok {
		s.Rebuilds = rc.Rebuilds()
	}
	return s
}

// 字串 key 沒有 nil；空字串視為 null key
func checkKey(key string) error {
	if key == "" {
		return errs.ErrNullKey
	}
	return nil
}

func (p *Pool) Add(key string, weight int) error {
	if err := checkKey(key); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.Add(key, weight)
}

func (p *Pool) SetWeight(key string, weight int) error {
	if err := checkKey(key); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.SetWeight(key, weight)
}

func (p *Pool) GetWeight(key string) (int, error) {
	if err := checkKey(key); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.GetWeight(key)
}

func (p *Pool) Remove(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.Remove(key)
}

func (p *Pool) Clear() {
	p.mu.Lock()
	p.r.Clear()
	p.mu.Unlock()
}

// Items 依 key 排序列出所有項目
func (p *Pool) Items() []Item {
	p.mu.Lock()
	out := make([]Item, 0, p.r.Count())
	for k, w := range p.r.All() {
		out = append(out, Item{Key: k, Weight: w})
	}
	p.mu.Unlock()
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}

// Draw 在同一次持鎖內連續抽 n 次。
//
// remove == true 時抽出即移除；可抽的項目不足 n 個時回傳已抽到的部分，
// 一個都抽不到才回傳 errs.ErrEmptyCollection。
// 其他錯誤在第一次發生時停止，已抽到的部分與錯誤一併回傳。
func (p *Pool) Draw(n int, remove bool) ([]string, error) {
	if n < 1 {
		return nil, errs.Warnf("draw count must > 0, got %d", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.r.NextWithReplacement
	if remove {
		next = p.r.NextWithRemoval
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k, err := next()
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			if errors.Is(err, errs.ErrEmptyCollection) {
				break
			}
			// 已抽出 (可能已移除) 的 key 連同錯誤一起交回
			return out, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Fit 以放回抽樣抽 n 次，並對目前權重做適合度檢定。不改變 Pool 內容。
func (p *Pool) Fit(n int) (*stats.FitReport, error) {
	if n < 1 {
		return nil, errs.Warnf("fit draws must > 0, got %d", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t := stats.NewTally[string]()
	for i := 0; i < n; i++ {
		k, err := p.r.NextWithReplacement()
		if err != nil {
			return nil, err
		}
		t.Observe(k)
	}
	return stats.GoodnessOfFit(t, p.r.All()), nil
}
