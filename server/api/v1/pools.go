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

package v1

import (
	"encoding/json"
	"maps"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/sdk/sampler"
	"github.com/zintix-labs/wrand/server/httperr"
	"github.com/zintix-labs/wrand/server/pool"
	"github.com/zintix-labs/wrand/server/svrcfg"
	"github.com/zintix-labs/wrand/stats"
)

// ============================================================
// ** PoolHandler **
// ============================================================

type PoolHandler struct {
	sCfg *svrcfg.SvrCfg
	reg  *pool.Registry
}

func NewPoolHandler(sCfg *svrcfg.SvrCfg) (*PoolHandler, error) {
	if sCfg == nil || sCfg.Registry == nil {
		return nil, errs.NewFatal("pool registry is required")
	}
	return &PoolHandler{sCfg: sCfg, reg: sCfg.Registry}, nil
}

type itemBody struct {
	Key    string `json:"key"`
	Weight *int   `json:"weight"`
}

type drawResp struct {
	Pool  string   `json:"pool"`
	Keys  []string `json:"keys"`
	Error string   `json:"error,omitempty"`
}

// List GET /v1/pools
func (h *PoolHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.reg.Names()
	out := make([]pool.Summary, 0, len(names))
	for _, n := range names {
		if p, err := h.reg.Get(n); err == nil {
			out = append(out, p.Summary())
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Create PUT /v1/pools/{pool}?kind=dynamic
func (h *PoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind := h.sCfg.DefaultKind
	if s := r.URL.Query().Get("kind"); s != "" {
		k, err := sampler.ParseKind(s)
		if err != nil {
			httperr.Errs(w, r, err)
			return
		}
		kind = k
	}
	p, created, err := h.reg.Ensure(chi.URLParam(r, "pool"), kind)
	if err != nil {
		h.fail(w, r, "create pool failed", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, p.Summary())
}

// Summary GET /v1/pools/{pool}
func (h *PoolHandler) Summary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Summary())
}

// Drop DELETE /v1/pools/{pool}
func (h *PoolHandler) Drop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "pool")
	if !h.reg.Drop(name) {
		httperr.Errs(w, r, pool.ErrPoolNotFound.Withf("pool=%s", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Items GET /v1/pools/{pool}/items
func (h *PoolHandler) Items(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Items())
}

// Add POST /v1/pools/{pool}/items  {"key":"a","weight":3}
//
// 未給 weight 時視為 1。
func (h *PoolHandler) Add(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	var body itemBody
	if err := decode(r, &body); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	weight := 1
	if body.Weight != nil {
		weight = *body.Weight
	}
	if err := p.Add(body.Key, weight); err != nil {
		h.fail(w, r, "add failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, pool.Item{Key: body.Key, Weight: weight})
}

// SetWeight PUT /v1/pools/{pool}/items/{key}  {"weight":3}
//
// 不存在則新增；weight 為 0 則移除。
func (h *PoolHandler) SetWeight(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	var body itemBody
	if err := decode(r, &body); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	if body.Weight == nil {
		httperr.Errs(w, r, errs.NewWarn("weight is required"))
		return
	}
	key := chi.URLParam(r, "key")
	if err := p.SetWeight(key, *body.Weight); err != nil {
		h.fail(w, r, "set weight failed", err)
		return
	}
	writeJSON(w, http.StatusOK, pool.Item{Key: key, Weight: *body.Weight})
}

// GetWeight GET /v1/pools/{pool}/items/{key}
func (h *PoolHandler) GetWeight(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	weight, err := p.GetWeight(key)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pool.Item{Key: key, Weight: weight})
}

// Remove DELETE /v1/pools/{pool}/items/{key}
func (h *PoolHandler) Remove(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if !p.Remove(key) {
		httperr.Errs(w, r, errs.ErrKeyNotFound.Withf("key=%s", key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Draw POST /v1/pools/{pool}/draw?n=1&remove=false
func (h *PoolHandler) Draw(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	n, err := h.count(r, "n", 1)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	remove := false
	if s := r.URL.Query().Get("remove"); s != "" {
		if remove, err = strconv.ParseBool(s); err != nil {
			httperr.Errs(w, r, errs.Warnf("invalid remove: %q", s))
			return
		}
	}
	keys, err := p.Draw(n, remove)
	if err != nil && len(keys) == 0 {
		h.fail(w, r, "draw failed", err)
		return
	}
	resp := drawResp{Pool: p.Name(), Keys: keys}
	if err != nil {
		// 已移除的 key 必須回報給呼叫端
		httperr.Log(h.sCfg.Log, "draw stopped early", err)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Fit POST /v1/pools/{pool}/fit?n=10000
//
// 以放回抽樣檢查目前權重下的抽樣分布，不改變 Pool 內容。
func (h *PoolHandler) Fit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	n, err := h.count(r, "n", h.sCfg.MaxDraw)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	rep, err := p.Fit(n)
	if err != nil {
		h.fail(w, r, "fit failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Clear POST /v1/pools/{pool}/clear
func (h *PoolHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pool(w, r)
	if !ok {
		return
	}
	p.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================
// ** 內部工具 **
// ============================================================

func (h *PoolHandler) pool(w http.ResponseWriter, r *http.Request) (*pool.Pool, bool) {
	p, err := h.reg.Get(chi.URLParam(r, "pool"))
	if err != nil {
		httperr.Errs(w, r, err)
		return nil, false
	}
	return p, true
}

// count 讀取 query 中的次數，範圍 [1, MaxDraw]
func (h *PoolHandler) count(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errs.Warnf("invalid %s: %q", name, s)
	}
	if n > h.sCfg.MaxDraw {
		return 0, errs.NewCode(errs.Warn, errs.CodeLimitExceeded, "too many draws").Withf("%s=%d max=%d", name, n, h.sCfg.MaxDraw)
	}
	return n, nil
}

func (h *PoolHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	httperr.Log(h.sCfg.Log, msg, err)
	httperr.Errs(w, r, err)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.NewWarn("invalid json body").With(err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// header 已送出，編碼失敗也無法改寫狀態碼
	_ = json.NewEncoder(w).Encode(v)
}

// ============================================================
// ** Stat **
// ============================================================

// StatReq 由外部提供權重與觀測次數，做適合度檢定
type StatReq struct {
	Weights  map[string]int `json:"weights"`
	Observed map[string]int `json:"observed"`
	Alpha    float64        `json:"alpha"` // 預設 0.001
}

type StatResp struct {
	*stats.FitReport
	Alpha float64 `json:"Alpha"`
	Pass  bool    `json:"Pass"`
}

// Stat POST /v1/stat
func Stat(w http.ResponseWriter, r *http.Request) {
	req := new(StatReq)
	if err := decode(r, req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	if len(req.Weights) == 0 {
		httperr.Errs(w, r, errs.NewWarn("weights must not be empty"))
		return
	}
	for k, wt := range req.Weights {
		if wt < 0 {
			httperr.Errs(w, r, errs.ErrInvalidWeight.Withf("key=%s weight=%d", k, wt))
			return
		}
	}
	if req.Alpha <= 0 || req.Alpha >= 1 {
		req.Alpha = 0.001
	}

	t := stats.NewTally[string]()
	for k, c := range req.Observed {
		if c < 0 {
			httperr.Errs(w, r, errs.Warnf("observed count must >= 0: key=%s", k))
			return
		}
		if c > math.MaxInt-t.N() {
			httperr.Errs(w, r, errs.ErrWeightOverflow.With("observed counts overflow int"))
			return
		}
		t.ObserveN(k, c)
	}
	if t.N() < 1 {
		httperr.Errs(w, r, errs.NewWarn("observed must not be empty"))
		return
	}
	rep := stats.GoodnessOfFit(t, maps.All(req.Weights))
	writeJSON(w, http.StatusOK, StatResp{FitReport: rep, Alpha: req.Alpha, Pass: rep.Pass(req.Alpha)})
}
