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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/wrand/errs"
	"github.com/zintix-labs/wrand/server/netsvr/middleware"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel      → 504/408（請求生命週期問題）
//   - KeyNotFound             → 404
//   - DuplicateKey / Empty    → 409（與目前狀態衝突）
//   - LimitExceeded           → 429
//   - 其他 errs.Warn          → 400（請求/參數問題，含 InvalidWeight / NullKey / 溢位）
//   - errs.Fatal / 非 *errs.E → 500（系統/不可恢復問題）
//
// 注意：本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 core errs）。
// 這樣可以避免讓核心錯誤包依賴 net/http 等傳輸層細節。
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout // 408
	}

	e, ok := errs.AsErr(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case errs.CodeKeyNotFound:
		return http.StatusNotFound
	case errs.CodeDuplicateKey, errs.CodeEmptyCollection:
		return http.StatusConflict
	case errs.CodeLimitExceeded:
		return http.StatusTooManyRequests
	}
	if e.ErrLv == errs.Warn {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Body 是錯誤回應的 JSON 內容
type Body struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Errs 依 StatusCode 寫回 JSON 錯誤
func Errs(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	body := Body{Error: err.Error()}
	if e, ok := errs.AsErr(err); ok {
		body.Code = e.Code.String()
		if status >= 500 {
			// 內部錯誤不外露細節
			body.Error = e.Message
		}
	} else if status >= 500 {
		body.Error = http.StatusText(status)
	}
	if r != nil {
		body.RequestID = middleware.GetReqId(r)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Log 只記錄值得注意的錯誤：4xx 中的 408/409/429 以 Warn，5xx 以 Error。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err))
	}
}
