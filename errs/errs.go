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

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

func ErrLv(errlv ErrLevel) string {
	switch errlv {
	case Fatal:
		return "fatal"
	case Warn:
		return "warn"
	case Log:
		return "log"
	}
	return ""
}

// ErrCode 標示錯誤類別，讓 errors.Is 可以跨越 Extra / Wrap 比對同一類錯誤。
type ErrCode uint8

const (
	CodeNone ErrCode = iota
	CodeInvalidWeight
	CodeNullKey
	CodeDuplicateKey
	CodeKeyNotFound
	CodeEmptyCollection
	CodeWeightOverflow
	CodeLimitExceeded
)

var codeNames = [...]string{
	CodeInvalidWeight:   "invalid_weight",
	CodeNullKey:         "null_key",
	CodeDuplicateKey:    "duplicate_key",
	CodeKeyNotFound:     "key_not_found",
	CodeEmptyCollection: "empty_collection",
	CodeWeightOverflow:  "weight_overflow",
	CodeLimitExceeded:   "limit_exceeded",
}

func (c ErrCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return ""
}

// 抽樣器錯誤分類 (皆為呼叫端錯誤，ErrLv = Warn)
//
// 請用 errors.Is 判斷，不要直接比較指標：實際回傳的錯誤會帶上 key / weight 等 Extra。
var (
	ErrInvalidWeight   = NewCode(Warn, CodeInvalidWeight, "weight must be >= 0")
	ErrNullKey         = NewCode(Warn, CodeNullKey, "key must not be nil")
	ErrDuplicateKey    = NewCode(Warn, CodeDuplicateKey, "key already exists")
	ErrKeyNotFound     = NewCode(Warn, CodeKeyNotFound, "key not found")
	ErrEmptyCollection = NewCode(Warn, CodeEmptyCollection, "no item with positive weight to draw")
	ErrWeightOverflow  = NewCode(Warn, CodeWeightOverflow, "total weight overflows int64")
)

// E 是統一的錯誤型別。
// Message 為經過樣板格式化後的主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 表示嚴重程度；Code 為錯誤類別。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Code    ErrCode
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Code != CodeNone {
		base = fmt.Sprintf("errlv=%s code=%s %s", ErrLv(e.ErrLv), e.Code, e.Message)
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 以 Code 比對：只要兩者 Code 相同且非 CodeNone 即視為同一類錯誤。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t == nil {
		return false
	}
	if e.Code == CodeNone || t.Code == CodeNone {
		return e == t
	}
	return e.Code == t.Code
}

// NewCode 建立帶有錯誤類別的錯誤
func NewCode(errLv ErrLevel, code ErrCode, msg string) *E {
	return &E{Message: msg, ErrLv: errLv, Code: code}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// With 以 sentinel 為樣板複製一份錯誤並附加上下文，保留 Message / ErrLv / Code。
//
//	return errs.ErrKeyNotFound.With(fmt.Sprint(key))
func (e *E) With(extra string) *E {
	c := *e
	c.Extra = extra
	return &c
}

// Withf 為 With 的格式化版本。
func (e *E) Withf(format string, a ...any) *E {
	return e.With(fmt.Sprintf(format, a...))
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Code（保持原本嚴重度與類別）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
//
// 建議使用方式：
//   - 若你已判斷該錯誤是「可預期且可處理」的情境，請直接建立一個 *E
//     （使用 NewCode / NewWarn 並自行指定 ErrLv），而不要對其呼叫 Wrap。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	code := CodeNone
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		code = e.Code
	}
	r := NewCode(errLv, code, msg)
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，但可附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}
