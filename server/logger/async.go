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

package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AsyncHandler 把任意 slog.Handler 包成非阻塞寫出：
//   - Handle 只把 Record 放進佇列，由背景 goroutine 依序交給下層 handler
//   - 佇列滿或已 Close 時直接丟棄並計數，不把 I/O 延遲帶回請求路徑
//
// WithAttrs / WithGroup 產生的 handler 共用同一條佇列。
// slog.Logger 會忽略 Handle 的 error，下層寫出失敗只能由下層自行處理。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type queue struct {
	ch      chan entry
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
	written atomic.Uint64
}

type entry struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler 以容量 buf 的佇列包裝 next；buf <= 0 時用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = NewHandler(ModeDev, nil)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{ch: make(chan entry, buf), done: make(chan struct{})}
	q.wg.Add(1)
	go q.run()
	return &AsyncHandler{next: next, q: q}
}

// NewAsync 依模式建立非同步 logger，並回傳 handler 供結束時 Close。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(NewHandler(mode, nil), buf)
	return slog.New(ah), ah
}

func (q *queue) run() {
	defer q.wg.Done()
	for {
		select {
		case e := <-q.ch:
			q.write(e)
		case <-q.done:
			// 關閉後把已排入的紀錄寫完
			for {
				select {
				case e := <-q.ch:
					q.write(e)
				default:
					return
				}
			}
		}
	}
}

func (q *queue) write(e entry) {
	_ = e.h.Handle(e.ctx, e.rec)
	q.written.Add(1)
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil && h.next != nil
}

// Dropped 回傳因佇列滿或已關閉而丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Written 回傳已交給下層 handler 的筆數
func (h *AsyncHandler) Written() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.written.Load()
}

// Close 停止接收新紀錄並等待佇列清空；可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.once.Do(func() { close(h.q.done) })
	h.q.wg.Wait()
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.done:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 跨 goroutine 前必須 Clone
	select {
	case h.q.ch <- entry{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
