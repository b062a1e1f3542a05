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

package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// encoder 是 gzip.Writer 與 zstd.Encoder 的共同行為
type encoder interface {
	io.WriteCloser
	Reset(w io.Writer)
	Flush() error
}

// codec 為單一 Content-Encoding 與其 writer pool
type codec struct {
	name string
	pool sync.Pool
}

func (c *codec) get(w io.Writer) encoder {
	e := c.pool.Get().(encoder)
	e.Reset(w)
	return e
}

// put 收尾並放回 pool；discard 為 true 時丟掉 footer (204/304 不得有 body)
func (c *codec) put(e encoder, discard bool) {
	if discard {
		e.Reset(io.Discard)
	}
	_ = e.Close()
	c.pool.Put(e)
}

// 依偏好順序排列：先 zstd 再 gzip
var codecs = []*codec{
	{name: "zstd", pool: sync.Pool{New: func() any {
		// 參數固定且合法，不會失敗
		zw, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		return zw
	}}},
	{name: "gzip", pool: sync.Pool{New: func() any {
		gw, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		return gw
	}}},
}

// pickCodec 由 Accept-Encoding 挑選 codec；q=0 視為拒絕
func pickCodec(accept string) *codec {
	if accept == "" {
		return nil
	}
	offered := make(map[string]bool)
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := strings.ReplaceAll(params, " ", "")
		offered[strings.ToLower(strings.TrimSpace(name))] = q != "q=0" && q != "q=0.0"
	}
	for _, c := range codecs {
		if offered[c.name] {
			return c
		}
	}
	return nil
}

func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" ||
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// 1xx / 204 / 304 沒有 body
func noBody(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type compressWriter struct {
	http.ResponseWriter
	enc      encoder
	disabled bool
}

func (cw *compressWriter) WriteHeader(code int) {
	h := cw.Header()
	h.Del("Content-Length")
	if noBody(code) {
		cw.disabled = true
		h.Del("Content-Encoding")
		h.Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	h := cw.Header()
	h.Del("Content-Length")
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressWriter) Flush() {
	if !cw.disabled {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := cw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("underlying response writer does not support Hijacker")
}

// Compression 依 Accept-Encoding 以 zstd 或 gzip 壓縮回應。
// HEAD、連線升級 (WebSocket) 與已設定 Content-Encoding 的回應不處理。
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := pickCodec(r.Header.Get("Accept-Encoding"))
		if c == nil || r.Method == http.MethodHead || isUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", c.name)
		w.Header().Add("Vary", "Accept-Encoding")
		cw := &compressWriter{ResponseWriter: w, enc: c.get(w)}
		done := false
		// panic 時不寫 footer，交給 Recover 回 500
		defer func() { c.put(cw.enc, cw.disabled || !done) }()
		next.ServeHTTP(cw, r)
		done = true
	})
}
