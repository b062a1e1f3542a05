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

// Package perf 以 runtime/pprof 包裝一次執行，輸出 cpu / heap / allocs profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/wrand/errs"
)

// Dir 為 pprof 檔案寫入路徑
var Dir = "build/profiling"

// Modes 列出支援的 profile 種類；空字串表示不做 profiling
func Modes() []string { return []string{"", "cpu", "heap", "allocs"} }

// RunPProf 依 mode 決定以哪種 profiling 包裝 exe。
//
// 回傳 exe 自身的錯誤，或 profile 檔建立 / 寫入失敗的錯誤（優先回報 exe 的錯誤）。
func RunPProf(exe func() error, mode string) error {
	switch mode {
	case "":
		return exe()
	case "cpu":
		return PProfCPU(exe)
	case "heap":
		return PProfHeap(exe)
	case "allocs":
		return PProfAllocs(exe)
	default:
		return errs.Warnf("unknown pprof mode: %q (cpu | heap | allocs)", mode)
	}
}

// PProfCPU 在 exe 執行期間做 CPU profiling，輸出 Dir/cpu.pprof。
//
// 可以作性能分析，也可以拿來做構建時給pgo的優化blueprint
//
// Usage like:
//
//	go run ./cmd/bench -p cpu
func PProfCPU(exe func() error) error {
	f, err := create("cpu.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "failed to start pprof")
	}
	defer pprof.StopCPUProfile()

	return exe()
}

// PProfHeap 會在 exe() 執行完後，寫出一次 Heap Snapshot（in-use memory）。
// 寫出前先 runtime.GC()，讓快照貼近 Live Objects。
// 輸出檔：Dir/heap.pprof
func PProfHeap(exe func() error) error {
	if err := exe(); err != nil {
		return err
	}
	runtime.GC()

	f, err := create("heap.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errs.Wrap(err, "failed to write heap profile")
	}
	return nil
}

// PProfAllocs 會在 exe() 後寫出「累積配置」(allocs) Profile，
// 可用於追蹤整體分配熱點（需要搭配 -alloc_space / -alloc_objects 指標查看）。
// 輸出檔：Dir/allocs.pprof
func PProfAllocs(exe func() error) error {
	if err := exe(); err != nil {
		return err
	}

	f, err := create("allocs.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if prof := pprof.Lookup("allocs"); prof != nil {
		if err := prof.WriteTo(f, 0); err != nil {
			return errs.Wrap(err, "failed to write allocs profile")
		}
	}
	return nil
}

func create(name string) (*os.File, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "failed to create pprof dir")
	}
	f, err := os.Create(filepath.Join(Dir, name))
	if err != nil {
		return nil, errs.Wrap(err, "failed to create "+name)
	}
	return f, nil
}
