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
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
)

// lineFilter 決定 go test 的一行輸出要不要印；回傳 false 表示略過
type lineFilter func(line string) bool

// 只留 ok / FAIL 與建置錯誤，對應 grep -E '^(ok|FAIL)'
func onlySummary(line string) bool {
	return strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") ||
		strings.Contains(line, "build failed") || strings.Contains(line, "setup failed")
}

// 對應 grep -v '\[no test files\]'
func skipNoTests(line string) bool {
	return !strings.Contains(line, "[no test files]")
}

func passAll(string) bool { return true }

// runTest 先清 test cache，再以 filter 逐行著色輸出 go test 結果
func runTest(filter lineFilter, args ...string) error {
	if err := runGo(io.Discard, "clean", "-testcache"); err != nil {
		color.Red("go clean -testcache failed: %v", err)
	}

	cmd := exec.Command("go", append([]string{"test"}, args...)...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	// 模擬 "2>&1"：編譯錯誤在 stderr
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting go test: %w", err)
	}

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := scanner.Text()
		if !filter(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok"):
			color.Green("%s", line)
		case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "failed"):
			color.Red("%s", line)
		default:
			fmt.Println(line)
		}
	}
	if err := scanner.Err(); err != nil {
		color.Red("scanner error: %v", err)
	}
	return cmd.Wait()
}

func runGo(w io.Writer, args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
