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
	"fmt"
	"os"

	"github.com/fatih/color"
)

// 開發用任務：go run ./scripts [task]
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test | test-all | test-detail | race | bench]")
		os.Exit(1)
	}
	if err := selectTask(os.Args[1]); err != nil {
		color.Red("\n%s finished with errors: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func selectTask(task string) error {
	switch task {
	case "test":
		color.Green("running tests")
		return runTest(onlySummary, "./...", "-cover", "-count=1")
	case "test-all":
		color.Green("running tests (all with coverage)")
		return runTest(passAll, "./...", "-cover")
	case "test-detail":
		color.Green("running tests (detail)")
		return runTest(skipNoTests, "./...", "-v", "-count=1")
	case "race":
		// 併發相關：亂數串流派發、pool registry、bench worker
		color.Green("running race tests")
		return runTest(onlySummary, "-race", "-count=1", "./sdk/core/...", "./server/...", "./bench/...")
	case "bench":
		color.Green("running quick bench")
		return runGo(os.Stdout, "run", "./cmd/bench", "-n", "1000", "-fit", "20000", "-seed", "1")
	default:
		color.Yellow("Unknown task: %s\n", task)
		os.Exit(1)
	}
	return nil
}
