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
	"strings"
	"testing"
)

func TestSentinelMatchesThroughExtra(t *testing.T) {
	err := ErrKeyNotFound.With("key=7")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected errors.Is to match key not found, got %v", err)
	}
	if errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("unexpected match against duplicate key")
	}
	if !strings.Contains(err.Error(), "key=7") {
		t.Fatalf("extra missing from message: %s", err.Error())
	}
	if ErrKeyNotFound.Extra != "" {
		t.Fatalf("sentinel must not be mutated by With")
	}
}

func TestWrapKeepsLevelAndCode(t *testing.T) {
	inner := ErrInvalidWeight.Withf("weight=%d", -1)
	outer := fmt.Errorf("add failed: %w", Wrap(inner, "pool add"))
	if !errors.Is(outer, ErrInvalidWeight) {
		t.Fatalf("wrapped error lost its code: %v", outer)
	}
	e, ok := AsErr(outer)
	if !ok {
		t.Fatalf("expected *E in chain")
	}
	if e.ErrLv != Warn || e.Code != CodeInvalidWeight {
		t.Fatalf("unexpected level/code: %v %v", e.ErrLv, e.Code)
	}

	plain := Wrap(errors.New("io"), "read config")
	if plain.ErrLv != Fatal || plain.Code != CodeNone {
		t.Fatalf("foreign cause must wrap as fatal without code")
	}
}

func TestUncodedErrorsCompareByIdentity(t *testing.T) {
	a := NewWarn("a")
	b := NewWarn("a")
	if errors.Is(a, b) {
		t.Fatalf("uncoded errors must not match each other")
	}
	if !errors.Is(a, a) {
		t.Fatalf("error must match itself")
	}
}
