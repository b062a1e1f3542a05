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

package svrcfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/wrand/sdk/sampler"
)

func TestValidDefaults(t *testing.T) {
	sc := &SvrCfg{DefaultKind: sampler.KindFastRemoval}
	require.NoError(t, sc.Valid())
	require.NotNil(t, sc.Log)
	require.Equal(t, ":5808", sc.Addr)
	require.Equal(t, 10000, sc.MaxDraw)
	require.Equal(t, 1024, sc.MaxPools)
	require.NotNil(t, sc.Streams)
	require.NotNil(t, sc.Registry)

	p, created, err := sc.Registry.Ensure("x", sc.DefaultKind)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, sampler.KindFastRemoval, p.Kind())
}

func TestValidRejectsUnknownKind(t *testing.T) {
	sc := &SvrCfg{DefaultKind: sampler.Kind(200)}
	require.Error(t, sc.Valid())
}
