// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams(t *testing.T) {
	p := Params{
		NFactors:    1,
		Tol:         0.5,
		RandomState: int64(42),
		Metric:      "cosine",
	}
	assert.Equal(t, 1, p.GetInt(NFactors, -1))
	assert.Equal(t, -1, p.GetInt(NEpochs, -1))
	assert.Equal(t, -1, p.GetInt(Metric, -1))
	assert.Equal(t, float32(0.5), p.GetFloat32(Tol, -1))
	assert.Equal(t, float32(1), p.GetFloat32(NFactors, -1))
	assert.Equal(t, float32(-1), p.GetFloat32(Metric, -1))
	assert.Equal(t, int64(42), p.GetInt64(RandomState, -1))
	assert.Equal(t, int64(1), p.GetInt64(NFactors, -1))
	assert.Equal(t, "cosine", p.GetString(Metric, ""))
	assert.Equal(t, "", p.GetString(NFactors, ""))
}

func TestParams_Copy(t *testing.T) {
	a := Params{NFactors: 1}
	b := a.Copy()
	b[NFactors] = 2
	assert.Equal(t, 1, a.GetInt(NFactors, -1))
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{NFactors: 1, NEpochs: 2}
	b := a.Overwrite(Params{NEpochs: 3, Tol: 0.1})
	assert.Equal(t, Params{NFactors: 1, NEpochs: 3, Tol: 0.1}, b)
	assert.Equal(t, Params{NFactors: 1, NEpochs: 2}, a)
}

func TestParams_ToString(t *testing.T) {
	assert.Equal(t, `{"NFactors":1}`, Params{NFactors: 1}.ToString())
}
