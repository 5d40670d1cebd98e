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

package base

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

const randomEpsilon = 0.1

func meanStd(v []float32) (float32, float32) {
	var sum float32
	for _, x := range v {
		sum += x
	}
	mean := sum / float32(len(v))
	var sq float32
	for _, x := range v {
		sq += (x - mean) * (x - mean)
	}
	return mean, math32.Sqrt(sq / float32(len(v)))
}

func TestRandomGenerator_NormalVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NormalVector(10000, 1, 2)
	mean, std := meanStd(vec)
	assert.InDelta(t, float32(1), mean, randomEpsilon)
	assert.InDelta(t, float32(2), std, randomEpsilon)
}

func TestRandomGenerator_UniformVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.UniformVector(10000, 1, 2)
	for _, x := range vec {
		assert.GreaterOrEqual(t, x, float32(1))
		assert.Less(t, x, float32(2))
	}
}

func TestRandomGenerator_HalfNormalMatrix(t *testing.T) {
	rng := NewRandomGenerator(0)
	m := rng.HalfNormalMatrix(100, 100, 0.5)
	assert.Len(t, m, 100)
	var flat []float32
	for _, row := range m {
		assert.Len(t, row, 100)
		for _, x := range row {
			assert.GreaterOrEqual(t, x, float32(0))
		}
		flat = append(flat, row...)
	}
	// E|X| = scale * sqrt(2/pi)
	mean, _ := meanStd(flat)
	assert.InDelta(t, 0.5*math32.Sqrt(2/math32.Pi), mean, randomEpsilon)
}

func TestRandomGenerator_Seed(t *testing.T) {
	a := NewRandomGenerator(42).NormalMatrix(3, 3, 0, 1)
	b := NewRandomGenerator(42).NormalMatrix(3, 3, 0, 1)
	assert.Equal(t, a, b)
}

func TestNewMatrix32(t *testing.T) {
	m := NewMatrix32(2, 3)
	assert.Equal(t, [][]float32{{0, 0, 0}, {0, 0, 0}}, m)
}
