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

package ann

import (
	"testing"

	"github.com/gorse-io/movietime/base"
	"github.com/gorse-io/movietime/common/floats"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestBruteforce_Add(t *testing.T) {
	index := NewBruteforce(floats.Euclidean)
	i, err := index.Add([]float32{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = index.Add([]float32{3, 4})
	assert.NoError(t, err)
	assert.Equal(t, 1, i)
	_, err = index.Add([]float32{1, 2, 3})
	assert.Error(t, err)
	assert.Equal(t, 2, index.Len())
	assert.Equal(t, 2, index.Dimension())
}

func TestBruteforce_SearchVector(t *testing.T) {
	index := NewBruteforce(floats.Euclidean)
	for _, v := range [][]float32{{0, 0}, {3, 4}, {1, 0}, {0, 1}, {10, 10}} {
		_, err := index.Add(v)
		assert.NoError(t, err)
	}
	result, err := index.SearchVector([]float32{0, 0}, 3)
	assert.NoError(t, err)
	// {1,0} and {0,1} tie, the lower index comes first
	assert.Equal(t, []lo.Tuple2[int, float32]{{A: 0, B: 0}, {A: 2, B: 1}, {A: 3, B: 1}}, result)
	// k larger than the index
	result, err = index.SearchVector([]float32{0, 0}, 100)
	assert.NoError(t, err)
	assert.Len(t, result, 5)
	// dimension mismatch
	_, err = index.SearchVector([]float32{0}, 1)
	assert.Error(t, err)
	// k = 0
	result, err = index.SearchVector([]float32{0, 0}, 0)
	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestBruteforce_SearchIndex(t *testing.T) {
	index := NewBruteforce(floats.Euclidean)
	for _, v := range [][]float32{{0, 0}, {3, 4}, {1, 0}} {
		_, err := index.Add(v)
		assert.NoError(t, err)
	}
	result, err := index.SearchIndex(0, 2)
	assert.NoError(t, err)
	assert.Equal(t, []lo.Tuple2[int, float32]{{A: 2, B: 1}, {A: 1, B: 5}}, result)
	_, err = index.SearchIndex(3, 1)
	assert.Error(t, err)
}

func TestBruteforce_Deterministic(t *testing.T) {
	rng := base.NewRandomGenerator(0)
	serial := NewBruteforce(floats.Cosine)
	concurrent := NewBruteforce(floats.Cosine)
	concurrent.SetJobs(8)
	for i := 0; i < 1000; i++ {
		// duplicated vectors produce ties
		v := rng.UniformVector(8, 0, 1)
		for j := 0; j < 2; j++ {
			_, err := serial.Add(v)
			assert.NoError(t, err)
			_, err = concurrent.Add(v)
			assert.NoError(t, err)
		}
	}
	q := rng.UniformVector(8, 0, 1)
	expected, err := serial.SearchVector(q, 50)
	assert.NoError(t, err)
	for i := 0; i < 5; i++ {
		actual, err := concurrent.SearchVector(q, 50)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)
	}
	for i := 1; i < len(expected); i++ {
		assert.LessOrEqual(t, expected[i-1].B, expected[i].B)
	}
}
