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
	"cmp"
	"context"
	"slices"

	"github.com/gorse-io/movietime/common/parallel"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Bruteforce is an exact vector index. Results are ordered by distance, ties broken by ascending
// index, so the same query always returns the same neighbors.
type Bruteforce struct {
	distanceFunc func(a, b []float32) float32
	dimension    int
	vectors      [][]float32
	jobs         int
}

func NewBruteforce(distanceFunc func(a, b []float32) float32) *Bruteforce {
	return &Bruteforce{distanceFunc: distanceFunc, jobs: 1}
}

// SetJobs sets the number of goroutines used to compute distances.
func (b *Bruteforce) SetJobs(jobs int) {
	b.jobs = max(jobs, 1)
}

// Add a vector to the index and return its index.
func (b *Bruteforce) Add(v []float32) (int, error) {
	// Check dimension
	if b.dimension == 0 {
		b.dimension = len(v)
	} else if b.dimension != len(v) {
		return 0, errors.Errorf("dimension mismatch: %v != %v", b.dimension, len(v))
	}
	// Add vector
	b.vectors = append(b.vectors, v)
	return len(b.vectors) - 1, nil
}

// Len returns the number of vectors in the index.
func (b *Bruteforce) Len() int {
	return len(b.vectors)
}

// Dimension returns the dimension of indexed vectors.
func (b *Bruteforce) Dimension() int {
	return b.dimension
}

// Vector returns the i-th vector.
func (b *Bruteforce) Vector(i int) []float32 {
	return b.vectors[i]
}

// SearchVector returns the k vectors nearest to q as (index, distance) pairs.
func (b *Bruteforce) SearchVector(q []float32, k int) ([]lo.Tuple2[int, float32], error) {
	if len(b.vectors) > 0 && len(q) != b.dimension {
		return nil, errors.Errorf("dimension mismatch: %v != %v", b.dimension, len(q))
	}
	if k <= 0 {
		return nil, nil
	}
	distances := make([]lo.Tuple2[int, float32], len(b.vectors))
	if err := parallel.For(context.Background(), len(b.vectors), b.jobs, func(i int) {
		distances[i] = lo.Tuple2[int, float32]{A: i, B: b.distanceFunc(q, b.vectors[i])}
	}); err != nil {
		return nil, errors.Trace(err)
	}
	slices.SortFunc(distances, func(x, y lo.Tuple2[int, float32]) int {
		if c := cmp.Compare(x.B, y.B); c != 0 {
			return c
		}
		return cmp.Compare(x.A, y.A)
	})
	return distances[:min(k, len(distances))], nil
}

// SearchIndex returns the k vectors nearest to the q-th vector, excluding itself.
func (b *Bruteforce) SearchIndex(q, k int) ([]lo.Tuple2[int, float32], error) {
	// Check index
	if q < 0 || q >= len(b.vectors) {
		return nil, errors.Errorf("index out of range: %v", q)
	}
	result, err := b.SearchVector(b.vectors[q], k+1)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result = lo.Filter(result, func(pair lo.Tuple2[int, float32], _ int) bool {
		return pair.A != q
	})
	return result[:min(k, len(result))], nil
}
