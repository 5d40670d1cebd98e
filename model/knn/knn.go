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

package knn

import (
	"cmp"
	"context"
	"io"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/gorse-io/movietime/base/encoding"
	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/base/progress"
	"github.com/gorse-io/movietime/common/ann"
	"github.com/gorse-io/movietime/common/floats"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	modelName = "knn"

	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
)

// Neighbor is a historical user near a query vector.
type Neighbor struct {
	Row        int32
	Distance   float32
	Similarity float32
}

// KNN scores movies for a new user by the ratings of the most similar historical users.
type KNN struct {
	model.BaseModel
	MovieIds []int64
	UserIds  []int64
	index    *ann.Bruteforce
	// Hyper parameters
	metric     string
	nNeighbors int
}

func NewKNN(params model.Params) *KNN {
	k := new(KNN)
	k.SetParams(params)
	return k
}

func (k *KNN) SetParams(params model.Params) {
	k.BaseModel.SetParams(params)
	k.metric = k.Params.GetString(model.Metric, MetricCosine)
	k.nNeighbors = k.Params.GetInt(model.NNeighbors, 10)
}

// NNeighbors is the number of neighbors used when a query does not ask for one.
func (k *KNN) NNeighbors() int {
	return k.nNeighbors
}

func (k *KNN) Clear() {
	k.MovieIds = nil
	k.UserIds = nil
	k.index = nil
}

func (k *KNN) Invalid() bool {
	return k == nil || k.index == nil
}

func (k *KNN) NumUsers() int {
	if k.index == nil {
		return 0
	}
	return k.index.Len()
}

func (k *KNN) distanceFunc() (func(a, b []float32) float32, error) {
	switch k.metric {
	case MetricCosine:
		return floats.Cosine, nil
	case MetricEuclidean:
		return floats.Euclidean, nil
	default:
		return nil, errors.NotSupportedf("metric %s", k.metric)
	}
}

// similarity converts a distance so that a larger value means more similar.
func (k *KNN) similarity(distance float32) float32 {
	if k.metric == MetricEuclidean {
		return 1 / (1 + distance)
	}
	return 1 - distance
}

// Fit indexes the zero-filled rating vectors of all users.
func (k *KNN) Fit(ctx context.Context, m *dataset.RatingMatrix, config *model.FitConfig) error {
	if config == nil {
		config = model.NewFitConfig()
	}
	distanceFunc, err := k.distanceFunc()
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("fit knn",
		zap.Int("n_users", m.CountUsers()),
		zap.Int("n_movies", m.CountMovies()),
		zap.Any("params", k.GetParams()),
		zap.Any("config", config))
	_, span := progress.Start(ctx, "KNN.Fit", m.CountUsers())
	index := ann.NewBruteforce(distanceFunc)
	index.SetJobs(config.Jobs)
	for _, vec := range m.Dense() {
		if _, err = index.Add(vec); err != nil {
			span.Error(err)
			span.End()
			return errors.Trace(err)
		}
		span.Add(1)
	}
	span.End()
	k.index = index
	k.MovieIds = slices.Clone(m.MovieIds())
	k.UserIds = slices.Clone(m.UserIndex().Values())
	log.Logger().Info("fit knn complete", zap.Int("n_users", index.Len()))
	return nil
}

// SetJobs sets the number of goroutines used by neighbor search.
func (k *KNN) SetJobs(jobs int) {
	if k.index != nil {
		k.index.SetJobs(jobs)
	}
}

// Kneighbors returns the n users nearest to x, most similar first. Ties are broken by ascending
// row. n is clamped to the number of users.
func (k *KNN) Kneighbors(x []float32, n int) ([]Neighbor, error) {
	if k.Invalid() {
		return nil, model.NewModelError(modelName, "model is not fitted")
	}
	if len(x) != len(k.MovieIds) {
		return nil, errors.NotValidf("vector of length %d for %d movies", len(x), len(k.MovieIds))
	}
	result, err := k.index.SearchVector(x, n)
	if err != nil {
		return nil, errors.Trace(err)
	}
	neighbors := make([]Neighbor, len(result))
	for i, pair := range result {
		neighbors[i] = Neighbor{Row: int32(pair.A), Distance: pair.B, Similarity: k.similarity(pair.B)}
	}
	return neighbors, nil
}

// Score movies that are not in the query by Σ similarity × rating over the numNeighbors most
// similar users. A non-positive numNeighbors falls back to the configured number of neighbors.
// Scores are sorted in descending order, ties broken by ascending column. The number of
// neighbors actually used is returned as well.
func (k *KNN) Score(query map[int32]float32, numNeighbors int) ([]model.Score, int, error) {
	if k.Invalid() {
		return nil, 0, model.NewModelError(modelName, "model is not fitted")
	}
	if numNeighbors <= 0 {
		numNeighbors = k.nNeighbors
	}
	if numNeighbors > k.NumUsers() {
		log.Logger().Warn("not enough users, clamp the number of neighbors",
			zap.Int("n_neighbors", numNeighbors), zap.Int("n_users", k.NumUsers()))
		numNeighbors = k.NumUsers()
	}
	x := make([]float32, len(k.MovieIds))
	rated := bitset.New(uint(len(x)))
	for column, rating := range query {
		if column < 0 || int(column) >= len(x) {
			return nil, 0, errors.NotValidf("column %d", column)
		}
		x[column] = rating
		rated.Set(uint(column))
	}
	neighbors, err := k.Kneighbors(x, numNeighbors)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	sum := make([]float32, len(x))
	for _, neighbor := range neighbors {
		floats.MulConstAdd(k.index.Vector(int(neighbor.Row)), neighbor.Similarity, sum)
	}
	scores := make([]model.Score, 0, len(x)-len(query))
	for j, score := range sum {
		if rated.Test(uint(j)) {
			continue
		}
		if math32.IsNaN(score) || math32.IsInf(score, 0) {
			return nil, 0, model.NewModelError(modelName, "score of column %d is %v", j, score)
		}
		scores = append(scores, model.Score{Column: int32(j), Score: score})
	}
	slices.SortFunc(scores, func(a, b model.Score) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Column, b.Column)
	})
	return scores, len(neighbors), nil
}

// Marshal model into byte stream.
func (k *KNN) Marshal(w io.Writer) error {
	if k.Invalid() {
		return model.NewModelError(modelName, "model is not fitted")
	}
	if err := encoding.WriteGob(w, k.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, k.MovieIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, k.UserIds); err != nil {
		return errors.Trace(err)
	}
	vectors := make([][]float32, k.index.Len())
	for i := range vectors {
		vectors[i] = k.index.Vector(i)
	}
	return encoding.WriteMatrix(w, vectors)
}

// Unmarshal model from byte stream.
func (k *KNN) Unmarshal(r io.Reader) error {
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	k.SetParams(params)
	if err := encoding.ReadGob(r, &k.MovieIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &k.UserIds); err != nil {
		return errors.Trace(err)
	}
	vectors, err := encoding.ReadMatrix(r)
	if err != nil {
		return errors.Trace(err)
	}
	if len(vectors) != len(k.UserIds) {
		return model.NewModelError(modelName, "%d vectors for %d users", len(vectors), len(k.UserIds))
	}
	distanceFunc, err := k.distanceFunc()
	if err != nil {
		return errors.Trace(err)
	}
	k.index = ann.NewBruteforce(distanceFunc)
	for _, vec := range vectors {
		if len(vec) != len(k.MovieIds) {
			return model.NewModelError(modelName, "vector of length %d for %d movies", len(vec), len(k.MovieIds))
		}
		if _, err = k.index.Add(vec); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
