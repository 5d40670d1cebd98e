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

package logics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/chewxy/math32"
	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Strategy string

const (
	Factorization Strategy = "factorization"
	Neighborhood  Strategy = "neighborhood"
	Mix           Strategy = "mix"
)

func ParseStrategy(s string) (Strategy, error) {
	switch strategy := Strategy(s); strategy {
	case Factorization, Neighborhood, Mix:
		return strategy, nil
	default:
		return "", errors.NotValidf("strategy %q", s)
	}
}

type Combination string

const (
	Sum     Combination = "sum"
	Average Combination = "average"
)

// Request is a recommendation request on resolved catalog columns.
type Request struct {
	// Query maps columns to ratings of the new user.
	Query    map[int32]float32
	Strategy Strategy
	K        int
	// NumNeighbors overrides the default number of neighbors if positive.
	NumNeighbors int
	Filter       *Filter
}

type Item struct {
	dataset.CatalogMovie
	Score float32
}

type Result struct {
	Items    []Item
	Warnings []string
}

// Recommender ranks catalog movies for a new user described by a few ratings.
type Recommender struct {
	catalog      *Catalog
	combination  Combination
	numNeighbors int
}

func NewRecommender(catalog *Catalog, combination Combination, numNeighbors int) *Recommender {
	if combination == "" {
		combination = Sum
	}
	return &Recommender{catalog: catalog, combination: combination, numNeighbors: numNeighbors}
}

func (r *Recommender) Catalog() *Catalog {
	return r.catalog
}

func (r *Recommender) validate(req *Request) error {
	if len(req.Query) == 0 {
		return errors.NotValidf("empty query")
	}
	var unknown []int32
	for column := range req.Query {
		if column < 0 || int(column) >= r.catalog.Matrix.CountMovies() {
			unknown = append(unknown, column)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return errors.Trace(&dataset.UnknownMovieError{Movies: lo.Map(unknown, func(column int32, _ int) string {
			return fmt.Sprintf("column %d", column)
		})})
	}
	for _, rating := range req.Query {
		if math32.IsNaN(rating) || math32.IsInf(rating, 0) || rating <= 0 {
			return errors.NotValidf("rating %v", rating)
		}
	}
	if req.K < 1 {
		return errors.NotValidf("k %d", req.K)
	}
	if req.NumNeighbors < 0 {
		return errors.NotValidf("number of neighbors %d", req.NumNeighbors)
	}
	if _, err := ParseStrategy(string(req.Strategy)); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Recommend at most k movies that are not in the query, best first. Scores are min-max
// normalized per model; Mix combines the normalized scores of both models, with 0 for a movie
// missing on one side. A DegenerateInputError carrying the unranked candidates is returned when
// scores cannot be normalized.
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result, err := r.recommend(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecommendTotal.WithLabelValues(string(req.Strategy), status).Inc()
	RecommendSeconds.WithLabelValues(string(req.Strategy)).Observe(time.Since(start).Seconds())
	return result, err
}

func (r *Recommender) recommend(ctx context.Context, req Request) (*Result, error) {
	if err := r.validate(&req); err != nil {
		return nil, errors.Trace(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	result := &Result{}
	var scores []model.Score
	switch req.Strategy {
	case Factorization:
		raw, err := r.factorization(req)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if scores, err = Normalize(raw); err != nil {
			return nil, errors.Trace(err)
		}
	case Neighborhood:
		raw, warning, err := r.neighborhood(req)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if scores, err = Normalize(raw); err != nil {
			return nil, errors.Trace(err)
		}
	case Mix:
		rawFactorization, err := r.factorization(req)
		if err != nil {
			return nil, errors.Trace(err)
		}
		rawNeighborhood, warning, err := r.neighborhood(req)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		factorizationScores, err := Normalize(rawFactorization)
		if err != nil {
			return nil, errors.Trace(err)
		}
		neighborhoodScores, err := Normalize(rawNeighborhood)
		if err != nil {
			return nil, errors.Trace(err)
		}
		scores = Combine(factorizationScores, neighborhoodScores, r.combination)
	}
	for _, score := range TopK(scores, req.K) {
		result.Items = append(result.Items, Item{
			CatalogMovie: r.catalog.Matrix.Movie(score.Column),
			Score:        score.Score,
		})
	}
	return result, nil
}

func (r *Recommender) factorization(req Request) ([]model.Score, error) {
	scores, err := r.catalog.NMF.Score(req.Query)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.filter(scores, req.Filter)
}

func (r *Recommender) neighborhood(req Request) ([]model.Score, string, error) {
	numNeighbors := req.NumNeighbors
	if numNeighbors == 0 {
		numNeighbors = r.numNeighbors
	}
	if numNeighbors == 0 {
		numNeighbors = r.catalog.KNN.NNeighbors()
	}
	scores, used, err := r.catalog.KNN.Score(req.Query, numNeighbors)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	var warning string
	if used < numNeighbors {
		NeighborClampTotal.Inc()
		warning = fmt.Sprintf("%d neighbors requested but only %d users are available", numNeighbors, used)
		log.Logger().Warn("number of neighbors clamped", zap.Int("requested", numNeighbors), zap.Int("used", used))
	}
	scores, err = r.filter(scores, req.Filter)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	return scores, warning, nil
}

func (r *Recommender) filter(scores []model.Score, filter *Filter) ([]model.Score, error) {
	if filter == nil {
		return scores, nil
	}
	filtered := make([]model.Score, 0, len(scores))
	for _, score := range scores {
		ok, err := filter.Match(r.catalog.Matrix.Movie(score.Column))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if ok {
			filtered = append(filtered, score)
		}
	}
	return filtered, nil
}

// Combine normalized scores of two models over the union of their columns, with 0 for a column
// missing on one side. The result is ordered by first appearance.
func Combine(a, b []model.Score, combination Combination) []model.Score {
	position := make(map[int32]int, len(a)+len(b))
	combined := make([]model.Score, 0, len(a)+len(b))
	for _, scores := range [][]model.Score{a, b} {
		for _, score := range scores {
			if i, exist := position[score.Column]; exist {
				combined[i].Score += score.Score
				continue
			}
			position[score.Column] = len(combined)
			combined = append(combined, score)
		}
	}
	if combination == Average {
		for i := range combined {
			combined[i].Score /= 2
		}
	}
	return combined
}
