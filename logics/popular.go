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
	"cmp"
	"slices"

	"github.com/gorse-io/movietime/dataset"
	"github.com/samber/lo"
)

// Popular returns the n catalog movies with the highest mean rating. Ties are broken by the
// number of ratings, then by column. Movies are restricted to the given genres if any.
func Popular(matrix *dataset.RatingMatrix, n int, genres ...string) []dataset.CatalogMovie {
	movies := slices.Clone(matrix.Movies())
	if len(genres) > 0 {
		movies = lo.Filter(movies, func(movie dataset.CatalogMovie, _ int) bool {
			return lo.Some(movie.Genres, genres)
		})
	}
	slices.SortFunc(movies, func(a, b dataset.CatalogMovie) int {
		if c := cmp.Compare(b.MeanRating, a.MeanRating); c != 0 {
			return c
		}
		if c := cmp.Compare(b.NumRatings, a.NumRatings); c != 0 {
			return c
		}
		return cmp.Compare(a.Column, b.Column)
	})
	return movies[:min(max(n, 0), len(movies))]
}
