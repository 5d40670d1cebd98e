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
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/movietime/dataset"
	"github.com/juju/errors"
)

// FilterMovie is the movie visible to filter expressions as `movie`.
type FilterMovie struct {
	Id         int64
	Title      string
	Genres     []string
	TmdbId     int64
	NumRatings int
	MeanRating float32
}

// Filter restricts candidates by a boolean expression, e.g. `"Comedy" in movie.Genres`.
type Filter struct {
	source  string
	program *vm.Program
}

func NewFilter(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(map[string]any{"movie": FilterMovie{}}), expr.AsBool())
	if err != nil {
		return nil, errors.NewNotValid(err, "invalid filter")
	}
	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string {
	return f.source
}

// Match returns true if the movie satisfies the expression.
func (f *Filter) Match(movie dataset.CatalogMovie) (bool, error) {
	output, err := expr.Run(f.program, map[string]any{"movie": FilterMovie{
		Id:         movie.MovieId,
		Title:      movie.Title,
		Genres:     movie.Genres,
		TmdbId:     movie.TmdbId,
		NumRatings: movie.NumRatings,
		MeanRating: movie.MeanRating,
	}})
	if err != nil {
		return false, errors.Trace(err)
	}
	return output.(bool), nil
}
