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
	"slices"

	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/model"
	"github.com/gorse-io/movietime/model/knn"
	"github.com/gorse-io/movietime/model/nmf"
	"github.com/juju/errors"
)

// Catalog bundles the rating matrix with models trained on it. It is built once and shared by
// concurrent requests without locks.
type Catalog struct {
	Matrix *dataset.RatingMatrix
	NMF    *nmf.NMF
	KNN    *knn.KNN
}

// NewCatalog checks that both models were trained on the columns of the matrix.
func NewCatalog(matrix *dataset.RatingMatrix, factorization *nmf.NMF, neighbors *knn.KNN) (*Catalog, error) {
	if matrix == nil {
		return nil, errors.NotAssignedf("rating matrix")
	}
	if factorization.Invalid() {
		return nil, model.NewModelError("nmf", "model is not fitted")
	}
	if neighbors.Invalid() {
		return nil, model.NewModelError("knn", "model is not fitted")
	}
	if !slices.Equal(matrix.MovieIds(), factorization.MovieIds) {
		return nil, model.NewModelError("nmf", "movies of the model do not match the rating matrix")
	}
	if !slices.Equal(matrix.MovieIds(), neighbors.MovieIds) {
		return nil, model.NewModelError("knn", "movies of the model do not match the rating matrix")
	}
	return &Catalog{Matrix: matrix, NMF: factorization, KNN: neighbors}, nil
}
