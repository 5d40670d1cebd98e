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
	"fmt"
	"slices"

	"github.com/gorse-io/movietime/model"
	"github.com/juju/errors"
)

// DegenerateInputError means all candidate scores are equal so min-max normalization is
// undefined. It carries the unranked candidates.
type DegenerateInputError struct {
	Candidates []model.Score
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("cannot normalize %d candidates with equal scores", len(e.Candidates))
}

func IsDegenerateInputError(err error) bool {
	var target *DegenerateInputError
	return errors.As(err, &target)
}

// Normalize rescales scores to [0, 1] by (v - min) / (max - min). Order is preserved.
func Normalize(scores []model.Score) ([]model.Score, error) {
	if len(scores) == 0 {
		return []model.Score{}, nil
	}
	minScore := slices.MinFunc(scores, compareScore).Score
	maxScore := slices.MaxFunc(scores, compareScore).Score
	if maxScore == minScore {
		return nil, &DegenerateInputError{Candidates: slices.Clone(scores)}
	}
	normalized := make([]model.Score, len(scores))
	for i, score := range scores {
		normalized[i] = model.Score{
			Column: score.Column,
			Score:  (score.Score - minScore) / (maxScore - minScore),
		}
	}
	return normalized, nil
}

func compareScore(a, b model.Score) int {
	return cmp.Compare(a.Score, b.Score)
}

// TopK returns the k highest scores in descending order, ties broken by ascending column. Fewer
// than k scores are returned if there are not enough candidates.
func TopK(scores []model.Score, k int) []model.Score {
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b model.Score) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Column, b.Column)
	})
	if k < 0 {
		k = 0
	}
	return sorted[:min(k, len(sorted))]
}
