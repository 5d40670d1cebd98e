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
	"bytes"
	"context"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type KNNTestSuite struct {
	suite.Suite
	matrix *dataset.RatingMatrix
	model  *KNN
}

func (suite *KNNTestSuite) SetupTest() {
	var err error
	suite.matrix, err = dataset.FromDense([][]float32{
		{5, 4, 1},
		{4, 5, 2},
		{1, 2, 5},
		{2, 1, 4},
	}, []string{"A", "B", "C"})
	suite.NoError(err)
	suite.model = NewKNN(model.Params{model.NNeighbors: 2})
	suite.NoError(suite.model.Fit(context.Background(), suite.matrix, nil))
}

func (suite *KNNTestSuite) TestKneighbors() {
	neighbors, err := suite.model.Kneighbors([]float32{5, 0, 0}, 4)
	suite.NoError(err)
	suite.Equal([]int32{0, 1, 3, 2}, lo.Map(neighbors, func(n Neighbor, _ int) int32 { return n.Row }))
	suite.InDelta(5/math32.Sqrt(42), neighbors[0].Similarity, 1e-5)
	suite.InDelta(4/math32.Sqrt(45), neighbors[1].Similarity, 1e-5)
	suite.InDelta(2/math32.Sqrt(21), neighbors[2].Similarity, 1e-5)
	suite.InDelta(1/math32.Sqrt(30), neighbors[3].Similarity, 1e-5)
	for _, neighbor := range neighbors {
		suite.InDelta(1-neighbor.Distance, neighbor.Similarity, 1e-6)
	}
	_, err = suite.model.Kneighbors([]float32{5, 0}, 4)
	suite.Error(err)
}

func (suite *KNNTestSuite) TestScore() {
	scores, used, err := suite.model.Score(map[int32]float32{0: 5}, 2)
	suite.NoError(err)
	suite.Equal(2, used)
	suite.Len(scores, 2)
	simA, simB := 5/math32.Sqrt(42), 4/math32.Sqrt(45)
	suite.Equal(int32(1), scores[0].Column)
	suite.InDelta(simA*4+simB*5, scores[0].Score, 1e-5)
	suite.Equal(int32(2), scores[1].Column)
	suite.InDelta(simA*1+simB*2, scores[1].Score, 1e-5)

	// default number of neighbors
	defaultScores, used, err := suite.model.Score(map[int32]float32{0: 5}, 0)
	suite.NoError(err)
	suite.Equal(2, used)
	suite.Equal(scores, defaultScores)

	// out of range column
	_, _, err = suite.model.Score(map[int32]float32{3: 5}, 2)
	suite.Error(err)
}

func (suite *KNNTestSuite) TestScoreClamp() {
	scores, used, err := suite.model.Score(map[int32]float32{0: 5}, 10)
	suite.NoError(err)
	suite.Equal(4, used)
	suite.Len(scores, 2)
}

func (suite *KNNTestSuite) TestScoreDeterministic() {
	expected, _, err := suite.model.Score(map[int32]float32{1: 3}, 3)
	suite.NoError(err)
	for i := 0; i < 10; i++ {
		suite.model.SetJobs(4)
		actual, _, err := suite.model.Score(map[int32]float32{1: 3}, 3)
		suite.NoError(err)
		suite.Equal(expected, actual)
	}
}

func (suite *KNNTestSuite) TestMarshal() {
	buf := bytes.NewBuffer(nil)
	suite.NoError(suite.model.Marshal(buf))
	copied := new(KNN)
	suite.NoError(copied.Unmarshal(buf))
	suite.Equal(suite.model.GetParams(), copied.GetParams())
	suite.Equal([]int64{1, 2, 3}, copied.MovieIds)
	suite.Equal([]int64{1, 2, 3, 4}, copied.UserIds)
	expected, _, err := suite.model.Score(map[int32]float32{2: 4}, 3)
	suite.NoError(err)
	actual, _, err := copied.Score(map[int32]float32{2: 4}, 3)
	suite.NoError(err)
	suite.Equal(expected, actual)
}

func TestKNN(t *testing.T) {
	suite.Run(t, new(KNNTestSuite))
}

func TestKNN_TieBreak(t *testing.T) {
	// rows 1 and 2 are identical
	m, err := dataset.FromDense([][]float32{
		{5, 1, 1},
		{1, 1, 2},
		{1, 1, 2},
		{0, 1, 5},
	}, []string{"A", "B", "C"})
	assert.NoError(t, err)
	k := NewKNN(nil)
	assert.NoError(t, k.Fit(context.Background(), m, model.NewFitConfig().SetJobs(4)))
	neighbors, err := k.Kneighbors([]float32{1, 1, 2}, 2)
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, lo.Map(neighbors, func(n Neighbor, _ int) int32 { return n.Row }))
}

func TestKNN_Euclidean(t *testing.T) {
	m, err := dataset.FromDense([][]float32{{3, 4}, {1, 1}}, []string{"A", "B"})
	assert.NoError(t, err)
	k := NewKNN(model.Params{model.Metric: MetricEuclidean})
	assert.NoError(t, k.Fit(context.Background(), m, nil))
	neighbors, err := k.Kneighbors([]float32{0, 0}, 2)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), neighbors[0].Row)
	assert.InDelta(t, 1/(1+math32.Sqrt(2)), neighbors[0].Similarity, 1e-6)
	assert.InDelta(t, float32(1.0/6), neighbors[1].Similarity, 1e-6)
}

func TestKNN_UnknownMetric(t *testing.T) {
	m, err := dataset.FromDense([][]float32{{3, 4}}, []string{"A", "B"})
	assert.NoError(t, err)
	k := NewKNN(model.Params{model.Metric: "pearson"})
	assert.Error(t, k.Fit(context.Background(), m, nil))
}

func TestKNN_NotFitted(t *testing.T) {
	k := NewKNN(nil)
	assert.True(t, k.Invalid())
	_, _, err := k.Score(map[int32]float32{0: 1}, 1)
	assert.True(t, model.IsModelError(err))
	assert.True(t, model.IsModelError(k.Marshal(bytes.NewBuffer(nil))))
}
