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

package data

import (
	"context"

	"github.com/gorse-io/movietime/dataset"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) TearDownSuite() {
	err := suite.Database.Close()
	suite.NoError(err)
}

func (suite *baseTestSuite) SetupTest() {
	err := suite.Database.Init()
	suite.NoError(err)
	err = suite.Database.Purge()
	suite.NoError(err)
}

func (suite *baseTestSuite) TearDownTest() {
	err := suite.Database.Purge()
	suite.NoError(err)
}

func (suite *baseTestSuite) TestInit() {
	// init twice
	suite.NoError(suite.Database.Init())
}

func (suite *baseTestSuite) TestMovies() {
	ctx := context.Background()
	err := suite.Database.BatchInsertMovies(ctx, []dataset.Movie{
		{MovieId: 2, Title: "Jumanji (1995)", Genres: []string{"Adventure", "Children", "Fantasy"}},
		{MovieId: 1, Title: "Toy Story (1995)", Genres: []string{"Adventure", "Animation"}},
	})
	suite.NoError(err)
	// overwrite
	err = suite.Database.BatchInsertMovies(ctx, []dataset.Movie{
		{MovieId: 1, Title: "Toy Story (1995)", Genres: []string{"Adventure", "Animation", "Children"}},
		{MovieId: 3, Title: "Grumpier Old Men (1995)", Genres: []string{}},
	})
	suite.NoError(err)
	movies, err := suite.Database.GetMovies(ctx)
	suite.NoError(err)
	if suite.Len(movies, 3) {
		suite.Equal(dataset.Movie{MovieId: 1, Title: "Toy Story (1995)", Genres: []string{"Adventure", "Animation", "Children"}}, movies[0])
		suite.Equal(dataset.Movie{MovieId: 2, Title: "Jumanji (1995)", Genres: []string{"Adventure", "Children", "Fantasy"}}, movies[1])
		suite.Equal(int64(3), movies[2].MovieId)
		suite.Empty(movies[2].Genres)
	}
	// insert nothing
	suite.NoError(suite.Database.BatchInsertMovies(ctx, nil))
}

func (suite *baseTestSuite) TestRatings() {
	ctx := context.Background()
	err := suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 2, MovieId: 1, Rating: 3, Timestamp: 964982703},
		{UserId: 1, MovieId: 3, Rating: 4, Timestamp: 964981247},
		{UserId: 1, MovieId: 1, Rating: 4, Timestamp: 964982224},
	})
	suite.NoError(err)
	err = suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 1, MovieId: 1, Rating: 4.5, Timestamp: 964983000},
	})
	suite.NoError(err)
	ratings, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Equal([]dataset.Rating{
		{UserId: 1, MovieId: 1, Rating: 4.5, Timestamp: 964983000},
		{UserId: 1, MovieId: 3, Rating: 4, Timestamp: 964981247},
		{UserId: 2, MovieId: 1, Rating: 3, Timestamp: 964982703},
	}, ratings)
}

func (suite *baseTestSuite) TestLinks() {
	ctx := context.Background()
	err := suite.Database.BatchInsertLinks(ctx, []dataset.Link{
		{MovieId: 2, ImdbId: "0113497", TmdbId: 8844},
		{MovieId: 1, ImdbId: "0114709", TmdbId: 862},
	})
	suite.NoError(err)
	links, err := suite.Database.GetLinks(ctx)
	suite.NoError(err)
	suite.Equal([]dataset.Link{
		{MovieId: 1, ImdbId: "0114709", TmdbId: 862},
		{MovieId: 2, ImdbId: "0113497", TmdbId: 8844},
	}, links)
}

func (suite *baseTestSuite) TestLoadAll() {
	ctx := context.Background()
	suite.NoError(suite.Database.BatchInsertMovies(ctx, []dataset.Movie{{MovieId: 1, Title: "Toy Story (1995)"}}))
	suite.NoError(suite.Database.BatchInsertRatings(ctx, []dataset.Rating{{UserId: 1, MovieId: 1, Rating: 4}}))
	suite.NoError(suite.Database.BatchInsertLinks(ctx, []dataset.Link{{MovieId: 1, ImdbId: "0114709", TmdbId: 862}}))
	movies, ratings, links, err := LoadAll(ctx, suite.Database)
	suite.NoError(err)
	suite.Len(movies, 1)
	suite.Len(ratings, 1)
	suite.Len(links, 1)
}
