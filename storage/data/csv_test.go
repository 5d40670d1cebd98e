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
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/storage"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, dir, name, content string) {
	assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MoviesFile, "movieId,title,genres\n"+
		"1,Toy Story (1995),Adventure|Animation|Children|Comedy|Fantasy\n"+
		"2,Jumanji (1995),Adventure|Children|Fantasy\n"+
		"3,\"American President, The (1995)\",Comedy|Drama|Romance\n"+
		"4,Some Movie (2020),(no genres listed)\n")
	writeFile(t, dir, RatingsFile, "userId,movieId,rating,timestamp\n"+
		"1,1,4.0,964982703\n"+
		"1,3,4.5,964981247\n"+
		"2,2,3.0,964982224\n")
	// columns in a different order
	writeFile(t, dir, LinksFile, "movieId,tmdbId,imdbId\n"+
		"1,862,0114709\n"+
		"2,8844,0113497\n"+
		"3,,0112346\n")

	database, err := Open(storage.CSVPrefix+dir, "")
	assert.NoError(t, err)
	assert.NoError(t, database.Init())
	ctx := context.Background()

	movies, err := database.GetMovies(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []dataset.Movie{
		{MovieId: 1, Title: "Toy Story (1995)", Genres: []string{"Adventure", "Animation", "Children", "Comedy", "Fantasy"}},
		{MovieId: 2, Title: "Jumanji (1995)", Genres: []string{"Adventure", "Children", "Fantasy"}},
		{MovieId: 3, Title: "American President, The (1995)", Genres: []string{"Comedy", "Drama", "Romance"}},
		{MovieId: 4, Title: "Some Movie (2020)"},
	}, movies)

	ratings, err := database.GetRatings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []dataset.Rating{
		{UserId: 1, MovieId: 1, Rating: 4, Timestamp: 964982703},
		{UserId: 1, MovieId: 3, Rating: 4.5, Timestamp: 964981247},
		{UserId: 2, MovieId: 2, Rating: 3, Timestamp: 964982224},
	}, ratings)

	links, err := database.GetLinks(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []dataset.Link{
		{MovieId: 1, ImdbId: "0114709", TmdbId: 862},
		{MovieId: 2, ImdbId: "0113497", TmdbId: 8844},
		{MovieId: 3, ImdbId: "0112346"},
	}, links)

	// read only
	assert.True(t, errors.Is(database.BatchInsertMovies(ctx, movies), errors.NotSupported))
	assert.True(t, errors.Is(database.Purge(), errors.NotSupported))
	assert.NoError(t, database.Close())
}

func TestCSVDataError(t *testing.T) {
	ctx := context.Background()

	// missing directory
	database := NewCSV(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, dataset.IsDataError(database.Init()))

	// missing file
	dir := t.TempDir()
	database = NewCSV(dir)
	assert.NoError(t, database.Init())
	_, err := database.GetMovies(ctx)
	assert.True(t, dataset.IsDataError(err))

	// missing column
	writeFile(t, dir, MoviesFile, "movieId,name\n1,Toy Story (1995)\n")
	_, err = database.GetMovies(ctx)
	assert.True(t, dataset.IsDataError(err))
	assert.ErrorContains(t, err, "column title not found")

	// malformed value
	writeFile(t, dir, RatingsFile, "userId,movieId,rating,timestamp\n1,1,4.0,964982703\n1,2,good,964982703\n")
	_, err = database.GetRatings(ctx)
	assert.True(t, dataset.IsDataError(err))
	assert.ErrorContains(t, err, "line 3")

	// wrong number of fields
	writeFile(t, dir, LinksFile, "movieId,imdbId,tmdbId\n1,0114709\n")
	_, err = database.GetLinks(ctx)
	assert.True(t, dataset.IsDataError(err))
}
