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

package dataset

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

const DefaultMinRatings = 20

// Entry is a non-zero cell of a sparse row or column.
type Entry struct {
	Index int32
	Value float32
}

// CatalogMovie describes the movie at a column of the rating matrix.
type CatalogMovie struct {
	Column     int32
	MovieId    int64
	Title      string
	Genres     []string
	ImdbId     string
	TmdbId     int64
	NumRatings int
	MeanRating float32
}

// RatingMatrix is the users×movies rating matrix. Users and movies are mapped to dense rows and
// columns. It is immutable once built and safe for concurrent readers.
type RatingMatrix struct {
	userIndex    *FreqDict[int64]
	movieIndex   *FreqDict[int64]
	movies       []CatalogMovie
	titleIndex   map[string]int32
	userRatings  [][]Entry
	movieRatings [][]Entry
	dense        [][]float32
}

// Build the rating matrix. Ratings are joined with movies and links on the movie id, movies with
// no more than minRatings ratings are dropped, then movies are assigned to columns by ascending
// movie id and users to rows by first appearance in ratings. A later rating of the same user on
// the same movie replaces an earlier one. Inputs are not modified.
func Build(movies []Movie, ratings []Rating, links []Link, minRatings int) (*RatingMatrix, error) {
	if minRatings < 0 {
		return nil, errors.NotValidf("min ratings %d", minRatings)
	}
	if len(movies) == 0 {
		return nil, NewDataError(nil, "no movies")
	}
	if len(ratings) == 0 {
		return nil, NewDataError(nil, "no ratings")
	}
	// index movies and links
	movieSet := make(map[int64]Movie, len(movies))
	for _, movie := range movies {
		if _, exist := movieSet[movie.MovieId]; exist {
			return nil, NewDataError(nil, "duplicate movie %d", movie.MovieId)
		}
		movieSet[movie.MovieId] = movie
	}
	linkSet := make(map[int64]Link, len(links))
	for _, link := range links {
		if _, exist := linkSet[link.MovieId]; exist {
			return nil, NewDataError(nil, "duplicate link of movie %d", link.MovieId)
		}
		linkSet[link.MovieId] = link
	}
	// join ratings with movies and links, the last rating of a pair wins
	type pair struct {
		userId  int64
		movieId int64
	}
	position := make(map[pair]int)
	joined := make([]Rating, 0, len(ratings))
	for _, rating := range ratings {
		if math32.IsNaN(rating.Rating) || math32.IsInf(rating.Rating, 0) || rating.Rating < 0 {
			return nil, NewDataError(nil, "rating %v of user %d on movie %d", rating.Rating, rating.UserId, rating.MovieId)
		}
		if _, exist := movieSet[rating.MovieId]; !exist {
			continue
		}
		if _, exist := linkSet[rating.MovieId]; !exist {
			continue
		}
		key := pair{rating.UserId, rating.MovieId}
		if i, exist := position[key]; exist {
			joined[i] = rating
			continue
		}
		position[key] = len(joined)
		joined = append(joined, rating)
	}
	// drop unpopular movies
	counts := make(map[int64]int)
	for _, rating := range joined {
		counts[rating.MovieId]++
	}
	movieIds := lo.Filter(lo.Keys(counts), func(movieId int64, _ int) bool {
		return counts[movieId] > minRatings
	})
	if len(movieIds) == 0 {
		return nil, NewDataError(nil, "no movie has more than %d ratings", minRatings)
	}
	slices.Sort(movieIds)

	m := &RatingMatrix{
		userIndex:  NewFreqDict[int64](),
		movieIndex: NewFreqDict[int64](),
		movies:     make([]CatalogMovie, len(movieIds)),
		titleIndex: make(map[string]int32, len(movieIds)),
	}
	for i, movieId := range movieIds {
		column := m.movieIndex.AddNoCount(movieId)
		movie, link := movieSet[movieId], linkSet[movieId]
		m.movies[i] = CatalogMovie{
			Column:  column,
			MovieId: movieId,
			Title:   movie.Title,
			Genres:  slices.Clone(movie.Genres),
			ImdbId:  link.ImdbId,
			TmdbId:  link.TmdbId,
		}
		if _, exist := m.titleIndex[movie.Title]; !exist {
			m.titleIndex[movie.Title] = column
		}
	}
	// fill sparse rows and columns
	m.movieRatings = make([][]Entry, len(movieIds))
	for _, rating := range joined {
		column := m.movieIndex.Id(rating.MovieId)
		if column < 0 {
			continue
		}
		m.movieIndex.Add(rating.MovieId)
		row := m.userIndex.Add(rating.UserId)
		if int(row) == len(m.userRatings) {
			m.userRatings = append(m.userRatings, nil)
		}
		m.userRatings[row] = append(m.userRatings[row], Entry{Index: column, Value: rating.Rating})
		m.movieRatings[column] = append(m.movieRatings[column], Entry{Index: row, Value: rating.Rating})
	}
	for row := range m.userRatings {
		slices.SortFunc(m.userRatings[row], compareEntry)
	}
	for column := range m.movieRatings {
		slices.SortFunc(m.movieRatings[column], compareEntry)
		var sum float32
		for _, entry := range m.movieRatings[column] {
			sum += entry.Value
		}
		m.movies[column].NumRatings = len(m.movieRatings[column])
		m.movies[column].MeanRating = sum / float32(len(m.movieRatings[column]))
	}
	// materialize dense matrix
	m.dense = make([][]float32, len(m.userRatings))
	for row, entries := range m.userRatings {
		m.dense[row] = make([]float32, len(movieIds))
		for _, entry := range entries {
			m.dense[row][entry.Index] = entry.Value
		}
	}
	return m, nil
}

func compareEntry(a, b Entry) int {
	return cmp.Compare(a.Index, b.Index)
}

func (m *RatingMatrix) CountUsers() int {
	return len(m.userRatings)
}

func (m *RatingMatrix) CountMovies() int {
	return len(m.movies)
}

// CountRatings returns the number of non-empty cells.
func (m *RatingMatrix) CountRatings() int {
	n := 0
	for _, entries := range m.userRatings {
		n += len(entries)
	}
	return n
}

func (m *RatingMatrix) UserIndex() *FreqDict[int64] {
	return m.userIndex
}

func (m *RatingMatrix) MovieIndex() *FreqDict[int64] {
	return m.movieIndex
}

// Movie returns the catalog entry at a column.
func (m *RatingMatrix) Movie(column int32) CatalogMovie {
	return m.movies[column]
}

// Movies returns catalog entries ordered by column.
func (m *RatingMatrix) Movies() []CatalogMovie {
	return m.movies
}

// MovieIds returns movie ids ordered by column.
func (m *RatingMatrix) MovieIds() []int64 {
	return m.movieIndex.Values()
}

// Column returns the column of a movie id, or -1 if it is not in the catalog.
func (m *RatingMatrix) Column(movieId int64) int32 {
	return m.movieIndex.Id(movieId)
}

// ColumnByTitle returns the column of a title, or -1 if it is not in the catalog. Duplicated
// titles resolve to the lowest column.
func (m *RatingMatrix) ColumnByTitle(title string) int32 {
	if column, ok := m.titleIndex[title]; ok {
		return column
	}
	return -1
}

// UserRatings returns ratings of a user ordered by column.
func (m *RatingMatrix) UserRatings(row int32) []Entry {
	return m.userRatings[row]
}

// MovieRatings returns ratings of a movie ordered by row.
func (m *RatingMatrix) MovieRatings(column int32) []Entry {
	return m.movieRatings[column]
}

// Dense returns the zero-filled users×movies matrix. Callers must not modify it.
func (m *RatingMatrix) Dense() [][]float32 {
	return m.dense
}

// Mean returns the mean of all cells, zeros included.
func (m *RatingMatrix) Mean() float32 {
	var sum float32
	for _, entries := range m.userRatings {
		for _, entry := range entries {
			sum += entry.Value
		}
	}
	return sum / float32(m.CountUsers()*m.CountMovies())
}

// ResolveTitles maps rated titles to columns. All unknown titles are reported at once.
func (m *RatingMatrix) ResolveTitles(query map[string]float32) (map[int32]float32, error) {
	resolved := make(map[int32]float32, len(query))
	var unknown []string
	for title, rating := range query {
		column := m.ColumnByTitle(title)
		if column < 0 {
			unknown = append(unknown, title)
			continue
		}
		resolved[column] = rating
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, errors.Trace(&UnknownMovieError{Movies: unknown})
	}
	return resolved, nil
}

// ResolveIds maps rated movie ids to columns. All unknown ids are reported at once.
func (m *RatingMatrix) ResolveIds(query map[int64]float32) (map[int32]float32, error) {
	resolved := make(map[int32]float32, len(query))
	var unknown []int64
	for movieId, rating := range query {
		column := m.Column(movieId)
		if column < 0 {
			unknown = append(unknown, movieId)
			continue
		}
		resolved[column] = rating
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, errors.Trace(&UnknownMovieError{Movies: lo.Map(unknown, func(movieId int64, _ int) string {
			return strconv.FormatInt(movieId, 10)
		})})
	}
	return resolved, nil
}

// NewUserVector builds the zero-imputed rating vector of a new user over the catalog.
func (m *RatingMatrix) NewUserVector(query map[int32]float32) []float32 {
	vec := make([]float32, m.CountMovies())
	for column, rating := range query {
		vec[column] = rating
	}
	return vec
}

// FromDense builds a rating matrix from a dense users×movies matrix, zeros being unrated. Movie
// j gets id j+1 and title titles[j], user i gets id i+1. No movie is filtered out.
func FromDense(dense [][]float32, titles []string) (*RatingMatrix, error) {
	movies := make([]Movie, len(titles))
	links := make([]Link, len(titles))
	for j, title := range titles {
		movies[j] = Movie{MovieId: int64(j + 1), Title: title}
		links[j] = Link{MovieId: int64(j + 1), TmdbId: int64(j + 1)}
	}
	var ratings []Rating
	for i, row := range dense {
		if len(row) != len(titles) {
			return nil, NewDataError(nil, "row %d has %d columns, expect %d", i, len(row), len(titles))
		}
		for j, value := range row {
			if value != 0 {
				ratings = append(ratings, Rating{UserId: int64(i + 1), MovieId: int64(j + 1), Rating: value})
			}
		}
	}
	return Build(movies, ratings, links, 0)
}
