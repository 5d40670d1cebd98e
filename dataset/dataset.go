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
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// Movie is a row of the movie table.
type Movie struct {
	MovieId int64    `json:"movie_id" gorm:"primaryKey;autoIncrement:false" bson:"_id"`
	Title   string   `json:"title" bson:"title"`
	Genres  []string `json:"genres" gorm:"serializer:json" bson:"genres"`
}

// Rating is a row of the rating table.
type Rating struct {
	UserId    int64   `json:"user_id" gorm:"primaryKey;autoIncrement:false" bson:"user_id"`
	MovieId   int64   `json:"movie_id" gorm:"primaryKey;autoIncrement:false" bson:"movie_id"`
	Rating    float32 `json:"rating" bson:"rating"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"`
}

// Link maps a movie to its ids in external metadata services.
type Link struct {
	MovieId int64  `json:"movie_id" gorm:"primaryKey;autoIncrement:false" bson:"_id"`
	ImdbId  string `json:"imdb_id" bson:"imdb_id"`
	TmdbId  int64  `json:"tmdb_id" bson:"tmdb_id"`
}

// DataError means the source data is malformed or missing. It is not retried.
type DataError struct {
	Reason string
	Err    error
}

func NewDataError(err error, format string, args ...any) *DataError {
	return &DataError{Reason: fmt.Sprintf(format, args...), Err: err}
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid data: %s: %v", e.Reason, e.Err)
	}
	return "invalid data: " + e.Reason
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func IsDataError(err error) bool {
	var target *DataError
	return errors.As(err, &target)
}

// UnknownMovieError means a query references movies that are not in the catalog.
type UnknownMovieError struct {
	Movies []string
}

func (e *UnknownMovieError) Error() string {
	return fmt.Sprintf("unknown movies: %s", strings.Join(e.Movies, ", "))
}

func IsUnknownMovieError(err error) bool {
	var target *UnknownMovieError
	return errors.As(err, &target)
}
