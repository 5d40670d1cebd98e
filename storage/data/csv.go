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
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	MoviesFile  = "movies.csv"
	RatingsFile = "ratings.csv"
	LinksFile   = "links.csv"

	noGenres = "(no genres listed)"
)

// CSV reads movies.csv, ratings.csv and links.csv in the MovieLens layout from a directory.
// It is read only.
type CSV struct {
	dir string
}

func NewCSV(dir string) *CSV {
	return &CSV{dir: dir}
}

// Init checks that the directory exists.
func (c *CSV) Init() error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return dataset.NewDataError(err, "open %s", c.dir)
	}
	if !info.IsDir() {
		return dataset.NewDataError(nil, "%s is not a directory", c.dir)
	}
	return nil
}

func (c *CSV) Close() error {
	return nil
}

func (c *CSV) Purge() error {
	return ErrReadOnly
}

func (c *CSV) BatchInsertMovies(context.Context, []dataset.Movie) error {
	return ErrReadOnly
}

func (c *CSV) BatchInsertRatings(context.Context, []dataset.Rating) error {
	return ErrReadOnly
}

func (c *CSV) BatchInsertLinks(context.Context, []dataset.Link) error {
	return ErrReadOnly
}

func (c *CSV) GetMovies(ctx context.Context) ([]dataset.Movie, error) {
	var movies []dataset.Movie
	err := c.read(ctx, MoviesFile, []string{"movieId", "title", "genres"}, func(fields []string) error {
		movieId, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return errors.Trace(err)
		}
		var genres []string
		if fields[2] != "" && fields[2] != noGenres {
			genres = strings.Split(fields[2], "|")
		}
		movies = append(movies, dataset.Movie{MovieId: movieId, Title: fields[1], Genres: genres})
		return nil
	})
	return movies, err
}

func (c *CSV) GetRatings(ctx context.Context) ([]dataset.Rating, error) {
	var ratings []dataset.Rating
	err := c.read(ctx, RatingsFile, []string{"userId", "movieId", "rating", "timestamp"}, func(fields []string) error {
		var (
			rating dataset.Rating
			err    error
		)
		if rating.UserId, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
			return errors.Trace(err)
		}
		if rating.MovieId, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
			return errors.Trace(err)
		}
		value, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return errors.Trace(err)
		}
		rating.Rating = float32(value)
		if rating.Timestamp, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
			return errors.Trace(err)
		}
		ratings = append(ratings, rating)
		return nil
	})
	return ratings, err
}

func (c *CSV) GetLinks(ctx context.Context) ([]dataset.Link, error) {
	var links []dataset.Link
	err := c.read(ctx, LinksFile, []string{"movieId", "imdbId", "tmdbId"}, func(fields []string) error {
		movieId, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return errors.Trace(err)
		}
		link := dataset.Link{MovieId: movieId, ImdbId: fields[1]}
		// some movies have no tmdb id
		if fields[2] != "" {
			if link.TmdbId, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
				return errors.Trace(err)
			}
		}
		links = append(links, link)
		return nil
	})
	return links, err
}

// read a csv file with a header. Fields passed to parse are ordered as columns.
func (c *CSV) read(ctx context.Context, name string, columns []string, parse func(fields []string) error) error {
	path := filepath.Join(c.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return dataset.NewDataError(err, "open %s", path)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Logger().Warn("failed to close file", zap.String("file", path), zap.Error(err))
		}
	}()
	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		return dataset.NewDataError(err, "read header of %s", path)
	}
	positions := make(map[string]int, len(header))
	for i, column := range header {
		positions[strings.TrimSpace(strings.TrimPrefix(column, "\ufeff"))] = i
	}
	indices := make([]int, len(columns))
	for i, column := range columns {
		position, ok := positions[column]
		if !ok {
			return dataset.NewDataError(nil, "column %s not found in %s", column, path)
		}
		indices[i] = position
	}
	fields := make([]string, len(columns))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.NewDataError(err, "read %s", path)
		}
		line, _ := reader.FieldPos(0)
		if line%10000 == 0 {
			if err = ctx.Err(); err != nil {
				return errors.Trace(err)
			}
		}
		for i, index := range indices {
			fields[i] = strings.TrimSpace(record[index])
		}
		if err = parse(fields); err != nil {
			return dataset.NewDataError(err, "parse line %d of %s", line, path)
		}
	}
	return nil
}
