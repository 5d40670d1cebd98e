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
	"database/sql"

	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLDatabase stores movies, ratings and links in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init creates tables if not exist.
func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	for table, model := range map[string]any{
		d.MoviesTable():  &dataset.Movie{},
		d.RatingsTable(): &dataset.Rating{},
		d.LinksTable():   &dataset.Link{},
	} {
		if err := db.Table(table).AutoMigrate(model); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes all rows.
func (d *SQLDatabase) Purge() error {
	db := d.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true})
	for table, model := range map[string]any{
		d.MoviesTable():  &dataset.Movie{},
		d.RatingsTable(): &dataset.Rating{},
		d.LinksTable():   &dataset.Link{},
	} {
		if err := db.Table(table).Delete(model).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BatchInsertMovies inserts movies or replaces existing movies with the same id.
func (d *SQLDatabase) BatchInsertMovies(ctx context.Context, movies []dataset.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.MoviesTable()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&movies).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&ratings).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertLinks(ctx context.Context, links []dataset.Link) error {
	if len(links) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.LinksTable()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&links).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetMovies(ctx context.Context) ([]dataset.Movie, error) {
	var movies []dataset.Movie
	err := d.gormDB.WithContext(ctx).Table(d.MoviesTable()).Order("movie_id").Find(&movies).Error
	return movies, errors.Trace(err)
}

func (d *SQLDatabase) GetRatings(ctx context.Context) ([]dataset.Rating, error) {
	var ratings []dataset.Rating
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Order("user_id, movie_id").Find(&ratings).Error
	return ratings, errors.Trace(err)
}

func (d *SQLDatabase) GetLinks(ctx context.Context) ([]dataset.Link, error) {
	var links []dataset.Link
	err := d.gormDB.WithContext(ctx).Table(d.LinksTable()).Order("movie_id").Find(&links).Error
	return links, errors.Trace(err)
}
