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
	"github.com/gorse-io/movietime/storage"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB stores movies, ratings and links in MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	exists := make(map[string]struct{}, len(collections))
	for _, name := range collections {
		exists[name] = struct{}{}
	}
	// create collections
	for _, name := range []string{db.MoviesTable(), db.RatingsTable(), db.LinksTable()} {
		if _, ok := exists[name]; !ok {
			if err = d.CreateCollection(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
	}
	// create index
	_, err = d.Collection(db.RatingsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Trace(err)
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) Purge() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	for _, name := range []string{db.MoviesTable(), db.RatingsTable(), db.LinksTable()} {
		if _, err := d.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) upsert(ctx context.Context, collection string, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(collection)
	_, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertMovies(ctx context.Context, movies []dataset.Movie) error {
	models := make([]mongo.WriteModel, 0, len(movies))
	for _, movie := range movies {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": movie.MovieId}).
			SetReplacement(movie))
	}
	return db.upsert(ctx, db.MoviesTable(), models)
}

func (db *MongoDB) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	models := make([]mongo.WriteModel, 0, len(ratings))
	for _, rating := range ratings {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"user_id": rating.UserId, "movie_id": rating.MovieId}).
			SetReplacement(rating))
	}
	return db.upsert(ctx, db.RatingsTable(), models)
}

func (db *MongoDB) BatchInsertLinks(ctx context.Context, links []dataset.Link) error {
	models := make([]mongo.WriteModel, 0, len(links))
	for _, link := range links {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": link.MovieId}).
			SetReplacement(link))
	}
	return db.upsert(ctx, db.LinksTable(), models)
}

func find[T any](ctx context.Context, c *mongo.Collection, sort bson.D) ([]T, error) {
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Trace(err)
	}
	var results []T
	if err = r.All(ctx, &results); err != nil {
		return nil, errors.Trace(err)
	}
	return results, nil
}

func (db *MongoDB) GetMovies(ctx context.Context) ([]dataset.Movie, error) {
	c := db.client.Database(db.dbName).Collection(db.MoviesTable())
	return find[dataset.Movie](ctx, c, bson.D{{Key: "_id", Value: 1}})
}

func (db *MongoDB) GetRatings(ctx context.Context) ([]dataset.Rating, error) {
	c := db.client.Database(db.dbName).Collection(db.RatingsTable())
	return find[dataset.Rating](ctx, c, bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}})
}

func (db *MongoDB) GetLinks(ctx context.Context) ([]dataset.Link, error) {
	c := db.client.Database(db.dbName).Collection(db.LinksTable())
	return find[dataset.Link](ctx, c, bson.D{{Key: "_id", Value: 1}})
}
