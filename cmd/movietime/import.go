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

package main

import (
	"context"
	"os"
	"time"

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCommand = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import movies.csv, ratings.csv and links.csv into the data store.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start := time.Now()
		source := data.NewCSV(args[0])
		if err := source.Init(); err != nil {
			log.Logger().Fatal("failed to open csv files", zap.Error(err))
		}
		destination, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to open data store", zap.Error(err))
		}
		defer func() {
			if err := destination.Close(); err != nil {
				log.Logger().Error("failed to close data store", zap.Error(err))
			}
		}()
		if err = destination.Init(); err != nil {
			log.Logger().Fatal("failed to init data store", zap.Error(err))
		}
		if purge, _ := cmd.Flags().GetBool("purge"); purge {
			if err = destination.Purge(); err != nil {
				log.Logger().Fatal("failed to purge data store", zap.Error(err))
			}
		}
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		quiet, _ := cmd.Flags().GetBool("quiet")
		if err = importAll(cmd.Context(), source, destination, batchSize, !quiet); err != nil {
			log.Logger().Fatal("failed to import", zap.Error(err))
		}
		log.Logger().Info("import complete", zap.Duration("used_time", time.Since(start)))
	},
}

func init() {
	importCommand.Flags().Int("batch-size", 10000, "number of records inserted per batch")
	importCommand.Flags().Bool("purge", false, "remove existing records before import")
}

// importAll copies movies, links and ratings in batches.
func importAll(ctx context.Context, source, destination data.Database, batchSize int, showProgress bool) error {
	if batchSize <= 0 {
		return errors.NotValidf("batch size %d", batchSize)
	}
	movies, ratings, links, err := data.LoadAll(ctx, source)
	if err != nil {
		return errors.Trace(err)
	}
	if err = importBatches("movies", movies, batchSize, showProgress, func(batch []dataset.Movie) error {
		return destination.BatchInsertMovies(ctx, batch)
	}); err != nil {
		return errors.Trace(err)
	}
	if err = importBatches("links", links, batchSize, showProgress, func(batch []dataset.Link) error {
		return destination.BatchInsertLinks(ctx, batch)
	}); err != nil {
		return errors.Trace(err)
	}
	if err = importBatches("ratings", ratings, batchSize, showProgress, func(batch []dataset.Rating) error {
		return destination.BatchInsertRatings(ctx, batch)
	}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func importBatches[T any](name string, records []T, batchSize int, showProgress bool, insert func([]T) error) error {
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(name),
			progressbar.OptionShowCount())
		defer func() { _ = bar.Finish() }()
	}
	for _, batch := range lo.Chunk(records, batchSize) {
		if err := insert(batch); err != nil {
			return errors.Annotatef(err, "import %s", name)
		}
		if bar != nil {
			_ = bar.Add(len(batch))
		}
	}
	log.Logger().Info("import records", zap.String("table", name), zap.Int("n", len(records)))
	return nil
}
