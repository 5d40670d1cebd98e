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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend movies for ratings given on the command line.",
	Example: `  movietime recommend -r "Toy Story (1995)=5" -r "Heat (1995)=3" --strategy mix -n 5
  movietime recommend -m 1=5 --filter '"Comedy" in movie.Genres'`,
	Run: func(cmd *cobra.Command, args []string) {
		titles, _ := cmd.Flags().GetStringArray("rating")
		ids, _ := cmd.Flags().GetStringArray("movie")
		byTitle, err := parseTitleRatings(titles)
		if err != nil {
			log.Logger().Fatal("invalid rating", zap.Error(err))
		}
		byId, err := parseIdRatings(ids)
		if err != nil {
			log.Logger().Fatal("invalid rating", zap.Error(err))
		}
		catalog, err := loadCatalog(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load catalog", zap.Error(err))
		}

		// build request
		req := logics.Request{}
		if req.Query, err = catalog.Matrix.ResolveTitles(byTitle); err != nil {
			log.Logger().Fatal("failed to resolve movies", zap.Error(err))
		}
		resolved, err := catalog.Matrix.ResolveIds(byId)
		if err != nil {
			log.Logger().Fatal("failed to resolve movies", zap.Error(err))
		}
		for column, rating := range resolved {
			req.Query[column] = rating
		}
		strategy, _ := cmd.Flags().GetString("strategy")
		if req.Strategy, err = logics.ParseStrategy(strategy); err != nil {
			log.Logger().Fatal("invalid strategy", zap.Error(err))
		}
		req.K, _ = cmd.Flags().GetInt("n")
		if req.K == 0 {
			req.K = conf.Recommend.DefaultN
		}
		req.NumNeighbors, _ = cmd.Flags().GetInt("neighbors")
		if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
			if req.Filter, err = logics.NewFilter(filter); err != nil {
				log.Logger().Fatal("invalid filter", zap.Error(err))
			}
		}

		recommender := logics.NewRecommender(catalog, logics.Combination(conf.Recommend.Combination), conf.Neighbors.NNeighbors)
		result, err := recommender.Recommend(cmd.Context(), req)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		for _, warning := range result.Warnings {
			log.Logger().Warn(warning)
		}
		if err = printItems(os.Stdout, result.Items); err != nil {
			log.Logger().Fatal("failed to print recommendation", zap.Error(err))
		}
	},
}

func init() {
	recommendCommand.Flags().StringArrayP("rating", "r", nil, "rating of a movie title, e.g. \"Heat (1995)=4\"")
	recommendCommand.Flags().StringArrayP("movie", "m", nil, "rating of a movie id, e.g. 6=4")
	recommendCommand.Flags().StringP("strategy", "s", string(logics.Mix), "factorization, neighborhood or mix")
	recommendCommand.Flags().IntP("n", "n", 0, "number of recommended movies")
	recommendCommand.Flags().Int("neighbors", 0, "number of neighbors of the neighborhood model")
	recommendCommand.Flags().String("filter", "", "expression over movie that candidates must satisfy")
}

// splitRating splits "name=rating" at the last "=".
func splitRating(s string) (string, float32, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return "", 0, errors.NotValidf("rating %q", s)
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 32)
	if err != nil {
		return "", 0, errors.NewNotValid(err, fmt.Sprintf("rating %q", s))
	}
	return strings.TrimSpace(s[:i]), float32(rating), nil
}

func parseTitleRatings(values []string) (map[string]float32, error) {
	ratings := make(map[string]float32, len(values))
	for _, value := range values {
		title, rating, err := splitRating(value)
		if err != nil {
			return nil, errors.Trace(err)
		}
		ratings[title] = rating
	}
	return ratings, nil
}

func parseIdRatings(values []string) (map[int64]float32, error) {
	ratings := make(map[int64]float32, len(values))
	for _, value := range values {
		name, rating, err := splitRating(value)
		if err != nil {
			return nil, errors.Trace(err)
		}
		movieId, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, errors.NewNotValid(err, fmt.Sprintf("movie id %q", name))
		}
		ratings[movieId] = rating
	}
	return ratings, nil
}

func printItems(w io.Writer, items []logics.Item) error {
	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Movie ID", "Title", "Genres", "TMDB ID", "Score")
	for i, item := range items {
		if err := table.Append(
			strconv.Itoa(i+1),
			strconv.FormatInt(item.MovieId, 10),
			item.Title,
			strings.Join(item.Genres, "|"),
			strconv.FormatInt(item.TmdbId, 10),
			strconv.FormatFloat(float64(item.Score), 'f', 4, 32),
		); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
