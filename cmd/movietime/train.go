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
	"time"

	"github.com/gorse-io/movietime/base/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Fit models on the data store and save them to the blob store.",
	Run: func(cmd *cobra.Command, args []string) {
		start := time.Now()
		t, closer, err := newTrainer()
		if err != nil {
			log.Logger().Fatal("failed to open stores", zap.Error(err))
		}
		defer closer()
		catalog, err := t.Train(withProgress(cmd))
		if err != nil {
			log.Logger().Fatal("failed to train models", zap.Error(err))
		}
		log.Logger().Info("models saved",
			zap.String("blob", conf.Blob.URI),
			zap.Int("n_movies", catalog.Matrix.CountMovies()),
			zap.Float32("nmf_loss", catalog.NMF.Loss),
			zap.Duration("used_time", time.Since(start)))
	},
}
