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

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/cmd/version"
	"github.com/gorse-io/movietime/config"
	"github.com/gorse-io/movietime/logics"
	"github.com/gorse-io/movietime/storage/blob"
	"github.com/gorse-io/movietime/storage/data"
	"github.com/gorse-io/movietime/trainer"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var conf *config.Config

var rootCommand = &cobra.Command{
	Use:   "movietime",
	Short: "Recommend movies from a few ratings.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		if err := log.SetLogger(cmd.Flags(), debug); err != nil {
			log.Logger().Fatal("failed to setup logger", zap.Error(err))
		}
		otel.SetErrorHandler(log.GetErrorHandler())
		// load config
		configPath, _ := cmd.Flags().GetString("config")
		var err error
		if conf, err = config.LoadConfig(configPath); err != nil {
			log.Logger().Fatal("failed to load config", zap.String("config", configPath), zap.Error(err))
		}
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of movietime.",
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().BoolP("quiet", "q", false, "hide progress bars")
	rootCommand.AddCommand(versionCommand, trainCommand, serveCommand, recommendCommand, importCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

// newTrainer opens the data store and the blob store of the configuration.
func newTrainer() (*trainer.Trainer, func(), error) {
	database, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	store, err := blob.Open(conf.Blob.URI, conf)
	if err != nil {
		_ = database.Close()
		return nil, nil, errors.Trace(err)
	}
	closer := func() {
		if err := database.Close(); err != nil {
			log.Logger().Error("failed to close data store", zap.Error(err))
		}
	}
	return trainer.NewTrainer(conf, database, store), closer, nil
}

// loadCatalog reads trained models and the rating matrix.
func loadCatalog(cmd *cobra.Command) (*logics.Catalog, error) {
	t, closer, err := newTrainer()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer closer()
	return t.LoadCatalog(withProgress(cmd))
}
