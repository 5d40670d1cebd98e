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
	"os"
	"os/signal"
	"syscall"

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/server"
	"github.com/gorse-io/movietime/storage/cache"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over REST.",
	Run: func(cmd *cobra.Command, args []string) {
		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			conf.Server.Port = port
		}
		catalog, err := loadCatalog(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load catalog", zap.Error(err))
		}
		cacheClient, err := cache.Open(conf.Database.CacheStore, conf.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to open cache store", zap.Error(err))
		}
		defer func() {
			if err := cacheClient.Close(); err != nil {
				log.Logger().Error("failed to close cache store", zap.Error(err))
			}
		}()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err = server.NewServer(conf, catalog, cacheClient).Serve(ctx); err != nil {
			log.Logger().Fatal("failed to serve", zap.Error(err))
		}
		log.Logger().Info("stop movietime server successfully")
	},
}

func init() {
	serveCommand.Flags().IntP("port", "p", 0, "port of the REST server")
}
