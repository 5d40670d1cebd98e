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

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/config"
	"github.com/gorse-io/movietime/logics"
	"github.com/gorse-io/movietime/storage/cache"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

const (
	apiDocsPath = "/apidocs/"
	apiSpecPath = "/apidocs.json"
)

// Server serves recommendations from a trained catalog over REST.
type Server struct {
	Config      *config.Config
	CacheClient cache.Database
	Recommender *logics.Recommender
	WebService  *restful.WebService
	container   *restful.Container
}

func NewServer(cfg *config.Config, catalog *logics.Catalog, cacheClient cache.Database) *Server {
	s := &Server{
		Config:      cfg,
		CacheClient: cacheClient,
		Recommender: logics.NewRecommender(catalog, logics.Combination(cfg.Recommend.Combination), cfg.Neighbors.NNeighbors),
		WebService:  new(restful.WebService),
		container:   restful.NewContainer(),
	}
	s.CreateWebService()
	s.container.Filter(otelrestful.OTelFilter("movietime"))
	s.container.Add(s.WebService)
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices: s.container.RegisteredWebServices(),
		APIPath:     apiSpecPath,
	}
	s.container.Add(restfulspec.NewOpenAPIService(specConfig))
	s.container.Handle(apiDocsPath, v5emb.New("movietime", apiSpecPath, apiDocsPath))
	// register prometheus
	s.container.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler returns the HTTP handler of all routes.
func (s *Server) Handler() http.Handler {
	return s.container
}

// Serve listens on the configured address until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.container,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Logger().Error("failed to shutdown http server", zap.Error(err))
		}
	}()
	log.Logger().Info("start http server", zap.String("url", fmt.Sprintf("http://%s", addr)))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	<-stopped
	return nil
}
