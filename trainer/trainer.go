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

package trainer

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gorse-io/movietime/base/encoding"
	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/base/progress"
	"github.com/gorse-io/movietime/config"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/logics"
	"github.com/gorse-io/movietime/model"
	"github.com/gorse-io/movietime/model/knn"
	"github.com/gorse-io/movietime/model/nmf"
	"github.com/gorse-io/movietime/storage/blob"
	"github.com/gorse-io/movietime/storage/data"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	NMFFile = "nmf.bin"
	KNNFile = "knn.bin"
)

type marshaler interface {
	Marshal(w io.Writer) error
}

// Trainer fits models on the rating matrix and keeps them in a blob store.
type Trainer struct {
	config *config.Config
	data   data.Database
	blob   blob.Store
}

func NewTrainer(cfg *config.Config, database data.Database, store blob.Store) *Trainer {
	return &Trainer{config: cfg, data: database, blob: store}
}

// LoadMatrix reads movies, ratings and links from the data store and builds the rating matrix.
func (t *Trainer) LoadMatrix(ctx context.Context) (*dataset.RatingMatrix, error) {
	start := time.Now()
	_, span := progress.Start(ctx, "LoadMatrix", 2)
	defer span.End()
	movies, ratings, links, err := data.LoadAll(ctx, t.data)
	if err != nil {
		span.Error(err)
		return nil, errors.Trace(err)
	}
	span.Add(1)
	matrix, err := dataset.Build(movies, ratings, links, t.config.Dataset.MinRatings)
	if err != nil {
		span.Error(err)
		return nil, errors.Trace(err)
	}
	span.Add(1)
	LoadMatrixSeconds.Set(time.Since(start).Seconds())
	log.Logger().Info("load rating matrix complete",
		zap.Int("n_movies", len(movies)),
		zap.Int("n_ratings", len(ratings)),
		zap.Int("n_catalog_movies", matrix.CountMovies()),
		zap.Int("n_users", matrix.CountUsers()),
		zap.Int("min_ratings", t.config.Dataset.MinRatings),
		zap.Duration("used_time", time.Since(start)))
	return matrix, nil
}

// Train loads the rating matrix, fits both models and writes them to the blob store.
func (t *Trainer) Train(ctx context.Context) (*logics.Catalog, error) {
	matrix, err := t.LoadMatrix(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}

	start := time.Now()
	factorization := nmf.NewNMF(model.Params{
		model.NFactors:        t.config.NMF.NFactors,
		model.NEpochs:         t.config.NMF.NEpochs,
		model.TransformEpochs: t.config.NMF.TransformEpochs,
		model.Tol:             t.config.NMF.Tol,
		model.RandomState:     t.config.NMF.RandomState,
	})
	if err = factorization.Fit(ctx, matrix, model.NewFitConfig().
		SetJobs(t.config.NMF.Jobs).
		SetVerbose(t.config.NMF.Verbose)); err != nil {
		return nil, errors.Trace(err)
	}
	FitSeconds.WithLabelValues("nmf").Set(time.Since(start).Seconds())
	FitLoss.Set(float64(factorization.Loss))

	start = time.Now()
	neighbors := knn.NewKNN(model.Params{
		model.Metric:     t.config.Neighbors.Metric,
		model.NNeighbors: t.config.Neighbors.NNeighbors,
	})
	if err = neighbors.Fit(ctx, matrix, model.NewFitConfig().SetJobs(t.config.Neighbors.Jobs)); err != nil {
		return nil, errors.Trace(err)
	}
	FitSeconds.WithLabelValues("knn").Set(time.Since(start).Seconds())

	if err = t.write(NMFFile, "nmf", factorization); err != nil {
		return nil, errors.Trace(err)
	}
	if err = t.write(KNNFile, "knn", neighbors); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("train complete",
		zap.Float32("nmf_loss", factorization.Loss),
		zap.Int("n_movies", matrix.CountMovies()),
		zap.Int("n_users", matrix.CountUsers()))
	return logics.NewCatalog(matrix, factorization, neighbors)
}

// LoadCatalog rebuilds the rating matrix and reads trained models from the blob store. Models
// trained on different movies are rejected with a ModelError.
func (t *Trainer) LoadCatalog(ctx context.Context) (*logics.Catalog, error) {
	matrix, err := t.LoadMatrix(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	factorization := new(nmf.NMF)
	if err = t.read(NMFFile, "nmf", factorization.Unmarshal); err != nil {
		return nil, errors.Trace(err)
	}
	neighbors := new(knn.KNN)
	if err = t.read(KNNFile, "knn", neighbors.Unmarshal); err != nil {
		return nil, errors.Trace(err)
	}
	neighbors.SetJobs(t.config.Neighbors.Jobs)
	catalog, err := logics.NewCatalog(matrix, factorization, neighbors)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load catalog complete",
		zap.Int("n_movies", matrix.CountMovies()),
		zap.Int("n_users", matrix.CountUsers()),
		zap.Any("nmf_params", factorization.GetParams()),
		zap.Any("knn_params", neighbors.GetParams()))
	return catalog, nil
}

// write a model as a single blob. The model is serialized in memory before the blob is created.
func (t *Trainer) write(file, name string, m marshaler) error {
	var buf bytes.Buffer
	if err := encoding.WriteString(&buf, name); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(&buf); err != nil {
		return errors.Trace(err)
	}
	size := buf.Len()
	w, err := t.blob.Create(file)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = buf.WriteTo(w); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("save model", zap.String("file", file), zap.Int("size", size))
	return nil
}

func (t *Trainer) read(file, name string, unmarshal func(r io.Reader) error) error {
	r, err := t.blob.Open(file)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Logger().Warn("failed to close model", zap.String("file", file), zap.Error(err))
		}
	}()
	header, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if header != name {
		return model.NewModelError(name, "%s contains model %q", file, header)
	}
	return errors.Trace(unmarshal(r))
}
