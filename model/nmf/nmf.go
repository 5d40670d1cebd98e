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

package nmf

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/gorse-io/movietime/base"
	"github.com/gorse-io/movietime/base/encoding"
	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/base/progress"
	"github.com/gorse-io/movietime/common/floats"
	"github.com/gorse-io/movietime/common/parallel"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	modelName = "nmf"
	// eps keeps multiplicative updates away from division by zero.
	eps = float32(1.1920929e-07)
)

// NMF is non-negative matrix factorization R ≈ W·Hᵀ trained by multiplicative updates on the
// Frobenius loss. Only the movie factors H are kept after training. A new user is projected
// into the factor space by solving the same problem with H fixed.
type NMF struct {
	model.BaseModel
	MovieIds   []int64
	ItemFactor [][]float32 // movies × factors
	Loss       float32
	gram       [][]float32 // Hᵀ·H
	// Hyper parameters
	nFactors        int
	nEpochs         int
	transformEpochs int
	tol             float32
}

func NewNMF(params model.Params) *NMF {
	n := new(NMF)
	n.SetParams(params)
	return n
}

func (n *NMF) SetParams(params model.Params) {
	n.BaseModel.SetParams(params)
	n.nFactors = n.Params.GetInt(model.NFactors, 20)
	n.nEpochs = n.Params.GetInt(model.NEpochs, 200)
	n.transformEpochs = n.Params.GetInt(model.TransformEpochs, 500)
	n.tol = n.Params.GetFloat32(model.Tol, 1e-4)
}

func (n *NMF) Clear() {
	n.MovieIds = nil
	n.ItemFactor = nil
	n.gram = nil
	n.Loss = 0
}

func (n *NMF) Invalid() bool {
	return n == nil || n.ItemFactor == nil
}

func (n *NMF) NumFactors() int {
	return n.nFactors
}

// Components returns the factors×movies matrix Hᵀ.
func (n *NMF) Components() [][]float32 {
	components := base.NewMatrix32(n.nFactors, len(n.ItemFactor))
	for j, factor := range n.ItemFactor {
		for f, value := range factor {
			components[f][j] = value
		}
	}
	return components
}

// Fit the model on a rating matrix. Unrated cells count as zeros.
func (n *NMF) Fit(ctx context.Context, m *dataset.RatingMatrix, config *model.FitConfig) error {
	if n.nFactors <= 0 {
		return errors.NotValidf("n_factors %d", n.nFactors)
	}
	if config == nil {
		config = model.NewFitConfig()
	}
	jobs := max(config.Jobs, 1)
	verbose := max(config.Verbose, 1)
	nUsers, nMovies := m.CountUsers(), m.CountMovies()
	log.Logger().Info("fit nmf",
		zap.Int("n_users", nUsers),
		zap.Int("n_movies", nMovies),
		zap.Int("n_ratings", m.CountRatings()),
		zap.Any("params", n.GetParams()),
		zap.Any("config", config))

	// Initialize factors with scaled half-normal noise
	scale := math32.Sqrt(m.Mean() / float32(n.nFactors))
	userFactor := n.GetRandomGenerator().HalfNormalMatrix(nUsers, n.nFactors, scale)
	itemFactor := n.GetRandomGenerator().HalfNormalMatrix(nMovies, n.nFactors, scale)
	var sqNorm float64
	for u := 0; u < nUsers; u++ {
		for _, entry := range m.UserRatings(int32(u)) {
			sqNorm += float64(entry.Value) * float64(entry.Value)
		}
	}

	// Create buffers
	num := base.NewMatrix32(jobs, n.nFactors)
	den := base.NewMatrix32(jobs, n.nFactors)
	gram := computeGram(itemFactor, n.nFactors)
	initLoss, err := n.loss(ctx, m, userFactor, itemFactor, gram, sqNorm, jobs)
	if err != nil {
		return errors.Trace(err)
	}
	prevLoss, loss := initLoss, initLoss
	converged := initLoss == 0
	_, span := progress.Start(ctx, "NMF.Fit", n.nEpochs)
	for epoch := 1; epoch <= n.nEpochs && !converged; epoch++ {
		fitStart := time.Now()
		// Update user factors: W ← W ∘ (R·H) / (W·HᵀH)
		if err = parallel.Parallel(ctx, nUsers, jobs, func(workerId, u int) error {
			floats.Zero(num[workerId])
			for _, entry := range m.UserRatings(int32(u)) {
				floats.MulConstAdd(itemFactor[entry.Index], entry.Value, num[workerId])
			}
			floats.MatVec(gram, userFactor[u], den[workerId])
			floats.MulDivTo(num[workerId], den[workerId], eps, userFactor[u])
			return nil
		}); err != nil {
			span.Error(err)
			span.End()
			return errors.Trace(err)
		}
		// Update movie factors: H ← H ∘ (Rᵀ·W) / (H·WᵀW)
		userGram := computeGram(userFactor, n.nFactors)
		if err = parallel.Parallel(ctx, nMovies, jobs, func(workerId, j int) error {
			floats.Zero(num[workerId])
			for _, entry := range m.MovieRatings(int32(j)) {
				floats.MulConstAdd(userFactor[entry.Index], entry.Value, num[workerId])
			}
			floats.MatVec(userGram, itemFactor[j], den[workerId])
			floats.MulDivTo(num[workerId], den[workerId], eps, itemFactor[j])
			return nil
		}); err != nil {
			span.Error(err)
			span.End()
			return errors.Trace(err)
		}
		gram = computeGram(itemFactor, n.nFactors)
		if loss, err = n.loss(ctx, m, userFactor, itemFactor, gram, sqNorm, jobs); err != nil {
			span.Error(err)
			span.End()
			return errors.Trace(err)
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			err = model.NewModelError(modelName, "loss is %v at epoch %d", loss, epoch)
			span.Error(err)
			span.End()
			return errors.Trace(err)
		}
		if epoch%verbose == 0 || epoch == n.nEpochs {
			log.Logger().Info(fmt.Sprintf("fit nmf %v/%v", epoch, n.nEpochs),
				zap.String("fit_time", time.Since(fitStart).String()),
				zap.Float64("loss", loss))
		}
		span.Add(1)
		converged = (prevLoss-loss)/initLoss < float64(n.tol)
		prevLoss = loss
	}
	span.End()
	if !converged {
		log.Logger().Warn("nmf did not converge, increase n_epochs or tol",
			zap.Int("n_epochs", n.nEpochs), zap.Float64("loss", loss))
	}
	n.ItemFactor = itemFactor
	n.gram = gram
	n.MovieIds = slices.Clone(m.MovieIds())
	n.Loss = float32(loss)
	log.Logger().Info("fit nmf complete", zap.Float64("loss", loss), zap.Bool("converged", converged))
	return nil
}

// loss returns ‖R − W·Hᵀ‖² computed from non-zero cells only:
// ‖R‖² − 2·Σ r_uj·(w_u·h_j) + Σ w_u·HᵀH·w_uᵀ.
func (n *NMF) loss(ctx context.Context, m *dataset.RatingMatrix, userFactor, itemFactor, gram [][]float32, sqNorm float64, jobs int) (float64, error) {
	partial := make([]float64, len(userFactor))
	if err := parallel.Parallel(ctx, len(userFactor), jobs, func(_, u int) error {
		var cross float64
		for _, entry := range m.UserRatings(int32(u)) {
			cross += float64(entry.Value) * float64(floats.Dot(userFactor[u], itemFactor[entry.Index]))
		}
		partial[u] = quadratic(gram, userFactor[u]) - 2*cross
		return nil
	}); err != nil {
		return 0, errors.Trace(err)
	}
	// sum in user order regardless of jobs
	loss := sqNorm
	for _, p := range partial {
		loss += p
	}
	return max(loss, 0), nil
}

// Transform projects a zero-imputed rating vector onto the movie factors, returning non-negative
// weights w minimizing ‖x − w·Hᵀ‖.
func (n *NMF) Transform(x []float32) ([]float32, error) {
	if n.Invalid() {
		return nil, model.NewModelError(modelName, "model is not fitted")
	}
	if len(x) != len(n.ItemFactor) {
		return nil, errors.NotValidf("vector of length %d for %d movies", len(x), len(n.ItemFactor))
	}
	// Right-hand side x·H and squared norm of x
	num := make([]float32, n.nFactors)
	var sum, sqNorm float64
	for j, value := range x {
		if value != 0 {
			floats.MulConstAdd(n.ItemFactor[j], value, num)
			sum += float64(value)
			sqNorm += float64(value) * float64(value)
		}
	}
	w := make([]float32, n.nFactors)
	if sum <= 0 {
		return w, nil
	}
	for i := range w {
		w[i] = math32.Sqrt(float32(sum) / float32(len(x)) / float32(n.nFactors))
	}
	loss := func() float64 {
		return sqNorm - 2*float64(floats.Dot(w, num)) + quadratic(n.gram, w)
	}
	den := make([]float32, n.nFactors)
	initLoss := loss()
	prevLoss := initLoss
	for epoch := 1; epoch <= n.transformEpochs; epoch++ {
		floats.MatVec(n.gram, w, den)
		floats.MulDivTo(num, den, eps, w)
		curLoss := loss()
		if !floats.IsFinite(w) || math.IsNaN(curLoss) || math.IsInf(curLoss, 0) {
			return nil, model.NewModelError(modelName, "transform diverged at epoch %d", epoch)
		}
		if initLoss <= 0 || (prevLoss-curLoss)/initLoss < float64(n.tol) {
			return w, nil
		}
		prevLoss = curLoss
	}
	return nil, model.NewModelError(modelName, "transform did not converge after %d epochs", n.transformEpochs)
}

// Score predicts ratings of a new user on every movie that is not in the query. The query maps
// columns to ratings. Scores are ordered by column.
func (n *NMF) Score(query map[int32]float32) ([]model.Score, error) {
	if n.Invalid() {
		return nil, model.NewModelError(modelName, "model is not fitted")
	}
	x := make([]float32, len(n.ItemFactor))
	rated := bitset.New(uint(len(x)))
	for column, rating := range query {
		if column < 0 || int(column) >= len(x) {
			return nil, errors.NotValidf("column %d", column)
		}
		x[column] = rating
		rated.Set(uint(column))
	}
	w, err := n.Transform(x)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores := make([]model.Score, 0, len(x)-len(query))
	for j, factor := range n.ItemFactor {
		if rated.Test(uint(j)) {
			continue
		}
		score := floats.Dot(w, factor)
		if math32.IsNaN(score) || math32.IsInf(score, 0) {
			return nil, model.NewModelError(modelName, "prediction of column %d is %v", j, score)
		}
		scores = append(scores, model.Score{Column: int32(j), Score: score})
	}
	return scores, nil
}

// Marshal model into byte stream.
func (n *NMF) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, n.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, n.MovieIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, n.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return binary.Write(w, binary.LittleEndian, n.Loss)
}

// Unmarshal model from byte stream.
func (n *NMF) Unmarshal(r io.Reader) error {
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	n.SetParams(params)
	if err := encoding.ReadGob(r, &n.MovieIds); err != nil {
		return errors.Trace(err)
	}
	itemFactor, err := encoding.ReadMatrix(r)
	if err != nil {
		return errors.Trace(err)
	}
	if len(itemFactor) != len(n.MovieIds) {
		return model.NewModelError(modelName, "%d factors for %d movies", len(itemFactor), len(n.MovieIds))
	}
	for _, factor := range itemFactor {
		if len(factor) != n.nFactors {
			return model.NewModelError(modelName, "factor of length %d, expect %d", len(factor), n.nFactors)
		}
	}
	if err = binary.Read(r, binary.LittleEndian, &n.Loss); err != nil {
		return errors.Trace(err)
	}
	n.ItemFactor = itemFactor
	n.gram = computeGram(itemFactor, n.nFactors)
	return nil
}

// computeGram returns Aᵀ·A for a matrix stored by rows.
func computeGram(a [][]float32, k int) [][]float32 {
	gram := base.NewMatrix32(k, k)
	for _, row := range a {
		for i, x := range row {
			if x != 0 {
				floats.MulConstAdd(row, x, gram[i])
			}
		}
	}
	return gram
}

// quadratic returns v·G·vᵀ.
func quadratic(gram [][]float32, v []float32) float64 {
	var ret float64
	for i, x := range v {
		if x != 0 {
			ret += float64(x) * float64(floats.Dot(gram[i], v))
		}
	}
	return ret
}
