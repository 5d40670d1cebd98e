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

package model

import (
	"fmt"

	"github.com/gorse-io/movietime/base"
	"github.com/juju/errors"
)

// Model is the interface for all models. Any model in this package should implement it.
type Model interface {
	// SetParams sets hyper-parameters.
	SetParams(params Params)
	// GetParams returns hyper-parameters.
	GetParams() Params
	// Clear model weights.
	Clear()
	// Invalid returns true if the model has not been trained.
	Invalid() bool
}

// BaseModel must be included by every model. Hyper-parameters and the random generator are
// managed by BaseModel.
type BaseModel struct {
	Params    Params               // Hyper-parameters
	rng       base.RandomGenerator // Random generator
	randState int64                // Random seed
}

// SetParams sets hyper-parameters for the BaseModel model.
func (model *BaseModel) SetParams(params Params) {
	model.Params = params
	model.randState = model.Params.GetInt64(RandomState, 0)
	model.rng = base.NewRandomGenerator(model.randState)
}

// GetParams returns all hyper-parameters.
func (model *BaseModel) GetParams() Params {
	return model.Params
}

func (model *BaseModel) GetRandomGenerator() base.RandomGenerator {
	return model.rng
}

// Score is the score of the movie at a column of the rating matrix.
type Score struct {
	Column int32   `json:"column"`
	Score  float32 `json:"score"`
}

// ModelError means an operation of a trained model failed, e.g. it did not converge.
type ModelError struct {
	Model  string
	Reason string
}

func NewModelError(model, format string, args ...any) *ModelError {
	return &ModelError{Model: model, Reason: fmt.Sprintf(format, args...)}
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %s", e.Model, e.Reason)
}

func IsModelError(err error) bool {
	var target *ModelError
	return errors.As(err, &target)
}

type FitConfig struct {
	Jobs    int
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}
