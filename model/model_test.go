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
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestBaseModel(t *testing.T) {
	var a, b BaseModel
	a.SetParams(Params{RandomState: 7})
	b.SetParams(Params{RandomState: int64(7)})
	assert.Equal(t, Params{RandomState: 7}, a.GetParams())
	assert.Equal(t, a.GetRandomGenerator().Int63(), b.GetRandomGenerator().Int63())
}

func TestModelError(t *testing.T) {
	err := NewModelError("nmf", "did not converge after %d epochs", 10)
	assert.EqualError(t, err, "nmf: did not converge after 10 epochs")
	assert.True(t, IsModelError(errors.Trace(err)))
	assert.False(t, IsModelError(errors.New("other")))
}
