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

package floats

import (
	"github.com/chewxy/math32"
)

// MatZero fills zeros in a matrix of 32-bit floats.
func MatZero(x [][]float32) {
	for i := range x {
		Zero(x[i])
	}
}

// Zero fills zeros in a slice of 32-bit floats.
func Zero(a []float32) {
	for i := range a {
		a[i] = 0
	}
}

// Add two vectors: dst = dst + s
func Add(dst, s []float32) {
	if len(dst) != len(s) {
		panic("floats: slice lengths do not match")
	}
	for i := range dst {
		dst[i] += s[i]
	}
}

// MulConst multiplies a vector with a const: dst = dst * c
func MulConst(dst []float32, c float32) {
	for i := range dst {
		dst[i] *= c
	}
}

// MulConstAdd multiplies a vector and a const, then adds to dst: dst = dst + a * c
func MulConstAdd(a []float32, c float32, dst []float32) {
	if len(a) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] += a[i] * c
	}
}

// MulDivTo updates dst in place with the multiplicative rule dst = dst * num / (den + eps).
func MulDivTo(num, den []float32, eps float32, dst []float32) {
	if len(num) != len(den) || len(num) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range dst {
		dst[i] *= num[i] / (den[i] + eps)
	}
}

// MatVec computes dst = v * m where m is a square matrix stored by rows.
func MatVec(m [][]float32, v, dst []float32) {
	if len(m) != len(v) || len(v) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	Zero(dst)
	for i := range m {
		MulConstAdd(m[i], v[i], dst)
	}
}

// Dot two vectors.
func Dot(a, b []float32) (ret float32) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// Norm returns the euclidean length of a vector.
func Norm(a []float32) float32 {
	return math32.Sqrt(Dot(a, a))
}

func Euclidean(a, b []float32) float32 {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	var ret float32
	for i := range a {
		ret += (a[i] - b[i]) * (a[i] - b[i])
	}
	return math32.Sqrt(ret)
}

// Cosine returns the cosine distance 1 - a·b/(|a||b|). A zero vector is at distance 1 from everything.
func Cosine(a, b []float32) float32 {
	normA, normB := Norm(a), Norm(b)
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - Dot(a, b)/(normA*normB)
}

// IsFinite returns false if any element is NaN or infinite.
func IsFinite(a []float32) bool {
	for _, v := range a {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
