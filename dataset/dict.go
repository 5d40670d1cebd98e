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

package dataset

// FreqDict maps raw ids to dense indices in order of first insertion and counts how many times
// each id has been seen.
type FreqDict[T comparable] struct {
	si  map[T]int32
	is  []T
	cnt []int32
}

func NewFreqDict[T comparable]() *FreqDict[T] {
	return &FreqDict[T]{si: map[T]int32{}}
}

func (d *FreqDict[T]) Count() int32 {
	return int32(len(d.is))
}

// Add returns the index of s and increases its frequency. Unseen values get the next index.
func (d *FreqDict[T]) Add(s T) (y int32) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}
	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// AddNoCount returns the index of s without increasing its frequency.
func (d *FreqDict[T]) AddNoCount(s T) (y int32) {
	if y, ok := d.si[s]; ok {
		return y
	}
	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 0)
	return
}

// Id returns the index of s, or -1 if s has never been added.
func (d *FreqDict[T]) Id(s T) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	return -1
}

func (d *FreqDict[T]) Value(id int32) (s T, ok bool) {
	if id < 0 || id >= int32(len(d.is)) {
		return s, false
	}
	return d.is[id], true
}

func (d *FreqDict[T]) Freq(id int32) int32 {
	if id < 0 || id >= int32(len(d.cnt)) {
		return 0
	}
	return d.cnt[id]
}

// Values returns all values ordered by index.
func (d *FreqDict[T]) Values() []T {
	return d.is
}
