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

package progress

import (
	"context"
	"sync"
	"time"
)

type listenerKeyType struct{}

var listenerKey = listenerKeyType{}

// Listener receives progress events of long-running jobs such as model fitting.
type Listener interface {
	OnStart(name string, total int)
	OnAdd(name string, n int)
	OnEnd(name string, err error)
}

// WithListener attaches a listener to a context.
func WithListener(ctx context.Context, listener Listener) context.Context {
	return context.WithValue(ctx, listenerKey, listener)
}

// Start a span. Events are forwarded to the listener attached to ctx, if any.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := &Span{name: name, total: total, start: time.Now()}
	if listener, ok := ctx.Value(listenerKey).(Listener); ok {
		span.listener = listener
		listener.OnStart(name, total)
	}
	return ctx, span
}

type Span struct {
	mu       sync.Mutex
	name     string
	total    int
	count    int
	err      error
	start    time.Time
	finish   time.Time
	listener Listener
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	s.count += n
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.OnAdd(s.name, n)
	}
}

func (s *Span) End() {
	s.mu.Lock()
	s.count = s.total
	s.finish = time.Now()
	err := s.err
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.OnEnd(s.name, err)
	}
}

func (s *Span) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Elapsed returns the running time of the span.
func (s *Span) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finish.IsZero() {
		return time.Since(s.start)
	}
	return s.finish.Sub(s.start)
}
