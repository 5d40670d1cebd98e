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
	"context"
	"io"
	"os"
	"sync"

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/base/progress"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// progressBars draws a progress bar for every running span.
type progressBars struct {
	mu     sync.Mutex
	writer io.Writer
	bars   map[string]*progressbar.ProgressBar
}

func newProgressBars(writer io.Writer) *progressBars {
	return &progressBars{writer: writer, bars: make(map[string]*progressbar.ProgressBar)}
}

func (p *progressBars) OnStart(name string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars[name] = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish())
}

func (p *progressBars) OnAdd(name string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bar, ok := p.bars[name]; ok {
		_ = bar.Add(n)
	}
}

func (p *progressBars) OnEnd(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bar, ok := p.bars[name]; ok {
		if err != nil {
			_ = bar.Exit()
			log.Logger().Error("task failed", zap.String("task", name), zap.Error(err))
		} else {
			_ = bar.Finish()
		}
		delete(p.bars, name)
	}
}

// withProgress attaches progress bars to the command context unless disabled.
func withProgress(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return ctx
	}
	return progress.WithListener(ctx, newProgressBars(os.Stderr))
}
