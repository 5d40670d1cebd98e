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

package blob

import (
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/gorse-io/movietime/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Open a file for reading. A missing file is reported as errors.NotFound.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	fullPath := path.Join(p.dir, name)
	file, err := os.Open(fullPath)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound(err, fullPath)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

// Create a new file for writing. The content is written to a temporary file which replaces the
// target once the writer is closed.
func (p *POSIX) Create(name string) (io.WriteCloser, error) {
	fullPath := path.Join(p.dir, name)
	if err := os.MkdirAll(path.Dir(fullPath), os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	file, err := os.CreateTemp(path.Dir(fullPath), path.Base(fullPath)+".*")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &posixWriter{file: file, target: fullPath}, nil
}

type posixWriter struct {
	file   *os.File
	target string
	err    error
	closed bool
}

func (w *posixWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

// Close the temporary file and move it to the target. The temporary file is removed if any write
// failed or the target can not be replaced.
func (w *posixWriter) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	err := w.file.Close()
	if w.err != nil {
		err = w.err
	}
	if err == nil {
		err = os.Rename(w.file.Name(), w.target)
	}
	if err != nil {
		_ = os.Remove(w.file.Name())
		log.Logger().Error("failed to write model file", zap.String("file", w.target), zap.Error(err))
		w.err = errors.Annotatef(err, "write %s", w.target)
	}
	return w.err
}

func (p *POSIX) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.dir, func(fullPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			name, err := filepath.Rel(p.dir, fullPath)
			if err != nil {
				return err
			}
			names = append(names, filepath.ToSlash(name))
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return names, errors.Trace(err)
}
