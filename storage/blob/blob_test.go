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
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/gorse-io/movietime/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestSplitBucket(t *testing.T) {
	bucket, prefix := splitBucket("movietime/models/v1/")
	assert.Equal(t, "movietime", bucket)
	assert.Equal(t, "models/v1", prefix)
	bucket, prefix = splitBucket("movietime")
	assert.Equal(t, "movietime", bucket)
	assert.Empty(t, prefix)
}

func TestOpen(t *testing.T) {
	cfg := config.GetDefaultConfig()
	dir := t.TempDir()

	store, err := Open(dir, cfg)
	assert.NoError(t, err)
	assert.Equal(t, &POSIX{dir: dir}, store)

	store, err = Open("file://"+dir, cfg)
	assert.NoError(t, err)
	assert.Equal(t, &POSIX{dir: dir}, store)

	cfg.S3.Endpoint = "localhost:9000"
	store, err = Open("s3://movietime/models", cfg)
	assert.NoError(t, err)
	if assert.IsType(t, &S3{}, store) {
		assert.Equal(t, "movietime", store.(*S3).bucket)
		assert.Equal(t, "models", store.(*S3).prefix)
	}

	_, err = Open("azblob://movietime/models", cfg)
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = Open("ftp://movietime/models", cfg)
	assert.True(t, errors.Is(err, errors.NotSupported))
}

func TestUpload(t *testing.T) {
	var buf bytes.Buffer
	w := upload("nmf.bin", func(r io.Reader) error {
		_, err := io.Copy(&buf, r)
		return err
	})
	_, err := w.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.Equal(t, "hello", buf.String())
}

func TestUploadFailed(t *testing.T) {
	// the upload fails after reading the first chunk
	w := upload("nmf.bin", func(r io.Reader) error {
		_, err := r.Read(make([]byte, 4))
		if err != nil {
			return err
		}
		return errors.New("connection reset")
	})
	written := make(chan error, 1)
	go func() {
		_, err := w.Write(bytes.Repeat([]byte("x"), 1024))
		if err == nil {
			_, err = w.Write([]byte("y"))
		}
		written <- err
	}()
	select {
	case err := <-written:
		assert.ErrorContains(t, err, "connection reset")
	case <-time.After(10 * time.Second):
		t.Fatal("write blocked after the upload failed")
	}
	err := w.Close()
	assert.ErrorContains(t, err, "upload nmf.bin")
	assert.ErrorContains(t, err, "connection reset")
}

func TestUploadSucceededWithoutReading(t *testing.T) {
	w := upload("nmf.bin", func(r io.Reader) error {
		return nil
	})
	// writes never block once the upload returned
	_, err := w.Write([]byte("hello"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NoError(t, w.Close())
}
