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
	"strings"
	"sync"

	"github.com/gorse-io/movietime/config"
	"github.com/juju/errors"
)

const (
	S3Prefix    = "s3://"
	GCSPrefix   = "gcs://"
	AzurePrefix = "azblob://"
	FilePrefix  = "file://"
)

// Store keeps model artifacts by name.
type Store interface {
	// Open a blob for reading.
	Open(name string) (io.ReadCloser, error)
	// Create a blob for writing. Close returns once the content is persisted, with the error
	// of persisting it if any.
	Create(name string) (io.WriteCloser, error)
	// List names of blobs.
	List() ([]string, error)
}

// Open a blob store from an URI: s3://bucket/prefix, gcs://bucket/prefix, azblob://container/prefix,
// file://dir or a plain directory.
func Open(uri string, cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch {
	case strings.HasPrefix(uri, S3Prefix):
		s3 := cfg.S3
		s3.Bucket, s3.Prefix = splitBucket(strings.TrimPrefix(uri, S3Prefix))
		store, err = NewS3(s3)
	case strings.HasPrefix(uri, GCSPrefix):
		gcs := cfg.GCS
		gcs.Bucket, gcs.Prefix = splitBucket(strings.TrimPrefix(uri, GCSPrefix))
		store, err = NewGCS(gcs)
	case strings.HasPrefix(uri, AzurePrefix):
		container, prefix := splitBucket(strings.TrimPrefix(uri, AzurePrefix))
		store, err = NewAzureBlob(cfg.Azure, container, prefix)
	case strings.HasPrefix(uri, FilePrefix):
		store = NewPOSIX(strings.TrimPrefix(uri, FilePrefix))
	case strings.Contains(uri, "://"):
		return nil, errors.NotSupportedf("blob store %s", uri)
	default:
		store = NewPOSIX(uri)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return store, nil
}

func splitBucket(s string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(s, "/")
	return bucket, strings.Trim(prefix, "/")
}

// uploader streams writes to a background upload. Writes fail as soon as the upload fails and
// Close waits for the upload to finish.
type uploader struct {
	pw   *io.PipeWriter
	done chan struct{}
	once sync.Once
	err  error
}

func upload(name string, persist func(r io.Reader) error) *uploader {
	pr, pw := io.Pipe()
	u := &uploader{pw: pw, done: make(chan struct{})}
	go func() {
		defer close(u.done)
		if err := persist(pr); err != nil {
			u.err = errors.Annotatef(err, "upload %s", name)
		}
		// Unblock writers if the upload stopped before reading everything.
		_ = pr.CloseWithError(u.err)
	}()
	return u
}

func (u *uploader) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *uploader) Close() error {
	u.once.Do(func() {
		_ = u.pw.Close()
		<-u.done
	})
	return u.err
}
