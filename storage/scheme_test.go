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

package storage

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	url, err := AppendURLParams("sqlite:///tmp/movietime.db", []lo.Tuple2[string, string]{
		{A: "_pragma", B: "busy_timeout(10000)"},
		{A: "_pragma", B: "journal_mode(wal)"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/movietime.db?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29", url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("movietime:pass@tcp(localhost:3306)/movietime?sql_mode=ANSI", map[string]string{
		"sql_mode": "TRADITIONAL",
		"charset":  "utf8mb4",
	})
	assert.NoError(t, err)
	assert.Contains(t, dsn, "sql_mode=ANSI")
	assert.NotContains(t, dsn, "TRADITIONAL")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestTablePrefix(t *testing.T) {
	prefix := TablePrefix("mt_")
	assert.Equal(t, "mt_movies", prefix.MoviesTable())
	assert.Equal(t, "mt_ratings", prefix.RatingsTable())
	assert.Equal(t, "mt_links", prefix.LinksTable())
	assert.Equal(t, "mt_recommend", prefix.Key("recommend"))
}

func TestNewGORMConfig(t *testing.T) {
	cfg := NewGORMConfig("mt_")
	assert.Equal(t, "mt_movie", cfg.NamingStrategy.TableName("Movie"))
	assert.Equal(t, "movie_id", cfg.NamingStrategy.ColumnName("", "MovieId"))
	assert.Equal(t, 1000, cfg.CreateBatchSize)
}
