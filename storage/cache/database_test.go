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

package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorse-io/movietime/storage"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
	fastForward func(duration time.Duration)
}

func (suite *baseTestSuite) TearDownSuite() {
	err := suite.Database.Close()
	suite.NoError(err)
}

func (suite *baseTestSuite) TestGetSet() {
	ctx := context.Background()
	_, err := suite.Database.Get(ctx, "missing")
	suite.True(errors.Is(err, errors.NotFound), err)

	err = suite.Database.Set(ctx, "recommend/1", []byte(`{"items":[]}`), 0)
	suite.NoError(err)
	value, err := suite.Database.Get(ctx, "recommend/1")
	suite.NoError(err)
	suite.Equal(`{"items":[]}`, string(value))

	// overwrite
	err = suite.Database.Set(ctx, "recommend/1", []byte(`{"items":[1]}`), 0)
	suite.NoError(err)
	value, err = suite.Database.Get(ctx, "recommend/1")
	suite.NoError(err)
	suite.Equal(`{"items":[1]}`, string(value))
}

func (suite *baseTestSuite) TestExpire() {
	ctx := context.Background()
	err := suite.Database.Set(ctx, "recommend/2", []byte("hello"), 100*time.Millisecond)
	suite.NoError(err)
	value, err := suite.Database.Get(ctx, "recommend/2")
	suite.NoError(err)
	suite.Equal("hello", string(value))
	suite.fastForward(200 * time.Millisecond)
	_, err = suite.Database.Get(ctx, "recommend/2")
	suite.True(errors.Is(err, errors.NotFound), err)
}

type RedisTestSuite struct {
	baseTestSuite
	server *miniredis.Miniredis
}

func (suite *RedisTestSuite) SetupSuite() {
	var err error
	suite.server, err = miniredis.Run()
	suite.NoError(err)
	suite.Database, err = Open(storage.RedisPrefix+suite.server.Addr(), "mt_")
	suite.NoError(err)
	suite.fastForward = suite.server.FastForward
}

func (suite *RedisTestSuite) TearDownSuite() {
	suite.baseTestSuite.TearDownSuite()
	suite.server.Close()
}

func (suite *RedisTestSuite) TestPrefix() {
	err := suite.Database.Set(context.Background(), "key", []byte("value"), 0)
	suite.NoError(err)
	value, err := suite.server.Get("mt_key")
	suite.NoError(err)
	suite.Equal("value", value)
}

func TestRedis(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}

type MemoryTestSuite struct {
	baseTestSuite
}

func (suite *MemoryTestSuite) SetupSuite() {
	var err error
	suite.Database, err = Open(storage.MemoryPrefix, "")
	suite.NoError(err)
	suite.fastForward = time.Sleep
}

func (suite *MemoryTestSuite) TestCapacity() {
	ctx := context.Background()
	database, err := Open(storage.MemoryPrefix+"?capacity=2", "")
	suite.NoError(err)
	defer database.Close()
	// entries without ttl are evicted as well
	for _, key := range []string{"a", "b", "c"} {
		suite.NoError(database.Set(ctx, key, []byte(key), 0))
	}
	_, err = database.Get(ctx, "a")
	suite.True(errors.Is(err, errors.NotFound), err)
	for _, key := range []string{"b", "c"} {
		value, err := database.Get(ctx, key)
		suite.NoError(err)
		suite.Equal([]byte(key), value)
	}
	suite.Equal(2, database.(*Memory).cache.Len())
}

func (suite *MemoryTestSuite) TestDefaultCapacity() {
	ctx := context.Background()
	database := suite.Database.(*Memory)
	for i := 0; i < DefaultMemoryCapacity+10; i++ {
		suite.NoError(database.Set(ctx, strconv.Itoa(i), []byte{1}, 0))
	}
	suite.Equal(DefaultMemoryCapacity, database.cache.Len())
}

func TestMemory(t *testing.T) {
	suite.Run(t, new(MemoryTestSuite))
}

func TestOpenMemory(t *testing.T) {
	for _, uri := range []string{"memory://?capacity=0", "memory://?capacity=many", "memory://?capacity=-1"} {
		_, err := Open(uri, "")
		assert.True(t, errors.Is(err, errors.NotValid), uri)
	}
}

func TestNoDatabase(t *testing.T) {
	database, err := Open("", "")
	assert.NoError(t, err)
	assert.NoError(t, database.Set(context.Background(), "key", []byte("value"), 0))
	_, err = database.Get(context.Background(), "key")
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.NoError(t, database.Close())
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("mongodb://localhost:27017", "")
	assert.True(t, errors.Is(err, errors.NotSupported))
}
