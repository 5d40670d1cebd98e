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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/storage"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Database caches serialized recommendation results.
type Database interface {
	// Get returns errors.NotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set a value. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Open a cache from an URL. An empty URL disables caching.
func Open(path, tablePrefix string) (Database, error) {
	if path == "" {
		return NoDatabase{}, nil
	} else if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			log.Logger().Error("failed to add tracing for redis", zap.Error(err))
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.MemoryPrefix) {
		capacity := uint64(DefaultMemoryCapacity)
		if _, query, ok := strings.Cut(path, "?"); ok {
			values, err := url.ParseQuery(query)
			if err != nil {
				return nil, errors.Trace(err)
			}
			if text := values.Get("capacity"); text != "" {
				if capacity, err = strconv.ParseUint(text, 10, 64); err != nil || capacity == 0 {
					return nil, errors.NotValidf("memory cache capacity %q", text)
				}
			}
		}
		return NewMemory(capacity), nil
	}
	return nil, errors.NotSupportedf("cache store %s", log.RedactURL(path))
}

// Redis caches values in Redis.
type Redis struct {
	storage.TablePrefix
	client *redis.Client
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.Key(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFoundf("key %s", key)
	}
	return value, errors.Trace(err)
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Trace(r.client.Set(ctx, r.Key(key), value, max(ttl, 0)).Err())
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// DefaultMemoryCapacity is the number of entries kept by memory:// unless ?capacity= is given.
const DefaultMemoryCapacity = 10000

// Memory caches values in the memory of the process. Once the capacity is reached the least
// recently used entry is evicted, even if it never expires.
type Memory struct {
	cache *ttlcache.Cache[string, []byte]
}

func NewMemory(capacity uint64) *Memory {
	cache := ttlcache.New[string, []byte](
		ttlcache.WithDisableTouchOnHit[string, []byte](),
		ttlcache.WithCapacity[string, []byte](capacity),
	)
	go cache.Start()
	return &Memory{cache: cache}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, errors.NotFoundf("key %s", key)
	}
	return item.Value(), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) Close() error {
	m.cache.Stop()
	return nil
}

// NoDatabase disables caching: nothing is stored and every key is missing.
type NoDatabase struct{}

func (NoDatabase) Get(_ context.Context, key string) ([]byte, error) {
	return nil, errors.NotFoundf("key %s", key)
}

func (NoDatabase) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoDatabase) Close() error {
	return nil
}
