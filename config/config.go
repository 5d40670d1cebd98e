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

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	CombinationSum     = "sum"
	CombinationAverage = "average"

	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
)

// Config is the configuration for movietime.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Blob      BlobConfig      `mapstructure:"blob"`
	S3        S3Config        `mapstructure:"s3"`
	GCS       GCSConfig       `mapstructure:"gcs"`
	Azure     AzureBlobConfig `mapstructure:"azure"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	NMF       NMFConfig       `mapstructure:"nmf"`
	Neighbors NeighborsConfig `mapstructure:"neighbors"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DatabaseConfig is the configuration for the rating source and the result cache.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required,data_store"`
	CacheStore  string `mapstructure:"cache_store" validate:"cache_store"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// BlobConfig is the location of model artifacts. A plain path is a local directory, otherwise
// s3://, gcs:// or azblob:// selects a cloud bucket.
type BlobConfig struct {
	URI string `mapstructure:"uri" validate:"required"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"-"`
	Prefix          string `mapstructure:"-"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Bucket          string `mapstructure:"-"`
	Prefix          string `mapstructure:"-"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Endpoint         string `mapstructure:"endpoint"`
}

type DatasetConfig struct {
	// Movies with no more than MinRatings ratings are excluded from the catalog.
	MinRatings int `mapstructure:"min_ratings" validate:"gte=0"`
}

type NMFConfig struct {
	NFactors        int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs         int     `mapstructure:"n_epochs" validate:"gt=0"`
	TransformEpochs int     `mapstructure:"transform_epochs" validate:"gt=0"`
	Tol             float32 `mapstructure:"tol" validate:"gt=0"`
	RandomState     int64   `mapstructure:"random_state"`
	Jobs            int     `mapstructure:"jobs" validate:"gt=0"`
	Verbose         int     `mapstructure:"verbose" validate:"gt=0"`
}

type NeighborsConfig struct {
	Metric     string `mapstructure:"metric" validate:"oneof=cosine euclidean"`
	NNeighbors int    `mapstructure:"n_neighbors" validate:"gt=0"`
	Jobs       int    `mapstructure:"jobs" validate:"gt=0"`
}

type RecommendConfig struct {
	DefaultN    int           `mapstructure:"default_n" validate:"gt=0"`
	Combination string        `mapstructure:"combination" validate:"oneof=sum average"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	APIKey string `mapstructure:"api_key"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore:  "csv://data",
			CacheStore: "memory://",
		},
		Blob: BlobConfig{
			URI: "/var/lib/movietime",
		},
		S3: S3Config{
			UseSSL: true,
		},
		Dataset: DatasetConfig{
			MinRatings: 20,
		},
		NMF: NMFConfig{
			NFactors:        20,
			NEpochs:         200,
			TransformEpochs: 500,
			Tol:             1e-4,
			Jobs:            1,
			Verbose:         10,
		},
		Neighbors: NeighborsConfig{
			Metric:     MetricCosine,
			NNeighbors: 10,
			Jobs:       1,
		},
		Recommend: RecommendConfig{
			DefaultN:    10,
			Combination: CombinationSum,
			CacheTTL:    10 * time.Minute,
			Timeout:     30 * time.Second,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8087,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.cache_store", defaultConfig.Database.CacheStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [blob]
	v.SetDefault("blob.uri", defaultConfig.Blob.URI)
	// [s3]
	v.SetDefault("s3.use_ssl", defaultConfig.S3.UseSSL)
	// [dataset]
	v.SetDefault("dataset.min_ratings", defaultConfig.Dataset.MinRatings)
	// [nmf]
	v.SetDefault("nmf.n_factors", defaultConfig.NMF.NFactors)
	v.SetDefault("nmf.n_epochs", defaultConfig.NMF.NEpochs)
	v.SetDefault("nmf.transform_epochs", defaultConfig.NMF.TransformEpochs)
	v.SetDefault("nmf.tol", defaultConfig.NMF.Tol)
	v.SetDefault("nmf.random_state", defaultConfig.NMF.RandomState)
	v.SetDefault("nmf.jobs", defaultConfig.NMF.Jobs)
	v.SetDefault("nmf.verbose", defaultConfig.NMF.Verbose)
	// [neighbors]
	v.SetDefault("neighbors.metric", defaultConfig.Neighbors.Metric)
	v.SetDefault("neighbors.n_neighbors", defaultConfig.Neighbors.NNeighbors)
	v.SetDefault("neighbors.jobs", defaultConfig.Neighbors.Jobs)
	// [recommend]
	v.SetDefault("recommend.default_n", defaultConfig.Recommend.DefaultN)
	v.SetDefault("recommend.combination", defaultConfig.Recommend.Combination)
	v.SetDefault("recommend.cache_ttl", defaultConfig.Recommend.CacheTTL)
	v.SetDefault("recommend.timeout", defaultConfig.Recommend.Timeout)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.api_key", defaultConfig.Server.APIKey)
}

type configBinding struct {
	key string
	env string
}

func bindEnv(v *viper.Viper) error {
	bindings := []configBinding{
		{"database.data_store", "MOVIETIME_DATA_STORE"},
		{"database.cache_store", "MOVIETIME_CACHE_STORE"},
		{"database.table_prefix", "MOVIETIME_TABLE_PREFIX"},
		{"blob.uri", "MOVIETIME_BLOB_URI"},
		{"server.api_key", "MOVIETIME_SERVER_API_KEY"},
		{"s3.endpoint", "S3_ENDPOINT"},
		{"s3.access_key_id", "S3_ACCESS_KEY_ID"},
		{"s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
		{"gcs.credentials_file", "GCS_CREDENTIALS_FILE"},
		{"azure.account_name", "AZURE_STORAGE_ACCOUNT"},
		{"azure.account_key", "AZURE_STORAGE_KEY"},
		{"azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a toml file. An empty path loads defaults and environment
// variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefault(v)
	if err := bindEnv(v); err != nil {
		return nil, errors.Trace(err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		return hasPrefix(fl.Field().String(), dataStorePrefixes)
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterValidation("cache_store", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || hasPrefix(value, cacheStorePrefixes)
	}); err != nil {
		return errors.Trace(err)
	}
	return validate.Struct(config)
}

var (
	dataStorePrefixes  = []string{"csv://", "sqlite://", "mysql://", "postgres://", "postgresql://", "mongodb://", "mongodb+srv://"}
	cacheStorePrefixes = []string{"redis://", "rediss://", "memory://"}
)

func hasPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
