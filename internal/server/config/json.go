package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Absent keys leave the
// current value untouched, so every field is a pointer. Durations accept
// "90s" or integer seconds.
type JsonConfig struct {
	HTTPAddr *string `json:"http_addr"`
	GRPCAddr *string `json:"grpc_addr"`

	AuthType        *string         `json:"auth_type"`
	SessionName     *string         `json:"session_name"`
	SessionDuration *timex.Duration `json:"session_duration"`
	ExcludedPaths   []string        `json:"excluded_paths"`
	SecureCookies   *bool           `json:"secure_cookies"`
	PurgeInterval   *timex.Duration `json:"purge_interval"`

	TokenSecret   *string         `json:"token_secret"`
	TokenValidity *timex.Duration `json:"token_validity"`

	StorageBackend *string `json:"storage_backend"`
	DataDir        *string `json:"data_dir"`
	DatabaseDSN    *string `json:"database_dsn"`
	RedisAddr      *string `json:"redis_addr"`
	RedisPassword  *string `json:"redis_password"`
	RedisDB        *int    `json:"redis_db"`
	RedisPrefix    *string `json:"redis_prefix"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Prefix       *string `json:"s3_prefix"`
	S3Region       *string `json:"s3_region"`
	S3Endpoint     *string `json:"s3_endpoint"`
	S3AccessKey    *string `json:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key"`

	MetricsEnabled *bool   `json:"metrics_enabled"`
	LogLevel       *string `json:"log_level"`
}

// parseJSON overlays the file named by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.AuthType, c.AuthType)
	setString(&config.SessionName, c.SessionName)
	if c.SessionDuration != nil {
		config.SessionDuration = c.SessionDuration.Duration
	}
	if c.ExcludedPaths != nil {
		config.ExcludedPaths = c.ExcludedPaths
	}
	setBool(&config.SecureCookies, c.SecureCookies)
	if c.PurgeInterval != nil {
		config.PurgeInterval = c.PurgeInterval.Duration
	}
	setString(&config.TokenSecret, c.TokenSecret)
	if c.TokenValidity != nil {
		config.TokenValidity = c.TokenValidity.Duration
	}

	s := &config.Storage
	setString(&s.Backend, c.StorageBackend)
	setString(&s.DataDir, c.DataDir)
	setString(&s.DatabaseDSN, c.DatabaseDSN)
	setString(&s.RedisAddr, c.RedisAddr)
	setString(&s.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		s.RedisDB = *c.RedisDB
	}
	setString(&s.RedisPrefix, c.RedisPrefix)
	setString(&s.S3Bucket, c.S3Bucket)
	setString(&s.S3Prefix, c.S3Prefix)
	setString(&s.S3Region, c.S3Region)
	setString(&s.S3Endpoint, c.S3Endpoint)
	setString(&s.S3AccessKey, c.S3AccessKey)
	setString(&s.S3SecretKey, c.S3SecretKey)

	setBool(&config.MetricsEnabled, c.MetricsEnabled)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
