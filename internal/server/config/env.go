package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
	"github.com/joho/godotenv"
)

// EnvConfig lists the recognised environment variables. Unset variables stay
// nil and leave the current value alone.
type EnvConfig struct {
	APIHost  *string `env:"API_HOST"`
	APIPort  *string `env:"API_PORT"`
	GRPCAddr *string `env:"GRPC_ADDRESS"`

	AuthType        *string          `env:"AUTH_TYPE"`
	SessionName     *string          `env:"SESSION_NAME"`
	SessionDuration *sessionDuration `env:"SESSION_DURATION"`
	ExcludedPaths   []string         `env:"EXCLUDED_PATHS" envSeparator:","`
	SecureCookies   *bool            `env:"SECURE_COOKIES"`
	PurgeInterval   *timex.Duration  `env:"SESSION_PURGE_INTERVAL"`

	TokenSecret   *string         `env:"JWT_SECRET"`
	TokenValidity *timex.Duration `env:"JWT_VALIDITY"`

	StorageBackend *string `env:"STORAGE_BACKEND"`
	DataDir        *string `env:"DATA_DIR"`
	DatabaseDSN    *string `env:"DATABASE_DSN"`
	RedisAddr      *string `env:"REDIS_ADDR"`
	RedisPassword  *string `env:"REDIS_PASSWORD"`
	RedisDB        *int    `env:"REDIS_DB"`
	RedisPrefix    *string `env:"REDIS_PREFIX"`
	S3Bucket       *string `env:"S3_BUCKET"`
	S3Prefix       *string `env:"S3_PREFIX"`
	S3Region       *string `env:"S3_REGION"`
	S3Endpoint     *string `env:"S3_ENDPOINT"`
	S3AccessKey    *string `env:"S3_ACCESS_KEY"`
	S3SecretKey    *string `env:"S3_SECRET_KEY"`

	MetricsEnabled *bool   `env:"METRICS_ENABLED"`
	LogLevel       *string `env:"LOG_LEVEL"`
}

// parseEnv loads dotenv (".env" when empty; a missing file is fine) and
// overlays the environment. Variables already set win over the file.
func parseEnv(config *Config, dotenv string) error {
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var e EnvConfig
	if err := env.Parse(&e); err != nil {
		return err
	}
	e.apply(config)
	return nil
}

func (e *EnvConfig) apply(config *Config) {
	if e.APIHost != nil || e.APIPort != nil {
		config.HTTPAddr = joinHostPort(config.HTTPAddr, e.APIHost, e.APIPort)
	}

	j := JsonConfig{
		GRPCAddr:        e.GRPCAddr,
		AuthType:        e.AuthType,
		SessionName:     e.SessionName,
		SessionDuration: e.SessionDuration.duration(),
		ExcludedPaths:   e.ExcludedPaths,
		SecureCookies:   e.SecureCookies,
		PurgeInterval:   e.PurgeInterval,
		TokenSecret:     e.TokenSecret,
		TokenValidity:   e.TokenValidity,
		StorageBackend:  e.StorageBackend,
		DataDir:         e.DataDir,
		DatabaseDSN:     e.DatabaseDSN,
		RedisAddr:       e.RedisAddr,
		RedisPassword:   e.RedisPassword,
		RedisDB:         e.RedisDB,
		RedisPrefix:     e.RedisPrefix,
		S3Bucket:        e.S3Bucket,
		S3Prefix:        e.S3Prefix,
		S3Region:        e.S3Region,
		S3Endpoint:      e.S3Endpoint,
		S3AccessKey:     e.S3AccessKey,
		S3SecretKey:     e.S3SecretKey,
		MetricsEnabled:  e.MetricsEnabled,
		LogLevel:        e.LogLevel,
	}
	j.apply(config)
}

// sessionDuration reads SESSION_DURATION. A value that does not parse means
// 0, so sessions never expire.
type sessionDuration struct {
	timex.Duration
}

func (d *sessionDuration) UnmarshalText(text []byte) error {
	if err := d.Duration.UnmarshalText(text); err != nil {
		d.Duration = timex.Duration{}
	}
	return nil
}

func (d *sessionDuration) duration() *timex.Duration {
	if d == nil {
		return nil
	}
	return &d.Duration
}
