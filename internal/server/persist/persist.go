// Package persist provides the table backends behind store.Persister:
// JSON files on local disk (the default), PostgreSQL, Redis and S3
// compatible object storage. Every backend replaces a table in one atomic
// step so readers never observe a partially written table.
package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Backend is a store.Persister that owns a connection.
type Backend interface {
	Save(ctx context.Context, kind string, records map[string]json.RawMessage) error
	Load(ctx context.Context, kind string) (map[string]json.RawMessage, error)
	Close() error
}

// Settings selects and configures a backend.
type Settings struct {
	Backend string

	DataDir string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Open connects the configured backend. An empty backend name means file.
func Open(ctx context.Context, s Settings) (Backend, error) {
	switch s.Backend {
	case "", BackendFile:
		return NewFile(s.DataDir)
	case BackendPostgres:
		return OpenPostgres(ctx, s.DatabaseDSN)
	case BackendRedis:
		return OpenRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB, s.RedisPrefix)
	case BackendS3:
		return OpenS3(ctx, s)
	default:
		return nil, fmt.Errorf("unknown storage backend %q: %w", s.Backend, common.ErrorValidation)
	}
}

// encodeTable is the on-disk and object-storage form of a table: one JSON
// object keyed by id.
func encodeTable(records map[string]json.RawMessage) ([]byte, error) {
	if records == nil {
		records = map[string]json.RawMessage{}
	}
	return json.Marshal(records)
}

func decodeTable(data []byte) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorMalformed, err)
	}
	if out == nil {
		out = map[string]json.RawMessage{}
	}
	return out, nil
}
