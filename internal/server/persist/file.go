package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gatekeeper/internal/filex"
)

// File keeps each table in <dir>/.db_<kind>.json.
type File struct {
	dir string
}

// NewFile creates dir if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &File{dir: abs}, nil
}

// Path is the file holding kind.
func (f *File) Path(kind string) string {
	return filepath.Join(f.dir, ".db_"+kind+".json")
}

func (f *File) Save(ctx context.Context, kind string, records map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeTable(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return filex.WriteFileAtomic(f.Path(kind), data, 0o600)
}

func (f *File) Load(ctx context.Context, kind string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return decodeTable(data)
}

func (f *File) Close() error { return nil }
