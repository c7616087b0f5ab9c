package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store persists the snapshot blob. Save must never leave a half-written snapshot
// behind: either the previous or the new blob is visible after a crash.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

type Config struct {
	Driver   string
	DataDir  string
	FileName string
	Postgres PostgresConfig
	SQLite   struct {
		Path string
	}
	// SnapshotName keys the row in the SQL backends.
	SnapshotName string
}

type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	name := cfg.SnapshotName
	if name == "" {
		name = "default"
	}
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(cfg.DataDir, cfg.FileName)
	case DriverPostgres:
		return NewPostgresDB(ctx, cfg.Postgres, name)
	case DriverSQLite:
		return NewSQLiteDB(cfg.SQLite.Path, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
