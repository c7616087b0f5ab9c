package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
	name string
}

const postgresSchema = `
    CREATE TABLE IF NOT EXISTS bot_snapshots (
        name       TEXT PRIMARY KEY,
        body       JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )
`

func NewPostgresDB(ctx context.Context, cfg PostgresConfig, name string) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	return &PostgresDB{pool: pool, name: name}, nil
}

func (db *PostgresDB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

func (db *PostgresDB) Load(ctx context.Context) ([]byte, error) {
	query := `
        SELECT body
        FROM bot_snapshots
        WHERE name = $1
    `

	var body []byte
	err := db.pool.QueryRow(ctx, query, db.name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return body, nil
}

// Save replaces the snapshot row in a single statement, so readers see either the old
// or the new body.
func (db *PostgresDB) Save(ctx context.Context, blob []byte) error {
	query := `
        INSERT INTO bot_snapshots (name, body)
        VALUES ($1, $2::jsonb)
        ON CONFLICT (name) DO UPDATE
        SET body = EXCLUDED.body, updated_at = NOW()
    `

	if _, err := db.pool.Exec(ctx, query, db.name, string(blob)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
