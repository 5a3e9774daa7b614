package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shortlink-app/shortlink/internal/config"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

// Migrate creates the schema if it does not exist yet. The UNIQUE
// constraint on links.slug is what serializes concurrent creations:
// the database is the only component with a global atomic view.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS links (
			id         BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			slug       TEXT NOT NULL UNIQUE,
			long_url   TEXT NOT NULL,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS clicks (
			id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			link_id        BIGINT NOT NULL,
			clicked_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			referrer       TEXT NOT NULL DEFAULT '',
			user_agent_raw TEXT NOT NULL DEFAULT '',
			client_address TEXT NOT NULL DEFAULT '',
			device_type    TEXT NOT NULL DEFAULT 'unknown',
			browser        TEXT NOT NULL DEFAULT 'unknown',
			os             TEXT NOT NULL DEFAULT 'unknown'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks (link_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_link_id_clicked_at ON clicks (link_id, clicked_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}
