package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// SampleStore persists accepted samples so a collection round survives
// collector restarts. The contributor is empty for anonymous (Shuffle)
// samples.
type SampleStore interface {
	SaveSample(ctx context.Context, contributor string, value uint64) error
	SampleCount(ctx context.Context) (uint64, error)
	Close() error
}

// PostgresStore implements SampleStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed sample store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accepted_samples (
		id BIGSERIAL PRIMARY KEY,
		contributor VARCHAR(64) NOT NULL DEFAULT '',
		value BIGINT NOT NULL,
		recorded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_samples_contributor ON accepted_samples(contributor);
	CREATE INDEX IF NOT EXISTS idx_samples_recorded ON accepted_samples(recorded_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveSample persists one accepted sample.
func (s *PostgresStore) SaveSample(ctx context.Context, contributor string, value uint64) error {
	query := `INSERT INTO accepted_samples (contributor, value) VALUES ($1, $2)`
	if _, err := s.db.ExecContext(ctx, query, contributor, int64(value)); err != nil {
		return fmt.Errorf("inserting sample: %w", err)
	}
	return nil
}

// SampleCount returns the number of persisted samples.
func (s *PostgresStore) SampleCount(ctx context.Context) (uint64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accepted_samples`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting samples: %w", err)
	}
	return uint64(count), nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
