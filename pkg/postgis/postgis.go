// Package postgis persists grid9 entries in PostgreSQL with a PostGIS point
// column, so codes can be joined against other spatial data.
package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/spatial"
)

const batchSize = 10000

// Config holds connection settings
type Config struct {
	Host           string `mapstructure:"host" yaml:"host"`
	Port           int    `mapstructure:"port" yaml:"port"`
	User           string `mapstructure:"user" yaml:"user"`
	Password       string `mapstructure:"password" yaml:"password"`
	Database       string `mapstructure:"database" yaml:"database"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
}

// DSN returns the lib/pq connection string
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

type Store struct {
	db *sql.DB
}

// NewStore opens and pings a PostGIS connection
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	return Open(ctx, cfg.DSN(), cfg.MaxConnections)
}

// Open connects using a raw DSN
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// InitSchema creates the codes table and its spatial index
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`CREATE TABLE IF NOT EXISTS grid9_codes (
			id TEXT PRIMARY KEY,
			code CHAR(9) NOT NULL,
			location GEOMETRY(POINT, 4326) NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_grid9_codes_code ON grid9_codes (code);`,
		`CREATE INDEX IF NOT EXISTS idx_grid9_codes_location ON grid9_codes USING GIST(location);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// BulkInsert upserts entries in batched transactions. Every code is decoded
// before anything is written; an invalid code aborts with the codec error.
func (s *Store) BulkInsert(ctx context.Context, entries []models.Entry) error {
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	locs, err := spatial.BatchDecode(codes)
	if err != nil {
		return err
	}

	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		if err := s.insertBatch(ctx, entries[start:end], locs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertBatch(ctx context.Context, entries []models.Entry, locs []models.Coordinate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO grid9_codes (id, code, location)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326))
		ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, location = EXCLUDED.location
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, grid9.RemoveFormatting(e.Code), locs[i].Lon, locs[i].Lat); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// QueryBox returns entries whose location falls inside box
func (s *Store) QueryBox(ctx context.Context, box models.BoundingBox) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code
		FROM grid9_codes
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY id
	`, box.MinLon, box.MinLat, box.MaxLon, box.MaxLat)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.Code); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// Count returns the number of stored entries
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM grid9_codes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
