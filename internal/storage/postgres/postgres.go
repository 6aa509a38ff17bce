package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

const (
	codeConstraint    = "urls_code_key"
	longURLConstraint = "urls_long_url_key"

	selectColumns = "id, code, long_url, short_url, clicks, created_at"
)

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is empty")
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{pool: pool}
	if err := s.createTable(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return s, nil
}

func (s *Storage) createTable(ctx context.Context) error {
	createTableQuery := `
		CREATE TABLE IF NOT EXISTS urls (
			id VARCHAR(64) PRIMARY KEY,
			code VARCHAR(32) NOT NULL,
			long_url TEXT NOT NULL,
			short_url TEXT NOT NULL,
			clicks BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT urls_code_key UNIQUE (code),
			CONSTRAINT urls_long_url_key UNIQUE (long_url)
		);
	`
	if _, err := s.pool.Exec(ctx, createTableQuery); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_urls_created_at ON urls(created_at DESC);`)
	return err
}

func scanURL(row pgx.Row) (model.URL, error) {
	var url model.URL
	err := row.Scan(&url.ID, &url.Code, &url.LongURL, &url.ShortURL, &url.Clicks, &url.CreatedAt)
	return url, err
}

// uniqueViolation reports which unique constraint err violated, if any.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func insert(ctx context.Context, q querier, url model.URL) error {
	_, err := q.Exec(ctx,
		"INSERT INTO urls (id, code, long_url, short_url, clicks, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		url.ID, url.Code, url.LongURL, url.ShortURL, url.Clicks, url.CreatedAt)
	return err
}

func getByLongURL(ctx context.Context, q querier, longURL string) (model.URL, error) {
	url, err := scanURL(q.QueryRow(ctx, "SELECT "+selectColumns+" FROM urls WHERE long_url = $1", longURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.URL{}, storage.ErrNotFound
	}
	return url, err
}

func (s *Storage) Save(ctx context.Context, url model.URL) (model.URL, error) {
	err := insert(ctx, s.pool, url)
	if err == nil {
		return url, nil
	}

	constraint, ok := uniqueViolation(err)
	switch {
	case ok && constraint == longURLConstraint:
		existing, err := getByLongURL(ctx, s.pool, url.LongURL)
		if err != nil {
			return model.URL{}, fmt.Errorf("error loading existing URL: %w", err)
		}
		return existing, storage.ErrURLExists
	case ok && constraint == codeConstraint:
		return model.URL{}, storage.ErrCodeExists
	default:
		return model.URL{}, fmt.Errorf("error inserting URL into database: %w", err)
	}
}

func (s *Storage) SaveBatch(ctx context.Context, urls []model.URL) ([]model.URL, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := make([]model.URL, len(urls))
	for i, url := range urls {
		existing, err := getByLongURL(ctx, tx, url.LongURL)
		if err == nil {
			result[i] = existing
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("error checking batch item %d: %w", i, err)
		}

		if err := insert(ctx, tx, url); err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == codeConstraint {
				return nil, fmt.Errorf("batch item %d: %w", i, storage.ErrCodeExists)
			}
			return nil, fmt.Errorf("error inserting batch item %d: %w", i, err)
		}
		result[i] = url
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing batch: %w", err)
	}

	return result, nil
}

func (s *Storage) GetByCode(ctx context.Context, code string) (model.URL, error) {
	url, err := scanURL(s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM urls WHERE code = $1", code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.URL{}, storage.ErrNotFound
		}
		return model.URL{}, fmt.Errorf("error querying database: %w", err)
	}

	return url, nil
}

func (s *Storage) List(ctx context.Context, limit, offset int) ([]model.URL, error) {
	query := "SELECT " + selectColumns + " FROM urls ORDER BY created_at DESC, code DESC OFFSET $1"
	args := []interface{}{offset}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing URLs: %w", err)
	}
	defer rows.Close()

	result := make([]model.URL, 0)
	for rows.Next() {
		url, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning URL: %w", err)
		}
		result = append(result, url)
	}

	return result, rows.Err()
}

func (s *Storage) Delete(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM urls WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("error deleting URL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Storage) AddClicks(ctx context.Context, clicks map[string]int64) error {
	if len(clicks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for code, n := range clicks {
		batch.Queue("UPDATE urls SET clicks = clicks + $1 WHERE code = $2", n, code)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range clicks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("error updating clicks: %w", err)
		}
	}

	return nil
}

func (s *Storage) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(SUM(clicks), 0) FROM urls").Scan(&stats.Links, &stats.Clicks)
	if err != nil {
		return model.Stats{}, fmt.Errorf("error reading stats: %w", err)
	}

	return stats, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
