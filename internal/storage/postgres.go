package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

var recordColumns = []string{
	"tweet_id", "timestamp", "text", "source", "rating_numerator", "rating_denominator",
	"dog_stage", "jpg_url", "breed_of_dog", "favorite_count", "retweet_count",
}

// PostgreSQLStorage implements Storage interface using PostgreSQL
type PostgreSQLStorage struct {
	db          *sql.DB
	table       string
	statusTable string
}

// NewPostgreSQLStorage opens cfg.PostgresURI and creates the record and
// status tables if they are missing.
func NewPostgreSQLStorage(cfg config.StorageConfig) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	p := &PostgreSQLStorage{
		db:          db,
		table:       cfg.TableName,
		statusTable: cfg.TableName + "_status",
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := p.ensureTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgreSQLStorage) ensureTables(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tweet_id           TEXT PRIMARY KEY,
			timestamp          TIMESTAMPTZ NOT NULL,
			text               TEXT NOT NULL,
			source             TEXT NOT NULL,
			rating_numerator   INTEGER NOT NULL,
			rating_denominator INTEGER NOT NULL,
			dog_stage          TEXT NOT NULL,
			jpg_url            TEXT,
			breed_of_dog       TEXT,
			favorite_count     BIGINT,
			retweet_count      BIGINT
		)`, pq.QuoteIdentifier(p.table)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id             TEXT PRIMARY KEY,
			run_id         TEXT NOT NULL,
			started_at     TIMESTAMPTZ NOT NULL,
			finished_at    TIMESTAMPTZ NOT NULL,
			status         TEXT NOT NULL,
			error_message  TEXT NOT NULL,
			archive_rows   INTEGER NOT NULL,
			image_rows     INTEGER NOT NULL,
			metrics_rows   INTEGER NOT NULL,
			records_merged INTEGER NOT NULL
		)`, pq.QuoteIdentifier(p.statusTable)),
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// StoreRecords truncates the table and bulk loads records with COPY in one
// transaction.
func (p *PostgreSQLStorage) StoreRecords(ctx context.Context, records []models.MasterRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(p.table)); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(p.table, recordColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.TweetID, r.Timestamp, r.Text, r.Source, r.RatingNumerator, r.RatingDenominator,
			string(r.Stage), nullable(r.JPGURL), nullable(r.Breed), nullable(r.FavoriteCount), nullable(r.RetweetCount),
		)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy record %s: %w", r.TweetID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}
	return tx.Commit()
}

// GetRecords returns one page of records sorted by tweet id
func (p *PostgreSQLStorage) GetRecords(ctx context.Context, limit int, offset int) ([]models.MasterRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY length(tweet_id), tweet_id OFFSET $1`,
		columnList(), pq.QuoteIdentifier(p.table))
	args := []any{offset}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []models.MasterRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// GetRecordByID returns nil when the id is not stored
func (p *PostgreSQLStorage) GetRecordByID(ctx context.Context, tweetID string) (*models.MasterRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tweet_id = $1`, columnList(), pq.QuoteIdentifier(p.table))
	r, err := scanRecord(p.db.QueryRowContext(ctx, query, tweetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (p *PostgreSQLStorage) UpdateRunStatus(ctx context.Context, s models.RunStatus) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(id, run_id, started_at, finished_at, status, error_message, archive_rows, image_rows, metrics_rows, records_merged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			archive_rows = EXCLUDED.archive_rows,
			image_rows = EXCLUDED.image_rows,
			metrics_rows = EXCLUDED.metrics_rows,
			records_merged = EXCLUDED.records_merged`, pq.QuoteIdentifier(p.statusTable))

	_, err := p.db.ExecContext(ctx, query, statusKey, s.RunID, s.StartedAt, s.FinishedAt, s.Status,
		s.ErrorMessage, s.ArchiveRows, s.ImageRows, s.MetricsRows, s.RecordsMerged)
	if err != nil {
		return fmt.Errorf("failed to store run status: %w", err)
	}
	return nil
}

func (p *PostgreSQLStorage) GetRunStatus(ctx context.Context) (*models.RunStatus, error) {
	query := fmt.Sprintf(`SELECT run_id, started_at, finished_at, status, error_message,
		archive_rows, image_rows, metrics_rows, records_merged FROM %s WHERE id = $1`,
		pq.QuoteIdentifier(p.statusTable))

	var s models.RunStatus
	err := p.db.QueryRowContext(ctx, query, statusKey).Scan(&s.RunID, &s.StartedAt, &s.FinishedAt,
		&s.Status, &s.ErrorMessage, &s.ArchiveRows, &s.ImageRows, &s.MetricsRows, &s.RecordsMerged)
	if errors.Is(err, sql.ErrNoRows) {
		return neverRun(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run status: %w", err)
	}
	return &s, nil
}

// Close closes the connection pool
func (p *PostgreSQLStorage) Close() error {
	return p.db.Close()
}

func columnList() string {
	out := ""
	for i, c := range recordColumns {
		if i > 0 {
			out += ", "
		}
		out += pq.QuoteIdentifier(c)
	}
	return out
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.MasterRecord, error) {
	var (
		r          models.MasterRecord
		stage      string
		url, breed sql.NullString
		fav, rt    sql.NullInt64
	)
	err := row.Scan(&r.TweetID, &r.Timestamp, &r.Text, &r.Source, &r.RatingNumerator,
		&r.RatingDenominator, &stage, &url, &breed, &fav, &rt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	r.Stage = models.LifeStage(stage)
	if url.Valid {
		r.JPGURL = &url.String
	}
	if breed.Valid {
		r.Breed = &breed.String
	}
	if fav.Valid {
		r.FavoriteCount = &fav.Int64
	}
	if rt.Valid {
		r.RetweetCount = &rt.Int64
	}
	return &r, nil
}
