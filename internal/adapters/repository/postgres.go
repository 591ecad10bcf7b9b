package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/spindle/internal/domain/model"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS operation_records (
	id          TEXT PRIMARY KEY,
	operation   TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	duration_ms DOUBLE PRECISION NOT NULL,
	success     BOOLEAN NOT NULL,
	context     JSONB
);
CREATE INDEX IF NOT EXISTS operation_records_op_ts_idx ON operation_records (operation, ts);
CREATE INDEX IF NOT EXISTS operation_records_case_idx ON operation_records ((context->>'case_id'));
`

// PostgresStore persists operation records in Postgres via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool for the given DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the records table and indexes if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createRecordsTable); err != nil {
		return fmt.Errorf("migrate operation_records: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// InsertRecords writes the batch in a single transaction so it either fully
// lands or fails as a whole.
func (s *PostgresStore) InsertRecords(ctx context.Context, recs []model.OperationRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrInsertFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, rec := range recs {
		var contextJSON []byte
		if len(rec.Context) > 0 {
			contextJSON, err = json.Marshal(rec.Context)
			if err != nil {
				return fmt.Errorf("%w: encode context: %v", ErrInsertFailed, err)
			}
		}
		batch.Queue(
			`INSERT INTO operation_records (id, operation, ts, duration_ms, success, context)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Operation, rec.Timestamp, rec.DurationMS, rec.Success, contextJSON,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrInsertFailed, err)
	}
	return nil
}

// QueryRecords returns records matching the filter.
func (s *PostgresStore) QueryRecords(ctx context.Context, f Filter) ([]model.OperationRecord, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}

	if f.Operation != "" {
		add("operation = ", f.Operation)
	}
	if f.CaseID != "" {
		add("context->>'case_id' = ", f.CaseID)
	}
	if !f.Since.IsZero() {
		add("ts >= ", f.Since)
	}
	if f.Success != nil {
		add("success = ", *f.Success)
	}

	query := "SELECT id, operation, ts, duration_ms, success, context FROM operation_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []model.OperationRecord
	for rows.Next() {
		var (
			rec         model.OperationRecord
			contextJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Operation, &rec.Timestamp, &rec.DurationMS, &rec.Success, &contextJSON); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrQueryFailed, err)
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
				return nil, fmt.Errorf("%w: decode context: %v", ErrQueryFailed, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return out, nil
}
