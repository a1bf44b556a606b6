package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-extract/internal/db"
	"github.com/sells-group/esg-extract/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

var recordColumns = []string{
	"id", "metric_name", "value", "unit", "year", "page_number", "company",
	"confidence", "source_section", "extraction_method", "context",
	"validation_status", "timestamp",
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the per-record merge path.
var preparedStatements = map[string]string{
	"lookup_record": `SELECT confidence FROM records
		WHERE company = $1 AND year = $2 AND metric_name = $3 AND extraction_method = $4
		  AND validation_status != 'conflict'`,
	"insert_record": `INSERT INTO records
		(id, metric_name, value, unit, year, page_number, company, confidence,
		 source_section, extraction_method, context, validation_status, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"replace_record": `UPDATE records SET id = $1, value = $2, unit = $3, page_number = $4,
		confidence = $5, source_section = $6, context = $7, validation_status = $8, timestamp = $9
		WHERE company = $10 AND year = $11 AND metric_name = $12 AND extraction_method = $13
		  AND validation_status != 'conflict'`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NULLS NOT DISTINCT (PostgreSQL 15+) on the conflict-key index keeps
// nil-value conflict rows unique, so re-merging them stays idempotent.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                TEXT PRIMARY KEY,
	metric_name       TEXT NOT NULL,
	value             DOUBLE PRECISION,
	unit              TEXT NOT NULL,
	year              INTEGER NOT NULL,
	page_number       INTEGER NOT NULL DEFAULT 0,
	company           TEXT NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	source_section    TEXT,
	extraction_method TEXT NOT NULL,
	context           TEXT,
	validation_status TEXT NOT NULL,
	timestamp         TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_records_key
	ON records(company, year, metric_name, extraction_method)
	WHERE validation_status != 'conflict';
CREATE UNIQUE INDEX IF NOT EXISTS idx_records_conflict_key
	ON records(company, year, metric_name, extraction_method, value)
	NULLS NOT DISTINCT
	WHERE validation_status = 'conflict';
CREATE INDEX IF NOT EXISTS idx_records_company_year ON records(company, year);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(validation_status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Merge applies the dedup rules. A first merge into an empty table COPYs
// everything straight in; after that, conflict records go through one bulk
// upsert (duplicates dropped on the conflict-key index) and resolved
// records take the per-record lookup-then-write path so the confidence
// comparison can be applied. Stored rows carry the merge time, not the
// run time the records arrived with.
func (s *PostgresStore) Merge(ctx context.Context, records []model.ExtractionRecord) (*MergeReport, error) {
	now := time.Now().UTC()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM records`).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "postgres: count records")
	}
	if total == 0 {
		return s.initialLoad(ctx, records, now)
	}

	report := &MergeReport{}
	var conflictRows [][]any
	for _, rec := range records {
		// Rejected records exist for run-output audit only.
		if rec.ValidationStatus == model.StatusRejected {
			report.Skipped++
			continue
		}
		rec.Timestamp = now
		if rec.ValidationStatus == model.StatusConflict {
			conflictRows = append(conflictRows, recordRow(rec))
			continue
		}
		if err := s.mergeResolved(ctx, rec, report); err != nil {
			return nil, err
		}
	}

	if len(conflictRows) > 0 {
		written, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:             "records",
			Columns:           recordColumns,
			ConflictKeys:      []string{"company", "year", "metric_name", "extraction_method", "value"},
			ConflictPredicate: `validation_status = 'conflict'`,
			DoNothing:         true,
		}, conflictRows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: merge conflict records")
		}
		report.Inserted += int(written)
		report.Skipped += len(conflictRows) - int(written)
	}

	return report, nil
}

// initialLoad COPYs a first batch straight into the empty table. With
// nothing to compare against every kept record is an insert, and a run's
// records are key-unique by construction, so the COPY cannot trip the
// dedup indexes.
func (s *PostgresStore) initialLoad(ctx context.Context, records []model.ExtractionRecord, now time.Time) (*MergeReport, error) {
	report := &MergeReport{}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		if rec.ValidationStatus == model.StatusRejected {
			report.Skipped++
			continue
		}
		rec.Timestamp = now
		rows = append(rows, recordRow(rec))
	}

	n, err := db.CopyFrom(ctx, s.pool, "records", recordColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: initial load")
	}
	report.Inserted = int(n)
	return report, nil
}

func (s *PostgresStore) mergeResolved(ctx context.Context, rec model.ExtractionRecord, report *MergeReport) error {
	var existing float64
	err := s.pool.QueryRow(ctx, "lookup_record",
		rec.Company, rec.Year, rec.MetricName, string(rec.ExtractionMethod),
	).Scan(&existing)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.pool.Exec(ctx, "insert_record", recordRow(rec)...)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert record %s", rec.Key())
		}
		report.Inserted++
		return nil
	case err != nil:
		return eris.Wrapf(err, "postgres: lookup record %s", rec.Key())
	}

	if rec.Confidence <= existing {
		report.Skipped++
		return nil
	}

	_, err = s.pool.Exec(ctx, "replace_record",
		rec.ID, rec.Value, rec.Unit, rec.PageNumber, rec.Confidence,
		rec.SourceSection, rec.Context, string(rec.ValidationStatus), rec.Timestamp,
		rec.Company, rec.Year, rec.MetricName, string(rec.ExtractionMethod),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: replace record %s", rec.Key())
	}
	report.Replaced++
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]model.ExtractionRecord, error) {
	query := `SELECT id, metric_name, value, unit, year, page_number, company, confidence,
		source_section, extraction_method, context, validation_status, timestamp
		FROM records WHERE 1=1`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Company != "" {
		query += ` AND company = ` + arg(filter.Company)
	}
	if filter.Year != 0 {
		query += ` AND year = ` + arg(filter.Year)
	}
	if filter.Metric != "" {
		query += ` AND metric_name = ` + arg(filter.Metric)
	}
	if filter.Status != "" {
		query += ` AND validation_status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY company, year, metric_name, extraction_method`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.ExtractionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) Summarize(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		ByStatus: make(map[model.ValidationStatus]int),
		ByMethod: make(map[model.Method]int),
	}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT company) FROM records`,
	).Scan(&sum.Total, &sum.Companies)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summarize totals")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT validation_status, COUNT(*) FROM records GROUP BY validation_status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summarize by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		sum.ByStatus[model.ValidationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: summarize by status iterate")
	}

	mrows, err := s.pool.Query(ctx,
		`SELECT extraction_method, COUNT(*) FROM records GROUP BY extraction_method`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summarize by method")
	}
	defer mrows.Close()
	for mrows.Next() {
		var method string
		var n int
		if err := mrows.Scan(&method, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan method count")
		}
		sum.ByMethod[model.Method(method)] = n
	}
	return sum, eris.Wrap(mrows.Err(), "postgres: summarize by method iterate")
}

func recordRow(rec model.ExtractionRecord) []any {
	return []any{
		rec.ID, rec.MetricName, rec.Value, rec.Unit, rec.Year, rec.PageNumber,
		rec.Company, rec.Confidence, rec.SourceSection,
		string(rec.ExtractionMethod), rec.Context, string(rec.ValidationStatus),
		rec.Timestamp,
	}
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
