package dataset

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/esg-extract/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "esg.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// The partial unique indexes encode the dedup rules: one row per
// (company, year, metric, method) for resolved records, while conflict
// rows stay unique per distinct value so divergent observations coexist.
// SQL NULLs compare distinct in unique indexes, so a missing value is
// folded to a sentinel no parsed value can produce; without it a
// nil-value conflict row would re-insert on every merge.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                TEXT PRIMARY KEY,
	metric_name       TEXT NOT NULL,
	value             REAL,
	unit              TEXT NOT NULL,
	year              INTEGER NOT NULL,
	page_number       INTEGER NOT NULL DEFAULT 0,
	company           TEXT NOT NULL,
	confidence        REAL NOT NULL,
	source_section    TEXT,
	extraction_method TEXT NOT NULL,
	context           TEXT,
	validation_status TEXT NOT NULL,
	timestamp         DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_records_key
	ON records(company, year, metric_name, extraction_method)
	WHERE validation_status != 'conflict';
CREATE UNIQUE INDEX IF NOT EXISTS idx_records_conflict_key
	ON records(company, year, metric_name, extraction_method, COALESCE(value, -9e999))
	WHERE validation_status = 'conflict';
CREATE INDEX IF NOT EXISTS idx_records_company_year ON records(company, year);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(validation_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Merge applies the dedup rules record by record inside one transaction,
// so re-merging the same run is idempotent. Stored rows carry the merge
// time, not the run time the records arrived with.
func (s *SQLiteStore) Merge(ctx context.Context, records []model.ExtractionRecord) (*MergeReport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin merge")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	report := &MergeReport{}
	for _, rec := range records {
		// Rejected records exist for run-output audit only.
		if rec.ValidationStatus == model.StatusRejected {
			report.Skipped++
			continue
		}
		rec.Timestamp = now
		if rec.ValidationStatus == model.StatusConflict {
			if err := s.mergeConflict(ctx, tx, rec, report); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.mergeResolved(ctx, tx, rec, report); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit merge")
	}
	return report, nil
}

func (s *SQLiteStore) mergeConflict(ctx context.Context, tx *sql.Tx, rec model.ExtractionRecord, report *MergeReport) error {
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO records
		 (id, metric_name, value, unit, year, page_number, company, confidence,
		  source_section, extraction_method, context, validation_status, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insertArgs(rec)...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert conflict record %s", rec.Key())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		report.Skipped++
	} else {
		report.Inserted++
	}
	return nil
}

func (s *SQLiteStore) mergeResolved(ctx context.Context, tx *sql.Tx, rec model.ExtractionRecord, report *MergeReport) error {
	var existing float64
	err := tx.QueryRowContext(ctx,
		`SELECT confidence FROM records
		 WHERE company = ? AND year = ? AND metric_name = ? AND extraction_method = ?
		   AND validation_status != 'conflict'`,
		rec.Company, rec.Year, rec.MetricName, string(rec.ExtractionMethod),
	).Scan(&existing)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO records
			 (id, metric_name, value, unit, year, page_number, company, confidence,
			  source_section, extraction_method, context, validation_status, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			insertArgs(rec)...,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert record %s", rec.Key())
		}
		report.Inserted++
		return nil
	case err != nil:
		return eris.Wrapf(err, "sqlite: lookup record %s", rec.Key())
	}

	if rec.Confidence <= existing {
		report.Skipped++
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE records SET id = ?, value = ?, unit = ?, page_number = ?, confidence = ?,
		  source_section = ?, context = ?, validation_status = ?, timestamp = ?
		 WHERE company = ? AND year = ? AND metric_name = ? AND extraction_method = ?
		   AND validation_status != 'conflict'`,
		rec.ID, nullFloat(rec.Value), rec.Unit, rec.PageNumber, rec.Confidence,
		rec.SourceSection, rec.Context, string(rec.ValidationStatus), rec.Timestamp,
		rec.Company, rec.Year, rec.MetricName, string(rec.ExtractionMethod),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: replace record %s", rec.Key())
	}
	report.Replaced++
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]model.ExtractionRecord, error) {
	query := `SELECT id, metric_name, value, unit, year, page_number, company, confidence,
		source_section, extraction_method, context, validation_status, timestamp
		FROM records WHERE 1=1`
	var args []any

	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	if filter.Year != 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	if filter.Metric != "" {
		query += ` AND metric_name = ?`
		args = append(args, filter.Metric)
	}
	if filter.Status != "" {
		query += ` AND validation_status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY company, year, metric_name, extraction_method`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
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
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) Summarize(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		ByStatus: make(map[model.ValidationStatus]int),
		ByMethod: make(map[model.Method]int),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT company) FROM records`,
	).Scan(&sum.Total, &sum.Companies)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize totals")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT validation_status, COUNT(*) FROM records GROUP BY validation_status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		sum.ByStatus[model.ValidationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize by status iterate")
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT extraction_method, COUNT(*) FROM records GROUP BY extraction_method`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize by method")
	}
	defer mrows.Close()
	for mrows.Next() {
		var method string
		var n int
		if err := mrows.Scan(&method, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan method count")
		}
		sum.ByMethod[model.Method(method)] = n
	}
	return sum, eris.Wrap(mrows.Err(), "sqlite: summarize by method iterate")
}

// helpers

func insertArgs(rec model.ExtractionRecord) []any {
	return []any{
		rec.ID, rec.MetricName, nullFloat(rec.Value), rec.Unit, rec.Year,
		rec.PageNumber, rec.Company, rec.Confidence, rec.SourceSection,
		string(rec.ExtractionMethod), rec.Context, string(rec.ValidationStatus),
		rec.Timestamp,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.ExtractionRecord, error) {
	var rec model.ExtractionRecord
	var value sql.NullFloat64
	var section, context sql.NullString

	err := row.Scan(&rec.ID, &rec.MetricName, &value, &rec.Unit, &rec.Year,
		&rec.PageNumber, &rec.Company, &rec.Confidence, &section,
		&rec.ExtractionMethod, &context, &rec.ValidationStatus, &rec.Timestamp)
	if err != nil {
		return nil, eris.Wrap(err, "scan record")
	}

	if value.Valid {
		v := value.Float64
		rec.Value = &v
	}
	rec.SourceSection = section.String
	rec.Context = context.String
	return &rec, nil
}
