// Package dataset persists extraction records in the master dataset. Two
// backends share the same merge semantics: a record is inserted when its
// dedup key is absent, replaces the stored record only on strictly higher
// confidence, and is skipped otherwise. Conflict records are exempt from
// collapsing and are kept per distinct value; rejected records never enter
// the master dataset at all.
package dataset

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
)

// Filter narrows List queries.
type Filter struct {
	Company string                 `json:"company,omitempty"`
	Year    int                    `json:"year,omitempty"`
	Metric  string                 `json:"metric,omitempty"`
	Status  model.ValidationStatus `json:"status,omitempty"`
	Limit   int                    `json:"limit,omitempty"`
	Offset  int                    `json:"offset,omitempty"`
}

// MergeReport counts the outcome of one merge pass.
type MergeReport struct {
	Inserted int `json:"inserted"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// Summary aggregates the dataset for reporting.
type Summary struct {
	Total     int                            `json:"total"`
	Companies int                            `json:"companies"`
	ByStatus  map[model.ValidationStatus]int `json:"by_status"`
	ByMethod  map[model.Method]int           `json:"by_method"`
}

// Store is the master dataset persistence interface.
type Store interface {
	Merge(ctx context.Context, records []model.ExtractionRecord) (*MergeReport, error)
	List(ctx context.Context, filter Filter) ([]model.ExtractionRecord, error)
	Summarize(ctx context.Context) (*Summary, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store from config. SQLite is the default backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("dataset: unknown store driver %q", cfg.Driver)
	}
}
