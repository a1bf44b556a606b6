// Package extract orchestrates a run: documents are normalized and mined
// by every strategy concurrently, then the pooled candidates are
// reconciled into records in one aggregation pass per batch.
package extract

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/esg-extract/internal/aggregate"
	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/embed"
	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/normalize"
	"github.com/sells-group/esg-extract/internal/registry"
	"github.com/sells-group/esg-extract/internal/strategy"
)

// DocumentTask names one input document and its reporting context.
type DocumentTask struct {
	Path    string `json:"path"`
	Company string `json:"company"`
	Year    int    `json:"year"`
}

// Engine runs the extraction pipeline for a loaded KPI registry.
type Engine struct {
	reg        *registry.Registry
	normalizer *normalize.Normalizer
	strategies []strategy.Strategy
	aggregator *aggregate.Aggregator
	workers    int
	docTimeout time.Duration
}

// New wires an engine from config. The embedder may be nil; semantic
// matching is then skipped for the run.
func New(cfg *config.Config, reg *registry.Registry, embedder embed.Embedder) (*Engine, error) {
	var engine normalize.OCREngine
	if cfg.OCR.Provider != "off" {
		tess, err := normalize.NewTesseract(cfg.OCR)
		if err != nil {
			// OCR is a fallback path; a missing binary degrades the run
			// rather than blocking it.
			zap.L().Warn("extract: ocr unavailable", zap.Error(err))
		} else {
			concurrency := cfg.OCR.Concurrency
			if concurrency <= 0 {
				concurrency = 2
			}
			engine = normalize.NewPooledEngine(tess, concurrency)
		}
	}

	workers := cfg.Extract.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	docTimeout := time.Duration(cfg.Extract.DocTimeoutSecs) * time.Second
	if docTimeout <= 0 {
		docTimeout = 5 * time.Minute
	}

	params := strategy.ParamsFromConfig(cfg.Extract, cfg.OCR)
	return &Engine{
		reg:        reg,
		normalizer: normalize.New(cfg.OCR, cfg.Extract.MinTextDensity, engine),
		strategies: strategy.All(params, embedder),
		aggregator: aggregate.New(cfg.Extract),
		workers:    workers,
		docTimeout: docTimeout,
	}, nil
}

// ExtractDocument normalizes one document and runs every strategy over
// every unit, returning the raw candidate pool.
func (e *Engine) ExtractDocument(ctx context.Context, task DocumentTask) ([]model.ExtractionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := e.normalizer.Normalize(ctx, task.Path)
	if err != nil {
		return nil, err
	}

	var cands []model.ExtractionCandidate
	for i := range doc.Units {
		unit := &doc.Units[i]
		for _, strat := range e.strategies {
			found, err := strat.Extract(ctx, unit, e.reg)
			if err != nil {
				return nil, eris.Wrapf(err, "extract: %s strategy on %s page %d",
					strat.Method(), task.Path, unit.PageNumber)
			}
			cands = append(cands, found...)
		}
	}

	for i := range cands {
		cands[i].Company = task.Company
		cands[i].Year = task.Year
	}

	zap.L().Debug("extract: document mined",
		zap.String("path", task.Path),
		zap.Int("pages", doc.Pages),
		zap.Int("units", len(doc.Units)),
		zap.Int("candidates", len(cands)),
	)
	return cands, nil
}

// RunBatch extracts every task with a bounded worker pool and reconciles
// the combined candidate pool. A failed document is recorded in the
// summary and never aborts the batch.
func (e *Engine) RunBatch(ctx context.Context, tasks []DocumentTask) ([]model.ExtractionRecord, *model.RunSummary, error) {
	summary := &model.RunSummary{
		Started:   time.Now().UTC(),
		Documents: len(tasks),
	}

	var mu sync.Mutex
	var pool []model.ExtractionCandidate

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, task := range tasks {
		g.Go(func() error {
			docCtx, cancel := context.WithTimeout(gCtx, e.docTimeout)
			defer cancel()

			cands, err := e.ExtractDocument(docCtx, task)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A canceled parent means the whole batch is going down,
				// not that this document failed.
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				failure := model.DocumentFailure{
					Path:    task.Path,
					Company: task.Company,
					Year:    task.Year,
					Kind:    classifyFailure(err),
					Error:   eris.ToString(err, false),
				}
				summary.CountFailure(failure)
				zap.L().Warn("extract: document failed",
					zap.String("path", task.Path),
					zap.String("kind", string(failure.Kind)),
					zap.Error(err),
				)
				return nil
			}
			summary.Processed++
			pool = append(pool, cands...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "extract: batch canceled")
	}

	records, stats := e.aggregator.Aggregate(pool)
	for _, rec := range records {
		summary.CountRecord(rec)
	}
	summary.Duration = time.Since(summary.Started)

	zap.L().Info("extract: batch complete",
		zap.Int("documents", summary.Documents),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("candidates", stats.Candidates),
		zap.Int("rejected", stats.Rejected),
		zap.Int("conflicts", stats.Conflicts),
		zap.Int("records", summary.Records),
		zap.Duration("duration", summary.Duration),
	)
	return records, summary, nil
}

// classifyFailure maps an extraction error onto the failure taxonomy.
func classifyFailure(err error) model.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.FailureTimeout
	case errors.Is(err, normalize.ErrUnsupportedFormat):
		return model.FailureUnsupportedFormat
	case errors.Is(err, normalize.ErrOCRFailure):
		return model.FailureOCR
	default:
		return model.FailureParse
	}
}
