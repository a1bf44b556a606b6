// Package strategy implements the closed set of extraction detectors. Each
// strategy is a pure mapping from (DocumentUnit, Registry) to candidates;
// all of them run over every unit and their outputs are pooled, never
// chosen exclusively. Extend by adding a variant, not by inheritance.
package strategy

import (
	"context"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/embed"
	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/registry"
)

// Strategy detects KPI observations in a single document unit.
type Strategy interface {
	Method() model.Method
	Extract(ctx context.Context, unit *model.DocumentUnit, reg *registry.Registry) ([]model.ExtractionCandidate, error)
}

// Params carries the tuning shared by the detectors.
type Params struct {
	SemanticThreshold  float64
	KeywordMinHits     int
	UnknownUnitPenalty float64
	ContextWindow      int
	OCRMinConfidence   float64
}

// ParamsFromConfig fills defaults for zero values.
func ParamsFromConfig(cfg config.ExtractConfig, ocrCfg config.OCRConfig) Params {
	p := Params{
		SemanticThreshold:  cfg.SemanticThreshold,
		KeywordMinHits:     cfg.KeywordMinHits,
		UnknownUnitPenalty: cfg.UnknownUnitPenalty,
		ContextWindow:      cfg.ContextWindow,
		OCRMinConfidence:   ocrCfg.MinConfidence,
	}
	if p.SemanticThreshold <= 0 {
		p.SemanticThreshold = 0.6
	}
	if p.KeywordMinHits <= 0 {
		p.KeywordMinHits = 2
	}
	if p.UnknownUnitPenalty <= 0 {
		p.UnknownUnitPenalty = 0.1
	}
	if p.ContextWindow <= 0 {
		p.ContextWindow = 100
	}
	if p.OCRMinConfidence <= 0 {
		p.OCRMinConfidence = 0.3
	}
	return p
}

// All builds the full strategy set. The embedder may be nil, in which case
// the semantic detector is omitted (no embeddings, no similarity scores).
func All(p Params, embedder embed.Embedder) []Strategy {
	strategies := []Strategy{NewCode(p)}
	if embedder != nil {
		strategies = append(strategies, NewSemantic(p, embedder))
	}
	return append(strategies, NewKeyword(p), NewOCR(p))
}

// finish applies the shared value-window parsing and the unknown-unit
// penalty, completing a candidate.
func (p Params) finish(def *model.KPIDefinition, unit *model.DocumentUnit, method model.Method, base float64, ctxText string) model.ExtractionCandidate {
	parsed := parseValue(ctxText, def.Categories)

	conf := base
	if parsed.Unit == UnknownUnit {
		conf -= p.UnknownUnitPenalty
	}

	return model.ExtractionCandidate{
		Definition: def,
		Unit:       unit,
		Value:      parsed.Value,
		ValueUnit:  parsed.Unit,
		Confidence: clamp(conf),
		Method:     method,
		Context:    ctxText,
	}
}
