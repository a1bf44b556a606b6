package strategy

import (
	"context"

	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/registry"
)

const (
	keywordHitWeight = 0.2
	keywordConfCap   = 0.8
)

// Keyword counts distinct definition keywords in the folded unit text.
// Coarse but language-blind: the keyword sets carry both the English and
// French definition names.
type Keyword struct {
	p Params
}

// NewKeyword creates the keyword detector.
func NewKeyword(p Params) *Keyword {
	return &Keyword{p: p}
}

func (k *Keyword) Method() model.Method {
	return model.MethodKeyword
}

func (k *Keyword) Extract(_ context.Context, unit *model.DocumentUnit, reg *registry.Registry) ([]model.ExtractionCandidate, error) {
	if unit.Origin == model.OriginOCR {
		return nil, nil
	}
	return keywordCandidates(k.p, unit, reg, model.MethodKeyword, 1.0), nil
}

// keywordCandidates is shared with the OCR detector, which reruns the same
// matching over recognized text with a confidence discount.
func keywordCandidates(p Params, unit *model.DocumentUnit, reg *registry.Registry, method model.Method, scale float64) []model.ExtractionCandidate {
	tokens := registry.FoldTokens(unit.Text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}

	var out []model.ExtractionCandidate
	for _, def := range reg.Definitions() {
		hits := 0
		for kw := range def.Keywords {
			if _, ok := seen[kw]; ok {
				hits++
			}
		}
		if hits < p.KeywordMinHits {
			continue
		}
		conf := keywordHitWeight * float64(hits)
		if conf > keywordConfCap {
			conf = keywordConfCap
		}
		out = append(out, p.finish(def, unit, method, conf*scale, unit.Text))
	}
	return out
}
