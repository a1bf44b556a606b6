package strategy

import (
	"context"

	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/registry"
)

// OCR handles units recovered through optical recognition. It reruns the
// code and keyword matching over the recognized text and scales every
// confidence by the recognition confidence, so a shaky scan can never
// outrank a native-text observation of the same KPI.
type OCR struct {
	p Params
}

// NewOCR creates the OCR detector.
func NewOCR(p Params) *OCR {
	return &OCR{p: p}
}

func (o *OCR) Method() model.Method {
	return model.MethodOCR
}

func (o *OCR) Extract(_ context.Context, unit *model.DocumentUnit, reg *registry.Registry) ([]model.ExtractionCandidate, error) {
	if unit.Origin != model.OriginOCR {
		return nil, nil
	}
	// Strictly above: a page at exactly the floor is too noisy to trust.
	if unit.OCRConfidence <= o.p.OCRMinConfidence {
		return nil, nil
	}

	var out []model.ExtractionCandidate
	for _, loc := range reg.CodePattern().FindAllStringIndex(unit.Text, -1) {
		def, ok := reg.ByCode(unit.Text[loc[0]:loc[1]])
		if !ok {
			continue
		}
		ctxText := window(unit.Text, loc[0], loc[1], o.p.ContextWindow)
		out = append(out, o.p.finish(def, unit, model.MethodOCR, codeConfidence*unit.OCRConfidence, ctxText))
	}

	out = append(out, keywordCandidates(o.p, unit, reg, model.MethodOCR, unit.OCRConfidence)...)
	return out, nil
}
