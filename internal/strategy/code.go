package strategy

import (
	"context"

	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/registry"
)

// codeConfidence is the fixed confidence for standardized-code matches.
// A disclosure code printed in the document is as deterministic a signal
// as this system gets.
const codeConfidence = 0.9

// Code matches standardized SASB disclosure codes against the registry's
// code index.
type Code struct {
	p Params
}

// NewCode creates the code detector.
func NewCode(p Params) *Code {
	return &Code{p: p}
}

func (c *Code) Method() model.Method {
	return model.MethodCode
}

// Extract emits one candidate per indexed code occurrence. OCR-origin
// units are left to the OCR detector, which discounts their confidence.
func (c *Code) Extract(_ context.Context, unit *model.DocumentUnit, reg *registry.Registry) ([]model.ExtractionCandidate, error) {
	if unit.Origin == model.OriginOCR {
		return nil, nil
	}

	var out []model.ExtractionCandidate
	for _, loc := range reg.CodePattern().FindAllStringIndex(unit.Text, -1) {
		code := unit.Text[loc[0]:loc[1]]
		def, ok := reg.ByCode(code)
		if !ok {
			continue
		}
		ctxText := window(unit.Text, loc[0], loc[1], c.p.ContextWindow)
		out = append(out, c.p.finish(def, unit, model.MethodCode, codeConfidence, ctxText))
	}
	return out, nil
}
