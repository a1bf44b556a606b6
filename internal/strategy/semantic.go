package strategy

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-extract/internal/embed"
	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/registry"
)

// Semantic matches unit text against canonical definition embeddings by
// cosine similarity. Every definition above the threshold produces a
// candidate; disambiguation between them is the aggregator's job.
type Semantic struct {
	p        Params
	embedder embed.Embedder
}

// NewSemantic creates the semantic detector.
func NewSemantic(p Params, embedder embed.Embedder) *Semantic {
	return &Semantic{p: p, embedder: embedder}
}

func (s *Semantic) Method() model.Method {
	return model.MethodSemantic
}

// Extract embeds the unit text once and scores it against every definition.
func (s *Semantic) Extract(ctx context.Context, unit *model.DocumentUnit, reg *registry.Registry) ([]model.ExtractionCandidate, error) {
	if unit.Origin == model.OriginOCR {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, unit.Text)
	if err != nil {
		return nil, eris.Wrap(err, "semantic: embed unit")
	}

	var out []model.ExtractionCandidate
	for _, def := range reg.Definitions() {
		if def.Embedding == nil {
			continue
		}
		sim := embed.Cosine(vec, def.Embedding)
		if sim < s.p.SemanticThreshold {
			continue
		}
		out = append(out, s.p.finish(def, unit, model.MethodSemantic, sim, unit.Text))
	}
	return out, nil
}
