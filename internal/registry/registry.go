// Package registry loads and indexes the KPI definitions table. A Registry
// is built once per run, precomputes its matcher metadata and embeddings,
// and is shared read-only across workers.
package registry

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/embed"
	"github.com/sells-group/esg-extract/internal/model"
)

// codePattern matches standardized SASB disclosure codes, e.g. EM-MM-110a.1.
var codePattern = regexp.MustCompile(`[A-Z]{2}-[A-Z]{2}-\d{3}[a-z]?(\.\d+)?`)

// Registry is the read-only index of KPI definitions.
type Registry struct {
	defs   []*model.KPIDefinition
	byName map[string]*model.KPIDefinition
	byCode map[string]*model.KPIDefinition
}

// New builds a registry from parsed definitions. Duplicate English names
// are an error: the name is the registry's primary key.
func New(defs []*model.KPIDefinition) (*Registry, error) {
	r := &Registry{
		defs:   defs,
		byName: make(map[string]*model.KPIDefinition, len(defs)),
		byCode: make(map[string]*model.KPIDefinition),
	}
	for _, d := range defs {
		if _, dup := r.byName[d.NameEN]; dup {
			return nil, eris.Errorf("registry: duplicate definition %q", d.NameEN)
		}
		r.byName[d.NameEN] = d

		// SASB codes may appear in the name or the source tag.
		for _, code := range codePattern.FindAllString(d.NameEN+" "+d.SourceTag, -1) {
			if _, taken := r.byCode[code]; !taken {
				r.byCode[code] = d
			}
		}
	}
	return r, nil
}

// Definitions returns all definitions in load order. Callers must not mutate.
func (r *Registry) Definitions() []*model.KPIDefinition {
	return r.defs
}

// ByName looks up a definition by its English name.
func (r *Registry) ByName(name string) (*model.KPIDefinition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// ByCode looks up a definition by SASB code.
func (r *Registry) ByCode(code string) (*model.KPIDefinition, bool) {
	d, ok := r.byCode[code]
	return d, ok
}

// CodePattern returns the compiled SASB code matcher.
func (r *Registry) CodePattern() *regexp.Regexp {
	return codePattern
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Precompute embeds every definition's canonical text once. Must be called
// before workers start; the registry is never mutated afterwards.
func (r *Registry) Precompute(ctx context.Context, embedder embed.Embedder) error {
	texts := make([]string, len(r.defs))
	for i, d := range r.defs {
		text := d.NameEN
		if d.Topic != "" {
			text += " " + d.Topic
		}
		texts[i] = text
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return eris.Wrap(err, "registry: precompute embeddings")
	}
	for i, d := range r.defs {
		d.Embedding = vecs[i]
	}

	zap.L().Info("registry: embeddings precomputed",
		zap.Int("definitions", len(r.defs)),
		zap.Int("dimensions", embedder.Dimensions()),
	)
	return nil
}

// definitionFromRow builds one KPIDefinition from a table row keyed by
// header column name.
func definitionFromRow(row map[string]string) (*model.KPIDefinition, error) {
	name := strings.TrimSpace(row["kpi_name"])
	if name == "" {
		return nil, eris.New("registry: empty kpi_name")
	}

	nameFR := strings.TrimSpace(row["kpi_name_fr"])
	topic := strings.TrimSpace(row["topic"])

	def := &model.KPIDefinition{
		NameEN:       name,
		NameFR:       nameFR,
		Topic:        topic,
		TopicFR:      strings.TrimSpace(row["topic_fr"]),
		Priority:     parseTier(row["score"]),
		SourceTag:    strings.TrimSpace(row["source"]),
		AppliesToAll: parseBool(row["applies_to_all"]),
	}

	if ts := strings.TrimSpace(row["topic_score"]); ts != "" {
		v, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: topic_score for %q", name)
		}
		def.TopicScore = v
	}

	def.Keywords = extractKeywords(name, nameFR)
	def.Categories = deriveCategories(name, topic)
	def.ExpectedUnits = expectedUnits(def.Categories)
	if len(def.Categories) > 0 {
		rng := rangeByCategory[def.Categories[0]]
		def.Range = &rng
	}

	return def, nil
}

// parseTier reads a priority like "A - High" down to its tier letter.
func parseTier(s string) model.PriorityTier {
	s = strings.TrimSpace(strings.ToUpper(s))
	switch {
	case strings.HasPrefix(s, "A"):
		return model.TierA
	case strings.HasPrefix(s, "B"):
		return model.TierB
	default:
		return model.TierC
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}
