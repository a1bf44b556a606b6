// Package aggregate reconciles the pooled strategy candidates for one
// (company, year) run into validated extraction records. Validation demotes
// implausible candidates to rejected records, tolerance clustering collapses
// near-duplicate observations, and genuinely divergent values survive as
// conflict records rather than being silently merged.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
)

// Aggregator validates and reconciles extraction candidates.
type Aggregator struct {
	rejectBelow   float64
	validateAbove float64
	tolerance     float64
	minContext    int
}

// Stats summarizes one aggregation pass.
type Stats struct {
	Candidates int
	Rejected   int
	Collapsed  int
	Conflicts  int
}

// New builds an aggregator from config, filling defaults for zero values.
func New(cfg config.ExtractConfig) *Aggregator {
	a := &Aggregator{
		rejectBelow:   cfg.RejectConfidence,
		validateAbove: cfg.ValidateConfidence,
		tolerance:     cfg.ValueTolerance,
		minContext:    cfg.MinContextChars,
	}
	if a.rejectBelow <= 0 {
		a.rejectBelow = 0.3
	}
	if a.validateAbove <= 0 {
		a.validateAbove = 0.5
	}
	if a.tolerance <= 0 {
		a.tolerance = 0.05
	}
	if a.minContext <= 0 {
		a.minContext = 10
	}
	return a
}

type groupKey struct {
	metric  string
	company string
	year    int
}

// Aggregate runs validation, grouping, and conflict resolution over the
// full candidate pool of a run.
func (a *Aggregator) Aggregate(cands []model.ExtractionCandidate) ([]model.ExtractionRecord, Stats) {
	stats := Stats{Candidates: len(cands)}

	groups := make(map[groupKey][]model.ExtractionCandidate)
	var order []groupKey
	var rejected []model.ExtractionRecord
	for _, c := range cands {
		if !a.accept(c) {
			// Rejected candidates stay in the run output for audit;
			// the stores refuse them at merge time.
			stats.Rejected++
			rejected = append(rejected, a.record([]model.ExtractionCandidate{c}, model.StatusRejected))
			continue
		}
		k := groupKey{metric: c.Definition.NameEN, company: c.Company, year: c.Year}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	var records []model.ExtractionRecord
	for _, k := range order {
		clusters := a.cluster(groups[k])
		if len(clusters) == 1 {
			stats.Collapsed += len(clusters[0]) - 1
			records = append(records, a.record(clusters[0], ""))
			continue
		}
		// Divergent values within the same metric: every cluster leader
		// survives as a conflict record so a reviewer sees all of them.
		stats.Conflicts++
		for _, cl := range clusters {
			stats.Collapsed += len(cl) - 1
			records = append(records, a.record(cl, model.StatusConflict))
		}
	}
	return append(records, rejected...), stats
}

// accept applies the validation rules of a single candidate.
func (a *Aggregator) accept(c model.ExtractionCandidate) bool {
	if c.Confidence < a.rejectBelow {
		return false
	}
	if len(strings.TrimSpace(c.Context)) < a.minContext {
		return false
	}
	if c.Value != nil && c.Definition.Range != nil && !c.Definition.Range.Contains(*c.Value) {
		return false
	}
	return true
}

// cluster greedily partitions a group by value, highest confidence first.
// Each candidate joins the first cluster whose leading value is within the
// relative tolerance; candidates without a value share one cluster.
func (a *Aggregator) cluster(group []model.ExtractionCandidate) [][]model.ExtractionCandidate {
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Confidence > group[j].Confidence
	})

	var clusters [][]model.ExtractionCandidate
	for _, c := range group {
		placed := false
		for i, cl := range clusters {
			if a.sameValue(cl[0].Value, c.Value) {
				clusters[i] = append(cl, c)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []model.ExtractionCandidate{c})
		}
	}
	return clusters
}

func (a *Aggregator) sameValue(x, y *float64) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	diff := *x - *y
	if diff < 0 {
		diff = -diff
	}
	ref := *x
	if ref < 0 {
		ref = -ref
	}
	if ref == 0 {
		return diff == 0
	}
	return diff/ref <= a.tolerance
}

// record materializes a cluster as its highest-confidence member, with the
// collapsed alternates noted in the context. A non-empty status argument
// forces it; otherwise the confidence bar decides validated vs low_confidence.
func (a *Aggregator) record(cl []model.ExtractionCandidate, status model.ValidationStatus) model.ExtractionRecord {
	lead := cl[0]
	if status == "" {
		status = model.StatusLowConfidence
		if lead.Confidence >= a.validateAbove {
			status = model.StatusValidated
		}
	}

	ctx := lead.Context
	if len(cl) > 1 {
		var alts []string
		for _, c := range cl[1:] {
			alts = append(alts, describeAlt(c))
		}
		ctx = fmt.Sprintf("%s [alternates: %s]", ctx, strings.Join(alts, "; "))
	}

	rec := model.ExtractionRecord{
		ID:               uuid.NewString(),
		MetricName:       lead.Definition.NameEN,
		Value:            lead.Value,
		Unit:             lead.ValueUnit,
		Year:             lead.Year,
		Company:          lead.Company,
		Confidence:       lead.Confidence,
		ExtractionMethod: lead.Method,
		Context:          ctx,
		ValidationStatus: status,
		Timestamp:        time.Now().UTC(),
	}
	if lead.Unit != nil {
		rec.PageNumber = lead.Unit.PageNumber
		rec.SourceSection = lead.Unit.SectionLabel
	}
	return rec
}

func describeAlt(c model.ExtractionCandidate) string {
	if c.Value == nil {
		return fmt.Sprintf("%s conf=%.2f", c.Method, c.Confidence)
	}
	return fmt.Sprintf("%g %s via %s conf=%.2f", *c.Value, c.ValueUnit, c.Method, c.Confidence)
}
