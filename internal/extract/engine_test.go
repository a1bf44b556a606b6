package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/normalize"
	"github.com/sells-group/esg-extract/internal/registry"
)

const reportHTML = `<html><body>
<h1>Environmental performance</h1>
<p>Per EM-MM-110a.1, gross global Scope 1 emissions were 12,500 tCO2e in 2023.</p>
<p>Scope 1 emissions fell against the prior year baseline of 13,100 tCO2e.</p>
</body></html>`

func testEngine(t *testing.T) *Engine {
	t.Helper()

	defs := []*model.KPIDefinition{{
		NameEN:    "Gross global Scope 1 emissions",
		Topic:     "GHG Emissions",
		SourceTag: "SASB EM-MM-110a.1",
		Keywords: map[string]struct{}{
			"gross": {}, "global": {}, "scope": {}, "emissions": {},
		},
		Categories: []model.UnitCategory{model.UnitEmissions},
		Range:      &model.ValueRange{Min: 0, Max: 1_000_000},
	}}
	reg, err := registry.New(defs)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.OCR.Provider = "off"
	cfg.Extract.Workers = 2

	engine, err := New(cfg, reg, nil)
	require.NoError(t, err)
	return engine
}

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractDocument_PoolsAllStrategies(t *testing.T) {
	engine := testEngine(t)
	path := writeReport(t, "acme-2023.html", reportHTML)

	cands, err := engine.ExtractDocument(context.Background(), DocumentTask{
		Path: path, Company: "Acme Mining", Year: 2023,
	})
	require.NoError(t, err)
	require.NotEmpty(t, cands)

	methods := map[model.Method]bool{}
	for _, c := range cands {
		methods[c.Method] = true
		assert.Equal(t, "Acme Mining", c.Company)
		assert.Equal(t, 2023, c.Year)
	}
	// Code and keyword both fire on the disclosure paragraph.
	assert.True(t, methods[model.MethodCode])
	assert.True(t, methods[model.MethodKeyword])
}

func TestRunBatch_ProducesRecords(t *testing.T) {
	engine := testEngine(t)
	path := writeReport(t, "acme-2023.html", reportHTML)

	records, summary, err := engine.RunBatch(context.Background(), []DocumentTask{
		{Path: path, Company: "Acme Mining", Year: 2023},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Failed)
	require.NotEmpty(t, records)

	for _, rec := range records {
		assert.Equal(t, "Gross global Scope 1 emissions", rec.MetricName)
		assert.Equal(t, "Acme Mining", rec.Company)
		assert.NotEmpty(t, rec.ID)
	}
	assert.Equal(t, len(records), summary.Records)
}

func TestRunBatch_FailedDocumentDoesNotAbort(t *testing.T) {
	engine := testEngine(t)
	good := writeReport(t, "good.html", reportHTML)
	bad := writeReport(t, "bad.xlsx", "not a report")

	records, summary, err := engine.RunBatch(context.Background(), []DocumentTask{
		{Path: good, Company: "Acme Mining", Year: 2023},
		{Path: bad, Company: "Acme Mining", Year: 2023},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.ByFailure[model.FailureUnsupportedFormat])
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, bad, summary.Failures[0].Path)
	assert.NotEmpty(t, records)
}

func TestRunBatch_CanceledContextAborts(t *testing.T) {
	engine := testEngine(t)
	path := writeReport(t, "acme-2023.html", reportHTML)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := engine.RunBatch(ctx, []DocumentTask{
		{Path: path, Company: "Acme Mining", Year: 2023},
	})
	require.Error(t, err)
}

func TestClassifyFailure(t *testing.T) {
	assert.Equal(t, model.FailureTimeout, classifyFailure(context.DeadlineExceeded))
	assert.Equal(t, model.FailureUnsupportedFormat, classifyFailure(normalize.ErrUnsupportedFormat))
	assert.Equal(t, model.FailureOCR, classifyFailure(normalize.ErrOCRFailure))
	assert.Equal(t, model.FailureParse, classifyFailure(normalize.ErrParseFailure))
	assert.Equal(t, model.FailureParse, classifyFailure(assert.AnError))
}
