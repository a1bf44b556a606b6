package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
)

const testHTML = `<!DOCTYPE html>
<html>
<head><title>Acme Sustainability Report 2023</title>
<style>.x{color:red}</style>
<script>console.log("tracking")</script>
</head>
<body>
<nav>Home | Reports | Contact</nav>
<h1>Environmental performance</h1>
<p>Gross global Scope 1 emissions were 12,500 tCO2e in 2023.</p>
<p>ok</p>
<ul><li>Total energy consumed reached 4,210 MWh.</li></ul>
<table>
<tr><th>Metric</th><th>Value</th></tr>
<tr><td>Water withdrawn</td><td>310 m3</td></tr>
</table>
<footer>© Acme 2023</footer>
</body>
</html>`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestNormalizer() *Normalizer {
	return New(config.OCRConfig{}, 120, nil)
}

func TestNormalize_HTML(t *testing.T) {
	path := writeTestFile(t, "report.html", testHTML)

	doc, err := newTestNormalizer().Normalize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages)
	require.NotEmpty(t, doc.Units)

	var texts []string
	for _, u := range doc.Units {
		texts = append(texts, u.Text)
		assert.Equal(t, model.OriginNative, u.Origin)
		assert.Equal(t, 1, u.PageNumber)
	}

	assert.Contains(t, texts, "Environmental performance")
	assert.Contains(t, texts, "Gross global Scope 1 emissions were 12,500 tCO2e in 2023.")
	assert.Contains(t, texts, "Total energy consumed reached 4,210 MWh.")
	assert.Contains(t, texts, "Water withdrawn | 310 m3")

	// Script, style, nav, footer, and short crumbs are dropped.
	for _, text := range texts {
		assert.NotContains(t, text, "tracking")
		assert.NotContains(t, text, "color:red")
		assert.NotEqual(t, "ok", text)
		assert.NotContains(t, text, "Home |")
	}
}

func TestNormalize_HTMLSectionLabels(t *testing.T) {
	path := writeTestFile(t, "report.htm", testHTML)

	doc, err := newTestNormalizer().Normalize(context.Background(), path)
	require.NoError(t, err)

	byText := map[string]string{}
	for _, u := range doc.Units {
		byText[u.Text] = u.SectionLabel
	}
	assert.Equal(t, "Environmental", byText["Gross global Scope 1 emissions were 12,500 tCO2e in 2023."])
	assert.Equal(t, "Environmental", byText["Total energy consumed reached 4,210 MWh."])
}

func TestNormalize_EmptyHTMLIsParseFailure(t *testing.T) {
	path := writeTestFile(t, "empty.html", "<html><body><script>x()</script></body></html>")

	_, err := newTestNormalizer().Normalize(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailure))
}

func TestNormalize_UnsupportedFormat(t *testing.T) {
	path := writeTestFile(t, "report.docx", "not really a docx")

	_, err := newTestNormalizer().Normalize(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestIdentifySection(t *testing.T) {
	assert.Equal(t, "Environmental", identifySection("Total carbon emissions fell by 4%"))
	assert.Equal(t, "Social", identifySection("Employee turnover and community programs"))
	assert.Equal(t, "Governance", identifySection("Board oversight of ethics policy"))
	assert.Equal(t, "Financial", identifySection("Revenue grew 12% year over year"))
	assert.Equal(t, "General", identifySection("About this report"))
}

func TestSplitBlocks(t *testing.T) {
	blocks := splitBlocks("first paragraph\nstill first\n\nsecond paragraph\n\n\n  \n\nthird")
	assert.Equal(t, []string{"first paragraph\nstill first", "second paragraph", "third"}, blocks)
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"5\t1\t1\t1\t1\t1\t10\t10\t40\t12\t96.5\tScope\n" +
		"5\t1\t1\t1\t1\t2\t55\t10\t20\t12\t88.1\t1\n" +
		"5\t1\t1\t1\t2\t1\t10\t30\t70\t12\t75.4\temissions\n" +
		"4\t1\t1\t1\t2\t0\t10\t30\t70\t12\t-1\t\n"

	text, conf := parseTSV(tsv)
	assert.Equal(t, "Scope 1\nemissions", text)
	assert.InDelta(t, (96.5+88.1+75.4)/3/100, conf, 1e-9)
}

func TestParseTSV_Empty(t *testing.T) {
	text, conf := parseTSV("header only\n")
	assert.Empty(t, text)
	assert.Zero(t, conf)
}

func TestPooledEngine_PropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewPooledEngine(stubEngine{}, 1)
	_, err := engine.Recognize(ctx, "page-001.png")
	require.Error(t, err)
}

type stubEngine struct{}

func (stubEngine) Recognize(context.Context, string) (*OCRResult, error) {
	return &OCRResult{Text: "ok", Confidence: 0.9}, nil
}
