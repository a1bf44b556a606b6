package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
)

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kpis.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testDefinitions = `kpi_name;kpi_name_fr;topic;topic_fr;score;source;applies_to_all;topic_score
Gross global Scope 1 emissions;Émissions brutes de scope 1;GHG Emissions;Émissions de GES;A - High;SASB EM-MM-110a.1;true;0.95
Total energy consumed;Énergie totale consommée;Energy Management;Gestion de l'énergie;B - Medium;SASB EM-MM-130a.1;false;0.7
Total recordable incident rate;Taux d'incidents enregistrables;Workforce Health;Santé au travail;A - High;SASB EM-MM-320a.1;true;0.9
`

func TestLoad_CSV(t *testing.T) {
	path := writeTestCSV(t, testDefinitions)

	reg, err := Load(config.RegistryConfig{Path: path, Separator: ";"})
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	def, ok := reg.ByName("Gross global Scope 1 emissions")
	require.True(t, ok)
	assert.Equal(t, model.TierA, def.Priority)
	assert.Equal(t, "Émissions brutes de scope 1", def.NameFR)
	assert.True(t, def.AppliesToAll)
	assert.InDelta(t, 0.95, def.TopicScore, 1e-9)

	// Priority letters are stripped from their long form.
	energy, ok := reg.ByName("Total energy consumed")
	require.True(t, ok)
	assert.Equal(t, model.TierB, energy.Priority)
	assert.False(t, energy.AppliesToAll)
}

func TestLoad_CodeIndexFromSourceTag(t *testing.T) {
	path := writeTestCSV(t, testDefinitions)

	reg, err := Load(config.RegistryConfig{Path: path, Separator: ";"})
	require.NoError(t, err)

	def, ok := reg.ByCode("EM-MM-110a.1")
	require.True(t, ok)
	assert.Equal(t, "Gross global Scope 1 emissions", def.NameEN)

	_, ok = reg.ByCode("EM-MM-999a.9")
	assert.False(t, ok)
}

func TestLoad_MissingNameColumn(t *testing.T) {
	path := writeTestCSV(t, "topic;score\nGHG;A - High\n")

	_, err := Load(config.RegistryConfig{Path: path, Separator: ";"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kpi_name")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(config.RegistryConfig{Path: "kpis.json"})
	require.Error(t, err)
}

func TestNew_DuplicateName(t *testing.T) {
	defs := []*model.KPIDefinition{
		{NameEN: "Total water withdrawn"},
		{NameEN: "Total water withdrawn"},
	}
	_, err := New(defs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestFold(t *testing.T) {
	assert.Equal(t, "emissions", Fold("Émissions"))
	assert.Equal(t, "energie", Fold("Énergie"))
	assert.Equal(t, "sante", Fold("Santé"))
	assert.Equal(t, "water", Fold("Water"))
}

func TestExtractKeywords(t *testing.T) {
	kw := extractKeywords("Gross global Scope 1 emissions", "Émissions brutes de scope 1")

	assert.Contains(t, kw, "emissions")
	assert.Contains(t, kw, "scope")
	assert.Contains(t, kw, "brutes")
	// Short tokens and stopwords are filtered.
	assert.NotContains(t, kw, "1")
	assert.NotContains(t, kw, "de")
	assert.NotContains(t, kw, "the")
}

func TestDeriveCategories(t *testing.T) {
	cats := deriveCategories("Gross global Scope 1 emissions", "GHG Emissions")
	require.NotEmpty(t, cats)
	assert.Equal(t, model.UnitEmissions, cats[0])

	cats = deriveCategories("Total recordable incident rate", "Workforce Health")
	require.NotEmpty(t, cats)
	// Percentage triggers on "rate" before incidents.
	assert.Equal(t, model.UnitPercentage, cats[0])
	assert.Contains(t, cats, model.UnitIncidents)

	assert.Empty(t, deriveCategories("Board diversity disclosure", "Governance"))
}

func TestCodePattern(t *testing.T) {
	reg, err := New(nil)
	require.NoError(t, err)

	matches := reg.CodePattern().FindAllString(
		"See EM-MM-110a.1 and IF-WM-000.A for details; EMMM-110 is not a code.", -1)
	assert.Contains(t, matches, "EM-MM-110a.1")
	assert.NotContains(t, matches, "EMMM-110")
}
