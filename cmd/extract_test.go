package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-extract/internal/extract"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, "path,company,year\nreports/acme-2023.pdf,Acme Mining,2023\nreports/other-2022.html,Other Corp,2022\n")

	tasks, err := readManifest(path)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, extract.DocumentTask{
		Path: "reports/acme-2023.pdf", Company: "Acme Mining", Year: 2023,
	}, tasks[0])
	assert.Equal(t, 2022, tasks[1].Year)
}

func TestReadManifest_ColumnOrderIrrelevant(t *testing.T) {
	path := writeManifest(t, "year,path,company\n2023,reports/acme.pdf,Acme Mining\n")

	tasks, err := readManifest(path)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "reports/acme.pdf", tasks[0].Path)
	assert.Equal(t, "Acme Mining", tasks[0].Company)
}

func TestReadManifest_MissingColumn(t *testing.T) {
	path := writeManifest(t, "path,company\nreports/acme.pdf,Acme Mining\n")

	_, err := readManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "year"`)
}

func TestReadManifest_BadYear(t *testing.T) {
	path := writeManifest(t, "path,company,year\nreports/acme.pdf,Acme Mining,last\n")

	_, err := readManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse year")
}

func TestReadManifest_NoRows(t *testing.T) {
	path := writeManifest(t, "path,company,year\n")

	_, err := readManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document rows")
}

func TestCollectTasks_SingleFileRequiresContext(t *testing.T) {
	extractFile = "report.pdf"
	extractCompany = ""
	extractYear = 0
	t.Cleanup(func() { extractFile = "" })

	_, err := collectTasks()
	require.Error(t, err)

	extractCompany = "Acme Mining"
	extractYear = 2023
	t.Cleanup(func() { extractCompany = ""; extractYear = 0 })

	tasks, err := collectTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "report.pdf", tasks[0].Path)
}
