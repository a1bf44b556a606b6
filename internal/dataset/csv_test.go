package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-extract/internal/model"
)

func TestCSV_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")

	withValue := testRecord("Scope 1 emissions", 0.9, model.StatusValidated)
	// Records are stamped at nanosecond precision; the round trip must not
	// shave it off.
	withValue.Timestamp = time.Date(2026, 8, 30, 19, 4, 46, 120118640, time.UTC)
	noValue := testRecord("Total energy consumed", 0.35, model.StatusLowConfidence)
	noValue.Value = nil
	noValue.Unit = "unknown"

	require.NoError(t, WriteCSV(path, []model.ExtractionRecord{withValue, noValue}))

	records, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, withValue, records[0])
	assert.True(t, withValue.Timestamp.Equal(records[0].Timestamp))
	assert.Nil(t, records[1].Value)
	assert.Equal(t, "unknown", records[1].Unit)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,metric_name\nx,y\n"), 0o644))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestReadCSV_BadYear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	rec := testRecord("Scope 1 emissions", 0.9, model.StatusValidated)
	require.NoError(t, WriteCSV(path, []model.ExtractionRecord{rec}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = append(data, []byte("z,Broken,1,t,notayear,1,X,0.5,s,code,ctx,validated,2023-01-02T00:00:00Z\n")...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse year")
}
