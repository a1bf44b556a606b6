package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-extract/internal/model"
)

var csvHeader = []string{
	"id", "metric_name", "value", "unit", "year", "page_number", "company",
	"confidence", "source_section", "extraction_method", "context",
	"validation_status", "timestamp",
}

// WriteCSV writes a run's records to path, header first.
func WriteCSV(path string, records []model.ExtractionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			return eris.Wrapf(err, "csv: write record %s", rec.ID)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "csv: flush")
}

// ReadCSV loads a run output file back into records, for merging
// previously extracted runs into the master dataset.
func ReadCSV(path string) ([]model.ExtractionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "csv: read header of %s", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("csv: %s: missing column %q", path, name)
		}
	}

	var records []model.ExtractionRecord
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "csv: %s line %d", path, line)
		}
		rec, err := recordFromRow(row, col)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: %s line %d", path, line)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func csvRow(rec model.ExtractionRecord) []string {
	value := ""
	if rec.Value != nil {
		value = strconv.FormatFloat(*rec.Value, 'g', -1, 64)
	}
	return []string{
		rec.ID,
		rec.MetricName,
		value,
		rec.Unit,
		strconv.Itoa(rec.Year),
		strconv.Itoa(rec.PageNumber),
		rec.Company,
		strconv.FormatFloat(rec.Confidence, 'g', -1, 64),
		rec.SourceSection,
		string(rec.ExtractionMethod),
		rec.Context,
		string(rec.ValidationStatus),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func recordFromRow(row []string, col map[string]int) (*model.ExtractionRecord, error) {
	get := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	year, err := strconv.Atoi(get("year"))
	if err != nil {
		return nil, eris.Wrap(err, "parse year")
	}
	page, err := strconv.Atoi(get("page_number"))
	if err != nil {
		return nil, eris.Wrap(err, "parse page_number")
	}
	conf, err := strconv.ParseFloat(get("confidence"), 64)
	if err != nil {
		return nil, eris.Wrap(err, "parse confidence")
	}
	ts, err := time.Parse(time.RFC3339Nano, get("timestamp"))
	if err != nil {
		return nil, eris.Wrap(err, "parse timestamp")
	}

	rec := &model.ExtractionRecord{
		ID:               get("id"),
		MetricName:       get("metric_name"),
		Unit:             get("unit"),
		Year:             year,
		PageNumber:       page,
		Company:          get("company"),
		Confidence:       conf,
		SourceSection:    get("source_section"),
		ExtractionMethod: model.Method(get("extraction_method")),
		Context:          get("context"),
		ValidationStatus: model.ValidationStatus(get("validation_status")),
		Timestamp:        ts,
	}
	if raw := get("value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrap(err, "parse value")
		}
		rec.Value = &v
	}
	return rec, nil
}
