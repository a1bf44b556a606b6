package registry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
)

// Load reads the KPI definitions table from CSV or XLSX and builds the
// registry. A load failure is fatal for the run: no definitions means no
// extraction is possible.
func Load(cfg config.RegistryConfig) (*Registry, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(cfg.Path)) {
	case ".csv":
		rows, err = readCSV(cfg.Path, cfg.Separator)
	case ".xlsx":
		rows, err = readXLSX(cfg.Path, cfg.Sheet)
	default:
		return nil, eris.Errorf("registry: unsupported definitions file %q", cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("registry: no definition rows in %s", cfg.Path)
	}

	header := rows[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIdx["kpi_name"]; !ok {
		return nil, eris.Errorf("registry: missing kpi_name column in %s", cfg.Path)
	}

	defs := make([]*model.KPIDefinition, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec := make(map[string]string, len(colIdx))
		for col, i := range colIdx {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		def, err := definitionFromRow(rec)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: row %d", n+2)
		}
		defs = append(defs, def)
	}

	r, err := New(defs)
	if err != nil {
		return nil, err
	}

	zap.L().Info("registry: definitions loaded",
		zap.String("path", cfg.Path),
		zap.Int("definitions", r.Len()),
	)
	return r, nil
}

func readCSV(path, separator string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if separator != "" {
		reader.Comma = rune(separator[0])
	}
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "registry: read csv")
	}
	return rows, nil
}

func readXLSX(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("registry: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("registry: xlsx has no sheets")
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
