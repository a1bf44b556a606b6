package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/dataset"
	"github.com/sells-group/esg-extract/internal/extract"
)

var (
	extractFile     string
	extractCompany  string
	extractYear     int
	extractManifest string
	extractOut      string
	extractMerge    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract KPI records from sustainability reports",
	Long:  "Processes a single document or a manifest of documents, writes the run's records to CSV, and optionally merges them into the master dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tasks, err := collectTasks()
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return eris.New("nothing to extract: provide --file or --manifest")
		}

		embedder := initEmbedder()
		reg, err := loadRegistry(ctx, embedder)
		if err != nil {
			return err
		}

		engine, err := extract.New(cfg, reg, embedder)
		if err != nil {
			return eris.Wrap(err, "build engine")
		}

		records, summary, err := engine.RunBatch(ctx, tasks)
		if err != nil {
			return err
		}

		outPath := extractOut
		if outPath == "" {
			dir := cfg.Output.Dir
			if dir == "" {
				dir = "."
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "create output dir %s", dir)
			}
			outPath = filepath.Join(dir, fmt.Sprintf("run-%s.csv", time.Now().UTC().Format("20060102-150405")))
		}
		if err := dataset.WriteCSV(outPath, records); err != nil {
			return err
		}
		summary.OutputPath = outPath
		zap.L().Info("run output written", zap.String("path", outPath), zap.Int("records", len(records)))

		if extractMerge {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := st.Merge(ctx, records)
			if err != nil {
				return eris.Wrap(err, "merge into master dataset")
			}
			zap.L().Info("master dataset merged",
				zap.Int("inserted", report.Inserted),
				zap.Int("replaced", report.Replaced),
				zap.Int("skipped", report.Skipped),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// collectTasks builds the document list from the flags: a single file or
// a manifest CSV with path, company, and year columns.
func collectTasks() ([]extract.DocumentTask, error) {
	if extractFile != "" {
		if extractCompany == "" || extractYear == 0 {
			return nil, eris.New("--file requires --company and --year")
		}
		return []extract.DocumentTask{{
			Path:    extractFile,
			Company: extractCompany,
			Year:    extractYear,
		}}, nil
	}
	if extractManifest == "" {
		return nil, nil
	}
	return readManifest(extractManifest)
}

func readManifest(path string) ([]extract.DocumentTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open manifest %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "read manifest %s", path)
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("manifest %s has no document rows", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, name := range []string{"path", "company", "year"} {
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("manifest %s: missing column %q", path, name)
		}
	}

	var tasks []extract.DocumentTask
	for i, row := range rows[1:] {
		year, err := strconv.Atoi(row[col["year"]])
		if err != nil {
			return nil, eris.Wrapf(err, "manifest %s row %d: parse year", path, i+2)
		}
		tasks = append(tasks, extract.DocumentTask{
			Path:    row[col["path"]],
			Company: row[col["company"]],
			Year:    year,
		})
	}
	return tasks, nil
}

func init() {
	extractCmd.Flags().StringVar(&extractFile, "file", "", "single document to process")
	extractCmd.Flags().StringVar(&extractCompany, "company", "", "company the document reports on")
	extractCmd.Flags().IntVar(&extractYear, "year", 0, "reporting year")
	extractCmd.Flags().StringVar(&extractManifest, "manifest", "", "CSV manifest with path, company, year columns")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "run output CSV path (default under output dir)")
	extractCmd.Flags().BoolVar(&extractMerge, "merge-master", false, "merge the run's records into the master dataset")
	rootCmd.AddCommand(extractCmd)
}
