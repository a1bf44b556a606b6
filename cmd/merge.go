package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/dataset"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <run.csv> [run.csv...]",
	Short: "Merge run output files into the master dataset",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		total := &dataset.MergeReport{}
		for _, path := range args {
			records, err := dataset.ReadCSV(path)
			if err != nil {
				return err
			}
			report, err := st.Merge(ctx, records)
			if err != nil {
				return eris.Wrapf(err, "merge %s", path)
			}
			zap.L().Info("run merged",
				zap.String("path", path),
				zap.Int("records", len(records)),
				zap.Int("inserted", report.Inserted),
				zap.Int("replaced", report.Replaced),
				zap.Int("skipped", report.Skipped),
			)
			total.Inserted += report.Inserted
			total.Replaced += report.Replaced
			total.Skipped += report.Skipped
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(total)
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
