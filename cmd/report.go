package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/esg-extract/internal/dataset"
	"github.com/sells-group/esg-extract/internal/model"
)

var (
	reportCompany string
	reportYear    int
	reportMetric  string
	reportStatus  string
	reportLimit   int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report on the master dataset",
	Long:  "Prints the dataset summary, or the matching records when any filter flag is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		filtered := reportCompany != "" || reportYear != 0 || reportMetric != "" || reportStatus != ""
		if !filtered {
			sum, err := st.Summarize(ctx)
			if err != nil {
				return err
			}
			return enc.Encode(sum)
		}

		records, err := st.List(ctx, dataset.Filter{
			Company: reportCompany,
			Year:    reportYear,
			Metric:  reportMetric,
			Status:  model.ValidationStatus(reportStatus),
			Limit:   reportLimit,
		})
		if err != nil {
			return err
		}
		return enc.Encode(records)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportCompany, "company", "", "filter by company")
	reportCmd.Flags().IntVar(&reportYear, "year", 0, "filter by reporting year")
	reportCmd.Flags().StringVar(&reportMetric, "metric", "", "filter by metric name")
	reportCmd.Flags().StringVar(&reportStatus, "status", "", "filter by validation status")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0, "maximum records to print")
	rootCmd.AddCommand(reportCmd)
}
