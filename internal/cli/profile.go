package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"movora/internal/profile"
	"movora/internal/schema"
	"movora/internal/table"
)

type profileOutput struct {
	Reports     []profile.Report     `json:"reports"`
	Suggestions []profile.Suggestion `json:"suggestions,omitempty"`
}

func newProfileCmd(a *app) *cobra.Command {
	var (
		asJSON    bool
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "profile FILE [FILE...]",
		Short: "Profile the columns of listing CSVs and flag columns a merge would drop",
		Example: `  $ movora profile Data/raw/All_cars_dataset.csv Data/raw/Indian_Cars_Data.csv
  $ movora profile --json Data/raw/All_cars_dataset.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out  profileOutput
				sets []*table.Dataset
			)
			for _, path := range args {
				raw, err := table.ReadCSV(path)
				if err != nil {
					return err
				}
				ds, _, err := schema.Normalize(raw, schema.Options{NumericColumns: a.cfg.Schema.NumericColumns})
				if err != nil {
					return err
				}
				sets = append(sets, ds)
				out.Reports = append(out.Reports, profile.Dataset(ds))
			}
			for i := 1; i < len(sets); i++ {
				out.Suggestions = append(out.Suggestions, profile.Suggest(sets[0], sets[i], threshold)...)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printProfile(w, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().Float64Var(&threshold, "threshold", profile.DefaultThreshold, "minimum header similarity for a suggestion")
	return cmd
}

func printProfile(w io.Writer, out profileOutput) {
	for _, rep := range out.Reports {
		fmt.Fprintln(w, styles.Bold.Render(fmt.Sprintf("%s: %d rows, %d columns", rep.Name, rep.RowCount, rep.ColumnCount)))
		rows := make([][]string, 0, len(rep.Columns))
		for _, c := range rep.Columns {
			rows = append(rows, []string{
				c.Name,
				fmt.Sprint(c.NonEmptyCount),
				fmt.Sprint(c.NullCount),
				fmt.Sprint(c.UniqueNonEmptyCount),
				fmt.Sprintf("%.0f%%", c.NumericRatio*100),
				fmt.Sprintf("%.0f%%", c.PriceRatio*100),
			})
		}
		fmt.Fprintln(w, renderTable([]string{"column", "non_empty", "null", "unique", "numeric", "price"}, rows))
	}
	for _, s := range out.Suggestions {
		printWarning(w, "%s.%s is not shared; it resembles %s.%s (%.2f)", s.Source, s.Column, s.OtherSource, s.Candidate, s.Score)
	}
}
