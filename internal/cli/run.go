package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"movora/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the batch pipeline and persist every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Execute(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			lines := []string{styles.Bold.Render("Pipeline finished") + "  run " + res.RunID}
			for _, ds := range res.Sources {
				lines = append(lines, fmt.Sprintf("source %-14s %6d rows %4d columns", ds.Name, ds.Len(), len(ds.Columns)))
			}
			lines = append(lines,
				fmt.Sprintf("master %-14s %6d rows %4d columns (%d priced)", res.Master.Name, res.Master.Len(), len(res.Master.Columns), res.Priced),
				fmt.Sprintf("ml     %-14s %6d rows %4d columns", a.cfg.ML.Table, res.Features.Dataset.Len(), len(res.Features.Dataset.Columns)),
			)
			printSuccessBox(out, lines...)
			for _, col := range res.Features.EmptyColumns {
				printWarning(out, "column %s has no values", col)
			}
			return nil
		},
	}
}
