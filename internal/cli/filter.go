package cli

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"movora/internal/config"
	"movora/internal/filter"
	"movora/internal/price"
	"movora/internal/schema"
	"movora/internal/store"
	"movora/internal/table"
)

const noResults = "No vehicles found in this range."

type filterOptions struct {
	min, max  float64
	csvPath   string
	tableName string
	limit     int
}

func newFilterCmd(a *app) *cobra.Command {
	o := &filterOptions{}
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List vehicles whose price (in Lakhs) lies in [min, max]",
		Example: `  $ movora filter --min 5 --max 10
  $ movora filter --min 100 --max 500 --csv Data/raw/All_cars_dataset.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !finite(o.min) || !finite(o.max) {
				return fmt.Errorf("%w: --min and --max must be finite numbers", filter.ErrInvalidRange)
			}
			ds, err := loadListings(cmd.Context(), a.cfg, o)
			if err != nil {
				return err
			}
			return printFiltered(cmd.OutOrStdout(), a.cfg, ds, o)
		},
	}
	cmd.Flags().Float64Var(&o.min, "min", 0, "minimum price in Lakhs")
	cmd.Flags().Float64Var(&o.max, "max", 0, "maximum price in Lakhs")
	cmd.Flags().StringVar(&o.csvPath, "csv", "", "read listings from this CSV instead of the store")
	cmd.Flags().StringVar(&o.tableName, "table", "", "table to read (default master.table)")
	cmd.Flags().IntVar(&o.limit, "limit", 20, "maximum rows to print, 0 for all")
	_ = cmd.MarkFlagRequired("min")
	_ = cmd.MarkFlagRequired("max")
	cmd.MarkFlagsMutuallyExclusive("csv", "table")
	return cmd
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func loadListings(ctx context.Context, cfg *config.Config, o *filterOptions) (*table.Dataset, error) {
	if o.csvPath != "" {
		raw, err := table.ReadCSV(o.csvPath)
		if err != nil {
			return nil, err
		}
		ds, _, err := schema.Normalize(raw, schema.Options{NumericColumns: cfg.Schema.NumericColumns})
		return ds, err
	}
	name := o.tableName
	if name == "" {
		name = cfg.Master.Table
	}
	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.LoadTable(ctx, name)
}

func printFiltered(w io.Writer, cfg *config.Config, ds *table.Dataset, o *filterOptions) error {
	col := cfg.Price.CleanedColumn
	if _, ok := schema.Lookup(ds, col); !ok {
		if _, err := filter.DerivePrice(ds, cfg.Price.Column, col, price.Unit(cfg.Price.NumericUnit)); err != nil {
			return err
		}
	}
	matched, err := filter.ByPrice(ds, col, o.min, o.max)
	if err != nil {
		return err
	}
	if matched.Len() == 0 {
		printWarning(w, noResults)
		return nil
	}

	fmt.Fprintln(w, styles.Bold.Render(fmt.Sprintf("Found %d vehicles between %s and %s",
		matched.Len(), filter.Display(o.min), filter.Display(o.max))))
	listing := filter.Listing(matched)
	priceCol, _ := schema.Lookup(matched, col)
	headers := append(append([]string(nil), listing.Columns...), "price_display")
	var rows [][]string
	for i := range listing.Rows {
		if o.limit > 0 && i >= o.limit {
			break
		}
		row := make([]string, 0, len(headers))
		for _, c := range listing.Columns {
			row = append(row, listing.Get(i, c).String())
		}
		display := ""
		if v, ok := filter.Value(matched.Get(i, priceCol)); ok {
			display = filter.Display(v)
		}
		rows = append(rows, append(row, display))
	}
	fmt.Fprintln(w, renderTable(headers, rows))
	if o.limit > 0 && matched.Len() > o.limit {
		fmt.Fprintf(w, "showing %d of %d\n", o.limit, matched.Len())
	}
	return nil
}
