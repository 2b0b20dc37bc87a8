package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

// columnInfo is one row of inspect output.
type columnInfo struct {
	Name     string               `json:"name"`
	Type     processor.ColumnType `json:"type"`
	NonEmpty int                  `json:"non_empty"`
	Unique   int                  `json:"unique"`
}

func newInspectCmd() *cobra.Command {
	var (
		dataPath string
		sheet    string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the inferred schema of a data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := loadRecords(dataPath, sheet)
			if err != nil {
				return fmt.Errorf("load data: %w", err)
			}
			p, err := processor.New(records, datasetName(dataPath))
			if err != nil {
				return err
			}

			cols := p.Columns()
			infos := make([]columnInfo, len(cols))
			for i, c := range cols {
				stats := p.ColumnStats(c.Name)
				infos[i] = columnInfo{Name: c.Name, Type: c.Type, NonEmpty: stats.Count, Unique: stats.Unique}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"rows":    len(records),
					"columns": infos,
				})
			}

			fmt.Fprintf(out, "%d rows, %d columns\n\n", len(records), len(infos))
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tTYPE\tNON-EMPTY\tUNIQUE")
			for _, c := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Name, c.Type, c.NonEmpty, c.Unique)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Data file (.json, .csv or .xlsx, optionally .zst)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read from an .xlsx data file (default first)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}
