package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

func newStatsCmd() *cobra.Command {
	var (
		dataPath   string
		configPath string
		column     string
		sheet      string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize one column, optionally after replaying a config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := loadRecords(dataPath, sheet)
			if err != nil {
				return fmt.Errorf("load data: %w", err)
			}
			p, err := processor.New(records, datasetName(dataPath), processor.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			if configPath != "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				p.ImportConfig(cfg)
			}

			if !hasColumn(p.Columns(), column) {
				return fmt.Errorf("column not found: %s", column)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p.ColumnStats(column))
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Data file (.json, .csv or .xlsx, optionally .zst)")
	cmd.Flags().StringVar(&configPath, "config", "", "Config to replay first (.json or .yaml)")
	cmd.Flags().StringVar(&column, "column", "", "Column to summarize")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read from an .xlsx data file (default first)")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func hasColumn(cols []processor.Column, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}
