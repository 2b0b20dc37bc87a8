package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

func newApplyCmd() *cobra.Command {
	var (
		dataPath   string
		configPath string
		outPath    string
		format     string
		sheet      string
		validate   bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Replay a config onto a data file",
		Long: "Loads the data file, replays the config's operations in order and writes the " +
			"visible columns of the result to --out, or stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(format, outPath)
			if err != nil {
				return err
			}

			records, err := loadRecords(dataPath, sheet)
			if err != nil {
				return fmt.Errorf("load data: %w", err)
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			name := cfg.QueryName
			if name == "" {
				name = datasetName(dataPath)
			}
			p, err := processor.New(records, name, processor.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			if err := replay(p, cfg, validate); err != nil {
				return err
			}

			if err := writeResult(cmd.OutOrStdout(), outPath, format, name, p); err != nil {
				return err
			}

			slog.Info("config applied",
				"query", name,
				"operations", len(p.Operations()),
				"rows_before", len(p.OriginalData()),
				"rows_after", len(p.Data()),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Data file (.json, .csv or .xlsx, optionally .zst)")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (.json or .yaml, optionally .zst)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json, csv or xlsx (default from --out)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read from an .xlsx data file (default first)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Reject the config if an operation does not fit the data")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// replay applies cfg to p. With validate set, each operation is checked
// against the schema it will see, and the first problem aborts the replay.
func replay(p *processor.Processor, cfg processor.Config, validate bool) error {
	if !validate {
		p.ImportConfig(cfg)
		return nil
	}
	for i, op := range cfg.Operations {
		if err := p.Validate(op); err != nil {
			return fmt.Errorf("operation %d: %w", i+1, err)
		}
		p.Apply(op)
	}
	return nil
}

// writeResult writes the visible columns of p to outPath, or to stdout when
// outPath is empty.
func writeResult(stdout io.Writer, outPath, format, name string, p *processor.Processor) error {
	if outPath == "" {
		return writeData(stdout, format, name, p.VisibleColumns(), p.Data())
	}

	out, err := createOutput(outPath)
	if err != nil {
		return err
	}
	if err := writeData(out, format, name, p.VisibleColumns(), p.Data()); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return out.Close()
}
