// Command tablectl replays saved processor configs onto data files offline.
//
//	tablectl apply --data sales.csv --config east.yaml --out east.xlsx
//	tablectl inspect --data sales.json.zst
//	tablectl stats --data sales.json --column amount --config east.yaml
//
// Data files may be JSON arrays of flat objects, CSV or XLSX. Any path
// ending in .zst is read or written through zstd.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamapper/internal/core"
	"github.com/JonMunkholm/datamapper/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:           "tablectl",
		Short:         "Apply data mapper configs to files",
		Long:          "Replays exported transform configs onto JSON, CSV or XLSX data without a server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logging.NewWriter(cmd.ErrOrStderr(), logLevel, logFormat))
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}
