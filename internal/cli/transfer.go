package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/ledger"
)

// NewExportCommand streams a category's event log to stdout or a file.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var out string
	var category string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a category's event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch category {
			case "cards":
				eng, store, err := openCards(opts)
				if err != nil {
					return err
				}
				defer store.Close()
				return eng.ExportLog(w)
			case "reviews":
				eng, store, err := openReviews(opts)
				if err != nil {
					return err
				}
				defer store.Close()
				return eng.ExportLog(w)
			default:
				return fmt.Errorf("unknown category %q", category)
			}
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&category, "category", "cards", "category to export (cards|reviews)")
	return cmd
}

// NewImportCommand reconciles an exported log with the local chain.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	var strategy string
	var category string

	cmd := &cobra.Command{
		Use:   "import <log-file>",
		Short: "Import an exported event log",
		Long: "Reconciles the incoming log with the local chain.\n" +
			"Strategies: fast-forward (strict extension), merge (reorder by\n" +
			"timestamp, re-link the chain), reject (refuse any difference).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ledger.ParseImportStrategy(strategy)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var report ledger.ImportReport
			switch category {
			case "cards":
				eng, store, err := openCards(opts)
				if err != nil {
					return err
				}
				defer store.Close()
				report, err = eng.ImportLog(f, st)
				if err != nil {
					return err
				}
			case "reviews":
				eng, store, err := openReviews(opts)
				if err != nil {
					return err
				}
				defer store.Close()
				report, err = eng.ImportLog(f, st)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown category %q", category)
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), importView(report))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d, duplicates %d, rejected %d\n",
				report.Applied, report.Duplicates, len(report.Rejected))
			for _, rej := range report.Rejected {
				fmt.Fprintf(cmd.OutOrStdout(), "  rejected %s on %s: %v\n", rej.Event.Op, rej.Event.Target, rej.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(ledger.FastForward), "fast-forward|merge|reject")
	cmd.Flags().StringVar(&category, "category", "cards", "category to import (cards|reviews)")
	return cmd
}

type importReportView struct {
	Applied    int      `json:"applied"`
	Duplicates int      `json:"duplicates"`
	Rejected   []string `json:"rejected,omitempty"`
}

func importView(report ledger.ImportReport) importReportView {
	v := importReportView{Applied: report.Applied, Duplicates: report.Duplicates}
	for _, rej := range report.Rejected {
		v.Rejected = append(v.Rejected, fmt.Sprintf("%s %s: %v", rej.Event.Op, rej.Event.Target, rej.Reason))
	}
	return v
}

// NewLogCommand lists the event log entries of the cards category.
func NewLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "List accepted card events",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			eng, err := ledger.Open(store, card.Model())
			if err != nil {
				return err
			}

			entries, err := eng.LogEntries()
			if err != nil {
				return err
			}
			var lines []string
			for _, entry := range entries {
				lines = append(lines, fmt.Sprintf("%4d  %-6s  %s  %s",
					entry.Index, entry.Op, entry.Target, shortHash(entry.Hash)))
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), lines)
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
