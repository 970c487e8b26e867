// Package cli implements the mnemos command line. Every command is a
// thin producer or consumer of the engine operations: submit events,
// read items, evaluate queries, move logs in and out.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mnemos/internal/blob"
	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/ledger"
	"github.com/roach88/mnemos/internal/review"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DB      string
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mnemos CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "mnemos",
		Short:         "mnemos - ontological flashcard ledger",
		Long:          "An event-sourced ledger for flashcards that form a dependency graph:\nclasses, instances, attributes, and the queries over them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "mnemos.db", "path to the ledger database")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDepsCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewReviewCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openStore opens the blob store behind --db.
func openStore(opts *RootOptions) (blob.Store, error) {
	return blob.Open(opts.DB)
}

// openCards opens the card engine over the store. The caller closes the
// returned store.
func openCards(opts *RootOptions) (*ledger.Engine[card.Card, card.Action], blob.Store, error) {
	store, err := openStore(opts)
	if err != nil {
		return nil, nil, err
	}
	eng, err := ledger.Open(store, card.Model())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}

// openReviews opens the review engine over the store.
func openReviews(opts *RootOptions) (*ledger.Engine[review.Review, review.Action], blob.Store, error) {
	store, err := openStore(opts)
	if err != nil {
		return nil, nil, err
	}
	eng, err := ledger.Open(store, review.Model())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}
