package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mnemos/internal/compiler"
)

// NewQueryCommand compiles a CUE deck file and evaluates one deck
// against the card indices.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "query <decks.cue> [deck-name]",
		Short: "Evaluate a deck expression",
		Long: "Compiles the CUE deck file and evaluates the named deck against the\n" +
			"card indices, printing the selected keys. With --list, prints the\n" +
			"deck names instead of evaluating.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			decks, err := compiler.CompileSource(string(src))
			if err != nil {
				return err
			}

			if list {
				names := make([]string, len(decks))
				for i, d := range decks {
					names[i] = d.Name
				}
				return printStrings(cmd.OutOrStdout(), opts.Format, names)
			}

			if len(args) < 2 {
				return fmt.Errorf("deck name required (or use --list)")
			}
			name := args[1]
			for _, d := range decks {
				if d.Name != name {
					continue
				}
				eng, store, err := openCards(opts)
				if err != nil {
					return err
				}
				defer store.Close()

				keys, err := eng.Evaluate(d.Expr)
				if err != nil {
					return err
				}
				return printKeySet(cmd.OutOrStdout(), opts.Format, keys)
			}
			return fmt.Errorf("deck %q not found in %s", name, args[0])
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list deck names instead of evaluating")
	return cmd
}
