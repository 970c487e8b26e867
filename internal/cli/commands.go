package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/harness"
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
	"github.com/roach88/mnemos/internal/review"
)

// NewAddCommand creates an unfinished card and prints its key.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <front>",
		Short: "Create an unfinished card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := openCards(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			c := card.New(ir.NewKey(), args[0])
			if _, err := eng.SubmitCreate(c); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.ID.String())
			return nil
		},
	}
}

// NewSubmitCommand applies an event script (the scenario step format) to
// the ledger.
func NewSubmitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <script.yaml>",
		Short: "Submit a YAML event script",
		Long: "Applies the steps of a scenario file to the ledger. Steps whose\n" +
			"expect field names a rejection code are treated as assertions;\n" +
			"unexpected outcomes abort the run (already-applied events stay).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := harness.LoadScenario(args[0])
			if err != nil {
				return err
			}

			eng, store, err := openCards(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			for i, step := range scenario.Steps {
				outcome, err := applyStep(eng, step)
				if err != nil {
					return fmt.Errorf("step %d: %w", i, err)
				}
				want := step.Expect
				if want == "" {
					want = "ok"
				}
				if outcome != want {
					return fmt.Errorf("step %d: expected %s, got %s", i, want, outcome)
				}
				if opts.Verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "step %d: %s\n", i, outcome)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d steps\n", len(scenario.Steps))
			return nil
		},
	}
}

func applyStep(eng *ledger.Engine[card.Card, card.Action], step harness.Step) (string, error) {
	var err error
	switch {
	case step.Create != nil:
		var c card.Card
		if c, err = step.Create.Build(); err != nil {
			return "", err
		}
		_, err = eng.SubmitCreate(c)
	case step.Modify != nil:
		var key ir.Key
		var action card.Action
		if key, action, err = step.Modify.Build(); err != nil {
			return "", err
		}
		_, err = eng.SubmitModify(key, action)
	case step.Delete != "":
		var key ir.Key
		if key, err = harness.ResolveKey(step.Delete); err != nil {
			return "", err
		}
		_, err = eng.SubmitDelete(key)
	default:
		return "", fmt.Errorf("empty step")
	}

	if err == nil {
		return "ok", nil
	}
	if ledger.IsReject(err) {
		return string(ledger.CodeOf(err)), nil
	}
	return "", err
}

// NewGetCommand prints one card.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show a card's current form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := harness.ResolveKey(args[0])
			if err != nil {
				return err
			}

			eng, store, err := openCards(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			c, ok := eng.Get(key)
			if !ok {
				return fmt.Errorf("no card with key %s", key)
			}
			return printCard(cmd.OutOrStdout(), opts.Format, eng, c)
		},
	}
}

// NewDepsCommand prints the dependency neighborhood of a card.
func NewDepsCommand(opts *RootOptions) *cobra.Command {
	var dependents bool
	var kind string

	cmd := &cobra.Command{
		Use:   "deps <key>",
		Short: "Show dependencies (or dependents) of a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := harness.ResolveKey(args[0])
			if err != nil {
				return err
			}

			eng, store, err := openCards(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			var keys ir.KeySet
			if dependents {
				keys = eng.Referencing(key, ir.RefKind(kind))
			} else {
				keys = eng.References(key, ir.RefKind(kind))
			}
			return printKeySet(cmd.OutOrStdout(), opts.Format, keys)
		},
	}
	cmd.Flags().BoolVar(&dependents, "dependents", false, "show incoming edges instead of outgoing")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by reference kind (empty = all)")
	return cmd
}

// NewVerifyCommand walks both category chains; Open fails on any hash
// mismatch.
func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the hash chains and report heads",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			cards, err := ledger.Open(store, card.Model())
			if err != nil {
				return fmt.Errorf("cards: %w", err)
			}
			reviews, err := ledger.Open(store, review.Model())
			if err != nil {
				return fmt.Errorf("reviews: %w", err)
			}

			lines := []string{
				fmt.Sprintf("cards: %d events, head %s", cards.LogLen(), shortHash(cards.LogHead())),
				fmt.Sprintf("reviews: %d events, head %s", reviews.LogLen(), shortHash(reviews.LogHead())),
			}
			return printStrings(cmd.OutOrStdout(), opts.Format, lines)
		},
	}
}

func shortHash(h string) string {
	if h == "" {
		return "(empty)"
	}
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// NewReviewCommand records a review grade for a card.
func NewReviewCommand(opts *RootOptions) *cobra.Command {
	var grade int64
	var ts int64

	cmd := &cobra.Command{
		Use:   "review <card-key>",
		Short: "Record a review grade (1-4) for a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := harness.ResolveKey(args[0])
			if err != nil {
				return err
			}

			// The card must exist before reviews accrue against its key.
			cards, store, err := openCards(opts)
			if err != nil {
				return err
			}
			defer store.Close()
			if !cards.Has(key) {
				return fmt.Errorf("no card with key %s", key)
			}

			reviews, err := ledger.Open(store, review.Model())
			if err != nil {
				return err
			}
			if !reviews.Has(key) {
				if _, err := reviews.SubmitCreate(review.New(key)); err != nil {
					return err
				}
			}
			if ts == 0 {
				ts = time.Now().Unix()
			}
			_, err = reviews.SubmitModify(key, review.Action{Timestamp: ts, Grade: review.Grade(grade)})
			return err
		},
	}
	cmd.Flags().Int64Var(&grade, "grade", int64(review.GradeGood), "recall grade, 1 (failed) to 4 (perfect)")
	cmd.Flags().Int64Var(&ts, "time", 0, "review timestamp (unix seconds, 0 = now)")
	return cmd
}
