package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/miles-to-go/internal/cli"
	"github.com/Veraticus/miles-to-go/internal/waypoints"
)

func reindexCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Repair gapped waypoint key sequences",
		Long: `Scan every transaction for waypoint keys that are no longer a contiguous
zero-based sequence and rewrite them in travel order. Mutation operations
assume contiguity rather than defend it, so a gapped transaction misbehaves
until repaired. Rewriting invalidates any cached route geometry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			transactions := accessor.AllTransactions()
			bar := progressbar.Default(int64(len(transactions)), "scanning")

			mutator := waypoints.NewMutator(st, accessor)
			repaired := 0
			for id, txn := range transactions {
				_ = bar.Add(1)

				wps := txn.Comment.Waypoints
				if len(wps) == 0 || wps.IsContiguous() {
					continue
				}

				if dryRun {
					slog.Info("Would repair transaction", "transaction_id", id, "waypoints", len(wps))
					repaired++
					continue
				}

				contiguous := waypoints.Reindexed(wps)
				if err := mutator.UpdateWaypoints(id, contiguous, false); err != nil {
					return fmt.Errorf("failed to repair transaction %s: %w", id, err)
				}
				slog.Info("Repaired transaction", "transaction_id", id, "waypoints", len(contiguous))
				repaired++
			}
			st.Flush()

			if repaired == 0 {
				fmt.Println(cli.FormatSuccess("All waypoint sequences are contiguous"))
			} else if dryRun {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%d transaction(s) need repair", repaired)))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Repaired %d transaction(s)", repaired)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")

	return cmd
}
