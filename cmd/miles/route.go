package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/miles-to-go/internal/cli"
	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/routing"
	"github.com/Veraticus/miles-to-go/internal/waypoints"
)

func routeCmd() *cobra.Command {
	var draft bool

	cmd := &cobra.Command{
		Use:   "route <transaction-id>",
		Short: "Request fresh route geometry",
		Long: `Ask the route service to recompute geometry for a transaction's waypoints.
The geometry itself is pushed into the store out of band; this command only
drives the request and its loading state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID := args[0]

			fetcher, err := routing.NewClient(routing.Config{
				BaseURL: viper.GetString("routing.base_url"),
				APIKey:  viper.GetString("routing.api_key"),
				Timeout: viper.GetDuration("routing.timeout"),
			})
			if err != nil {
				return err
			}

			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			// The accessor mirrors the committed namespace only; draft
			// documents are read straight from the store.
			var wps model.WaypointMap
			if draft {
				doc, ok := st.Get(waypoints.DraftTransactionKey(transactionID))
				if !ok {
					return fmt.Errorf("draft transaction %s not found", transactionID)
				}
				txn, decodeErr := model.TransactionFromDocument(doc)
				if decodeErr != nil {
					return decodeErr
				}
				wps = txn.Comment.Waypoints
			} else {
				txn, ok := accessor.Transaction(transactionID)
				if !ok {
					return fmt.Errorf("transaction %s not found", transactionID)
				}
				wps = txn.Comment.Waypoints
			}

			orchestrator := waypoints.NewOrchestrator(st, fetcher)
			if draft {
				err = orchestrator.RequestDraftRoute(cmd.Context(), transactionID, wps)
			} else {
				err = orchestrator.RequestRoute(cmd.Context(), transactionID, wps)
			}
			st.Flush()
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Route requested for " + transactionID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&draft, "draft", false, "request against the draft copy")

	return cmd
}
