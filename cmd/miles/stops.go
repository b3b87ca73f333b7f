package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/miles-to-go/internal/cli"
	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/waypoints"
)

func stopsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stops",
		Short: "Manage the waypoints of a distance transaction",
		Long:  `Create, add, edit, remove, and list the travel stops of a distance expense.`,
	}

	cmd.AddCommand(stopsInitCmd())
	cmd.AddCommand(stopsAddCmd())
	cmd.AddCommand(stopsSetCmd())
	cmd.AddCommand(stopsRemoveCmd())
	cmd.AddCommand(stopsListCmd())

	return cmd
}

func stopsInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <transaction-id>",
		Short: "Create the initial pair of empty waypoints",
		Long:  `Set up a transaction with its two starting waypoint slots (origin and destination).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID := args[0]

			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			mutator := waypoints.NewMutator(st, accessor)
			if err := mutator.CreateInitialWaypoints(transactionID); err != nil {
				return fmt.Errorf("failed to create initial waypoints: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Created waypoints for " + transactionID))
			return nil
		},
	}
}

func stopsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <transaction-id>",
		Short: "Append an empty stop",
		Long:  `Append one empty waypoint slot after the transaction's current last stop.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID := args[0]

			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			mutator := waypoints.NewMutator(st, accessor)
			if err := mutator.AddStop(transactionID); err != nil {
				return fmt.Errorf("failed to add stop: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Added a stop to " + transactionID))
			return nil
		},
	}
}

func stopsSetCmd() *cobra.Command {
	var (
		address string
		name    string
		lat     float64
		lng     float64
		geocode bool
		current bool
		draft   bool
	)

	cmd := &cobra.Command{
		Use:   "set <transaction-id> <index>",
		Short: "Save a waypoint at an index",
		Long: `Save the waypoint at the given zero-based index. A geocoded waypoint
(one saved with --lat/--lng) is also recorded in the recent-address list.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID := args[0]
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid waypoint index %q: %w", args[1], err)
			}

			var wp model.Waypoint
			if current {
				wp = model.CurrentLocationWaypoint(lat, lng)
			} else {
				wp = model.Waypoint{
					Address: address,
					Name:    name,
				}
				if geocode {
					wp.Lat = &lat
					wp.Lng = &lng
				}
			}

			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			mutator := waypoints.NewMutator(st, accessor)
			// SaveWaypoint's draft flag targets the opposite namespace
			// (see the mutator's TODO); invert here so the write lands
			// where the user asked.
			if err := mutator.SaveWaypoint(transactionID, index, wp, !draft); err != nil {
				return fmt.Errorf("failed to save waypoint: %w", err)
			}
			st.Flush()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved waypoint %d on %s", index, transactionID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "waypoint address")
	cmd.Flags().StringVar(&name, "name", "", "display name for the waypoint")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.Flags().BoolVar(&geocode, "geocoded", false, "treat --lat/--lng as a resolved geocode")
	cmd.Flags().BoolVar(&current, "current-location", false, "save the current-location sentinel")
	cmd.Flags().BoolVar(&draft, "draft", false, "target the draft copy of the transaction")

	return cmd
}

func stopsRemoveCmd() *cobra.Command {
	var draft bool

	cmd := &cobra.Command{
		Use:   "remove <transaction-id> <index>",
		Short: "Remove a waypoint and close the gap",
		Long: `Remove the waypoint at the given zero-based index and re-index the rest.
A two-stop trip keeps two slots: removing either end leaves an empty one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID := args[0]
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid waypoint index %q: %w", args[1], err)
			}

			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var txn model.Transaction
			if draft {
				doc, ok := st.Get(waypoints.DraftTransactionKey(transactionID))
				if !ok {
					return fmt.Errorf("draft transaction %s not found", transactionID)
				}
				txn, err = model.TransactionFromDocument(doc)
				if err != nil {
					return err
				}
				// Draft documents built up by merges may lack the id field.
				txn.TransactionID = transactionID
			} else {
				var ok bool
				txn, ok = accessor.Transaction(transactionID)
				if !ok {
					return fmt.Errorf("transaction %s not found", transactionID)
				}
			}

			mutator := waypoints.NewMutator(st, accessor)
			if err := mutator.RemoveWaypoint(txn, index, draft); err != nil {
				return fmt.Errorf("failed to remove waypoint: %w", err)
			}
			st.Flush()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed waypoint %d from %s", index, transactionID)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&draft, "draft", false, "write the result to the draft copy")

	return cmd
}

func stopsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <transaction-id>",
		Short: "List a transaction's waypoints in travel order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID := args[0]

			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			txn, ok := accessor.Transaction(transactionID)
			if !ok {
				return fmt.Errorf("transaction %s not found", transactionID)
			}

			fmt.Println(cli.FormatTitle("Stops for " + transactionID))
			for i, wp := range txn.Comment.Waypoints.Ordered() {
				fmt.Println(cli.FormatStop(i, wp.Describe()))
			}
			if txn.Comment.IsLoading {
				fmt.Println(cli.SubtleStyle.Render("route request in flight"))
			}
			return nil
		},
	}
}
