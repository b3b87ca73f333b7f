package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/miles-to-go/internal/cli"
)

func recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "Show recently used addresses",
		Long:  `List the recent-waypoints suggestions, most recent first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, accessor, err := openMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			recent := accessor.RecentWaypoints()
			if len(recent) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No recent addresses yet."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Recent addresses"))
			for i, wp := range recent {
				fmt.Println(cli.FormatStop(i, wp.Describe()))
			}
			return nil
		},
	}
}
