package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/wordbattles/internal/api/response"
)

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players by total score",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Leaderboard

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/leaderboard?limit=%d", limit), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")

	return cmd
}
