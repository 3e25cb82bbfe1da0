package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// HealthResult is the health endpoint response plus the measured round trip
type HealthResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and round-trip latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			start := time.Now()
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}
			result.Latency = time.Since(start).Round(time.Millisecond).String()

			output(cmd).Print(result)
			return nil
		},
	}
}
