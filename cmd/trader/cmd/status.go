package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the portfolio valuation",
	Long: `Print cash, holdings with unrealized P/L, and total value at current prices.
Holdings without a price are shown at cost.

Example:
  trader status --config trader.yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := openSession(cfg, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	// a streaming feed has no quotes yet; holdings are shown at cost
	return sess.agent.PrintStatus(context.Background())
}
