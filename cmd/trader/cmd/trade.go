package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade <buy|sell> <symbol> <amount>",
	Short: "Place a manual order",
	Long: `Place one order at the current price. The order goes through the
same risk policy as the agent's own decisions, so it may be clamped or
turned into a no-op.

Buy amounts are cash and sell amounts are shares unless --shares or
--cash says otherwise.

Examples:
  trader trade buy AMD 12000
  trader trade buy AMD 10 --shares
  trader trade sell AMD 24`,
	Args: cobra.ExactArgs(3),
	RunE: runTrade,
}

var (
	tradeShares bool
	tradeCash   bool
	tradeReason string
)

func init() {
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().BoolVar(&tradeShares, "shares", false, "amount is a number of shares")
	tradeCmd.Flags().BoolVar(&tradeCash, "cash", false, "amount is cash")
	tradeCmd.Flags().StringVarP(&tradeReason, "reason", "r", "manual order", "reasoning stored with the trade")
	tradeCmd.MarkFlagsMutuallyExclusive("shares", "cash")
}

func parseTradeArgs(args []string) (string, broker.OrderIntent, error) {
	action := broker.ParseAction(args[0])
	if action == broker.Hold {
		return "", broker.OrderIntent{}, fmt.Errorf("action must be buy or sell, got %q", args[0])
	}
	symbol := strings.ToUpper(strings.TrimSpace(args[1]))
	if symbol == "" {
		return "", broker.OrderIntent{}, fmt.Errorf("symbol is required")
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return "", broker.OrderIntent{}, fmt.Errorf("amount %q: %w", args[2], err)
	}
	if !amount.IsPositive() {
		return "", broker.OrderIntent{}, fmt.Errorf("amount must be positive")
	}

	intent := broker.OrderIntent{Action: action, Amount: amount, Reasoning: tradeReason}
	switch {
	case tradeShares:
		intent.Unit = broker.UnitShares
	case tradeCash:
		intent.Unit = broker.UnitCash
	}
	return symbol, intent, nil
}

func runTrade(cmd *cobra.Command, args []string) error {
	symbol, intent, err := parseTradeArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := openSession(cfg, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.agent.Trade(context.Background(), symbol, intent)
	if err != nil {
		return fmt.Errorf("trade: %w", err)
	}

	if res.Status != broker.Executed {
		fmt.Printf("✗ %s\n", res.Summary())
		return nil
	}
	fmt.Printf("✓ %s\n", res.Summary())
	fmt.Printf("  Trade ID: %s\n", res.TradeID)
	return nil
}
