package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradewheel/swingbot/config"
	"github.com/tradewheel/swingbot/metrics"
	"github.com/tradewheel/swingbot/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run one monitoring pass over open positions",
	Long: `Monitor fetches the latest price for every open position and closes the
ones whose stop loss, target or maximum holding period has been hit. Broker
failures leave the position open; the next scheduled pass re-attempts the
close. Exits non-zero if the trade store reports a transaction failure.

Example:
  swingbot monitor -f swingbot.yaml`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	creds := config.CredentialsFromEnv()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.CloseDB()

	b, err := newBroker(cfg, creds)
	if err != nil {
		return err
	}
	feed := newPriceFeed(cfg, creds, b)
	sink := newSink(cfg, creds)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if err := seedDryRunQuotes(ctx, st, feed); err != nil {
		return err
	}

	loop := monitor.New(st, b, feed, monitor.Params{MaxHoldDays: cfg.Monitor.MaxHoldDays}, sink, nil)
	sum, err := loop.Run(ctx)

	metrics.Push(cfg.Metrics.PushGateway, cfg.Metrics.Job)

	if err != nil {
		return fmt.Errorf("monitor aborted: %w", err)
	}

	fmt.Printf("Monitor complete (%s mode)\n", cfg.Mode)
	fmt.Printf("  Checked:      %d\n", sum.Checked)
	fmt.Printf("  Closed:       %d\n", sum.Closed)
	fmt.Printf("  Still open:   %d\n", sum.StillOpen)
	fmt.Printf("  Price errors: %d\n", sum.PriceErrors)
	fmt.Printf("  Close errors: %d\n", sum.CloseErrors)
	return nil
}
